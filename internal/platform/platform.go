// Package platform describes the chat platform operations the bot relies on.
package platform

import (
	"context"
	"errors"
	"time"
)

// ErrOffline is returned by Offline for every request.
var ErrOffline = errors.New("chat platform not connected")

// Field is one name/value pair of a notice.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Notice is a structured log message (an embed on Discord).
type Notice struct {
	Title     string
	Fields    []Field
	Body      string
	Timestamp time.Time
}

// Messenger sends messages to channels.
type Messenger interface {
	// Reply answers a specific message in its channel.
	Reply(ctx context.Context, channelID, messageID, content string) error
	// SendText posts plain text to a channel.
	SendText(ctx context.Context, channelID, content string) error
	// SendNotice posts a structured notice to a channel.
	SendNotice(ctx context.Context, channelID string, n Notice) error
	// TextChannel reports whether channelID resolves to a channel that accepts text.
	TextChannel(ctx context.Context, channelID string) (bool, error)
}

// Moderator removes members from a guild.
type Moderator interface {
	Ban(ctx context.Context, guildID, userID, reason string) error
	Kick(ctx context.Context, guildID, userID, reason string) error
}

// Roles looks up and grants guild roles.
type Roles interface {
	// FindRole returns the id of the role with exactly this name.
	FindRole(ctx context.Context, guildID, name string) (roleID string, found bool, err error)
	GrantRole(ctx context.Context, guildID, userID, roleID string) error
}

// Platform is everything the dispatcher and the automation engine need.
type Platform interface {
	Messenger
	Moderator
	Roles
	// Live reports whether the gateway connection is up.
	Live() bool
}

// Mention formats a user mention.
func Mention(userID string) string {
	return "<@" + userID + ">"
}

// Offline is the platform used when no bot token is configured. It is never
// live, so log-channel effects are skipped before any request is made.
type Offline struct{}

var _ Platform = Offline{}

func (Offline) Live() bool { return false }

func (Offline) Reply(context.Context, string, string, string) error { return ErrOffline }

func (Offline) SendText(context.Context, string, string) error { return ErrOffline }

func (Offline) SendNotice(context.Context, string, Notice) error { return ErrOffline }

func (Offline) TextChannel(context.Context, string) (bool, error) { return false, ErrOffline }

func (Offline) Ban(context.Context, string, string, string) error { return ErrOffline }

func (Offline) Kick(context.Context, string, string, string) error { return ErrOffline }

func (Offline) FindRole(context.Context, string, string) (string, bool, error) {
	return "", false, ErrOffline
}

func (Offline) GrantRole(context.Context, string, string, string) error { return ErrOffline }
