// Package platformtest provides an in-memory chat platform for tests.
package platformtest

import (
	"context"
	"sync"

	"github.com/celerix-dev/celerix-guild/internal/platform"
)

// Call records one platform request.
type Call struct {
	Op        string
	GuildID   string
	ChannelID string
	MessageID string
	UserID    string
	RoleID    string
	Content   string
	Reason    string
	Notice    platform.Notice
}

// Fake implements platform.Platform. Errors set on the struct are returned by
// the matching operation; every request is recorded in Calls.
type Fake struct {
	mu    sync.Mutex
	calls []Call

	// Roles maps role name to id.
	Roles map[string]string
	// TextChannels lists channel ids that accept text.
	TextChannels map[string]bool
	Offline      bool

	ReplyErr  error
	SendErr   error
	NoticeErr error
	BanErr    error
	KickErr   error
	GrantErr  error
	LookupErr error
}

var _ platform.Platform = (*Fake)(nil)

// New returns a live fake with no roles or channels.
func New() *Fake {
	return &Fake{Roles: map[string]string{}, TextChannels: map[string]bool{}}
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

// Calls returns every recorded request, optionally filtered by operation.
func (f *Fake) Calls(ops ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(ops) == 0 {
		return append([]Call(nil), f.calls...)
	}
	var out []Call
	for _, c := range f.calls {
		for _, op := range ops {
			if c.Op == op {
				out = append(out, c)
			}
		}
	}
	return out
}

func (f *Fake) Live() bool { return !f.Offline }

func (f *Fake) Reply(_ context.Context, channelID, messageID, content string) error {
	f.record(Call{Op: "reply", ChannelID: channelID, MessageID: messageID, Content: content})
	return f.ReplyErr
}

func (f *Fake) SendText(_ context.Context, channelID, content string) error {
	f.record(Call{Op: "send", ChannelID: channelID, Content: content})
	return f.SendErr
}

func (f *Fake) SendNotice(_ context.Context, channelID string, n platform.Notice) error {
	f.record(Call{Op: "notice", ChannelID: channelID, Notice: n})
	return f.NoticeErr
}

func (f *Fake) TextChannel(_ context.Context, channelID string) (bool, error) {
	if f.LookupErr != nil {
		return false, f.LookupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.TextChannels[channelID], nil
}

func (f *Fake) Ban(_ context.Context, guildID, userID, reason string) error {
	f.record(Call{Op: "ban", GuildID: guildID, UserID: userID, Reason: reason})
	return f.BanErr
}

func (f *Fake) Kick(_ context.Context, guildID, userID, reason string) error {
	f.record(Call{Op: "kick", GuildID: guildID, UserID: userID, Reason: reason})
	return f.KickErr
}

func (f *Fake) FindRole(_ context.Context, _ string, name string) (string, bool, error) {
	if f.LookupErr != nil {
		return "", false, f.LookupErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.Roles[name]
	return id, ok, nil
}

func (f *Fake) GrantRole(_ context.Context, guildID, userID, roleID string) error {
	f.record(Call{Op: "grant", GuildID: guildID, UserID: userID, RoleID: roleID})
	return f.GrantErr
}
