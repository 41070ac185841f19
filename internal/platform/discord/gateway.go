// Package discord connects the bot to Discord through discordgo.
package discord

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/celerix-dev/celerix-guild/internal/automation"
	"github.com/celerix-dev/celerix-guild/internal/dispatch"
	"github.com/celerix-dev/celerix-guild/internal/logger"
	"github.com/celerix-dev/celerix-guild/internal/platform"
)

// Intents needed for guild, member and message events.
const Intents = discordgo.IntentGuilds |
	discordgo.IntentGuildMembers |
	discordgo.IntentGuildMessages |
	discordgo.IntentMessageContent

// Gateway owns the Discord session and implements platform.Platform.
type Gateway struct {
	session *discordgo.Session
	live    atomic.Bool
	log     logger.Logger
}

var _ platform.Platform = (*Gateway)(nil)

// New creates a session for a bot token. The connection is opened by Open.
func New(token string, log logger.Logger) (*Gateway, error) {
	if log == nil {
		log = logger.NewNop()
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	s.Identify.Intents = Intents
	return &Gateway{session: s, log: log.With(map[string]interface{}{"component": "discord"})}, nil
}

// Attach routes gateway events to the dispatcher and the automation engine.
// ctx is used for every handler invocation.
func (g *Gateway) Attach(ctx context.Context, d *dispatch.Dispatcher, auto *automation.Engine) {
	g.session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		g.live.Store(true)
		g.log.Info("bot ready", map[string]interface{}{"user": r.User.String()})
	})
	g.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		g.live.Store(true)
	})
	g.session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		g.live.Store(false)
		g.log.Warn("gateway disconnected", nil)
	})

	g.session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil {
			return
		}
		msg := ConvertMessage(m.Message, g.permissions(m.Message))
		if _, err := d.Dispatch(ctx, msg); err != nil {
			g.log.WithError(err).Error("message handling failed", map[string]interface{}{
				"guild":   m.GuildID,
				"channel": m.ChannelID,
			})
		}
	})

	g.session.AddHandler(func(_ *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if m.Member == nil || m.User == nil {
			return
		}
		ev := automation.MemberJoin{GuildID: m.GuildID, UserID: m.User.ID}
		if _, err := auto.MemberJoined(ctx, ev); err != nil {
			g.log.WithError(err).Error("member join handling failed", map[string]interface{}{"user": ev.UserID})
		}
	})
}

// Open connects to the gateway.
func (g *Gateway) Open() error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (g *Gateway) Close() error {
	g.live.Store(false)
	return g.session.Close()
}

// permissions resolves the author's channel permissions, from state when cached.
func (g *Gateway) permissions(m *discordgo.Message) int64 {
	if m.GuildID == "" || m.Author.Bot {
		return 0
	}
	perms, err := g.session.State.MessagePermissions(m)
	if err == nil {
		return perms
	}
	perms, err = g.session.UserChannelPermissions(m.Author.ID, m.ChannelID)
	if err != nil {
		g.log.WithError(err).Debug("permission lookup failed", map[string]interface{}{"user": m.Author.ID})
		return 0
	}
	return perms
}

func (g *Gateway) Live() bool {
	return g.live.Load()
}

func (g *Gateway) Reply(ctx context.Context, channelID, messageID, content string) error {
	ref := &discordgo.MessageReference{MessageID: messageID, ChannelID: channelID}
	_, err := g.session.ChannelMessageSendReply(channelID, content, ref, discordgo.WithContext(ctx))
	return err
}

func (g *Gateway) SendText(ctx context.Context, channelID, content string) error {
	_, err := g.session.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return err
}

func (g *Gateway) SendNotice(ctx context.Context, channelID string, n platform.Notice) error {
	_, err := g.session.ChannelMessageSendEmbed(channelID, Embed(n), discordgo.WithContext(ctx))
	return err
}

func (g *Gateway) TextChannel(ctx context.Context, channelID string) (bool, error) {
	ch, err := g.session.State.Channel(channelID)
	if err != nil {
		ch, err = g.session.Channel(channelID, discordgo.WithContext(ctx))
		if err != nil {
			return false, err
		}
	}
	return IsTextChannel(ch.Type), nil
}

func (g *Gateway) Ban(ctx context.Context, guildID, userID, reason string) error {
	return g.session.GuildBanCreateWithReason(guildID, userID, reason, 0, discordgo.WithContext(ctx))
}

func (g *Gateway) Kick(ctx context.Context, guildID, userID, reason string) error {
	return g.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx))
}

func (g *Gateway) FindRole(ctx context.Context, guildID, name string) (string, bool, error) {
	roles, err := g.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", false, err
	}
	id, ok := FindRoleByName(roles, name)
	return id, ok, nil
}

func (g *Gateway) GrantRole(ctx context.Context, guildID, userID, roleID string) error {
	return g.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx))
}

// Embed renders a notice as a Discord embed.
func Embed(n platform.Notice) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title:       n.Title,
		Description: n.Body,
	}
	if !n.Timestamp.IsZero() {
		e.Timestamp = n.Timestamp.Format(time.RFC3339)
	}
	for _, f := range n.Fields {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return e
}
