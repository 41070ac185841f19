package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/celerix-dev/celerix-guild/internal/automation"
	"github.com/celerix-dev/celerix-guild/internal/effect"
	"github.com/celerix-dev/celerix-guild/internal/engine"
	"github.com/celerix-dev/celerix-guild/internal/logger"
	"github.com/celerix-dev/celerix-guild/internal/metrics"
	"github.com/celerix-dev/celerix-guild/internal/platform"
)

var (
	// ErrPermissionDenied is reported when the sender lacks the command's capability.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidArgument is reported when a required mention is missing.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Fixed reply texts.
const (
	ReplyNoPermission = "No permission"
	ReplyMentionUser  = "Mention user"
	ReplyBanned       = "Banned"
	ReplyKicked       = "Kicked"
	ReplyFailed       = "Failed"

	DefaultTitle  = "No title"
	DefaultReason = "No reason"
)

// Message is an inbound chat message.
type Message struct {
	ID        string
	GuildID   string
	ChannelID string
	AuthorID  string
	AuthorTag string
	// AuthorBot is set for messages written by bot accounts, including this one.
	AuthorBot    bool
	Capabilities Capabilities
	// Mentions holds the ids of mentioned members in message order.
	Mentions []string
	Content  string
}

// Result describes what a dispatch did.
type Result struct {
	Kind    Kind
	Handled bool
	Reply   string
	// Err is the user-facing failure (ErrPermissionDenied, ErrInvalidArgument).
	Err error
}

type handlerFunc func(ctx context.Context, msg Message, cmd Command) (string, error)

// route declares what a command needs before its handler runs.
type route struct {
	requires     Capability
	needsMention bool
	run          handlerFunc
}

// Options configures a Dispatcher.
type Options struct {
	// GuildID restricts commands to one guild. Empty accepts any guild.
	GuildID string
}

// Dispatcher executes chat commands against the store and the platform.
type Dispatcher struct {
	store      *engine.Store
	automation *automation.Engine
	chat       platform.Platform
	sink       *effect.Sink
	log        logger.Logger
	guildID    string
	routes     map[Kind]route
}

// New builds a dispatcher with the built-in command table.
func New(store *engine.Store, auto *automation.Engine, chat platform.Platform, log logger.Logger, opts Options) *Dispatcher {
	if log == nil {
		log = logger.NewNop()
	}
	d := &Dispatcher{
		store:      store,
		automation: auto,
		chat:       chat,
		sink:       auto.Sink(),
		log:        log.With(map[string]interface{}{"component": "dispatch"}),
		guildID:    opts.GuildID,
	}
	d.routes = map[Kind]route{
		KindCreateTicket: {run: d.createTicket},
		KindBan:          {requires: CapBanMembers, needsMention: true, run: d.ban},
		KindKick:         {requires: CapKickMembers, needsMention: true, run: d.kick},
	}
	return d
}

// Dispatch handles one message. The returned error is an infrastructure
// failure (store I/O); user mistakes are answered in chat and reported in Result.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) (Result, error) {
	if msg.AuthorBot || msg.GuildID == "" {
		return Result{}, nil
	}
	if d.guildID != "" && msg.GuildID != d.guildID {
		return Result{}, nil
	}

	snap, err := d.store.Read()
	if err != nil {
		return Result{}, err
	}
	cmd, ok := Parse(snap.Settings.EffectivePrefix(), msg.Content)
	if !ok {
		return Result{}, nil
	}
	r, ok := d.routes[cmd.Kind]
	if !ok {
		// Unknown commands stay silent so prefix collisions do not spam channels.
		return Result{}, nil
	}

	res := Result{Kind: cmd.Kind, Handled: true}
	switch {
	case !msg.Capabilities.Has(r.requires):
		res.Reply, res.Err = ReplyNoPermission, ErrPermissionDenied
	case r.needsMention && len(msg.Mentions) == 0:
		res.Reply, res.Err = ReplyMentionUser, ErrInvalidArgument
	default:
		res.Reply, err = r.run(ctx, msg, cmd)
		if err != nil {
			metrics.CommandsDispatched.WithLabelValues(cmd.Name, "error").Inc()
			return res, fmt.Errorf("%s: %w", cmd.Name, err)
		}
	}

	outcome := "ok"
	if res.Err != nil {
		outcome = "rejected"
	}
	metrics.CommandsDispatched.WithLabelValues(cmd.Name, outcome).Inc()
	d.log.Debug("command dispatched", map[string]interface{}{
		"command": cmd.Name,
		"author":  msg.AuthorID,
		"outcome": outcome,
	})

	d.sink.Settle(effect.Attempt(ctx, "reply", func(ctx context.Context) error {
		return d.chat.Reply(ctx, msg.ChannelID, msg.ID, res.Reply)
	}))
	return res, nil
}

func (d *Dispatcher) createTicket(ctx context.Context, msg Message, cmd Command) (string, error) {
	t, err := d.automation.CreateTicket(ctx, engine.NewTicket{
		Title:  cmd.Rest(0, DefaultTitle),
		User:   msg.AuthorTag,
		UserID: msg.AuthorID,
	})
	if err != nil {
		return "", err
	}
	return "Ticket created: " + t.ID, nil
}

func (d *Dispatcher) ban(ctx context.Context, msg Message, cmd Command) (string, error) {
	target := msg.Mentions[0]
	o := effect.Attempt(ctx, "ban", func(ctx context.Context) error {
		return d.chat.Ban(ctx, msg.GuildID, target, cmd.Rest(1, DefaultReason))
	})
	d.sink.Settle(o)
	if o.Err != nil {
		return ReplyFailed, nil
	}
	return ReplyBanned, nil
}

func (d *Dispatcher) kick(ctx context.Context, msg Message, cmd Command) (string, error) {
	target := msg.Mentions[0]
	o := effect.Attempt(ctx, "kick", func(ctx context.Context) error {
		return d.chat.Kick(ctx, msg.GuildID, target, cmd.Rest(1, DefaultReason))
	})
	d.sink.Settle(o)
	if o.Err != nil {
		return ReplyFailed, nil
	}
	return ReplyKicked, nil
}
