// Package automation turns lifecycle events into side effects on the chat platform.
package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/celerix-dev/celerix-guild/internal/effect"
	"github.com/celerix-dev/celerix-guild/internal/engine"
	"github.com/celerix-dev/celerix-guild/internal/logger"
	"github.com/celerix-dev/celerix-guild/internal/platform"
	"github.com/celerix-dev/celerix-guild/pkg/schema"
)

// Effect names, used as metric labels.
const (
	EffectGrantRole         = "grant-role"
	EffectWelcome           = "welcome"
	EffectApplicationNotice = "application-notice"
	EffectDecisionNotice    = "decision-notice"
	EffectTicketNotice      = "ticket-notice"
)

// Options configures an Engine.
type Options struct {
	// LogChannelID receives application and ticket notices. Empty disables them.
	LogChannelID string
}

// Engine persists lifecycle transitions and then fans out best-effort notifications.
// It keeps no state of its own; every decision reads the store.
type Engine struct {
	store      *engine.Store
	chat       platform.Platform
	sink       *effect.Sink
	log        logger.Logger
	logChannel string
	joinRules  []JoinRule
}

// New wires an engine with the default join rules.
func New(store *engine.Store, chat platform.Platform, log logger.Logger, opts Options) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	return &Engine{
		store:      store,
		chat:       chat,
		sink:       effect.NewSink(log),
		log:        log.With(map[string]interface{}{"component": "automation"}),
		logChannel: opts.LogChannelID,
		joinRules: []JoinRule{
			AutoRoleRule{Roles: chat},
			WelcomeRule{Messenger: chat},
		},
	}
}

// Sink exposes the engine's effect boundary so the dispatcher settles through it too.
func (e *Engine) Sink() *effect.Sink {
	return e.sink
}

// SubmitApplication stores a Pending application and announces it.
func (e *Engine) SubmitApplication(ctx context.Context, in engine.NewApplication) (schema.Application, error) {
	app, err := e.store.AddApplication(in)
	if err != nil {
		return schema.Application{}, err
	}
	e.log.Info("application submitted", map[string]interface{}{"application": app.ID})

	e.sink.Settle(e.notify(ctx, EffectApplicationNotice, platform.Notice{
		Title: "New Application",
		Fields: []platform.Field{
			{Name: "Name", Value: orDefault(app.Name, "N/A"), Inline: true},
			{Name: "ID", Value: app.ID, Inline: true},
		},
		Body:      orDefault(app.About, "No info"),
		Timestamp: time.Now().UTC(),
	}))
	return app, nil
}

// DecideApplication records a decision and announces it.
func (e *Engine) DecideApplication(ctx context.Context, id, decision, actor string) (schema.Application, error) {
	app, err := e.store.DecideApplication(id, decision, actor)
	if err != nil {
		return schema.Application{}, err
	}
	e.log.Info("application decided", map[string]interface{}{
		"application": app.ID,
		"decision":    app.Status,
		"by":          actor,
	})

	applicant := app.Name
	if applicant == "" {
		applicant = app.DiscordTag
	}
	e.sink.Settle(e.notify(ctx, EffectDecisionNotice, platform.Notice{
		Title: fmt.Sprintf("Application %s", app.Status),
		Fields: []platform.Field{
			{Name: "Applicant", Value: orDefault(applicant, "N/A"), Inline: true},
			{Name: "Decision By", Value: actor, Inline: true},
		},
		Body:      orDefault(app.About, "No details"),
		Timestamp: time.Now().UTC(),
	}))
	return app, nil
}

// CreateTicket stores an Open ticket and announces it in the log channel.
func (e *Engine) CreateTicket(ctx context.Context, in engine.NewTicket) (schema.Ticket, error) {
	t, err := e.store.AddTicket(in)
	if err != nil {
		return schema.Ticket{}, err
	}
	e.log.Info("ticket created", map[string]interface{}{"ticket": t.ID, "user": t.UserID})

	requester := "dashboard"
	switch {
	case t.UserID != "":
		requester = platform.Mention(t.UserID)
	case t.User != "":
		requester = t.User
	}
	e.sink.Settle(e.send(ctx, EffectTicketNotice, fmt.Sprintf("New ticket %s by %s: %s", t.ID, requester, t.Title)))
	return t, nil
}

// MemberJoined runs every join rule independently against a fresh store read.
func (e *Engine) MemberJoined(ctx context.Context, ev MemberJoin) ([]effect.Outcome, error) {
	snap, err := e.store.Read()
	if err != nil {
		return nil, err
	}

	outcomes := make([]effect.Outcome, 0, len(e.joinRules))
	for _, rule := range e.joinRules {
		outcomes = append(outcomes, effect.Attempt(ctx, rule.Name(), func(ctx context.Context) error {
			return rule.Apply(ctx, snap, ev)
		}))
	}
	e.sink.Settle(outcomes...)
	return outcomes, nil
}

// logTarget checks the preconditions shared by every log-channel effect.
func (e *Engine) logTarget(ctx context.Context) error {
	if e.logChannel == "" {
		return effect.Skipped("no log channel configured")
	}
	if !e.chat.Live() {
		return effect.Skipped("chat connection not ready")
	}
	ok, err := e.chat.TextChannel(ctx, e.logChannel)
	if err != nil {
		return err
	}
	if !ok {
		return effect.Skipped("log channel is not a text channel")
	}
	return nil
}

func (e *Engine) notify(ctx context.Context, name string, n platform.Notice) effect.Outcome {
	return effect.Attempt(ctx, name, func(ctx context.Context) error {
		if err := e.logTarget(ctx); err != nil {
			return err
		}
		return e.chat.SendNotice(ctx, e.logChannel, n)
	})
}

func (e *Engine) send(ctx context.Context, name, content string) effect.Outcome {
	return effect.Attempt(ctx, name, func(ctx context.Context) error {
		if err := e.logTarget(ctx); err != nil {
			return err
		}
		return e.chat.SendText(ctx, e.logChannel, content)
	})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
