package automation

import (
	"context"
	"strings"

	"github.com/celerix-dev/celerix-guild/internal/effect"
	"github.com/celerix-dev/celerix-guild/internal/platform"
	"github.com/celerix-dev/celerix-guild/pkg/schema"
)

// MemberJoin is a member joining the community.
type MemberJoin struct {
	GuildID string
	UserID  string
}

// JoinRule reacts to a member join. Rules run independently; one failing does
// not stop the others.
type JoinRule interface {
	Name() string
	Apply(ctx context.Context, snap *schema.Snapshot, ev MemberJoin) error
}

// AutoRoleRule grants the configured auto-role when a role with that exact name exists.
type AutoRoleRule struct {
	Roles platform.Roles
}

func (AutoRoleRule) Name() string { return EffectGrantRole }

func (r AutoRoleRule) Apply(ctx context.Context, snap *schema.Snapshot, ev MemberJoin) error {
	name := snap.Settings.AutoRoleName
	if name == "" {
		return effect.Skipped("no auto-role configured")
	}
	roleID, found, err := r.Roles.FindRole(ctx, ev.GuildID, name)
	if err != nil {
		return err
	}
	if !found {
		return effect.Skipped("role " + name + " does not exist")
	}
	return r.Roles.GrantRole(ctx, ev.GuildID, ev.UserID, roleID)
}

// WelcomeRule posts the welcome template to the configured channel.
type WelcomeRule struct {
	Messenger platform.Messenger
}

func (WelcomeRule) Name() string { return EffectWelcome }

func (r WelcomeRule) Apply(ctx context.Context, snap *schema.Snapshot, ev MemberJoin) error {
	w := snap.Welcome
	if !w.Enabled || w.Channel == "" {
		return effect.Skipped("welcome disabled")
	}
	ok, err := r.Messenger.TextChannel(ctx, w.Channel)
	if err != nil {
		return err
	}
	if !ok {
		return effect.Skipped("welcome channel is not a text channel")
	}
	return r.Messenger.SendText(ctx, w.Channel, RenderWelcome(w.Message, ev.UserID))
}

// RenderWelcome substitutes every {user} placeholder with the member's mention.
func RenderWelcome(template, userID string) string {
	return strings.ReplaceAll(template, schema.UserPlaceholder, platform.Mention(userID))
}
