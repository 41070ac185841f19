// Package schema defines the records shared by the dashboard, the bot and the store.
package schema

import "time"

// Application statuses. Any other non-empty label except StatusPending is
// accepted as a decision.
const (
	StatusPending  = "Pending"
	StatusApproved = "Approved"
	StatusRejected = "Rejected"
)

// Ticket statuses.
const (
	TicketOpen   = "Open"
	TicketClosed = "Closed"
)

// DefaultPrefix is used whenever the stored prefix is empty.
const DefaultPrefix = "!"

// UserPlaceholder is replaced with the new member's mention in welcome messages.
const UserPlaceholder = "{user}"

// Application is a membership request submitted through the public form.
type Application struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	DiscordTag string     `json:"discordTag"`
	About      string     `json:"about"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	DecisionBy *string    `json:"decisionBy,omitempty"`
	DecisionAt *time.Time `json:"decisionAt,omitempty"`
}

// Decided reports whether the application has left the Pending state.
func (a Application) Decided() bool {
	return a.Status != "" && a.Status != StatusPending
}

// Ticket is a support request opened from chat or from the dashboard.
type Ticket struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	User        string    `json:"user,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Settings holds the bot behaviour editable from the dashboard.
type Settings struct {
	Prefix       string `json:"prefix"`
	AutoRoleName string `json:"autoRoleName,omitempty"`
}

// EffectivePrefix returns the configured prefix or DefaultPrefix.
func (s Settings) EffectivePrefix() string {
	if s.Prefix == "" {
		return DefaultPrefix
	}
	return s.Prefix
}

// WelcomeConfig controls the greeting sent when a member joins.
type WelcomeConfig struct {
	Enabled bool   `json:"enabled"`
	Channel string `json:"channel,omitempty"`
	Message string `json:"message"`
}

// Snapshot is the complete persisted state of one community.
type Snapshot struct {
	Applications []Application `json:"applications"`
	Tickets      []Ticket      `json:"tickets"`
	Settings     Settings      `json:"settings"`
	Welcome      WelcomeConfig `json:"welcome"`
}

// NewSnapshot returns a snapshot with empty collections and default singletons.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Applications: []Application{},
		Tickets:      []Ticket{},
		Settings:     Settings{Prefix: DefaultPrefix},
		Welcome:      WelcomeConfig{},
	}
}

// Normalize fills sections missing from an older document with their defaults.
func (s *Snapshot) Normalize() {
	if s.Applications == nil {
		s.Applications = []Application{}
	}
	if s.Tickets == nil {
		s.Tickets = []Ticket{}
	}
	if s.Settings.Prefix == "" {
		s.Settings.Prefix = DefaultPrefix
	}
}

// Clone returns a deep copy that callers may mutate freely.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		Applications: make([]Application, len(s.Applications)),
		Tickets:      make([]Ticket, len(s.Tickets)),
		Settings:     s.Settings,
		Welcome:      s.Welcome,
	}
	for i, a := range s.Applications {
		if a.DecisionBy != nil {
			by := *a.DecisionBy
			a.DecisionBy = &by
		}
		if a.DecisionAt != nil {
			at := *a.DecisionAt
			a.DecisionAt = &at
		}
		out.Applications[i] = a
	}
	copy(out.Tickets, s.Tickets)
	return out
}

// FindApplication returns a pointer into the snapshot, or nil.
func (s *Snapshot) FindApplication(id string) *Application {
	for i := range s.Applications {
		if s.Applications[i].ID == id {
			return &s.Applications[i]
		}
	}
	return nil
}

// FindTicket returns a pointer into the snapshot, or nil.
func (s *Snapshot) FindTicket(id string) *Ticket {
	for i := range s.Tickets {
		if s.Tickets[i].ID == id {
			return &s.Tickets[i]
		}
	}
	return nil
}
