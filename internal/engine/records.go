package engine

import (
	"strings"
	"time"

	"github.com/celerix-dev/celerix-guild/pkg/schema"
)

// NewApplication is the public submission payload.
type NewApplication struct {
	Name       string
	DiscordTag string
	About      string
}

// NewTicket is the payload shared by the chat command and the dashboard form.
type NewTicket struct {
	Title       string
	Description string
	User        string
	UserID      string
}

// now stamps records at millisecond precision.
var now = func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// AddApplication stores a Pending application under a fresh id.
func (s *Store) AddApplication(in NewApplication) (schema.Application, error) {
	var created schema.Application
	err := s.Update(func(snap *schema.Snapshot) error {
		id, err := NewID(ApplicationIDLength, func(id string) bool { return snap.FindApplication(id) != nil })
		if err != nil {
			return err
		}
		created = schema.Application{
			ID:         id,
			Name:       in.Name,
			DiscordTag: in.DiscordTag,
			About:      in.About,
			Status:     schema.StatusPending,
			CreatedAt:  now(),
		}
		snap.Applications = append(snap.Applications, created)
		return nil
	})
	return created, err
}

// DecideApplication records a decision. A decided application never changes
// again: replays return ErrAlreadyDecided.
func (s *Store) DecideApplication(id, decision, actor string) (schema.Application, error) {
	decision = strings.TrimSpace(decision)
	if decision == "" || strings.EqualFold(decision, schema.StatusPending) {
		return schema.Application{}, ErrInvalidDecision
	}

	var decided schema.Application
	err := s.Update(func(snap *schema.Snapshot) error {
		app := snap.FindApplication(id)
		if app == nil {
			return ErrApplicationNotFound
		}
		if app.Decided() {
			return ErrAlreadyDecided
		}
		at := now()
		app.Status = decision
		app.DecisionBy = &actor
		app.DecisionAt = &at
		decided = *app
		return nil
	})
	return decided, err
}

// Application returns one application by id.
func (s *Store) Application(id string) (schema.Application, error) {
	snap, err := s.Read()
	if err != nil {
		return schema.Application{}, err
	}
	app := snap.FindApplication(id)
	if app == nil {
		return schema.Application{}, ErrApplicationNotFound
	}
	return *app, nil
}

// AddTicket stores an Open ticket under a fresh id.
func (s *Store) AddTicket(in NewTicket) (schema.Ticket, error) {
	var created schema.Ticket
	err := s.Update(func(snap *schema.Snapshot) error {
		id, err := NewID(TicketIDLength, func(id string) bool { return snap.FindTicket(id) != nil })
		if err != nil {
			return err
		}
		created = schema.Ticket{
			ID:          id,
			Title:       in.Title,
			Description: in.Description,
			User:        in.User,
			UserID:      in.UserID,
			Status:      schema.TicketOpen,
			CreatedAt:   now(),
		}
		snap.Tickets = append(snap.Tickets, created)
		return nil
	})
	return created, err
}

// CloseTicket moves a ticket to Closed. Closing a closed ticket is a no-op.
func (s *Store) CloseTicket(id string) (schema.Ticket, error) {
	var closed schema.Ticket
	err := s.Update(func(snap *schema.Snapshot) error {
		t := snap.FindTicket(id)
		if t == nil {
			return ErrTicketNotFound
		}
		t.Status = schema.TicketClosed
		closed = *t
		return nil
	})
	return closed, err
}

// Ticket returns one ticket by id.
func (s *Store) Ticket(id string) (schema.Ticket, error) {
	snap, err := s.Read()
	if err != nil {
		return schema.Ticket{}, err
	}
	t := snap.FindTicket(id)
	if t == nil {
		return schema.Ticket{}, ErrTicketNotFound
	}
	return *t, nil
}

// SaveSettings replaces the settings singleton. An empty prefix falls back to the default.
func (s *Store) SaveSettings(settings schema.Settings) (schema.Settings, error) {
	if settings.Prefix == "" {
		settings.Prefix = schema.DefaultPrefix
	}
	err := s.Update(func(snap *schema.Snapshot) error {
		snap.Settings = settings
		return nil
	})
	return settings, err
}

// SaveWelcome replaces the welcome configuration.
func (s *Store) SaveWelcome(w schema.WelcomeConfig) (schema.WelcomeConfig, error) {
	err := s.Update(func(snap *schema.Snapshot) error {
		snap.Welcome = w
		return nil
	})
	return w, err
}
