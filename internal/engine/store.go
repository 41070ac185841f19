package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/celerix-dev/celerix-guild/internal/logger"
	"github.com/celerix-dev/celerix-guild/internal/metrics"
	"github.com/celerix-dev/celerix-guild/pkg/schema"
)

var (
	// ErrApplicationNotFound is returned when no application has the requested id.
	ErrApplicationNotFound = errors.New("application not found")
	// ErrTicketNotFound is returned when no ticket has the requested id.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrAlreadyDecided is returned when a decision is replayed on a decided application.
	ErrAlreadyDecided = errors.New("application already decided")
	// ErrInvalidDecision is returned for an empty or Pending decision label.
	ErrInvalidDecision = errors.New("invalid decision")
)

// Store holds the in-memory snapshot and flushes it after every mutation.
//
// The mutex only protects the snapshot pointer and the file. A read-mutate-write
// sequence is not serialized against other callers: two overlapping Updates
// both start from the same state and the later Write wins.
type Store struct {
	mu        sync.Mutex
	snap      *schema.Snapshot
	persister *Persistence
	log       logger.Logger
}

// NewStore creates a store. A nil persister keeps everything in memory.
func NewStore(p *Persistence, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	return &Store{
		snap:      schema.NewSnapshot(),
		persister: p,
		log:       log.With(map[string]interface{}{"component": "store"}),
	}
}

// Initialize loads the durable document, creating it with defaults when absent.
func (s *Store) Initialize() (*schema.Snapshot, error) {
	if s.persister == nil {
		return s.Read()
	}

	snap, ok, err := s.persister.Load()
	if err != nil {
		return nil, err
	}
	if !ok {
		snap = schema.NewSnapshot()
		s.log.Info("creating new data file", map[string]interface{}{"path": s.persister.Path})
	}
	// Always rewrite so older documents gain the missing sections on disk.
	if err := s.Write(snap); err != nil {
		return nil, err
	}
	s.log.Info("store initialized", map[string]interface{}{
		"applications": len(snap.Applications),
		"tickets":      len(snap.Tickets),
	})
	return snap.Clone(), nil
}

// Read reloads the latest durable state and returns a private copy of it.
func (s *Store) Read() (*schema.Snapshot, error) {
	if s.persister != nil {
		snap, ok, err := s.persister.Load()
		if err != nil {
			return nil, err
		}
		if ok {
			s.mu.Lock()
			s.snap = snap
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone(), nil
}

// Write flushes snap to disk and then makes it the current state. A failed
// flush leaves the previous state in place.
func (s *Store) Write(snap *schema.Snapshot) error {
	next := snap.Clone()
	next.Normalize()

	if s.persister != nil {
		if err := s.persister.Save(next); err != nil {
			metrics.StoreWrites.WithLabelValues("error").Inc()
			s.log.WithError(err).Error("snapshot write failed", nil)
			return fmt.Errorf("write snapshot: %w", err)
		}
		metrics.StoreWrites.WithLabelValues("ok").Inc()
	}

	s.mu.Lock()
	s.snap = next
	s.mu.Unlock()
	return nil
}

// Update performs read, mutate, write as one logical unit for the caller.
// When fn returns an error nothing is written.
func (s *Store) Update(fn func(*schema.Snapshot) error) error {
	snap, err := s.Read()
	if err != nil {
		return err
	}
	if err := fn(snap); err != nil {
		return err
	}
	return s.Write(snap)
}
