// Package effect runs best-effort side effects against the chat platform.
//
// A failed effect never reaches the caller that triggered it. Attempt captures
// the result and Sink.Settle is the one place where failures are logged,
// counted and dropped.
package effect

import (
	"context"
	"errors"

	"github.com/celerix-dev/celerix-guild/internal/logger"
	"github.com/celerix-dev/celerix-guild/internal/metrics"
)

// Status of a settled effect.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// ErrSkipped marks an effect whose preconditions were not met.
var ErrSkipped = errors.New("effect skipped")

// Outcome is the result of one side effect.
type Outcome struct {
	Effect string
	Err    error
}

// Status classifies the outcome.
func (o Outcome) Status() string {
	switch {
	case o.Err == nil:
		return StatusOK
	case errors.Is(o.Err, ErrSkipped):
		return StatusSkipped
	default:
		return StatusFailed
	}
}

// Failed reports whether the effect ran and failed.
func (o Outcome) Failed() bool {
	return o.Status() == StatusFailed
}

// Attempt runs fn and captures its error. Panics are not recovered.
func Attempt(ctx context.Context, name string, fn func(context.Context) error) Outcome {
	return Outcome{Effect: name, Err: fn(ctx)}
}

// Skipped returns an error that settles as StatusSkipped rather than a failure.
func Skipped(reason string) error {
	return skipReason{reason: reason}
}

type skipReason struct{ reason string }

func (s skipReason) Error() string        { return "skipped: " + s.reason }
func (s skipReason) Is(target error) bool { return target == ErrSkipped }

// Sink discards settled outcomes after recording them.
type Sink struct {
	log logger.Logger
}

// NewSink creates a sink that logs through log.
func NewSink(log logger.Logger) *Sink {
	if log == nil {
		log = logger.NewNop()
	}
	return &Sink{log: log.With(map[string]interface{}{"component": "effects"})}
}

// Settle logs and counts each outcome, then drops it.
func (s *Sink) Settle(outcomes ...Outcome) {
	for _, o := range outcomes {
		status := o.Status()
		metrics.EffectsSettled.WithLabelValues(o.Effect, status).Inc()
		switch status {
		case StatusFailed:
			s.log.WithError(o.Err).Warn("best-effort effect failed", map[string]interface{}{"effect": o.Effect})
		case StatusSkipped:
			s.log.Debug("best-effort effect skipped", map[string]interface{}{"effect": o.Effect, "reason": o.Err.Error()})
		default:
			s.log.Debug("best-effort effect done", map[string]interface{}{"effect": o.Effect})
		}
	}
}
