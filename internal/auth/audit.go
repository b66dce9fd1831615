package auth

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// EventKind classifies a security relevant event.
type EventKind string

const (
	EventStateBypass    EventKind = "state_bypass"
	EventStateRejected  EventKind = "state_rejected"
	EventLoginSucceeded EventKind = "login_succeeded"
	EventLoginFailed    EventKind = "login_failed"
	EventLogout         EventKind = "logout"
)

// Event is a single entry for the admin audit log.
type Event struct {
	Kind      EventKind
	Username  string
	BrowserID string
	Detail    string
	At        time.Time
}

// AuditSink receives security events. Implementations must be safe for concurrent use.
type AuditSink interface {
	Record(ctx context.Context, ev Event) error
}

// LogSink writes events to the global zerolog logger.
type LogSink struct{}

// Record implements AuditSink.
func (LogSink) Record(_ context.Context, ev Event) error {
	e := log.Info()
	if ev.Kind == EventStateBypass || ev.Kind == EventStateRejected || ev.Kind == EventLoginFailed {
		e = log.Warn()
	}

	e.Str("event", string(ev.Kind)).
		Str("username", ev.Username).
		Str("browser", ev.BrowserID).
		Time("at", ev.At).
		Msg(ev.Detail)

	return nil
}

// MultiSink fans events out to every sink. All sinks are tried; the first error is returned.
type MultiSink []AuditSink

// Record implements AuditSink.
func (m MultiSink) Record(ctx context.Context, ev Event) error {
	var first error

	for _, s := range m {
		if err := s.Record(ctx, ev); err != nil && first == nil {
			first = err
		}
	}

	return first
}

// audit records ev on sink. A failing sink never affects the login result.
func audit(ctx context.Context, sink AuditSink, ev Event) {
	if sink == nil {
		return
	}

	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	if err := sink.Record(ctx, ev); err != nil {
		log.Error().Err(err).Str("event", string(ev.Kind)).Msg("failed to record audit event")
	}
}
