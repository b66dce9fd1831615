package auth

import "context"

const localsSession = "auth.session"

// EphemeralBackend keeps the session in the request locals.
// It holds the complete session including tokens, for the current request only.
type EphemeralBackend struct{}

// Name implements Backend.
func (EphemeralBackend) Name() string { return "ephemeral" }

// Kind implements Backend.
func (EphemeralBackend) Kind() BackendKind { return KindRequest }

// Load implements Backend.
func (EphemeralBackend) Load(_ context.Context, rc RequestContext) (Session, error) {
	s, ok := rc.Locals(localsSession).(Session)
	if !ok || !s.Authenticated {
		return Session{}, ErrRecordAbsent
	}

	return s, nil
}

// Store implements Backend.
func (EphemeralBackend) Store(_ context.Context, rc RequestContext, s Session) error {
	rc.Locals(localsSession, s)
	return nil
}

// Clear implements Backend.
func (EphemeralBackend) Clear(_ context.Context, rc RequestContext) error {
	rc.Locals(localsSession, Session{})
	return nil
}
