package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// Persistence saves and restores sessions across an ordered list of backends.
// The order is the restore precedence; the first valid record wins.
type Persistence struct {
	backends []Backend
	ledger   *Ledger
	now      func() time.Time
}

// NewPersistence returns a Persistence over backends. A nil ledger disables logout revocation.
func NewPersistence(ledger *Ledger, backends ...Backend) *Persistence {
	return &Persistence{
		backends: backends,
		ledger:   ledger,
		now:      time.Now,
	}
}

// Backends returns the configured backends in precedence order.
func (p *Persistence) Backends() []Backend {
	return p.backends
}

// Save writes s to every backend, in order. Write failures are logged and never returned.
func (p *Persistence) Save(ctx context.Context, rc RequestContext, s Session) {
	if !s.Valid(p.now()) {
		log.Warn().Str("username", s.Username).Msg("refusing to persist an invalid session")
		return
	}

	if p.ledger != nil {
		if err := p.ledger.Forgive(ctx, BrowserID(rc)); err != nil {
			log.Error().Err(err).Msg("failed to lift logout cutoff for browser")
		}
	}

	for _, b := range p.backends {
		if err := b.Store(ctx, rc, s); err != nil {
			log.Error().Err(err).Str("backend", b.Name()).Str("username", s.Username).
				Msg("failed to persist session")
		}
	}
}

// Restore returns the session of the first backend holding a valid record.
// Untrusted, expired or revoked records are purged from their backend on the way.
// ErrNoSession is the only error returned.
func (p *Persistence) Restore(ctx context.Context, rc RequestContext) (Session, error) {
	now := p.now()
	bid := BrowserID(rc)

	markHandoff(rc)

	for i, b := range p.backends {
		s, err := b.Load(ctx, rc)

		switch {
		case errors.Is(err, ErrRecordAbsent):
			continue
		case errors.Is(err, errInvalidRecord):
			log.Warn().Str("backend", b.Name()).Msg("discarding untrusted session record")
			p.purge(ctx, rc, b)

			continue
		case err != nil:
			log.Error().Err(backendError(b, "get", err)).Msg("session backend unavailable, treating as absent")
			continue
		}

		if !s.Valid(now) {
			log.Debug().Str("backend", b.Name()).Str("username", s.Username).Msg("purging expired session record")
			p.purge(ctx, rc, b)

			continue
		}

		if b.Kind() != KindRequest && p.revoked(ctx, bid, s) {
			log.Info().Str("backend", b.Name()).Str("username", s.Username).Msg("purging revoked session record")
			p.purge(ctx, rc, b)

			continue
		}

		p.rehydrate(ctx, rc, s, i)
		restoreTotal.WithLabelValues(b.Name()).Inc()

		return s, nil
	}

	return Session{}, ErrNoSession
}

// Clear revokes every session visible for the request, then clears every backend.
// The ledger entry keeps backends that could not be cleared from restoring the session.
func (p *Persistence) Clear(ctx context.Context, rc RequestContext) {
	bid := BrowserID(rc)

	if p.ledger != nil {
		var ids []string

		for _, b := range p.backends {
			if s, err := b.Load(ctx, rc); err == nil && s.ID != "" {
				ids = append(ids, s.ID)
			}
		}

		if err := p.ledger.Revoke(ctx, bid, ids, p.now()); err != nil {
			log.Error().Err(err).Msg("failed to record logout in revocation ledger")
		}
	}

	for _, b := range p.backends {
		if err := b.Clear(ctx, rc); err != nil {
			log.Error().Err(backendError(b, "clear", err)).Msg("failed to clear session backend")
		}
	}
}

func (p *Persistence) revoked(ctx context.Context, bid string, s Session) bool {
	if p.ledger == nil {
		return false
	}

	revoked, err := p.ledger.Revoked(ctx, bid, s)
	if err != nil {
		log.Error().Err(err).Msg("revocation ledger unavailable")
		return false
	}

	return revoked
}

// rehydrate copies s into the request and server backends ranked above index.
func (p *Persistence) rehydrate(ctx context.Context, rc RequestContext, s Session, index int) {
	for _, b := range p.backends[:index] {
		if b.Kind() == KindClient {
			continue
		}

		if err := b.Store(ctx, rc, s); err != nil {
			log.Error().Err(err).Str("backend", b.Name()).Msg("failed to re-hydrate session")
		}
	}
}

func (p *Persistence) purge(ctx context.Context, rc RequestContext, b Backend) {
	if err := b.Clear(ctx, rc); err != nil {
		log.Error().Err(backendError(b, "clear", err)).Msg("failed to purge session record")
	}
}

func backendError(b Backend, op string, err error) error {
	var bErr *BackendError
	if errors.As(err, &bErr) {
		return err
	}

	return &BackendError{Backend: b.Name(), Op: op, Err: err}
}
