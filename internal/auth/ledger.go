package auth

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	revokedBrowserPrefix = "revoked:browser:"
	revokedSessionPrefix = "revoked:session:"
)

// Ledger records logouts so that a record left behind in a backend that could
// not be cleared is never restored again.
type Ledger struct {
	store   fiber.Storage
	ttl     time.Duration
	timeout time.Duration
}

// NewLedger returns a Ledger on store. Entries expire after ttl, which must
// cover the longest session lifetime.
func NewLedger(store fiber.Storage, ttl, timeout time.Duration) *Ledger {
	return &Ledger{store: store, ttl: ttl, timeout: timeout}
}

// Revoke rejects every session of browserID issued at or before at, and every
// listed session id.
func (l *Ledger) Revoke(ctx context.Context, browserID string, sessionIDs []string, at time.Time) error {
	return withTimeout(ctx, l.timeout, func() error {
		if browserID != "" {
			cutoff := []byte(strconv.FormatInt(at.Unix(), 10))
			if err := l.store.Set(revokedBrowserPrefix+browserID, cutoff, l.ttl); err != nil {
				return err //nolint:wrapcheck
			}
		}

		for _, id := range sessionIDs {
			if id == "" {
				continue
			}

			if err := l.store.Set(revokedSessionPrefix+id, []byte("1"), l.ttl); err != nil {
				return err //nolint:wrapcheck
			}
		}

		return nil
	})
}

// Forgive drops the browser cutoff after a fresh login. Revoked session ids stay revoked.
func (l *Ledger) Forgive(ctx context.Context, browserID string) error {
	if browserID == "" {
		return nil
	}

	return withTimeout(ctx, l.timeout, func() error {
		return l.store.Delete(revokedBrowserPrefix + browserID)
	})
}

// Revoked reports whether s was logged out.
func (l *Ledger) Revoked(ctx context.Context, browserID string, s Session) (bool, error) {
	var revoked bool

	err := withTimeout(ctx, l.timeout, func() error {
		if s.ID != "" {
			v, err := l.store.Get(revokedSessionPrefix + s.ID)
			if err != nil {
				return err //nolint:wrapcheck
			}

			if len(v) > 0 {
				revoked = true
				return nil
			}
		}

		if browserID == "" {
			return nil
		}

		v, err := l.store.Get(revokedBrowserPrefix + browserID)
		if err != nil {
			return err //nolint:wrapcheck
		}

		if len(v) == 0 {
			return nil
		}

		cutoff, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return nil //nolint:nilerr // unreadable cutoff is ignored
		}

		revoked = s.IssuedAt.Unix() <= cutoff

		return nil
	})
	if err != nil {
		return false, err
	}

	return revoked, nil
}
