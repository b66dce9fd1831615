package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

const mirrorKeyPrefix = "mirror:"

// mirrorEntry is the value stored per browser context. Tokens are kept next to
// the record because this store never reaches the browser.
type mirrorEntry struct {
	Record       json.RawMessage `json:"record"`
	AccessToken  string          `json:"access_token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	IDToken      string          `json:"id_token,omitempty"`
	TokenExpiry  int64           `json:"token_expiry,omitempty"`
}

// MirrorBackend is the permanent-flag mirror: a server side copy of the session,
// keyed by browser context and overwritten on every save.
type MirrorBackend struct {
	store   fiber.Storage
	sealer  *Sealer
	timeout time.Duration
}

// NewMirrorBackend returns a MirrorBackend on store. Every storage call is bounded by timeout.
func NewMirrorBackend(store fiber.Storage, sealer *Sealer, timeout time.Duration) *MirrorBackend {
	return &MirrorBackend{store: store, sealer: sealer, timeout: timeout}
}

// Name implements Backend.
func (m *MirrorBackend) Name() string { return "mirror" }

// Kind implements Backend.
func (m *MirrorBackend) Kind() BackendKind { return KindServer }

// Load implements Backend.
func (m *MirrorBackend) Load(ctx context.Context, rc RequestContext) (Session, error) {
	bid := BrowserID(rc)
	if bid == "" {
		return Session{}, ErrRecordAbsent
	}

	var data []byte

	err := withTimeout(ctx, m.timeout, func() error {
		var errGet error
		data, errGet = m.store.Get(mirrorKeyPrefix + bid)

		return errGet
	})
	if err != nil {
		return Session{}, &BackendError{Backend: m.Name(), Op: "get", Err: err}
	}

	if len(data) == 0 {
		return Session{}, ErrRecordAbsent
	}

	var entry mirrorEntry
	if err = json.Unmarshal(data, &entry); err != nil {
		return Session{}, errors.Join(errInvalidRecord, err)
	}

	rec, err := m.sealer.Decode(entry.Record)
	if err != nil {
		return Session{}, err
	}

	s := rec.Session()
	if s.AuthMethod == MethodSSO {
		s.Tokens = Tokens{
			AccessToken:  entry.AccessToken,
			RefreshToken: entry.RefreshToken,
			IDToken:      entry.IDToken,
		}

		if entry.TokenExpiry != 0 {
			s.Tokens.ExpiresAt = time.Unix(entry.TokenExpiry, 0)
		}
	}

	return s, nil
}

// Store implements Backend.
func (m *MirrorBackend) Store(ctx context.Context, rc RequestContext, s Session) error {
	bid := BrowserID(rc)
	if bid == "" {
		return &BackendError{Backend: m.Name(), Op: "set", Err: errors.New("no browser context")}
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	rec, err := m.sealer.Encode(RecordFromSession(s))
	if err != nil {
		return &BackendError{Backend: m.Name(), Op: "encode", Err: err}
	}

	entry := mirrorEntry{Record: rec}
	if s.AuthMethod == MethodSSO {
		entry.AccessToken = s.Tokens.AccessToken
		entry.RefreshToken = s.Tokens.RefreshToken
		entry.IDToken = s.Tokens.IDToken

		if !s.Tokens.ExpiresAt.IsZero() {
			entry.TokenExpiry = s.Tokens.ExpiresAt.Unix()
		}
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return &BackendError{Backend: m.Name(), Op: "encode", Err: err}
	}

	err = withTimeout(ctx, m.timeout, func() error {
		return m.store.Set(mirrorKeyPrefix+bid, data, ttl)
	})
	if err != nil {
		return &BackendError{Backend: m.Name(), Op: "set", Err: err}
	}

	return nil
}

// Clear implements Backend.
func (m *MirrorBackend) Clear(ctx context.Context, rc RequestContext) error {
	bid := BrowserID(rc)
	if bid == "" {
		return nil
	}

	err := withTimeout(ctx, m.timeout, func() error {
		return m.store.Delete(mirrorKeyPrefix + bid)
	})
	if err != nil {
		return &BackendError{Backend: m.Name(), Op: "delete", Err: err}
	}

	return nil
}
