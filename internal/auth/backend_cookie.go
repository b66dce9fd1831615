package auth

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
)

// CookieBackend keeps the sealed record in a single http-only cookie.
type CookieBackend struct {
	name     string
	lifetime time.Duration
	secure   bool
	sealer   *Sealer
}

// NewCookieBackend returns a CookieBackend configured from settings.
func NewCookieBackend(settings SessionSettings, sealer *Sealer) *CookieBackend {
	name := settings.CookieName
	if name == "" {
		name = DefaultCookieName
	}

	lifetime := settings.Lifetime
	if lifetime <= 0 {
		lifetime = defaultSessionLifetime
	}

	return &CookieBackend{name: name, lifetime: lifetime, secure: settings.Secure, sealer: sealer}
}

// Name implements Backend.
func (c *CookieBackend) Name() string { return "cookie" }

// Kind implements Backend.
func (c *CookieBackend) Kind() BackendKind { return KindClient }

// Load implements Backend.
func (c *CookieBackend) Load(_ context.Context, rc RequestContext) (Session, error) {
	raw := rc.Cookies(c.name)
	if raw == "" {
		return Session{}, ErrRecordAbsent
	}

	data, err := url.QueryUnescape(raw)
	if err != nil {
		return Session{}, errors.Join(errInvalidRecord, err)
	}

	rec, err := c.sealer.Decode([]byte(data))
	if err != nil {
		return Session{}, err
	}

	return rec.Session(), nil
}

// Store implements Backend.
func (c *CookieBackend) Store(_ context.Context, rc RequestContext, s Session) error {
	data, err := c.sealer.Encode(RecordFromSession(s))
	if err != nil {
		return &BackendError{Backend: c.Name(), Op: "encode", Err: err}
	}

	maxAge := c.lifetime
	if left := time.Until(s.ExpiresAt); left < maxAge {
		maxAge = left
	}

	if maxAge <= 0 {
		return nil
	}

	rc.Cookie(&fiber.Cookie{
		Name:     c.name,
		Value:    url.QueryEscape(string(data)),
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   c.secure,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return nil
}

// Clear implements Backend.
func (c *CookieBackend) Clear(_ context.Context, rc RequestContext) error {
	rc.Cookie(&fiber.Cookie{
		Name:     c.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   c.secure,
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return nil
}
