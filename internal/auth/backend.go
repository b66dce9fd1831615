package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestContext is the part of a request the persistence layer needs.
// *fiber.Ctx satisfies it.
type RequestContext interface {
	Cookies(key string, defaultValue ...string) string
	Cookie(cookie *fiber.Cookie)
	Query(key string, defaultValue ...string) string
	Locals(key interface{}, value ...interface{}) interface{}
}

var _ RequestContext = (*fiber.Ctx)(nil)

// BackendKind tells where a backend keeps its record.
type BackendKind int

const (
	// KindRequest lives for the current request only.
	KindRequest BackendKind = iota
	// KindServer lives in a server side store.
	KindServer
	// KindClient lives in the browser.
	KindClient
)

// Backend is one place a session record can be persisted.
//
// Load returns ErrRecordAbsent when nothing is stored. A record that cannot be
// trusted is reported as errInvalidRecord; any other error means the backend is
// unavailable. Store and Clear must not keep a reference to rc after returning.
type Backend interface {
	Name() string
	Kind() BackendKind
	Load(ctx context.Context, rc RequestContext) (Session, error)
	Store(ctx context.Context, rc RequestContext, s Session) error
	Clear(ctx context.Context, rc RequestContext) error
}

// withTimeout runs fn and gives up after d. fn keeps running in the background
// on timeout, so it must only touch storage, never the request.
func withTimeout(ctx context.Context, d time.Duration, fn func() error) error {
	if d <= 0 {
		return fn()
	}

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err() //nolint:wrapcheck
	}
}
