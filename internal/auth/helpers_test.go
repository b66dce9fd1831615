package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
)

// fakeRequest is a RequestContext recording the cookies set on the response.
type fakeRequest struct {
	cookies map[string]string
	query   map[string]string
	locals  map[interface{}]interface{}
	set     map[string]*fiber.Cookie
}

var _ RequestContext = (*fakeRequest)(nil)

func newFakeRequest() *fakeRequest {
	return &fakeRequest{
		cookies: map[string]string{},
		query:   map[string]string{},
		locals:  map[interface{}]interface{}{},
		set:     map[string]*fiber.Cookie{},
	}
}

func (r *fakeRequest) Cookies(key string, defaultValue ...string) string {
	if v, ok := r.cookies[key]; ok {
		return v
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return ""
}

func (r *fakeRequest) Cookie(c *fiber.Cookie) {
	r.set[c.Name] = c
}

func (r *fakeRequest) Query(key string, defaultValue ...string) string {
	if v, ok := r.query[key]; ok {
		return v
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return ""
}

func (r *fakeRequest) Locals(key interface{}, value ...interface{}) interface{} {
	if len(value) > 0 {
		r.locals[key] = value[0]
		return value[0]
	}

	return r.locals[key]
}

// next returns the following request of the same browser: request cookies
// carry over with the response cookies applied, locals and query start empty.
func (r *fakeRequest) next() *fakeRequest {
	n := newFakeRequest()

	for k, v := range r.cookies {
		n.cookies[k] = v
	}

	for k, c := range r.set {
		if c.MaxAge < 0 || c.Value == "" {
			delete(n.cookies, k)
			continue
		}

		n.cookies[k] = c.Value
	}

	return n
}

func newMemoryStorage() fiber.Storage {
	return session.New().Storage
}

// brokenStorage fails every call.
type brokenStorage struct{}

var errBroken = errors.New("storage offline")

func (brokenStorage) Get(string) ([]byte, error) { return nil, errBroken }
func (brokenStorage) Set(string, []byte, time.Duration) error { return errBroken }
func (brokenStorage) Delete(string) error { return errBroken }
func (brokenStorage) Reset() error { return errBroken }
func (brokenStorage) Close() error { return nil }

// stuckStorage accepts writes but never completes deletes in time.
type stuckStorage struct {
	fiber.Storage
	delay time.Duration
}

func (s stuckStorage) Delete(key string) error {
	time.Sleep(s.delay)
	return s.Storage.Delete(key)
}

// recordingSink keeps audit events in memory.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingSink) Record(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, ev)

	return nil
}

func (r *recordingSink) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}

	return out
}

func (r *recordingSink) has(kind EventKind) bool {
	for _, k := range r.kinds() {
		if k == kind {
			return true
		}
	}

	return false
}

// staticRoles is a RoleLookup backed by a set of moderators.
type staticRoles struct {
	moderators map[string]bool
	err        error
}

func (s staticRoles) IsModerator(_ context.Context, username string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}

	return s.moderators[username], nil
}

func testSession(method Method, admin bool) Session {
	now := time.Now()

	return Session{
		ID:            "0b7f3c1e-3c8a-4d1f-9d5e-6a0e2f7f9a11",
		Authenticated: true,
		Username:      "alice",
		DisplayName:   "Alice",
		Email:         "alice@example.org",
		AuthMethod:    method,
		IsAdmin:       admin,
		IssuedAt:      now,
		ExpiresAt:     now.Add(time.Hour),
	}
}
