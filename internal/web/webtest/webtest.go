// Package webtest holds helpers for fiber handler tests.
package webtest

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/config"
	"github.com/community-dashboard/community-dashboard/internal/storage"
)

// NoOpViews is a minimal Fiber Views engine used for tests.
// It writes the "error" field from the provided fiber.Map (if any)
// so tests can assert error messages rendered by handlers.
type NoOpViews struct{}

// Load implements fiber.Views.
func (NoOpViews) Load() error { return nil }

// Render implements fiber.Views.
func (NoOpViews) Render(w io.Writer, name string, data interface{}, _ ...string) error {
	if m, ok := data.(fiber.Map); ok {
		if v, exists := m["error"]; exists && v != nil && v != "" {
			_, _ = io.WriteString(w, v.(string))
			return nil
		}

		if name == "bridge" {
			_, _ = io.WriteString(w, "bridge:"+m["Target"].(string))
			return nil
		}
	}
	// write template name to have some content
	_, _ = io.WriteString(w, name)

	return nil
}

// CaptureViews renders like NoOpViews and keeps the data of the last render.
type CaptureViews struct {
	NoOpViews

	mu   sync.Mutex
	last fiber.Map
}

// Render implements fiber.Views.
func (v *CaptureViews) Render(w io.Writer, name string, data interface{}, layout ...string) error {
	if m, ok := data.(fiber.Map); ok {
		v.mu.Lock()
		v.last = m
		v.mu.Unlock()
	}

	return v.NoOpViews.Render(w, name, data, layout...)
}

// Last returns the data of the last render.
func (v *CaptureViews) Last() fiber.Map {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.last
}

// NewApp returns a fiber app rendering with NoOpViews.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{Views: NoOpViews{}})
}

// Policy is a local admin only policy.
func Policy() auth.Policy {
	return auth.Policy{
		AdminUsernames: []string{"carol"},
		LocalAdmin:     auth.LocalAdmin{Username: "admin", Password: "adminpass"},
		Session:        auth.SessionSettings{SigningKey: "test-signing-key"},
	}
}

// NewGateway returns a gateway on process memory storage.
func NewGateway(policy auth.Policy, opts ...func(*auth.Options)) *auth.Gateway {
	o := auth.Options{
		Policy:  policy,
		Storage: storage.Memory(),
	}

	for _, fn := range opts {
		fn(&o)
	}

	return auth.New(o)
}

// Config returns a minimal valid configuration.
func Config() *config.Config {
	return &config.Config{
		Title: "Community Dashboard",
		Webserver: config.Webserver{
			URL:  "http://localhost",
			Port: 3000,
		},
	}
}

// Jar carries response cookies over to the next request.
type Jar struct {
	cookies map[string]string
}

// NewJar returns an empty Jar.
func NewJar() *Jar {
	return &Jar{cookies: map[string]string{}}
}

// Apply adds the stored cookies to req.
func (j *Jar) Apply(req *http.Request) {
	for name, value := range j.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}

// Store records the cookies set or deleted by resp.
func (j *Jar) Store(resp *http.Response) {
	for _, c := range resp.Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(j.cookies, c.Name)
			continue
		}

		j.cookies[c.Name] = c.Value
	}
}

// Has reports whether the jar holds a cookie.
func (j *Jar) Has(name string) bool {
	_, ok := j.cookies[name]
	return ok
}

// Do runs req against app with the jar applied and stored.
func (j *Jar) Do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, string) {
	t.Helper()

	j.Apply(req)

	resp, err := app.Test(req, -1)
	require.NoError(t, err, "app.Test failed")

	j.Store(resp)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	_ = resp.Body.Close()

	return resp, string(body)
}

// Get builds a GET request.
func Get(target string) *http.Request {
	req, _ := http.NewRequest(http.MethodGet, target, http.NoBody)
	return req
}

// PostForm builds a form POST request.
func PostForm(target string, form url.Values) *http.Request {
	req, _ := http.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return req
}

// LoginAs registers a test route on app that persists s for the calling browser.
// It returns the route path.
func LoginAs(app *fiber.App, gw *auth.Gateway, s auth.Session) string {
	const path = "/__test/login"

	app.Post(path, func(c *fiber.Ctx) error {
		auth.EnsureBrowserID(c, gw.Policy().Session)
		gw.Persistence().Save(c.UserContext(), c, s)

		return c.SendStatus(fiber.StatusNoContent)
	})

	return path
}

// MemberSession returns a valid non-admin SSO session.
func MemberSession(username string) auth.Session {
	now := time.Now()

	return auth.Session{
		ID:            uuid.NewString(),
		Authenticated: true,
		Username:      username,
		AuthMethod:    auth.MethodSSO,
		IssuedAt:      now,
		ExpiresAt:     now.Add(time.Hour),
	}
}

// AdminSession returns a valid local admin session.
func AdminSession() auth.Session {
	s := MemberSession("admin")
	s.AuthMethod = auth.MethodLocal
	s.IsAdmin = true

	return s
}
