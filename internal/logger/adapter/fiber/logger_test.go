package fiber_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/community-dashboard/community-dashboard/internal/logger"
	adapter "github.com/community-dashboard/community-dashboard/internal/logger/adapter/fiber"
)

// accessEntry implements the access log json format.
type accessEntry struct {
	IP      string `json:"IP"`
	Status  int    `json:"status"`
	URI     string `json:"URI"`
	Method  string `json:"method"`
	Host    string `json:"host"`
	Referer string `json:"Referer"`
}

func serve(t *testing.T, cfg adapter.Config, target string, header map[string]string) (string, *bytes.Buffer) {
	t.Helper()

	var out bytes.Buffer

	cfg.Output = &out

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
		Immutable:     true,
	})

	app.Use(adapter.New(cfg))

	app.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.SendString("hello test")
	})

	app.Get("/checkalive", func(ctx *fiber.Ctx) error {
		return ctx.SendString("OK")
	})

	req := httptest.NewRequest(fiber.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	return resp.Header.Get("X-Performance"), &out
}

func decode(t *testing.T, out *bytes.Buffer) accessEntry {
	t.Helper()

	var entry accessEntry
	require.NoError(t, json.Unmarshal(out.Bytes(), &entry), out.String())

	return entry
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   accessEntry
	}{
		{
			name:   "root",
			target: "/",
			want:   accessEntry{Status: 200, URI: "/", Method: fiber.MethodGet, Host: "example.com"},
		},
		{
			name:   "multiple slashes are logged unchanged",
			target: "//test",
			want:   accessEntry{Status: 404, URI: "//test", Method: fiber.MethodGet, Host: "example.com"},
		},
		{
			name:   "plain params",
			target: "/?test=123",
			want:   accessEntry{Status: 200, URI: "/?test=123", Method: fiber.MethodGet, Host: "example.com"},
		},
		{
			name:   "callback params are redacted",
			target: "/?code=secret-code&state=secret-state",
			want: accessEntry{
				Status: 200,
				URI:    "/?code=REDACTED&state=REDACTED",
				Method: fiber.MethodGet,
				Host:   "example.com",
			},
		},
		{
			name:   "handoff param is redacted",
			target: "/?browser_auth=%7B%22username%22%3A%22alice%22%7D",
			want:   accessEntry{Status: 200, URI: "/?browser_auth=REDACTED", Method: fiber.MethodGet, Host: "example.com"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perf, out := serve(t, adapter.Config{}, tt.target, nil)

			assert.NotEmpty(t, perf)

			got := decode(t, out)
			assert.Equal(t, tt.want.Status, got.Status)
			assert.Equal(t, tt.want.URI, got.URI)
			assert.Equal(t, tt.want.Method, got.Method)
			assert.Equal(t, tt.want.Host, got.Host)
			assert.NotContains(t, out.String(), "secret-")
			assert.NotContains(t, out.String(), "alice")
		})
	}
}

func TestNew_RedactsReferer(t *testing.T) {
	_, out := serve(t, adapter.Config{}, "/", map[string]string{
		fiber.HeaderReferer: "https://dash.example.org/auth/oidc/callback?code=secret-code&next=%2F",
	})

	got := decode(t, out)
	assert.Equal(t, "https://dash.example.org/auth/oidc/callback?code=REDACTED&next=%2F", got.Referer)
}

func TestNew_ExtraRedactedParams(t *testing.T) {
	_, out := serve(t, adapter.Config{Config: logger.Log{RedactQuery: []string{"invite"}}}, "/?invite=abc", nil)

	assert.Equal(t, "/?invite=REDACTED", decode(t, out).URI)
}

func TestNew_CheckAlive(t *testing.T) {
	_, out := serve(t, adapter.Config{Config: logger.Log{DisableCheckAlive: true}}, "/checkalive", nil)
	assert.Empty(t, out.String())

	_, out = serve(t, adapter.Config{}, "/checkalive", nil)
	assert.NotEmpty(t, out.String())
}

func TestNew_Next(t *testing.T) {
	_, out := serve(t, adapter.Config{Next: func(*fiber.Ctx) bool { return true }}, "/", nil)
	assert.Empty(t, out.String())
}

func TestNew_NoWriters(t *testing.T) {
	app := fiber.New()
	app.Use(adapter.New())
	app.Get("/", func(ctx *fiber.Ctx) error { return ctx.SendString("ok") })

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
	require.NoError(t, err)

	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
