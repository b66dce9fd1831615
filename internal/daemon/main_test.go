package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/config"
	"github.com/community-dashboard/community-dashboard/internal/db/controller/moderator"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		Title: "Community Dashboard",
		DB: config.DB{
			GormEngine: "sqlite",
			Name:       filepath.Join(t.TempDir(), "test.db"),
		},
		Webserver: config.Webserver{
			URL:  "http://localhost:8080",
			Port: 8080,
			Session: config.Session{
				SigningKey: "k",
				Lifetime:   2 * time.Hour,
			},
		},
		Auth: config.Auth{
			AdminUsernames: []string{"carol"},
			Moderators:     []string{"Dave"},
			LocalAdmin:     config.LocalAdmin{Username: "admin", Password: "pw"},
			OIDC: config.OIDC{
				ClientID:              "dashboard",
				RedirectURI:           "http://localhost:8080/auth/oidc/callback",
				AuthorizationEndpoint: "https://idp.example.org/authorize",
				TokenEndpoint:         "https://idp.example.org/token",
				ClientAuthMethod:      "client_secret_basic",
			},
		},
	}
}

func TestPolicyFromConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth.BypassStateCheck = true

	p := PolicyFromConfig(cfg)

	assert.True(t, p.BypassOnMissingState)
	assert.False(t, p.DirectAuth)
	assert.Equal(t, []string{"carol"}, p.AdminUsernames)
	assert.True(t, p.LocalAdmin.Enabled())
	assert.True(t, p.OIDC.Enabled())
	assert.Equal(t, auth.ClientAuthBasic, p.OIDC.ClientAuthMethod)
	assert.Equal(t, []string{"openid", "profile", "email"}, p.OIDC.Scopes)
	assert.Equal(t, 2*time.Hour, p.Session.Lifetime)
	assert.Equal(t, auth.DefaultCookieName, p.Session.CookieName)
	assert.True(t, p.Session.Secure)

	cfg.DevMode = true
	assert.False(t, PolicyFromConfig(cfg).Session.Secure)
}

func TestNew(t *testing.T) {
	cfg := testConfig(t)

	d, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	ok, err := moderator.New(d.db).IsModerator(context.Background(), "dave")
	require.NoError(t, err)
	assert.True(t, ok, "configured moderators are seeded")

	resp, err := d.App().Test(httptest.NewRequest(http.MethodGet, "/checkalive", http.NoBody), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.True(t, d.Gateway().Policy().OIDC.Enabled())
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), nil)
	require.Error(t, err)

	cfg := testConfig(t)
	cfg.Storage.Driver = "etcd"

	_, err = New(context.Background(), cfg)
	require.Error(t, err)
}

func TestNew_DiscoveryFailureKeepsConfiguredEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	cfg := testConfig(t)
	cfg.Auth.OIDC.Issuer = srv.URL

	d, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	assert.Equal(t, "https://idp.example.org/token", d.Gateway().Policy().OIDC.TokenEndpoint)
}
