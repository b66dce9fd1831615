package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()

	var srv *httptest.Server

	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":                 srv.URL,
			"authorization_endpoint": srv.URL + "/authorize",
			"token_endpoint":         srv.URL + "/token",
			"userinfo_endpoint":      srv.URL + "/userinfo",
			"end_session_endpoint":   srv.URL + "/logout",
			"jwks_uri":               srv.URL + "/keys",
		})
	}))

	t.Cleanup(srv.Close)

	return srv
}

func TestDiscover_FillsMissingEndpoints(t *testing.T) {
	srv := newDiscoveryServer(t)

	cfg, err := Discover(context.Background(), srv.URL, OIDCClient{
		ClientID:      "dashboard",
		TokenEndpoint: "https://override.example/token",
	})
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/authorize", cfg.AuthorizationEndpoint)
	assert.Equal(t, "https://override.example/token", cfg.TokenEndpoint, "configured endpoints win")
	assert.Equal(t, srv.URL+"/userinfo", cfg.UserinfoEndpoint)
	assert.Equal(t, srv.URL+"/logout", cfg.EndSessionEndpoint)
	assert.Equal(t, "dashboard", cfg.ClientID)
}

func TestDiscover_Unreachable(t *testing.T) {
	srv := newDiscoveryServer(t)
	url := srv.URL
	srv.Close()

	in := OIDCClient{ClientID: "dashboard", UserinfoEndpoint: "https://idp.example/userinfo"}

	cfg, err := Discover(context.Background(), url, in)
	require.Error(t, err)
	assert.Equal(t, in, cfg)
}
