package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockIDP serves the token and userinfo endpoints.
type mockIDP struct {
	*httptest.Server
	tokenCalls atomic.Int32
}

func newMockIDP(t *testing.T, username string) *mockIDP {
	t.Helper()

	idp := &mockIDP{}
	mux := http.NewServeMux()

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		idp.tokenCalls.Add(1)

		_ = r.ParseForm()
		if r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","id_token":"idt-1","expires_in":600}`))
	})

	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"42","preferred_username":"` + username + `","name":"Carol"}`))
	})

	idp.Server = httptest.NewServer(mux)
	t.Cleanup(idp.Close)

	return idp
}

func gatewayPolicy(idpURL string) Policy {
	return Policy{
		AdminUsernames: []string{"carol"},
		LocalAdmin:     LocalAdmin{Username: "admin", Password: "adminpass"},
		OIDC: OIDCClient{
			ClientID:              "dashboard",
			ClientSecret:          "s3cret",
			RedirectURI:           "https://dash.example.org/auth/oidc/callback",
			AuthorizationEndpoint: idpURL + "/authorize",
			TokenEndpoint:         idpURL + "/token",
			UserinfoEndpoint:      idpURL + "/userinfo",
			EndSessionEndpoint:    idpURL + "/logout",
			PostLogoutRedirectURI: "https://dash.example.org/login",
		},
		Session: SessionSettings{SigningKey: "test-signing-key"},
	}
}

func newTestGateway(policy Policy, sink AuditSink) *Gateway {
	return New(Options{
		Policy:  policy,
		Storage: newMemoryStorage(),
		Audit:   sink,
	})
}

func TestGateway_LocalAdminScenario(t *testing.T) {
	g := newTestGateway(gatewayPolicy("https://idp.example.org"), &recordingSink{})
	ctx := context.Background()

	login := newFakeRequest()

	s, err := g.LoginLocal(ctx, login, "admin", "adminpass")
	require.NoError(t, err)
	assert.Equal(t, MethodLocal, s.AuthMethod)
	assert.True(t, s.IsAdmin)

	// the next request restores the session without credentials
	next := login.next()

	got, err := g.RequireAdmin(ctx, next, "/settings")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "admin", got.Username)
	assert.Equal(t, got, g.Current(next))
}

func TestGateway_LoginLocalRejected(t *testing.T) {
	sink := &recordingSink{}
	g := newTestGateway(gatewayPolicy("https://idp.example.org"), sink)

	_, err := g.LoginLocal(context.Background(), newFakeRequest(), "admin", "nope")
	require.ErrorIs(t, err, ErrInvalidLocalCredentials)
	assert.True(t, sink.has(EventLoginFailed))
}

func TestGateway_RequireAuthOffersLoginOptions(t *testing.T) {
	g := newTestGateway(gatewayPolicy("https://idp.example.org"), nil)

	_, err := g.RequireAuth(context.Background(), newFakeRequest(), "/dashboard")

	var loginErr *LoginRequiredError
	require.ErrorAs(t, err, &loginErr)
	assert.True(t, errors.Is(err, ErrNoSession))
	assert.True(t, loginErr.Options.LocalEnabled)
	assert.True(t, loginErr.Options.SSOEnabled)
	assert.Equal(t, "/auth/oidc/login?next=%2Fdashboard", loginErr.Options.SSOURL)
}

func TestGateway_RequireAdminForbidsNonAdmin(t *testing.T) {
	g := newTestGateway(gatewayPolicy("https://idp.example.org"), nil)
	rc := newBrowserRequest()

	g.Persistence().Save(context.Background(), rc, testSession(MethodSSO, false))

	_, err := g.RequireAdmin(context.Background(), rc.next(), "/settings")
	require.ErrorIs(t, err, ErrForbidden)
}

func beginSSO(t *testing.T, g *Gateway, next string) (*fakeRequest, string) {
	t.Helper()

	rc := newFakeRequest()

	authURL, err := g.BeginSSO(context.Background(), rc, next)
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)

	return rc.next(), u.Query().Get("state")
}

func TestGateway_SSOCallback(t *testing.T) {
	idp := newMockIDP(t, "carol")
	sink := &recordingSink{}
	g := newTestGateway(gatewayPolicy(idp.URL), sink)

	callback, state := beginSSO(t, g, "/settings")
	require.NotEmpty(t, state)

	s, redirect, err := g.Callback(context.Background(), callback, "good-code", state)
	require.NoError(t, err)

	assert.Equal(t, "/settings", redirect)
	assert.Equal(t, "carol", s.Username)
	assert.True(t, s.IsAdmin)
	assert.Equal(t, "idt-1", s.Tokens.IDToken)
	assert.True(t, sink.has(EventLoginSucceeded))

	// logout hands back the provider end-session URL with the id token hint
	logoutReq := callback.next()

	endSession := g.Logout(context.Background(), logoutReq)
	require.NotEmpty(t, endSession)

	u, err := url.Parse(endSession)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(endSession, idp.URL+"/logout?"))
	assert.Equal(t, "idt-1", u.Query().Get("id_token_hint"))
	assert.Equal(t, "dashboard", u.Query().Get("client_id"))
	assert.Equal(t, "https://dash.example.org/login", u.Query().Get("post_logout_redirect_uri"))
	assert.True(t, sink.has(EventLogout))

	_, err = g.RequireAuth(context.Background(), logoutReq.next(), "/dashboard")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestGateway_CallbackMissingParameter(t *testing.T) {
	idp := newMockIDP(t, "carol")
	g := newTestGateway(gatewayPolicy(idp.URL), nil)

	_, _, err := g.Callback(context.Background(), newFakeRequest(), "good-code", "")
	require.ErrorIs(t, err, ErrMissingCallbackParameter)

	_, _, err = g.Callback(context.Background(), newFakeRequest(), "", "state")
	require.ErrorIs(t, err, ErrMissingCallbackParameter)
	assert.Zero(t, idp.tokenCalls.Load())
}

func TestGateway_CallbackStateRejected(t *testing.T) {
	idp := newMockIDP(t, "carol")
	g := newTestGateway(gatewayPolicy(idp.URL), &recordingSink{})

	callback, _ := beginSSO(t, g, "/dashboard")

	_, _, err := g.Callback(context.Background(), callback, "good-code", "attacker-state")
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Zero(t, idp.tokenCalls.Load())

	_, err = g.RequireAuth(context.Background(), callback.next(), "/dashboard")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestGateway_BypassProceedsToExchange(t *testing.T) {
	idp := newMockIDP(t, "carol")
	sink := &recordingSink{}

	policy := gatewayPolicy(idp.URL)
	policy.BypassOnMissingState = true
	g := newTestGateway(policy, sink)

	// the pending state was lost: the callback arrives in a fresh browser context
	s, redirect, err := g.Callback(context.Background(), newFakeRequest(), "good-code", "mismatched-state")
	require.NoError(t, err)

	assert.Equal(t, "carol", s.Username)
	assert.Equal(t, DefaultRedirectPath, redirect)
	assert.Equal(t, int32(1), idp.tokenCalls.Load())
	assert.True(t, sink.has(EventStateBypass))
}

func TestGateway_ExchangeFailureSurfacesProviderMessage(t *testing.T) {
	idp := newMockIDP(t, "carol")
	g := newTestGateway(gatewayPolicy(idp.URL), &recordingSink{})

	callback, state := beginSSO(t, g, "/dashboard")

	_, _, err := g.Callback(context.Background(), callback, "stale-code", state)
	require.ErrorIs(t, err, ErrAllClientAuthMethodsFailed)

	var allErr *AllMethodsFailedError
	require.ErrorAs(t, err, &allErr)
	assert.Equal(t, "code expired", allErr.ProviderMessage())
	assert.Equal(t, int32(3), idp.tokenCalls.Load())
}

func TestGateway_SSODisabled(t *testing.T) {
	policy := gatewayPolicy("https://idp.example.org")
	policy.OIDC = OIDCClient{}
	g := newTestGateway(policy, nil)

	_, err := g.BeginSSO(context.Background(), newFakeRequest(), "/")
	require.ErrorIs(t, err, ErrSSODisabled)

	opts := g.LoginOptions("/", "")
	assert.False(t, opts.SSOEnabled)
	assert.Empty(t, opts.SSOURL)
}

func TestGateway_LocalLogoutHasNoEndSession(t *testing.T) {
	g := newTestGateway(gatewayPolicy("https://idp.example.org"), nil)

	login := newFakeRequest()
	_, err := g.LoginLocal(context.Background(), login, "admin", "adminpass")
	require.NoError(t, err)

	logoutReq := login.next()
	assert.Empty(t, g.Logout(context.Background(), logoutReq))

	_, err = g.RequireAuth(context.Background(), logoutReq.next(), "/dashboard")
	require.ErrorIs(t, err, ErrNoSession)
}

func TestGateway_LoginRotatesBrowserContext(t *testing.T) {
	const planted = "11111111-2222-4333-8444-555555555555"

	g := newTestGateway(gatewayPolicy("https://idp.example.org"), &recordingSink{})
	ctx := context.Background()

	victim := newFakeRequest()
	victim.cookies[BrowserCookieName] = planted

	_, err := g.LoginLocal(ctx, victim, "admin", "adminpass")
	require.NoError(t, err)

	issued, ok := victim.set[BrowserCookieName]
	require.True(t, ok, "login sets a new browser context cookie")
	assert.NotEqual(t, planted, issued.Value)
	assert.True(t, issued.HTTPOnly)

	// a browser still presenting the planted id gets nothing
	attacker := newFakeRequest()
	attacker.cookies[BrowserCookieName] = planted

	_, err = g.RequireAuth(ctx, attacker, "/dashboard")
	require.ErrorIs(t, err, ErrNoSession)

	got, err := g.RequireAuth(ctx, victim.next(), "/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Username)
}

func TestGateway_CallbackRotatesBrowserContext(t *testing.T) {
	idp := newMockIDP(t, "carol")
	g := newTestGateway(gatewayPolicy(idp.URL), nil)
	ctx := context.Background()

	callback, state := beginSSO(t, g, "/dashboard")
	before := callback.cookies[BrowserCookieName]
	require.NotEmpty(t, before)

	_, _, err := g.Callback(ctx, callback, "good-code", state)
	require.NoError(t, err)

	after := callback.set[BrowserCookieName]
	require.NotNil(t, after)
	assert.NotEqual(t, before, after.Value)

	stale := newFakeRequest()
	stale.cookies[BrowserCookieName] = before

	_, err = g.RequireAuth(ctx, stale, "/dashboard")
	require.ErrorIs(t, err, ErrNoSession)

	s, err := g.RequireAuth(ctx, callback.next(), "/dashboard")
	require.NoError(t, err)
	assert.Equal(t, "idt-1", s.Tokens.IDToken, "the mirror follows the new browser context")
}
