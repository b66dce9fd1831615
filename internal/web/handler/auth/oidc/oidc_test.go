package oidc

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/web/handler"
	"github.com/community-dashboard/community-dashboard/internal/web/webtest"
)

func newIDP(t *testing.T, username string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()

		w.Header().Set("Content-Type", "application/json")

		if r.PostForm.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"code expired"}`))

			return
		}

		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","id_token":"idt-1","expires_in":600}`))
	})

	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"42","preferred_username":"` + username + `"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func ssoPolicy(idpURL string) auth.Policy {
	p := webtest.Policy()
	p.OIDC = auth.OIDCClient{
		ClientID:              "dashboard",
		ClientSecret:          "s3cret",
		RedirectURI:           "https://dash.example.org" + CallbackPath,
		AuthorizationEndpoint: idpURL + "/authorize",
		TokenEndpoint:         idpURL + "/token",
		UserinfoEndpoint:      idpURL + "/userinfo",
	}

	return p
}

func newTestApp(t *testing.T, policy auth.Policy) *fiber.App {
	t.Helper()

	app := webtest.NewApp()

	var s Service
	require.NoError(t, s.Init(app, webtest.Config(), webtest.NewGateway(policy)))

	return app
}

func startLogin(t *testing.T, app *fiber.App, jar *webtest.Jar, next string) url.Values {
	t.Helper()

	resp, _ := jar.Do(t, app, webtest.Get(LoginPath+"?next="+url.QueryEscape(next)))
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/authorize", loc.Path)

	return loc.Query()
}

func TestLoginAndCallback(t *testing.T) {
	idp := newIDP(t, "carol")
	app := newTestApp(t, ssoPolicy(idp.URL))
	jar := webtest.NewJar()

	q := startLogin(t, app, jar, "/settings")
	assert.Equal(t, "dashboard", q.Get("client_id"))
	assert.Equal(t, "code", q.Get("response_type"))
	require.NotEmpty(t, q.Get("state"))

	resp, body := jar.Do(t, app, webtest.Get(CallbackPath+"?code=good-code&state="+url.QueryEscape(q.Get("state"))))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bridge:/settings", body)
	assert.True(t, jar.Has(auth.DefaultCookieName))
}

func TestCallback_WrongState(t *testing.T) {
	idp := newIDP(t, "carol")
	app := newTestApp(t, ssoPolicy(idp.URL))
	jar := webtest.NewJar()

	startLogin(t, app, jar, "/dashboard")

	_, body := jar.Do(t, app, webtest.Get(CallbackPath+"?code=good-code&state=forged"))
	assert.Equal(t, MsgInvalidState, body)
	assert.False(t, jar.Has(auth.DefaultCookieName))
}

func TestCallback_ProviderMessageIsShown(t *testing.T) {
	idp := newIDP(t, "carol")
	app := newTestApp(t, ssoPolicy(idp.URL))
	jar := webtest.NewJar()

	q := startLogin(t, app, jar, "/dashboard")

	_, body := jar.Do(t, app, webtest.Get(CallbackPath+"?code=stale&state="+url.QueryEscape(q.Get("state"))))
	assert.Equal(t, MsgProviderRejected+": code expired", body)
}

func TestCallback_MissingParameters(t *testing.T) {
	idp := newIDP(t, "carol")
	app := newTestApp(t, ssoPolicy(idp.URL))

	_, body := webtest.NewJar().Do(t, app, webtest.Get(CallbackPath))
	assert.Equal(t, MsgIncomplete, body)
}

func TestLogin_Disabled(t *testing.T) {
	app := newTestApp(t, webtest.Policy())

	resp, body := webtest.NewJar().Do(t, app, webtest.Get(LoginPath))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, MsgSSOUnavailable, body)
}

func TestMessage(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected string
	}{
		{name: "disabled", err: auth.ErrSSODisabled, expected: MsgSSOUnavailable},
		{name: "missing parameter", err: auth.ErrMissingCallbackParameter, expected: MsgIncomplete},
		{name: "state", err: auth.ErrInvalidState, expected: MsgInvalidState},
		{
			name: "all methods failed",
			err: &auth.AllMethodsFailedError{
				Attempted: []auth.ClientAuthMethod{auth.ClientAuthPost},
				Last:      &auth.EndpointError{Kind: auth.EndpointToken, ErrorCode: "invalid_client"},
			},
			expected: MsgProviderRejected + ": invalid_client",
		},
		{
			name:     "all methods failed without detail",
			err:      &auth.AllMethodsFailedError{},
			expected: MsgProviderRejected + ".",
		},
		{
			name:     "userinfo",
			err:      &auth.EndpointError{Kind: auth.EndpointUserinfo, Description: "token revoked"},
			expected: MsgProviderRejected + ": token revoked",
		},
		{name: "other", err: errors.New("boom"), expected: MsgLoginFailed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Message(tc.err))
		})
	}
}

func TestInit_NilDependencies(t *testing.T) {
	var s Service
	require.ErrorIs(t, s.Init(nil, nil, nil), handler.ErrNilDependency)
}
