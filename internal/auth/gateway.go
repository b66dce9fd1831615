package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// DefaultSSOLoginPath is the route that starts the SSO flow.
const DefaultSSOLoginPath = "/auth/oidc/login"

// Options assembles a Gateway.
type Options struct {
	Policy Policy
	// Storage holds pending login states, the session mirror and the revocation ledger.
	Storage fiber.Storage
	Roles   RoleLookup
	Memory  MethodMemory
	Audit   AuditSink
	// SSOLoginPath is the route serving BeginSSO. Default DefaultSSOLoginPath.
	SSOLoginPath string
	// Backends replaces the default backend chain when set.
	Backends []Backend
}

// Gateway is the facade used by every protected page.
type Gateway struct {
	policy       Policy
	sealer       *Sealer
	persistence  *Persistence
	local        *LocalAuthenticator
	states       *StateValidator
	exchanger    *TokenExchanger
	resolver     *IdentityResolver
	sink         AuditSink
	store        fiber.Storage
	ssoLoginPath string
}

// New builds a Gateway with the default backend chain
// ephemeral, mirror, handoff, cookie.
func New(opts Options) *Gateway {
	if opts.Storage == nil {
		panic("auth: storage is nil")
	}

	policy := opts.Policy.WithDefaults()
	sealer := NewSealer(policy.Session.SigningKey)

	if opts.Audit == nil {
		opts.Audit = LogSink{}
	}

	if opts.SSOLoginPath == "" {
		opts.SSOLoginPath = DefaultSSOLoginPath
	}

	backends := opts.Backends
	if len(backends) == 0 {
		backends = []Backend{
			EphemeralBackend{},
			NewMirrorBackend(opts.Storage, sealer, policy.Session.SaveTimeout),
			NewHandoffBackend(sealer),
			NewCookieBackend(policy.Session, sealer),
		}
	}

	ledger := NewLedger(opts.Storage, ledgerTTL(policy), policy.Session.SaveTimeout)

	return &Gateway{
		policy:       policy,
		sealer:       sealer,
		persistence:  NewPersistence(ledger, backends...),
		local:        NewLocalAuthenticator(policy),
		states:       NewStateValidator(opts.Storage, policy, opts.Audit),
		exchanger:    NewTokenExchanger(policy.OIDC, opts.Memory),
		resolver:     NewIdentityResolver(policy, opts.Roles),
		sink:         opts.Audit,
		store:        opts.Storage,
		ssoLoginPath: opts.SSOLoginPath,
	}
}

// ledgerTTL covers the cookie lifetime and a generous provider token lifetime.
func ledgerTTL(p Policy) time.Duration {
	if p.Session.Lifetime > defaultSessionLifetime {
		return p.Session.Lifetime
	}

	return defaultSessionLifetime
}

// Policy returns the effective policy.
func (g *Gateway) Policy() Policy { return g.policy }

// Sealer returns the record sealer shared by the browser held backends.
func (g *Gateway) Sealer() *Sealer { return g.sealer }

// Persistence returns the session persistence.
func (g *Gateway) Persistence() *Persistence { return g.persistence }

// Restore returns the session of the request, or ErrNoSession.
func (g *Gateway) Restore(ctx context.Context, rc RequestContext) (Session, error) {
	return g.persistence.Restore(ctx, rc)
}

// Current returns the session already restored during this request, or the zero Session.
func (g *Gateway) Current(rc RequestContext) Session {
	s, err := EphemeralBackend{}.Load(context.Background(), rc)
	if err != nil {
		return Session{}
	}

	return s
}

// LoginOptions returns the login choices for path with an optional user-visible error.
func (g *Gateway) LoginOptions(path, errMsg string) LoginOptions {
	path = SanitizeRedirectPath(path)

	opts := LoginOptions{
		Path:         path,
		LocalEnabled: g.local.Enabled(),
		SSOEnabled:   g.policy.OIDC.Enabled(),
		Error:        errMsg,
	}

	if opts.SSOEnabled {
		opts.SSOURL = g.ssoLoginPath + "?" + url.Values{"next": {path}}.Encode()
	}

	return opts
}

// RequireAuth returns the session of the request or a *LoginRequiredError.
func (g *Gateway) RequireAuth(ctx context.Context, rc RequestContext, path string) (Session, error) {
	s, err := g.persistence.Restore(ctx, rc)
	if err != nil {
		return Session{}, &LoginRequiredError{Options: g.LoginOptions(path, "")}
	}

	return s, nil
}

// RequireAdmin is RequireAuth for admins only. Non-admin sessions yield ErrForbidden.
func (g *Gateway) RequireAdmin(ctx context.Context, rc RequestContext, path string) (Session, error) {
	s, err := g.RequireAuth(ctx, rc, path)
	if err != nil {
		return Session{}, err
	}

	if !s.IsAdmin {
		log.Warn().Str("username", s.Username).Str("path", path).Msg("admin page denied")
		return Session{}, ErrForbidden
	}

	return s, nil
}

// LoginLocal checks the local admin credentials and persists the new session.
func (g *Gateway) LoginLocal(ctx context.Context, rc RequestContext, username, password string) (Session, error) {
	EnsureBrowserID(rc, g.policy.Session)

	s, err := g.local.Authenticate(username, password)
	loginTotal.WithLabelValues(string(MethodLocal), resultLabel(err)).Inc()

	if err != nil {
		audit(ctx, g.sink, Event{
			Kind:      EventLoginFailed,
			Username:  username,
			BrowserID: BrowserID(rc),
			Detail:    "local login rejected",
		})

		return Session{}, err
	}

	bid := g.rotateBrowser(ctx, rc)
	g.persistence.Save(ctx, rc, s)

	audit(ctx, g.sink, Event{
		Kind:      EventLoginSucceeded,
		Username:  s.Username,
		BrowserID: bid,
		Detail:    "local login",
	})

	return s, nil
}

// BeginSSO records a new login attempt and returns the provider authorization URL.
func (g *Gateway) BeginSSO(ctx context.Context, rc RequestContext, next string) (string, error) {
	if !g.policy.OIDC.Enabled() {
		return "", ErrSSODisabled
	}

	bid := EnsureBrowserID(rc, g.policy.Session)

	st, err := g.states.NewState(ctx, bid, next, g.policy.OIDC.ClientAuthMethod)
	if err != nil {
		return "", err
	}

	return g.exchanger.AuthCodeURL(st.State), nil
}

// Callback completes the SSO flow and returns the new session and where to send the user.
func (g *Gateway) Callback(ctx context.Context, rc RequestContext, code, state string) (Session, string, error) {
	if !g.policy.OIDC.Enabled() {
		return Session{}, "", ErrSSODisabled
	}

	bid := EnsureBrowserID(rc, g.policy.Session)

	if code == "" || state == "" {
		g.loginFailed(ctx, "", bid, ErrMissingCallbackParameter)
		return Session{}, "", ErrMissingCallbackParameter
	}

	decision, err := g.states.Validate(ctx, bid, state)
	if err != nil {
		g.loginFailed(ctx, "", bid, err)
		return Session{}, "", err
	}

	preferred := decision.Pending.PreferredMethod
	if preferred == "" {
		preferred = g.policy.OIDC.ClientAuthMethod
	}

	tokens, method, err := g.exchanger.Exchange(ctx, code, g.policy.OIDC.RedirectURI, preferred)
	if err != nil {
		g.loginFailed(ctx, "", bid, err)
		return Session{}, "", err
	}

	s, err := g.resolver.Resolve(ctx, tokens)
	if err != nil {
		g.loginFailed(ctx, "", bid, err)
		return Session{}, "", err
	}

	bid = g.rotateBrowser(ctx, rc)
	g.persistence.Save(ctx, rc, s)
	loginTotal.WithLabelValues(string(MethodSSO), resultLabel(nil)).Inc()

	audit(ctx, g.sink, Event{
		Kind:      EventLoginSucceeded,
		Username:  s.Username,
		BrowserID: bid,
		Detail:    fmt.Sprintf("sso login, client auth method %s", method),
	})

	redirect := decision.Pending.RedirectPath
	if redirect == "" {
		redirect = DefaultRedirectPath
	}

	return s, redirect, nil
}

// rotateBrowser replaces the browser context id of rc and drops whatever the
// old id still holds server side. It returns the new id.
func (g *Gateway) rotateBrowser(ctx context.Context, rc RequestContext) string {
	previous, current := RotateBrowserID(rc, g.policy.Session)
	if previous == "" {
		return current
	}

	err := withTimeout(ctx, g.policy.Session.SaveTimeout, func() error {
		return errors.Join(
			g.store.Delete(mirrorKeyPrefix+previous),
			g.store.Delete(stateKeyPrefix+previous),
		)
	})
	if err != nil {
		log.Error().Err(&BackendError{Backend: "mirror", Op: "delete", Err: err}).
			Msg("failed to drop state of the previous browser context")
	}

	return current
}

func (g *Gateway) loginFailed(ctx context.Context, username, bid string, err error) {
	loginTotal.WithLabelValues(string(MethodSSO), resultLabel(err)).Inc()

	detail := err.Error()

	var allErr *AllMethodsFailedError
	if errors.As(err, &allErr) {
		detail = fmt.Sprintf("%v (attempted %v)", ErrAllClientAuthMethodsFailed, allErr.Attempted)
	}

	audit(ctx, g.sink, Event{
		Kind:      EventLoginFailed,
		Username:  username,
		BrowserID: bid,
		Detail:    detail,
	})
}

// Logout clears the session everywhere. For SSO sessions it returns the
// provider end-session URL, or "" when the provider has none.
func (g *Gateway) Logout(ctx context.Context, rc RequestContext) string {
	s, err := g.persistence.Restore(ctx, rc)
	g.persistence.Clear(ctx, rc)

	if err != nil {
		return ""
	}

	audit(ctx, g.sink, Event{
		Kind:      EventLogout,
		Username:  s.Username,
		BrowserID: BrowserID(rc),
		Detail:    string(s.AuthMethod) + " logout",
	})

	if s.AuthMethod != MethodSSO || g.policy.OIDC.EndSessionEndpoint == "" {
		return ""
	}

	u, err := url.Parse(g.policy.OIDC.EndSessionEndpoint)
	if err != nil {
		log.Error().Err(err).Msg("invalid end session endpoint")
		return ""
	}

	q := u.Query()
	q.Set("client_id", g.policy.OIDC.ClientID)

	if g.policy.OIDC.PostLogoutRedirectURI != "" {
		q.Set("post_logout_redirect_uri", g.policy.OIDC.PostLogoutRedirectURI)
	}

	if s.Tokens.IDToken != "" {
		q.Set("id_token_hint", s.Tokens.IDToken)
	}

	u.RawQuery = q.Encode()

	return u.String()
}
