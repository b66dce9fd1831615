package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// ClientAuthMethod is the way the client authenticates at the token endpoint.
type ClientAuthMethod string

const (
	// ClientAuthPost sends client_id and client_secret in the form body.
	ClientAuthPost ClientAuthMethod = "post"
	// ClientAuthBasic sends the client credentials as HTTP Basic authentication.
	ClientAuthBasic ClientAuthMethod = "basic"
	// ClientAuthNone sends client_id only, as a public client.
	ClientAuthNone ClientAuthMethod = "none"
	// ClientAuthAuto tries post, basic and none in that order.
	ClientAuthAuto ClientAuthMethod = "auto"
)

// autoOrder is the fallback order of ClientAuthAuto.
var autoOrder = []ClientAuthMethod{ClientAuthPost, ClientAuthBasic, ClientAuthNone} //nolint:gochecknoglobals

// ParseClientAuthMethod parses a configuration value. Unknown values yield ClientAuthAuto.
func ParseClientAuthMethod(s string) ClientAuthMethod {
	switch m := ClientAuthMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case ClientAuthPost, ClientAuthBasic, ClientAuthNone:
		return m
	case "client_secret_post":
		return ClientAuthPost
	case "client_secret_basic":
		return ClientAuthBasic
	default:
		return ClientAuthAuto
	}
}

// fixed reports whether m names exactly one method.
func (m ClientAuthMethod) fixed() bool {
	return m == ClientAuthPost || m == ClientAuthBasic || m == ClientAuthNone
}

// MethodMemory remembers the client authentication method the provider accepted last.
// ClientAuthAuto means nothing is remembered.
type MethodMemory interface {
	Preferred(ctx context.Context) (ClientAuthMethod, error)
	Remember(ctx context.Context, m ClientAuthMethod) error
}

// AtomicMemory is an in-process MethodMemory. The zero value remembers nothing.
type AtomicMemory struct {
	v atomic.Value
}

// Preferred implements MethodMemory.
func (a *AtomicMemory) Preferred(_ context.Context) (ClientAuthMethod, error) {
	m, ok := a.v.Load().(ClientAuthMethod)
	if !ok {
		return ClientAuthAuto, nil
	}

	return m, nil
}

// Remember implements MethodMemory.
func (a *AtomicMemory) Remember(_ context.Context, m ClientAuthMethod) error {
	a.v.Store(m)
	return nil
}

// TokenExchanger exchanges authorization codes for tokens, negotiating the
// client authentication method the provider accepts.
type TokenExchanger struct {
	oidc   OIDCClient
	client *http.Client
	memory MethodMemory
	now    func() time.Time
}

// NewTokenExchanger returns a TokenExchanger for the given client settings.
// A nil memory uses an AtomicMemory.
func NewTokenExchanger(cfg OIDCClient, memory MethodMemory) *TokenExchanger {
	if memory == nil {
		memory = &AtomicMemory{}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultProviderTimeout
	}

	return &TokenExchanger{
		oidc:   cfg,
		client: &http.Client{Timeout: timeout},
		memory: memory,
		now:    time.Now,
	}
}

// AuthCodeURL returns the provider authorization URL for state.
func (e *TokenExchanger) AuthCodeURL(state string) string {
	return e.config(ClientAuthPost, e.oidc.RedirectURI).AuthCodeURL(state)
}

// Exchange trades code for tokens.
//
// A fixed preferred method is the only one tried. With ClientAuthAuto the
// remembered method goes first, followed by the rest of post, basic and none.
// The first method that yields an access token is remembered and returned.
func (e *TokenExchanger) Exchange(
	ctx context.Context,
	code, redirectURI string,
	preferred ClientAuthMethod,
) (Tokens, ClientAuthMethod, error) {
	if redirectURI == "" {
		redirectURI = e.oidc.RedirectURI
	}

	remembered := ClientAuthAuto

	order := []ClientAuthMethod{preferred}
	if !preferred.fixed() {
		var err error

		remembered, err = e.memory.Preferred(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("failed to read remembered client auth method")

			remembered = ClientAuthAuto
		}

		order = attemptOrder(remembered)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.client)

	var (
		attempted []ClientAuthMethod
		last      *EndpointError
	)

	for _, method := range order {
		attempted = append(attempted, method)

		tok, err := e.config(method, redirectURI).Exchange(ctx, code)
		exchangeAttemptsTotal.WithLabelValues(string(method), resultLabel(err)).Inc()

		if err != nil {
			last = e.endpointError(err)

			log.Warn().
				Str("client_auth_method", string(method)).
				Str("url", last.URL).
				Int("status", last.StatusCode).
				Str("error", last.ErrorCode).
				Str("error_description", last.Description).
				Msg("token exchange attempt failed")

			if method == remembered {
				e.forget(ctx)
			}

			if ctx.Err() != nil {
				break
			}

			continue
		}

		if method != remembered && !preferred.fixed() {
			if errMem := e.memory.Remember(ctx, method); errMem != nil {
				log.Warn().Err(errMem).Str("client_auth_method", string(method)).
					Msg("failed to remember client auth method")
			}
		}

		return e.tokens(tok), method, nil
	}

	return Tokens{}, "", &AllMethodsFailedError{Attempted: attempted, Last: last}
}

func (e *TokenExchanger) forget(ctx context.Context) {
	if err := e.memory.Remember(ctx, ClientAuthAuto); err != nil {
		log.Warn().Err(err).Msg("failed to reset remembered client auth method")
	}
}

// attemptOrder puts remembered in front of the auto order.
func attemptOrder(remembered ClientAuthMethod) []ClientAuthMethod {
	if !remembered.fixed() {
		return autoOrder
	}

	order := make([]ClientAuthMethod, 0, len(autoOrder))
	order = append(order, remembered)

	for _, m := range autoOrder {
		if m != remembered {
			order = append(order, m)
		}
	}

	return order
}

func (e *TokenExchanger) config(method ClientAuthMethod, redirectURI string) *oauth2.Config {
	cfg := &oauth2.Config{
		ClientID:     e.oidc.ClientID,
		ClientSecret: e.oidc.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       e.oidc.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   e.oidc.AuthorizationEndpoint,
			TokenURL:  e.oidc.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	switch method {
	case ClientAuthBasic:
		cfg.Endpoint.AuthStyle = oauth2.AuthStyleInHeader
	case ClientAuthNone:
		// AuthStyleInParams leaves out an empty client_secret.
		cfg.ClientSecret = ""
	}

	return cfg
}

func (e *TokenExchanger) tokens(tok *oauth2.Token) Tokens {
	expires := tok.Expiry
	if expires.IsZero() {
		expires = e.now().Add(defaultTokenLifetime)
	}

	idToken, _ := tok.Extra("id_token").(string)

	return Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		IDToken:      idToken,
		ExpiresAt:    expires,
	}
}

func (e *TokenExchanger) endpointError(err error) *EndpointError {
	ee := &EndpointError{
		Kind: EndpointToken,
		URL:  e.oidc.TokenEndpoint,
		Err:  err,
	}

	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		if rErr.Response != nil {
			ee.StatusCode = rErr.Response.StatusCode
		}

		ee.ErrorCode = rErr.ErrorCode
		ee.Description = rErr.ErrorDescription
	}

	return ee
}
