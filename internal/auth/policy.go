package auth

import (
	"strings"
	"time"
)

const (
	// DefaultRedirectPath is where users land after login when no valid path was requested.
	DefaultRedirectPath = "/dashboard"

	// DefaultCookieName is the name of the session cookie.
	DefaultCookieName = "cd_session"

	// BrowserCookieName is the name of the browser context cookie.
	BrowserCookieName = "cd_ctx"

	defaultSessionLifetime = 24 * time.Hour
	defaultProviderTimeout = 10 * time.Second
	defaultSaveTimeout     = 2 * time.Second
	defaultStateTTL        = 10 * time.Minute
	defaultTokenLifetime   = 3600 * time.Second
)

// OIDCClient holds the relying party settings of the identity provider.
type OIDCClient struct {
	ClientID     string
	ClientSecret string //nolint:gosec // configuration value, never logged
	RedirectURI  string

	AuthorizationEndpoint string
	TokenEndpoint         string
	UserinfoEndpoint      string
	EndSessionEndpoint    string

	// PostLogoutRedirectURI is sent to the end-session endpoint.
	PostLogoutRedirectURI string

	Scopes []string

	// ClientAuthMethod forces a client authentication method. Empty means ClientAuthAuto.
	ClientAuthMethod ClientAuthMethod

	// Timeout bounds every single request to the provider.
	Timeout time.Duration
}

// Enabled reports whether enough settings exist to run the authorization code flow.
func (o OIDCClient) Enabled() bool {
	return o.ClientID != "" && o.AuthorizationEndpoint != "" && o.TokenEndpoint != "" && o.RedirectURI != ""
}

// LocalAdmin holds the static local admin credentials.
type LocalAdmin struct {
	Username string
	// Password is either plain text or an argon2id hash.
	Password string //nolint:gosec // configuration value, never logged
}

// Enabled reports whether local login is configured.
func (l LocalAdmin) Enabled() bool {
	return l.Username != "" && l.Password != ""
}

// SessionSettings controls the lifetime and transport of persisted sessions.
type SessionSettings struct {
	CookieName string
	// Lifetime of a local session and of the session cookie.
	Lifetime time.Duration
	// Secure marks cookies as https only.
	Secure bool
	// SigningKey signs browser-held records.
	SigningKey string //nolint:gosec // configuration value, never logged
	// SaveTimeout bounds a single backend write.
	SaveTimeout time.Duration
	// StateTTL is how long a pending login may wait for its callback.
	StateTTL time.Duration
}

// Policy is the complete authentication configuration, read once at startup.
type Policy struct {
	// DirectAuth disables state verification process wide.
	DirectAuth bool
	// BypassOnMissingState accepts a callback when no state was ever recorded for the browser.
	BypassOnMissingState bool

	AdminUsernames []string

	LocalAdmin LocalAdmin
	OIDC       OIDCClient
	Session    SessionSettings
}

// WithDefaults returns p with every unset duration and name filled in.
func (p Policy) WithDefaults() Policy {
	if p.Session.CookieName == "" {
		p.Session.CookieName = DefaultCookieName
	}

	if p.Session.Lifetime <= 0 {
		p.Session.Lifetime = defaultSessionLifetime
	}

	if p.Session.SaveTimeout <= 0 {
		p.Session.SaveTimeout = defaultSaveTimeout
	}

	if p.Session.StateTTL <= 0 {
		p.Session.StateTTL = defaultStateTTL
	}

	if p.OIDC.Timeout <= 0 {
		p.OIDC.Timeout = defaultProviderTimeout
	}

	if p.OIDC.ClientAuthMethod == "" {
		p.OIDC.ClientAuthMethod = ClientAuthAuto
	}

	if len(p.OIDC.Scopes) == 0 {
		p.OIDC.Scopes = []string{"openid", "profile", "email"}
	}

	return p
}

// IsAdminUsername reports whether username is in the admin allowlist.
// Matching ignores case and surrounding whitespace.
func (p Policy) IsAdminUsername(username string) bool {
	username = strings.TrimSpace(username)
	if username == "" {
		return false
	}

	for _, admin := range p.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(admin), username) {
			return true
		}
	}

	return false
}
