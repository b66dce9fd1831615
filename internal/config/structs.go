package config

import (
	"time"

	"github.com/community-dashboard/community-dashboard/internal/logger"
)

// Session settings.
type Session struct {
	CookieName  string        // name of the session cookie, default cd_session
	Lifetime    time.Duration // max age of a login, default 24h
	SigningKey  string        `json:",omitempty"` // HMAC key sealing browser held session records
	SaveTimeout time.Duration // bound on every single backend write
	StateTTL    time.Duration // lifetime of a pending SSO login
}

// Config overall data structure.
type Config struct {
	DevMode   bool // enable dev mode for development
	DB        DB
	Log       logger.Log
	Title     string
	Webserver Webserver
	Storage   Storage
	Auth      Auth
}

// Webserver implement webserver settings.
type Webserver struct {
	BrowseStatic        bool    // enable static file browsing (for development purposes only)
	DisableRecover      bool    // disable recover middleware
	Domain              string  // domain name for the webserver
	Port                int     `validate:"gt=0"` // listening port for the webserver
	ShutDownTime        int     // wait time for shutdown
	URL                 string  `validate:"required,url"` // base url for the webserver
	CookieEncryptionKey string  `json:",omitempty"`       // base64 key for the encryptcookie middleware
	Session             Session // session settings
}

// Storage selects the key value store holding pending logins, the session
// mirror and the revocation ledger.
type Storage struct {
	Driver string `validate:"omitempty,oneof=memory mysql postgres redis"` // default memory
	Table  string // table name for the sql drivers
	Redis  Redis
}

// Redis connection settings.
type Redis struct {
	Addr     string
	Password string `json:",omitempty"`
	DB       int
}

// Auth holds the authentication policy.
type Auth struct {
	AdminUsernames   []string
	Moderators       []string // usernames seeded into the moderator permission table
	DirectAuth       bool     // skip the SSO state check entirely (development only)
	BypassStateCheck bool     // accept callbacks whose pending state was lost
	LocalAdmin       LocalAdmin
	OIDC             OIDC
}

// LocalAdmin is the single configured local administrator.
type LocalAdmin struct {
	Username string
	Password string `json:",omitempty"` // plain text or an argon2id hash
}

// OIDC holds the SSO client settings.
type OIDC struct {
	Issuer                string // when set, empty endpoints are filled by discovery
	ClientID              string
	ClientSecret          string `json:",omitempty"`
	RedirectURI           string `validate:"omitempty,url"`
	AuthorizationEndpoint string `validate:"omitempty,url"`
	TokenEndpoint         string `validate:"omitempty,url"`
	UserinfoEndpoint      string `validate:"omitempty,url"`
	EndSessionEndpoint    string `validate:"omitempty,url"`
	PostLogoutRedirectURI string
	Scopes                []string
	ClientAuthMethod      string `validate:"omitempty,oneof=auto post basic none client_secret_post client_secret_basic"`
	Timeout               time.Duration
}
