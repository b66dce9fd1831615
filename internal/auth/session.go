package auth

import (
	"time"
)

// Method is the way a session was authenticated.
type Method string

const (
	// MethodLocal is a login with the configured local admin credentials.
	MethodLocal Method = "local"
	// MethodSSO is a login through the OpenID Connect provider.
	MethodSSO Method = "sso"
)

// Valid reports whether m is a known authentication method.
func (m Method) Valid() bool {
	return m == MethodLocal || m == MethodSSO
}

// Tokens holds the provider tokens of an SSO session.
// They are opaque to the rest of the application and never leave the server.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	IDToken      string
	ExpiresAt    time.Time
}

// IsZero reports whether no token is set.
func (t Tokens) IsZero() bool {
	return t.AccessToken == "" && t.RefreshToken == "" && t.IDToken == ""
}

// Session is the authenticated identity of the current request.
// The zero value is the unauthenticated session.
type Session struct {
	// ID identifies one login. Logout revokes it.
	ID            string
	Authenticated bool
	Username      string
	DisplayName   string
	Email         string
	AuthMethod    Method
	IsAdmin       bool
	IsModerator   bool
	// Tokens is only set for MethodSSO.
	Tokens    Tokens
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Valid reports whether s is an authenticated, unexpired and consistent session.
func (s Session) Valid(now time.Time) bool {
	if !s.Authenticated || s.Username == "" || !s.AuthMethod.Valid() {
		return false
	}

	if s.AuthMethod == MethodLocal && !s.Tokens.IsZero() {
		return false
	}

	return !s.Expired(now)
}

// withoutTokens returns a copy of s with the provider tokens removed.
func (s Session) withoutTokens() Session {
	s.Tokens = Tokens{}
	return s
}
