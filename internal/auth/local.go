package auth

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const argon2idPrefix = "$argon2id$"

// LocalAuthenticator checks the static local admin credentials.
type LocalAuthenticator struct {
	admin    LocalAdmin
	lifetime time.Duration
	now      func() time.Time
}

// NewLocalAuthenticator returns a LocalAuthenticator for policy.LocalAdmin.
func NewLocalAuthenticator(policy Policy) *LocalAuthenticator {
	policy = policy.WithDefaults()

	return &LocalAuthenticator{
		admin:    policy.LocalAdmin,
		lifetime: policy.Session.Lifetime,
		now:      time.Now,
	}
}

// Enabled reports whether local credentials are configured.
func (a *LocalAuthenticator) Enabled() bool {
	return a.admin.Enabled()
}

// Authenticate returns an admin session when username and password match the configuration.
func (a *LocalAuthenticator) Authenticate(username, password string) (Session, error) {
	if !a.Enabled() {
		return Session{}, ErrLocalLoginDisabled
	}

	// both comparisons always run
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.admin.Username)) == 1
	passOK := a.checkPassword(password)

	if !userOK || !passOK {
		return Session{}, ErrInvalidLocalCredentials
	}

	now := a.now()

	return Session{
		ID:            uuid.NewString(),
		Authenticated: true,
		Username:      a.admin.Username,
		DisplayName:   a.admin.Username,
		AuthMethod:    MethodLocal,
		IsAdmin:       true,
		IssuedAt:      now,
		ExpiresAt:     now.Add(a.lifetime),
	}, nil
}

func (a *LocalAuthenticator) checkPassword(password string) bool {
	if !strings.HasPrefix(a.admin.Password, argon2idPrefix) {
		return subtle.ConstantTimeCompare([]byte(password), []byte(a.admin.Password)) == 1
	}

	match, err := argon2id.ComparePasswordAndHash(password, a.admin.Password)
	if err != nil {
		log.Error().Err(err).Msg("local admin password hash is invalid")
		return false
	}

	return match
}
