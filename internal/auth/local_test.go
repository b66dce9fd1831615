package auth

import (
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_Authenticate(t *testing.T) {
	a := NewLocalAuthenticator(Policy{LocalAdmin: LocalAdmin{Username: "admin", Password: "adminpass"}})

	s, err := a.Authenticate("admin", "adminpass")
	require.NoError(t, err)

	assert.True(t, s.Authenticated)
	assert.Equal(t, MethodLocal, s.AuthMethod)
	assert.True(t, s.IsAdmin)
	assert.True(t, s.Tokens.IsZero())
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), s.ExpiresAt, 5*time.Second)

	_, err = a.Authenticate("admin", "wrong")
	require.ErrorIs(t, err, ErrInvalidLocalCredentials)

	_, err = a.Authenticate("Admin", "adminpass")
	require.ErrorIs(t, err, ErrInvalidLocalCredentials)
}

func TestLocal_Argon2idHash(t *testing.T) {
	hash, err := argon2id.CreateHash("adminpass", &argon2id.Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	require.NoError(t, err)

	a := NewLocalAuthenticator(Policy{LocalAdmin: LocalAdmin{Username: "admin", Password: hash}})

	_, err = a.Authenticate("admin", "adminpass")
	require.NoError(t, err)

	_, err = a.Authenticate("admin", hash)
	require.ErrorIs(t, err, ErrInvalidLocalCredentials)
}

func TestLocal_Disabled(t *testing.T) {
	a := NewLocalAuthenticator(Policy{LocalAdmin: LocalAdmin{Username: "admin"}})

	assert.False(t, a.Enabled())

	_, err := a.Authenticate("admin", "")
	require.ErrorIs(t, err, ErrLocalLoginDisabled)
}
