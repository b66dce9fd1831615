package auth

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_JSONFieldNames(t *testing.T) {
	sealer := NewSealer("k")
	s := testSession(MethodLocal, true)

	data, err := sealer.Encode(RecordFromSession(s))
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))

	for _, key := range []string{"session_id", "username", "is_admin", "is_moderator", "auth_method", "timestamp", "expires_at", "sig"} {
		assert.Contains(t, m, key)
	}

	assert.Equal(t, "local", m["auth_method"])
}

func TestSealer_RejectsTampering(t *testing.T) {
	sealer := NewSealer("signing-key")
	rec := sealer.Seal(RecordFromSession(testSession(MethodSSO, false)))

	require.True(t, sealer.Verify(rec))

	forged := rec
	forged.IsAdmin = true
	assert.False(t, sealer.Verify(forged))

	unsigned := rec
	unsigned.Sig = ""
	assert.False(t, sealer.Verify(unsigned))

	assert.False(t, NewSealer("other-key").Verify(rec))
}

func TestSealer_Decode(t *testing.T) {
	sealer := NewSealer("signing-key")

	data, err := sealer.Encode(RecordFromSession(testSession(MethodLocal, true)))
	require.NoError(t, err)

	rec, err := sealer.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "alice", rec.Username)

	_, err = sealer.Decode([]byte("{not json"))
	require.ErrorIs(t, err, errInvalidRecord)

	_, err = sealer.Decode([]byte(`{"username":"alice","auth_method":"local","session_id":"x","sig":"AAAA"}`))
	require.ErrorIs(t, err, errInvalidRecord)
}

func TestSession_Valid(t *testing.T) {
	now := time.Now()

	s := testSession(MethodLocal, true)
	assert.True(t, s.Valid(now))
	assert.False(t, s.Valid(s.ExpiresAt), "expires_at itself is already expired")

	withTokens := s
	withTokens.Tokens = Tokens{AccessToken: "at"}
	assert.False(t, withTokens.Valid(now), "local sessions never carry tokens")

	assert.False(t, Session{}.Valid(now))
}
