package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// errInvalidRecord marks a stored record that is malformed, unsigned or tampered with.
// Persistence purges such records from their backend.
var errInvalidRecord = errors.New("invalid session record")

// Record is the serialized form of a Session written to a backend.
// Tokens are never part of a record.
type Record struct {
	SessionID   string `json:"session_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	IsAdmin     bool   `json:"is_admin"`
	IsModerator bool   `json:"is_moderator"`
	AuthMethod  Method `json:"auth_method"`
	// Timestamp is the issue time in unix seconds.
	Timestamp int64 `json:"timestamp"`
	// ExpiresAt is the expiry in unix seconds.
	ExpiresAt int64  `json:"expires_at"`
	Sig       string `json:"sig,omitempty"`
}

// RecordFromSession converts s into its persisted form.
func RecordFromSession(s Session) Record {
	return Record{
		SessionID:   s.ID,
		Username:    s.Username,
		DisplayName: s.DisplayName,
		Email:       s.Email,
		IsAdmin:     s.IsAdmin,
		IsModerator: s.IsModerator,
		AuthMethod:  s.AuthMethod,
		Timestamp:   s.IssuedAt.Unix(),
		ExpiresAt:   s.ExpiresAt.Unix(),
	}
}

// Session converts the record back into an authenticated Session without tokens.
func (r Record) Session() Session {
	return Session{
		ID:            r.SessionID,
		Authenticated: true,
		Username:      r.Username,
		DisplayName:   r.DisplayName,
		Email:         r.Email,
		AuthMethod:    r.AuthMethod,
		IsAdmin:       r.IsAdmin,
		IsModerator:   r.IsModerator,
		IssuedAt:      time.Unix(r.Timestamp, 0),
		ExpiresAt:     time.Unix(r.ExpiresAt, 0),
	}
}

// Expired reports whether the record is past expires_at at now.
func (r Record) Expired(now time.Time) bool {
	return now.Unix() >= r.ExpiresAt
}

// Sealer signs records so that browser-held copies cannot be forged.
type Sealer struct {
	key []byte
}

// NewSealer returns a Sealer using key. An empty key generates a random one,
// which invalidates browser-held records on every restart.
func NewSealer(key string) *Sealer {
	if key != "" {
		return &Sealer{key: []byte(key)}
	}

	b := make([]byte, 32) //nolint:mnd
	if _, err := rand.Read(b); err != nil {
		panic("auth: cannot read random bytes: " + err.Error())
	}

	return &Sealer{key: b}
}

// Seal returns r with its signature set.
func (s *Sealer) Seal(r Record) Record {
	r.Sig = s.sign(r)
	return r
}

// Verify reports whether r carries a valid signature.
func (s *Sealer) Verify(r Record) bool {
	if r.Sig == "" {
		return false
	}

	want, err := base64.RawURLEncoding.DecodeString(r.Sig)
	if err != nil {
		return false
	}

	got, err := base64.RawURLEncoding.DecodeString(s.sign(r))
	if err != nil {
		return false
	}

	return hmac.Equal(want, got)
}

// Encode seals r and returns its JSON form.
func (s *Sealer) Encode(r Record) ([]byte, error) {
	return json.Marshal(s.Seal(r))
}

// Decode parses a JSON record and checks its signature and shape.
func (s *Sealer) Decode(data []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return Record{}, errors.Join(errInvalidRecord, err)
	}

	if r.Username == "" || r.SessionID == "" || !r.AuthMethod.Valid() {
		return Record{}, errInvalidRecord
	}

	if !s.Verify(r) {
		return Record{}, errInvalidRecord
	}

	return r, nil
}

func (s *Sealer) sign(r Record) string {
	r.Sig = ""

	// json.Marshal of a struct is deterministic in field order.
	payload, _ := json.Marshal(r) //nolint:errchkjson // plain struct

	mac := hmac.New(sha256.New, s.key)
	_, _ = mac.Write(payload)

	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
