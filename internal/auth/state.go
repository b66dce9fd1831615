package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	stateKeyPrefix = "state:"
	stateBytes     = 32
	statePrefixLen = 8
)

// AuthRequestState is the pending state of one login attempt.
type AuthRequestState struct {
	State           string           `json:"state"`
	RedirectPath    string           `json:"redirect_path"`
	PreferredMethod ClientAuthMethod `json:"preferred_method"`
	IssuedAt        time.Time        `json:"issued_at"`
	ExpiresAt       time.Time        `json:"expires_at"`
}

// StateDecision is the outcome of a state check.
type StateDecision struct {
	// Valid means the callback may proceed.
	Valid bool
	// Bypassed means Valid was granted without a matching state.
	Bypassed bool
	Reason   string
	// Pending is the consumed login attempt. It is zero when nothing was recorded.
	Pending AuthRequestState
}

// StateValidator issues and checks the CSRF state of the login redirect.
// Pending states live in a fiber.Storage keyed by browser context, one per browser.
type StateValidator struct {
	store  fiber.Storage
	policy Policy
	sink   AuditSink
	now    func() time.Time
}

// NewStateValidator returns a StateValidator. Bypass behaviour is taken from policy only.
func NewStateValidator(store fiber.Storage, policy Policy, sink AuditSink) *StateValidator {
	return &StateValidator{
		store:  store,
		policy: policy.WithDefaults(),
		sink:   sink,
		now:    time.Now,
	}
}

// NewState creates and records a fresh login attempt for browserID.
func (v *StateValidator) NewState(
	ctx context.Context,
	browserID, redirectPath string,
	preferred ClientAuthMethod,
) (AuthRequestState, error) {
	token, err := randomToken(stateBytes)
	if err != nil {
		return AuthRequestState{}, fmt.Errorf("generate state: %w", err)
	}

	if preferred == "" {
		preferred = ClientAuthAuto
	}

	now := v.now()
	st := AuthRequestState{
		State:           token,
		RedirectPath:    SanitizeRedirectPath(redirectPath),
		PreferredMethod: preferred,
		IssuedAt:        now,
		ExpiresAt:       now.Add(v.policy.Session.StateTTL),
	}

	data, err := json.Marshal(st)
	if err != nil {
		return AuthRequestState{}, fmt.Errorf("encode state: %w", err)
	}

	err = withTimeout(ctx, v.policy.Session.SaveTimeout, func() error {
		return v.store.Set(stateKeyPrefix+browserID, data, v.policy.Session.StateTTL)
	})
	if err != nil {
		return AuthRequestState{}, &BackendError{Backend: "state", Op: "set", Err: err}
	}

	return st, nil
}

// Validate consumes the pending state of browserID and compares it with received.
// A rejection returns ErrInvalidState.
func (v *StateValidator) Validate(ctx context.Context, browserID, received string) (StateDecision, error) {
	pending, recorded := v.consume(ctx, browserID)

	if v.policy.DirectAuth {
		d := StateDecision{Valid: true, Bypassed: true, Reason: "direct auth mode", Pending: pending}
		v.auditBypass(ctx, browserID, received, pending, d.Reason)

		return d, nil
	}

	if recorded && received != "" &&
		subtle.ConstantTimeCompare([]byte(pending.State), []byte(received)) == 1 {
		return StateDecision{Valid: true, Pending: pending}, nil
	}

	if !recorded && v.policy.BypassOnMissingState {
		d := StateDecision{Valid: true, Bypassed: true, Reason: "no state recorded for browser"}
		v.auditBypass(ctx, browserID, received, pending, d.Reason)

		return d, nil
	}

	reason := "state mismatch"
	if !recorded {
		reason = "no state recorded for browser"
	}

	audit(ctx, v.sink, Event{
		Kind:      EventStateRejected,
		BrowserID: browserID,
		Detail:    fmt.Sprintf("%s: received=%q expected=%q", reason, truncate(received), truncate(pending.State)),
	})

	return StateDecision{Reason: reason, Pending: pending}, ErrInvalidState
}

// consume loads and deletes the pending state. Unreadable, malformed or
// expired entries count as not recorded.
func (v *StateValidator) consume(ctx context.Context, browserID string) (AuthRequestState, bool) {
	key := stateKeyPrefix + browserID

	var data []byte

	err := withTimeout(ctx, v.policy.Session.SaveTimeout, func() error {
		var errGet error
		data, errGet = v.store.Get(key)

		return errGet
	})
	if err != nil {
		log.Error().Err(&BackendError{Backend: "state", Op: "get", Err: err}).Msg("pending login state unreadable")
		return AuthRequestState{}, false
	}

	if len(data) == 0 {
		return AuthRequestState{}, false
	}

	errDel := withTimeout(ctx, v.policy.Session.SaveTimeout, func() error {
		return v.store.Delete(key)
	})
	if errDel != nil {
		log.Error().Err(&BackendError{Backend: "state", Op: "delete", Err: errDel}).
			Msg("failed to delete consumed login state")
	}

	var st AuthRequestState
	if err = json.Unmarshal(data, &st); err != nil || st.State == "" {
		log.Warn().Msg("discarding malformed login state")
		return AuthRequestState{}, false
	}

	if !v.now().Before(st.ExpiresAt) {
		return AuthRequestState{}, false
	}

	return st, true
}

func (v *StateValidator) auditBypass(ctx context.Context, browserID, received string, pending AuthRequestState, reason string) {
	audit(ctx, v.sink, Event{
		Kind:      EventStateBypass,
		BrowserID: browserID,
		Detail:    fmt.Sprintf("%s: received=%q expected=%q", reason, truncate(received), truncate(pending.State)),
	})
}

// SanitizeRedirectPath returns p when it is a same-origin absolute path, else DefaultRedirectPath.
func SanitizeRedirectPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return DefaultRedirectPath
	}

	if strings.ContainsAny(p, "\r\n\t") {
		return DefaultRedirectPath
	}

	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return DefaultRedirectPath
	}

	return p
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err //nolint:wrapcheck
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

// truncate shortens a token for logs.
func truncate(s string) string {
	if len(s) <= statePrefixLen {
		return s
	}

	return s[:statePrefixLen] + "..."
}
