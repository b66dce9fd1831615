package auth

import (
	"context"
	"net/url"
	"strconv"
)

// Query parameters of the browser storage handoff.
const (
	QueryBrowserAuth = "browser_auth"
	QueryAuthSuccess = "auth_success"
	QueryUsername    = "username"
	QueryAuthMethod  = "auth_method"
	QueryAdmin       = "admin"
	QueryModerator   = "moderator"
	QuerySessionID   = "session_id"
	QueryTimestamp   = "timestamp"
	QueryExpiresAt   = "expires_at"
	QuerySig         = "sig"

	// LocalStorageKey is the browser localStorage key of the bridged record.
	LocalStorageKey = "cd_auth"
)

// HandoffParams lists every query parameter that may carry auth material.
var HandoffParams = []string{ //nolint:gochecknoglobals
	QueryBrowserAuth, QueryAuthSuccess, QueryUsername, QueryAuthMethod, QueryAdmin,
	QueryModerator, QuerySessionID, QueryTimestamp, QueryExpiresAt, QuerySig,
}

const (
	localsHandoffConsumed = "auth.handoff_consumed"
	localsBridge          = "auth.bridge"
)

// BridgeAction is a pending instruction for the browser storage bridge script.
type BridgeAction struct {
	// Write is the sealed JSON record to put into localStorage.
	Write string
	// Clear removes the stored record.
	Clear bool
}

// PendingBridge returns the bridge action queued during this request.
func PendingBridge(rc RequestContext) (BridgeAction, bool) {
	a, ok := rc.Locals(localsBridge).(BridgeAction)
	return a, ok && (a.Clear || a.Write != "")
}

// HandoffConsumed reports whether this request carried handoff parameters that
// must be stripped from the address bar.
func HandoffConsumed(rc RequestContext) bool {
	consumed, _ := rc.Locals(localsHandoffConsumed).(bool)
	return consumed
}

// markHandoff flags rc when it carries handoff material in the query, so it is
// stripped from the address bar whichever backend restores the session.
func markHandoff(rc RequestContext) {
	if rc.Query(QueryBrowserAuth) != "" || rc.Query(QueryAuthSuccess) != "" || rc.Query(QuerySig) != "" {
		rc.Locals(localsHandoffConsumed, true)
	}
}

// HandoffBackend bridges records held in browser localStorage. The browser
// presents them as query parameters; the server asks the browser to store them
// through a script on the next rendered page.
type HandoffBackend struct {
	sealer *Sealer
}

// NewHandoffBackend returns a HandoffBackend.
func NewHandoffBackend(sealer *Sealer) *HandoffBackend {
	return &HandoffBackend{sealer: sealer}
}

// Name implements Backend.
func (h *HandoffBackend) Name() string { return "handoff" }

// Kind implements Backend.
func (h *HandoffBackend) Kind() BackendKind { return KindClient }

// Load implements Backend.
func (h *HandoffBackend) Load(_ context.Context, rc RequestContext) (Session, error) {
	if raw := rc.Query(QueryBrowserAuth); raw != "" {
		rc.Locals(localsHandoffConsumed, true)

		rec, err := h.sealer.Decode([]byte(raw))
		if err != nil {
			return Session{}, err
		}

		return rec.Session(), nil
	}

	if rc.Query(QueryAuthSuccess) == "true" {
		rc.Locals(localsHandoffConsumed, true)

		rec, err := h.simpleRecord(rc)
		if err != nil {
			return Session{}, err
		}

		return rec.Session(), nil
	}

	return Session{}, ErrRecordAbsent
}

// simpleRecord rebuilds the reduced record of the auth_success variant.
// It is only accepted with a valid signature.
func (h *HandoffBackend) simpleRecord(rc RequestContext) (Record, error) {
	expires, err := strconv.ParseInt(rc.Query(QueryExpiresAt), 10, 64)
	if err != nil {
		return Record{}, errInvalidRecord
	}

	issued, _ := strconv.ParseInt(rc.Query(QueryTimestamp), 10, 64)

	rec := Record{
		SessionID:   rc.Query(QuerySessionID),
		Username:    rc.Query(QueryUsername),
		IsAdmin:     rc.Query(QueryAdmin) == "true",
		IsModerator: rc.Query(QueryModerator) == "true",
		AuthMethod:  Method(rc.Query(QueryAuthMethod)),
		Timestamp:   issued,
		ExpiresAt:   expires,
		Sig:         rc.Query(QuerySig),
	}

	if rec.Username == "" || rec.SessionID == "" || !rec.AuthMethod.Valid() || !h.sealer.Verify(rec) {
		return Record{}, errInvalidRecord
	}

	return rec, nil
}

// Store implements Backend.
func (h *HandoffBackend) Store(_ context.Context, rc RequestContext, s Session) error {
	data, err := h.sealer.Encode(RecordFromSession(s))
	if err != nil {
		return &BackendError{Backend: h.Name(), Op: "encode", Err: err}
	}

	rc.Locals(localsBridge, BridgeAction{Write: string(data)})

	return nil
}

// Clear implements Backend.
func (h *HandoffBackend) Clear(_ context.Context, rc RequestContext) error {
	rc.Locals(localsBridge, BridgeAction{Clear: true})
	return nil
}

// HandoffQuery returns the auth_success variant parameters for s, signed by sealer.
func HandoffQuery(sealer *Sealer, s Session) url.Values {
	rec := RecordFromSession(s)
	// the variant carries no display name or email
	rec.DisplayName = ""
	rec.Email = ""
	rec = sealer.Seal(rec)

	return url.Values{
		QueryAuthSuccess: {"true"},
		QueryUsername:    {rec.Username},
		QueryAuthMethod:  {string(rec.AuthMethod)},
		QueryAdmin:       {strconv.FormatBool(rec.IsAdmin)},
		QueryModerator:   {strconv.FormatBool(rec.IsModerator)},
		QuerySessionID:   {rec.SessionID},
		QueryTimestamp:   {strconv.FormatInt(rec.Timestamp, 10)},
		QueryExpiresAt:   {strconv.FormatInt(rec.ExpiresAt, 10)},
		QuerySig:         {rec.Sig},
	}
}

// HandoffURL returns target with the auth_success parameters of s appended.
// The local login bridge page falls back to it when scripts are disabled.
func HandoffURL(sealer *Sealer, target string, s Session) string {
	u, err := url.Parse(target)
	if err != nil {
		return target
	}

	q := u.Query()
	for k, v := range HandoffQuery(sealer, s) {
		q[k] = v
	}

	u.RawQuery = q.Encode()

	return u.String()
}
