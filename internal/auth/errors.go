package auth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSession is returned by Restore when no backend holds a valid record.
	ErrNoSession = errors.New("no session")

	// ErrForbidden is returned by RequireAdmin for an authenticated non-admin session.
	ErrForbidden = errors.New("admin privileges required")

	// ErrMissingCallbackParameter is returned when code or state is absent from the callback.
	ErrMissingCallbackParameter = errors.New("missing callback parameter")

	// ErrInvalidState is returned when the received state does not match the issued one.
	ErrInvalidState = errors.New("invalid state")

	// ErrAllClientAuthMethodsFailed matches every *AllMethodsFailedError.
	ErrAllClientAuthMethodsFailed = errors.New("all client authentication methods failed")

	// ErrTokenEndpoint matches an *EndpointError raised by the token endpoint.
	ErrTokenEndpoint = errors.New("token endpoint error")

	// ErrUserinfoEndpoint matches an *EndpointError raised by the userinfo endpoint.
	ErrUserinfoEndpoint = errors.New("userinfo endpoint error")

	// ErrInvalidLocalCredentials is returned when a local login is rejected.
	ErrInvalidLocalCredentials = errors.New("invalid username or password")

	// ErrLocalLoginDisabled is returned when no local admin credentials are configured.
	ErrLocalLoginDisabled = errors.New("local login is disabled")

	// ErrSSODisabled is returned when the OIDC client is not configured.
	ErrSSODisabled = errors.New("sso login is disabled")

	// ErrPersistenceBackendUnavailable matches every *BackendError.
	ErrPersistenceBackendUnavailable = errors.New("persistence backend unavailable")

	// ErrRecordAbsent is returned by a Backend holding no record for the request.
	ErrRecordAbsent = errors.New("record absent")
)

// EndpointKind names the provider endpoint an EndpointError came from.
type EndpointKind string

const (
	// EndpointToken is the token endpoint.
	EndpointToken EndpointKind = "token"
	// EndpointUserinfo is the userinfo endpoint.
	EndpointUserinfo EndpointKind = "userinfo"
)

// EndpointError describes a failed call to a provider endpoint.
// It never carries tokens or the client secret.
type EndpointError struct {
	Kind        EndpointKind
	URL         string
	StatusCode  int
	ErrorCode   string
	Description string
	Err         error
}

func (e *EndpointError) Error() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s endpoint %s", e.Kind, e.URL)

	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}

	if e.ErrorCode != "" {
		fmt.Fprintf(&b, ": %s", e.ErrorCode)
	}

	if e.Description != "" {
		fmt.Fprintf(&b, " (%s)", e.Description)
	}

	if e.Err != nil && e.StatusCode == 0 {
		fmt.Fprintf(&b, ": %v", e.Err)
	}

	return b.String()
}

// Unwrap exposes the kind sentinel and the underlying cause.
func (e *EndpointError) Unwrap() []error {
	sentinel := ErrTokenEndpoint
	if e.Kind == EndpointUserinfo {
		sentinel = ErrUserinfoEndpoint
	}

	if e.Err == nil {
		return []error{sentinel}
	}

	return []error{sentinel, e.Err}
}

// AllMethodsFailedError is returned when every attempted client authentication method failed.
type AllMethodsFailedError struct {
	Attempted []ClientAuthMethod
	// Last is the failure of the final attempt.
	Last *EndpointError
}

func (e *AllMethodsFailedError) Error() string {
	names := make([]string, len(e.Attempted))
	for i, m := range e.Attempted {
		names[i] = string(m)
	}

	msg := fmt.Sprintf("%s: tried %s", ErrAllClientAuthMethodsFailed, strings.Join(names, ", "))
	if e.Last != nil {
		msg += ": " + e.Last.Error()
	}

	return msg
}

// Is reports whether target is ErrAllClientAuthMethodsFailed.
func (e *AllMethodsFailedError) Is(target error) bool {
	return target == ErrAllClientAuthMethodsFailed
}

func (e *AllMethodsFailedError) Unwrap() error {
	if e.Last == nil {
		return nil
	}

	return e.Last
}

// ProviderMessage returns the last error description reported by the provider,
// suitable for showing to the user.
func (e *AllMethodsFailedError) ProviderMessage() string {
	if e.Last == nil {
		return ""
	}

	if e.Last.Description != "" {
		return e.Last.Description
	}

	return e.Last.ErrorCode
}

// BackendError reports that a persistence backend could not be read or written.
type BackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s backend %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap exposes ErrPersistenceBackendUnavailable and the underlying cause.
func (e *BackendError) Unwrap() []error {
	return []error{ErrPersistenceBackendUnavailable, e.Err}
}

// LoginOptions lists the ways an unauthenticated user can log in.
type LoginOptions struct {
	// Path is where the user returns after logging in.
	Path         string
	LocalEnabled bool
	SSOEnabled   bool
	// SSOURL starts the SSO flow for Path.
	SSOURL string
	// Error is a user-visible reason for showing the options again.
	Error string
}

// LoginRequiredError is returned by RequireAuth and RequireAdmin when no session exists.
type LoginRequiredError struct {
	Options LoginOptions
}

func (e *LoginRequiredError) Error() string {
	return "login required for " + e.Options.Path
}

// Is reports whether target is ErrNoSession.
func (e *LoginRequiredError) Is(target error) bool {
	return target == ErrNoSession
}
