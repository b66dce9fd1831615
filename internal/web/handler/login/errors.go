// Package login provides HTTP handlers for the local administrator login.
//
// This file defines exported error values used throughout the login flow.
package login

import "errors"

var (
	// ErrInvalidFormData is returned when the submitted login form cannot be parsed
	// or fails validation.
	ErrInvalidFormData = errors.New("invalid form data")

	// ErrInvalidCredentials is shown when the provided username and/or password
	// are not valid.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrLocalAuthDisabled is shown when no local administrator is configured.
	ErrLocalAuthDisabled = errors.New("local authentication is disabled")
)
