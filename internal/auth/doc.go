// Package auth provides authentication and session persistence for the dashboard.
//
// Two ways to log in are supported:
//   - Local admin credentials from configuration (LocalAuthenticator)
//   - OpenID Connect authorization code flow (StateValidator, TokenExchanger, IdentityResolver)
//
// # Token exchange
//
// TokenExchanger negotiates the client authentication method the identity
// provider accepts. With ClientAuthAuto it tries client_secret_post, then
// client_secret_basic, then a public client request, and remembers the first
// method that worked for the next login.
//
// # Session persistence
//
// A Session is never held in a process-wide variable. Every request rebuilds it
// through Persistence.Restore from the first backend holding a valid record:
//
//	ephemeral (request locals) -> mirror (server store) -> handoff (query parameter) -> cookie
//
// Save fans the session out to every backend, ephemeral first. Clear revokes the
// session in a ledger before clearing the backends, so a backend that could not
// be reached during logout never restores the session afterwards.
//
// # Gateway
//
// Gateway is the facade used by handlers:
//
//	sess, err := gateway.RequireAdmin(ctx, c, "/settings")
//	var loginErr *auth.LoginRequiredError
//	switch {
//	case errors.As(err, &loginErr):
//	    // render login options
//	case errors.Is(err, auth.ErrForbidden):
//	    // render 403
//	}
package auth
