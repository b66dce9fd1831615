// Package main provides the entry point of the community dashboard.
// It runs a Fiber web service whose pages are protected by a local
// administrator login and single sign-on through an OpenID Connect provider.
// Sessions survive restarts and lost cookies through several persistence
// layers: request locals, a server side mirror, a browser storage handoff and
// a signed cookie.
package main
