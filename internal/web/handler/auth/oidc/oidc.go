// Package oidc serves the single sign-on entry and callback routes.
package oidc

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/config"
	"github.com/community-dashboard/community-dashboard/internal/web/handler"
)

const (
	// LoginPath is the path to initiate OIDC login.
	LoginPath = auth.DefaultSSOLoginPath

	// CallbackPath is the path for OIDC callback.
	CallbackPath = handler.RootPath + "auth/oidc/callback"
)

// User-visible callback failures. Provider descriptions are appended when known.
const (
	MsgSSOUnavailable   = "Single sign-on is not available."
	MsgIncomplete       = "The login response was incomplete. Please try again."
	MsgInvalidState     = "The login request expired or was started in another browser. Please try again."
	MsgProviderRejected = "The identity provider rejected the login"
	MsgLoginFailed      = "Login failed. Please try again."
)

// Service is the OIDC handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	gw  *auth.Gateway
}

// Handler is the OIDC handler.
var Handler = Service{}

// Init initializes the OIDC handler. The routes are always registered so a
// disabled provider answers with the login view instead of 404.
func (s *Service) Init(app *fiber.App, cfg *config.Config, gw *auth.Gateway) error {
	if err := handler.CheckDeps(app, cfg, gw); err != nil {
		return err
	}

	s.cfg = cfg
	s.gw = gw

	if !gw.Policy().OIDC.Enabled() {
		log.Info().Msg("OIDC authentication is disabled by configuration")
	}

	app.Get(LoginPath, s.Login)
	app.Get(CallbackPath, s.Callback)

	return nil
}

// Login records a pending login and redirects to the identity provider.
func (s *Service) Login(c *fiber.Ctx) error {
	next := auth.SanitizeRedirectPath(c.Query("next"))

	authURL, err := s.gw.BeginSSO(c.UserContext(), c, next)
	if err != nil {
		if !errors.Is(err, auth.ErrSSODisabled) {
			log.Error().Err(err).Msg("failed to start OIDC login")
		}

		return handler.RenderLogin(c, s.gw, s.gw.LoginOptions(next, MsgSSOUnavailable), fiber.StatusOK)
	}

	return c.Redirect(authURL)
}

// Callback completes the OIDC login.
func (s *Service) Callback(c *fiber.Ctx) error {
	_, target, err := s.gw.Callback(c.UserContext(), c, c.Query("code"), c.Query("state"))
	if err != nil {
		log.Warn().Err(err).Msg("OIDC callback failed")

		return handler.RenderLogin(c, s.gw, s.gw.LoginOptions(auth.DefaultRedirectPath, Message(err)), fiber.StatusOK)
	}

	return handler.Redirect(c, s.gw, target)
}

// Message maps a callback error to the text shown on the login page.
func Message(err error) string {
	var (
		allErr      *auth.AllMethodsFailedError
		endpointErr *auth.EndpointError
	)

	switch {
	case errors.Is(err, auth.ErrSSODisabled):
		return MsgSSOUnavailable
	case errors.Is(err, auth.ErrMissingCallbackParameter):
		return MsgIncomplete
	case errors.Is(err, auth.ErrInvalidState):
		return MsgInvalidState
	case errors.As(err, &allErr):
		if msg := allErr.ProviderMessage(); msg != "" {
			return MsgProviderRejected + ": " + msg
		}

		return MsgProviderRejected + "."
	case errors.As(err, &endpointErr):
		if endpointErr.Description != "" {
			return MsgProviderRejected + ": " + endpointErr.Description
		}

		return MsgProviderRejected + "."
	default:
		return MsgLoginFailed
	}
}
