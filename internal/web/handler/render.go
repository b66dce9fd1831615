package handler

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/web/navigation"
)

// Bind adds the values every page template needs to data.
func Bind(c *fiber.Ctx, gw *auth.Gateway, data fiber.Map) fiber.Map {
	if data == nil {
		data = fiber.Map{}
	}

	current := gw.Current(c)

	data["CurrentUser"] = current
	data["Authenticated"] = current.Authenticated
	data["StorageKey"] = auth.LocalStorageKey

	if current.Authenticated {
		data["Menu"] = navigation.Menu(current.IsAdmin)
	}

	if action, ok := auth.PendingBridge(c); ok {
		data["Bridge"] = action
	}

	return data
}

// RenderLogin renders the login choices with status.
func RenderLogin(c *fiber.Ctx, gw *auth.Gateway, opts auth.LoginOptions, status int) error {
	return c.Status(status).Render(LoginTemplate, Bind(c, gw, fiber.Map{
		"Login": opts,
		"error": opts.Error,
	}), BaseLayout)
}

// Redirect sends the browser to target. A queued browser storage write or
// clear is delivered first by the bridge page, which then navigates on.
func Redirect(c *fiber.Ctx, gw *auth.Gateway, target string) error {
	if _, ok := auth.PendingBridge(c); !ok {
		return c.Redirect(target)
	}

	return c.Render(BridgeTemplate, Bind(c, gw, fiber.Map{
		"Target": target,
	}))
}

// RedirectLocalLogin is Redirect for a fresh local login. Browsers without
// scripts follow the signed auth_success address instead of the bridge.
func RedirectLocalLogin(c *fiber.Ctx, gw *auth.Gateway, target string, s auth.Session) error {
	if _, ok := auth.PendingBridge(c); !ok {
		return c.Redirect(target)
	}

	return c.Render(BridgeTemplate, Bind(c, gw, fiber.Map{
		"Target":   target,
		"Fallback": auth.HandoffURL(gw.Sealer(), target, s),
	}))
}

// Deny answers a failed RequireAuth or RequireAdmin: the login view with 401
// when no session exists, the error page with 403 for non-admins.
func Deny(c *fiber.Ctx, gw *auth.Gateway, err error) error {
	var loginErr *auth.LoginRequiredError
	if errors.As(err, &loginErr) {
		return RenderLogin(c, gw, loginErr.Options, fiber.StatusUnauthorized)
	}

	if errors.Is(err, auth.ErrForbidden) {
		return c.Status(fiber.StatusForbidden).Render(ErrorTemplate, Bind(c, gw, fiber.Map{
			"Status": fiber.StatusForbidden,
			"error":  http.StatusText(fiber.StatusForbidden) + ": administrator access required",
		}), BaseLayout)
	}

	log.Error().Err(err).Msg("authorization check failed")

	return c.Status(fiber.StatusInternalServerError).Render(ErrorTemplate, Bind(c, gw, fiber.Map{
		"Status": fiber.StatusInternalServerError,
		"error":  http.StatusText(fiber.StatusInternalServerError),
	}), BaseLayout)
}
