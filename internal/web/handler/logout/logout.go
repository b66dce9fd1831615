// Package logout ends the session in every persistence layer.
package logout

import (
	"github.com/gofiber/fiber/v2"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/config"
	"github.com/community-dashboard/community-dashboard/internal/web/handler"
)

// Path is the logout route.
const Path = handler.RootPath + "logout"

// Service is the logout handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	gw  *auth.Gateway
}

// Handler is the logout handler.
var Handler = Service{}

// Init initializes the logout handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, gw *auth.Gateway) error {
	if err := handler.CheckDeps(app, cfg, gw); err != nil {
		return err
	}

	s.cfg = cfg
	s.gw = gw

	// POST only: SameSite=Lax cookies keep cross site forms from reaching it.
	app.Post(Path, s.Logout)

	return nil
}

// Logout clears the session, then sends the browser to the provider
// end-session URL for SSO sessions or to the login page.
func (s *Service) Logout(c *fiber.Ctx) error {
	target := s.gw.Logout(c.UserContext(), c)
	if target == "" {
		target = handler.LoginPath
	}

	return handler.Redirect(c, s.gw, target)
}
