// Package dashboard provides the landing page for logged in users.
package dashboard

import (
	"github.com/gofiber/fiber/v2"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/config"
	"github.com/community-dashboard/community-dashboard/internal/web/handler"
	"github.com/community-dashboard/community-dashboard/internal/web/navigation"
)

const (
	// Path is the path to the dashboard page.
	Path = handler.DashboardPath

	// TemplateName is the name of the dashboard template.
	TemplateName = "dashboard/dashboard"
)

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	gw  *auth.Gateway
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, gw *auth.Gateway) error {
	if err := handler.CheckDeps(app, cfg, gw); err != nil {
		return err
	}

	s.cfg = cfg
	s.gw = gw

	app.Get(Path, s.Get)

	return nil
}

// Get handles the dashboard page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	sess, err := s.gw.RequireAuth(c.UserContext(), c, c.OriginalURL())
	if err != nil {
		return handler.Deny(c, s.gw, err)
	}

	nav := navigation.NewContext("Dashboard", "dashboard", "dashboard").
		AddBreadcrumb("Home", Path, false).
		AddBreadcrumb("Dashboard", Path, true)

	return c.Render(TemplateName, handler.Bind(c, s.gw, fiber.Map{
		"Navigation": nav,
		"Title":      s.cfg.Title,
		"Session":    sess,
	}), handler.BaseLayout)
}
