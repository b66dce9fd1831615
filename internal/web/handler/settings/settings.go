// Package settings provides the administrator settings page.
package settings

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/config"
	"github.com/community-dashboard/community-dashboard/internal/db/models"
	"github.com/community-dashboard/community-dashboard/internal/web/handler"
	"github.com/community-dashboard/community-dashboard/internal/web/navigation"
)

const (
	// Path is the path to the settings page.
	Path = handler.RootPath + "settings"

	// TemplateName is the name of the settings template.
	TemplateName = "settings/settings"

	// EventLimit is the number of audit events shown.
	EventLimit = 25
)

// EventLister lists recent audit events, newest first.
type EventLister interface {
	List(ctx context.Context, limit int) ([]models.AdminEvent, error)
}

// Overview summarizes the effective authentication setup for admins.
type Overview struct {
	LocalEnabled     bool
	SSOEnabled       bool
	Issuer           string
	ClientAuthMethod string
	DirectAuth       bool
	BypassOnMissing  bool
	AdminUsernames   []string
}

// Service is the settings handler service.
type Service struct {
	handler.Service
	cfg    *config.Config
	gw     *auth.Gateway
	events EventLister
}

// Handler is the settings handler.
var Handler = Service{}

// Init initializes the settings handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, gw *auth.Gateway) error {
	if err := handler.CheckDeps(app, cfg, gw); err != nil {
		return err
	}

	s.cfg = cfg
	s.gw = gw

	app.Get(Path, s.Get)

	return nil
}

// SetEvents sets the audit event source. Without one the page shows no events.
func (s *Service) SetEvents(events EventLister) {
	s.events = events
}

// Get handles the settings page rendering.
func (s *Service) Get(c *fiber.Ctx) error {
	if _, err := s.gw.RequireAdmin(c.UserContext(), c, c.OriginalURL()); err != nil {
		return handler.Deny(c, s.gw, err)
	}

	nav := navigation.NewContext("Settings", "settings", "settings").
		AddBreadcrumb("Home", handler.DashboardPath, false).
		AddBreadcrumb("Settings", Path, true)

	var events []models.AdminEvent

	if s.events != nil {
		var err error
		if events, err = s.events.List(c.UserContext(), EventLimit); err != nil {
			log.Error().Err(err).Msg("failed to list admin events")
		}
	}

	return c.Render(TemplateName, handler.Bind(c, s.gw, fiber.Map{
		"Navigation": nav,
		"Title":      s.cfg.Title,
		"Overview":   overview(s.gw.Policy(), s.cfg.Auth.OIDC.Issuer),
		"Events":     events,
	}), handler.BaseLayout)
}

func overview(p auth.Policy, issuer string) Overview {
	return Overview{
		LocalEnabled:     p.LocalAdmin.Enabled(),
		SSOEnabled:       p.OIDC.Enabled(),
		Issuer:           issuer,
		ClientAuthMethod: string(p.OIDC.ClientAuthMethod),
		DirectAuth:       p.DirectAuth,
		BypassOnMissing:  p.BypassOnMissingState,
		AdminUsernames:   p.AdminUsernames,
	}
}
