package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/config"
)

// ErrNilDependency is returned by Init when app, cfg or gateway is nil.
var ErrNilDependency = errors.New(ErrNilACDFatalLogMsg)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, gw *auth.Gateway) error
}

// CheckDeps returns ErrNilDependency when any dependency is nil.
func CheckDeps(app *fiber.App, cfg *config.Config, gw *auth.Gateway) error {
	if app == nil || cfg == nil || gw == nil {
		return ErrNilDependency
	}

	return nil
}
