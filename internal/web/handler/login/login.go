package login

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/config"
	"github.com/community-dashboard/community-dashboard/internal/web/handler"
)

const (
	// Path is the path to the login page.
	Path = handler.LoginPath
)

// Form is the submitted login form.
type Form struct {
	Username string `form:"username" validate:"required,max=191"`
	Password string `form:"password" validate:"required,max=1024"`
	Next     string `form:"next"     validate:"omitempty,max=2048"`
}

var formValidator = validator.New()

// Service is the login handler service.
type Service struct {
	handler.Service
	cfg *config.Config
	gw  *auth.Gateway
}

// Handler is the login handler.
var Handler = Service{}

// Init initializes the login handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, gw *auth.Gateway) error {
	if err := handler.CheckDeps(app, cfg, gw); err != nil {
		return err
	}

	s.cfg = cfg
	s.gw = gw

	// register routes
	app.Route(Path, func(router fiber.Router) {
		router.Get(handler.RouterRootPath, s.Get)
		router.Post(handler.RouterRootPath, s.Post)
	})

	return nil
}

// Get handles the login page rendering. Logged in users go straight on.
func (s *Service) Get(c *fiber.Ctx) error {
	next := auth.SanitizeRedirectPath(c.Query("next"))

	if s.gw.Current(c).Authenticated {
		return c.Redirect(next)
	}

	return handler.RenderLogin(c, s.gw, s.gw.LoginOptions(next, ""), fiber.StatusOK)
}

// Post handles the login form submission.
func (s *Service) Post(c *fiber.Ctx) error {
	form := new(Form)

	if err := c.BodyParser(form); err != nil {
		return s.renderError(c, "", ErrInvalidFormData)
	}

	next := auth.SanitizeRedirectPath(form.Next)

	if err := formValidator.Struct(form); err != nil {
		return s.renderError(c, next, ErrInvalidFormData)
	}

	sess, err := s.gw.LoginLocal(c.UserContext(), c, form.Username, form.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrLocalLoginDisabled):
			return s.renderError(c, next, ErrLocalAuthDisabled)
		case errors.Is(err, auth.ErrInvalidLocalCredentials):
			return s.renderError(c, next, ErrInvalidCredentials)
		default:
			log.Error().Err(err).Msg("local login failed")
			return s.renderError(c, next, err)
		}
	}

	return handler.RedirectLocalLogin(c, s.gw, next, sess)
}

func (s *Service) renderError(c *fiber.Ctx, next string, err error) error {
	return handler.RenderLogin(c, s.gw, s.gw.LoginOptions(next, err.Error()), fiber.StatusOK)
}
