// Package web wires the HTTP surface of the dashboard.
package web

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/encryptcookie"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/config"
	fiberlogger "github.com/community-dashboard/community-dashboard/internal/logger/adapter/fiber"
	oidchandler "github.com/community-dashboard/community-dashboard/internal/web/handler/auth/oidc"
	"github.com/community-dashboard/community-dashboard/internal/web/handler/dashboard"
	"github.com/community-dashboard/community-dashboard/internal/web/handler/login"
	"github.com/community-dashboard/community-dashboard/internal/web/handler/logout"
	"github.com/community-dashboard/community-dashboard/internal/web/handler/settings"
)

const (
	// CheckAlivePath answers load balancer health checks.
	CheckAlivePath = "/checkalive"

	// MetricsPath exposes the Prometheus metrics.
	MetricsPath = "/metrics"
)

// ErrInvalidCookieKey is returned for a cookie encryption key that is not
// base64 of 16, 24 or 32 bytes.
var ErrInvalidCookieKey = errors.New("cookie encryption key must be base64 of 16, 24 or 32 bytes")

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
	gw           *auth.Gateway
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan error, 1)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			doneFiber <- fmt.Errorf("fiber listen error: %w", err)
			return
		}

		doneFiber <- nil
	}()

	return <-doneFiber // wait for fiber to stop
}

// WaitShutdown waits for SIGINT or SIGTERM and shuts down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown(context.Background())
}

// Shutdown lets checkalive fail for the configured grace time, then stops the server.
func (s *Service) Shutdown(ctx context.Context) {
	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	s.alive.Store(false)

	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		select {
		case <-ctx.Done():
		case <-time.After(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second):
		}
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// SetFastShutdown skips the checkalive grace period on shutdown.
func (s *Service) SetFastShutdown(fast bool) {
	s.fastShutDown = fast
}

// Alive reports whether checkalive currently succeeds.
func (s *Service) Alive() bool {
	return s.alive.Load()
}

// DateTimeLayout formats timestamps in views.
const DateTimeLayout = "2006-01-02 15:04:05 UTC"

// NewTemplateEngine returns the embedded view engine, or the local files in dev mode.
func NewTemplateEngine(devMode bool) *html.Engine {
	engine := html.NewFileSystem(http.FS(templateEmbedFS{embeddedTemplates}), ".gohtml")

	// in debug mode, use local filesystem for templates
	if devMode {
		engine = html.New("./internal/web/templates", ".gohtml")
		engine.ShouldReload = true

		log.Warn().Msg("debug mode enabled: using local filesystem for templates")
	}

	engine.AddFunc("datetime", func(t time.Time) string {
		return t.UTC().Format(DateTimeLayout)
	})

	return engine
}

// New creates a new web service. events feeds the settings page and may be nil.
func New(cfg *config.Config, gw *auth.Gateway, events settings.EventLister) (*Service, error) {
	return NewWithViews(cfg, gw, events, NewTemplateEngine(cfg != nil && cfg.DevMode))
}

// NewWithViews is New with a custom view engine.
func NewWithViews(cfg *config.Config, gw *auth.Gateway, events settings.EventLister, views fiber.Views) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if gw == nil {
		return nil, errors.New("auth gateway cannot be nil")
	}

	// create fiber app
	app := fiber.New(
		fiber.Config{
			ReadBufferSize:        8192,
			AppName:               cfg.Title,
			CaseSensitive:         true,
			Prefork:               false,
			Immutable:             true,
			Views:                 views,
			DisableStartupMessage: !cfg.DevMode,
		},
	)

	service := &Service{
		cfg: cfg,
		App: app,
		gw:  gw,
	}
	service.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: CheckAlivePath,
	}))

	if key := cfg.Webserver.CookieEncryptionKey; key != "" {
		if err := checkCookieKey(key); err != nil {
			return nil, err
		}

		app.Use(encryptcookie.New(encryptcookie.Config{Key: key}))
	} else {
		log.Warn().Msg("cookie encryption is disabled: session cookies are only signed")
	}

	// serve embedded static files
	app.Use("/static",
		filesystem.New(
			filesystem.Config{
				Root:       http.FS(embeddedStaticFiles),
				PathPrefix: "static",
				Browse:     cfg.Webserver.BrowseStatic,
			},
		),
	)

	app.Get(CheckAlivePath, func(c *fiber.Ctx) error {
		if !service.alive.Load() {
			return c.SendStatus(fiber.StatusServiceUnavailable)
		}

		return c.SendString("OK")
	})

	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	app.Use(SessionMiddleware(gw))

	if err := login.Handler.Init(app, cfg, gw); err != nil {
		return nil, err
	}

	if err := oidchandler.Handler.Init(app, cfg, gw); err != nil {
		return nil, err
	}

	if err := logout.Handler.Init(app, cfg, gw); err != nil {
		return nil, err
	}

	if err := dashboard.Handler.Init(app, cfg, gw); err != nil {
		return nil, err
	}

	settings.Handler.SetEvents(events)

	if err := settings.Handler.Init(app, cfg, gw); err != nil {
		return nil, err
	}

	// redirect root to dashboard
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect(dashboard.Path)
	})

	return service, nil
}

func checkCookieKey(key string) error {
	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return ErrInvalidCookieKey
	}

	switch len(raw) {
	case 16, 24, 32:
		return nil
	default:
		return ErrInvalidCookieKey
	}
}
