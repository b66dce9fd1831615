// Package daemon assembles storage, database, authentication and the web service.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/community-dashboard/community-dashboard/internal/auth"
	"github.com/community-dashboard/community-dashboard/internal/config"
	"github.com/community-dashboard/community-dashboard/internal/db"
	"github.com/community-dashboard/community-dashboard/internal/db/controller/adminevent"
	"github.com/community-dashboard/community-dashboard/internal/db/controller/clientauth"
	"github.com/community-dashboard/community-dashboard/internal/db/controller/moderator"
	"github.com/community-dashboard/community-dashboard/internal/storage"
	"github.com/community-dashboard/community-dashboard/internal/web"
)

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	db         *gorm.DB
	storage    fiber.Storage
	gateway    *auth.Gateway
	webService *web.Service
}

// Start starts the Daemon's web service.
func (d *Daemon) Start() error {
	return d.webService.Start(":" + strconv.Itoa(d.cfg.Webserver.Port))
}

// WaitShutdown blocks until a shutdown signal arrives, then stops the web service.
func (d *Daemon) WaitShutdown() {
	d.webService.WaitShutdown()
}

// Gateway returns the authentication gateway.
func (d *Daemon) Gateway() *auth.Gateway {
	return d.gateway
}

// App returns the fiber app.
func (d *Daemon) App() *fiber.App {
	return d.webService.App
}

// Close releases the storage and database connections.
func (d *Daemon) Close() error {
	var errs []error

	if d.storage != nil {
		errs = append(errs, d.storage.Close())
	}

	if d.db != nil {
		if sqlDB, err := d.db.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}

	return errors.Join(errs...)
}

// New creates a new Daemon instance with the provided configuration.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	gdb, err := db.Open(cfg.DB)
	if err != nil {
		return nil, err
	}

	d := &Daemon{cfg: cfg, db: gdb}

	roles := moderator.New(gdb)
	if err = seed(ctx, cfg, roles); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("failed to seed moderators: %w", err)
	}

	if d.storage, err = storage.New(ctx, cfg.Storage, cfg.DB); err != nil {
		_ = d.Close()
		return nil, err
	}

	policy := PolicyFromConfig(cfg)

	if issuer := cfg.Auth.OIDC.Issuer; issuer != "" {
		discovered, errDiscover := auth.Discover(ctx, issuer, policy.OIDC)
		if errDiscover != nil {
			// configured endpoints still work without discovery
			log.Warn().Err(errDiscover).Str("issuer", issuer).Msg("OIDC discovery failed")
		} else {
			policy.OIDC = discovered
		}
	}

	if policy.Session.SigningKey == "" {
		log.Warn().Msg("no session signing key configured: browser held sessions end on restart")
	}

	events := adminevent.New(gdb)

	d.gateway = auth.New(auth.Options{
		Policy:  policy,
		Storage: d.storage,
		Roles:   roles,
		Memory:  clientauth.New(gdb),
		Audit:   auth.MultiSink{auth.LogSink{}, events},
	})

	if d.webService, err = web.New(cfg, d.gateway, events); err != nil {
		_ = d.Close()
		return nil, err
	}

	log.Info().
		Bool("local_login", policy.LocalAdmin.Enabled()).
		Bool("sso_login", policy.OIDC.Enabled()).
		Str("storage", cfg.Storage.Driver).
		Str("db", cfg.DB.GormEngine).
		Msg("daemon initialized")

	return d, nil
}
