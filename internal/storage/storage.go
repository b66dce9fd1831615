// Package storage opens the key value store shared by the login flow:
// pending SSO states, the session mirror and the revocation ledger.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	mysqlstorage "github.com/gofiber/storage/mysql/v2"
	postgresstorage "github.com/gofiber/storage/postgres/v3"
	"github.com/rs/zerolog/log"

	"github.com/community-dashboard/community-dashboard/internal/config"
	"github.com/community-dashboard/community-dashboard/internal/db/dsn"
)

// Drivers.
const (
	DriverMemory   = "memory"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"

	defaultTable = "auth_storage"
)

// ErrUnknownDriver is returned for an unsupported storage driver.
var ErrUnknownDriver = errors.New("unknown storage driver")

// New opens the storage selected by cfg. The sql drivers reuse the
// database credentials from db. The sql drivers panic when the database
// can not be reached, so New is meant for process start.
func New(ctx context.Context, cfg config.Storage, db config.DB) (fiber.Storage, error) {
	table := cfg.Table
	if table == "" {
		table = defaultTable
	}

	switch cfg.Driver {
	case "", DriverMemory:
		log.Warn().Msg("memory storage: pending logins, session mirror and logouts are lost on restart")

		return Memory(), nil
	case DriverMySQL:
		return mysqlstorage.New(mysqlstorage.Config{
			ConnectionURI: dsn.MySQL(db),
			Table:         table,
		}), nil
	case DriverPostgres:
		return postgresstorage.New(postgresstorage.Config{
			ConnectionURI: dsn.Postgres(db),
			Table:         table,
		}), nil
	case DriverRedis:
		return NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// Memory returns a process local storage.
func Memory() fiber.Storage {
	return session.New().Storage
}
