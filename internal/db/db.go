// Package db opens the relational database and migrates its schema.
package db

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	gormmysql "gorm.io/driver/mysql"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/community-dashboard/community-dashboard/internal/config"
	"github.com/community-dashboard/community-dashboard/internal/db/dsn"
	"github.com/community-dashboard/community-dashboard/internal/db/models"
)

// Engines.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)

// ErrUnknownEngine is returned for an unsupported gorm engine.
var ErrUnknownEngine = errors.New("unknown gorm engine")

// Dialector returns the gorm dialector for cfg. SQLite uses Name as the file path.
func Dialector(cfg config.DB) (gorm.Dialector, error) {
	switch cfg.GormEngine {
	case EngineMySQL:
		return gormmysql.Open(dsn.MySQL(cfg)), nil
	case EnginePostgres:
		return gormpostgres.Open(dsn.Postgres(cfg)), nil
	case "", EngineSQLite:
		name := cfg.Name
		if name == "" {
			name = ":memory:"
		}

		return sqlite.Open(name), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, cfg.GormEngine)
	}
}

// Open connects to the database and migrates every model.
func Open(cfg config.DB) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// every connection of the pool would see its own in-memory database
	if isSQLite(cfg) && (cfg.Name == "" || cfg.Name == ":memory:") {
		if sqlDB, sqlErr := db.DB(); sqlErr == nil {
			sqlDB.SetMaxOpenConns(1)
		}
	}

	if err = db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func isSQLite(cfg config.DB) bool {
	return cfg.GormEngine == "" || cfg.GormEngine == EngineSQLite
}
