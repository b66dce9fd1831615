// Package dbtest opens throwaway databases for tests.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/community-dashboard/community-dashboard/internal/config"
	"github.com/community-dashboard/community-dashboard/internal/db"
)

// New returns a migrated in-memory SQLite database closed at test cleanup.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.Open(config.DB{GormEngine: db.EngineSQLite, Name: ":memory:"})
	require.NoError(t, err, "failed to create test database")

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return gdb
}
