// Package dbtest opens throwaway in-memory databases for tests.
package dbtest

import (
	"testing"

	"snake-map-server/database"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// Open returns an empty in-memory SQLite database. A single connection keeps
// the memory database alive and serializes writers the way one Postgres row
// lock would.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(":memory:"), database.PoolConfig{
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// OpenMigrated is Open plus the production migration.
func OpenMigrated(t *testing.T) *gorm.DB {
	t.Helper()
	db := Open(t)
	require.NoError(t, database.Migrate(db))
	return db
}
