// Package dbtest opens migrated databases for package tests.
package dbtest

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"

	"github.com/terraconstructs/gridguard/internal/db/bunx"
	"github.com/terraconstructs/gridguard/internal/migrations"
)

// EnvDatabaseURL points tests at a real database instead of in-memory SQLite.
const EnvDatabaseURL = "GUARD_TEST_DATABASE_URL"

// Open returns a freshly migrated database. Without GUARD_TEST_DATABASE_URL
// every call gets its own private in-memory SQLite database.
func Open(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	dsn := os.Getenv(EnvDatabaseURL)
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := bunx.NewDB(ctx, dsn, 4)
	if err != nil {
		if dsn != ":memory:" {
			t.Skipf("Database not available: %v", err)
		}
		require.NoError(t, err)
	}

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	require.NoError(t, migrator.Init(ctx))
	_, err = migrator.Migrate(ctx)
	require.NoError(t, err)

	t.Cleanup(func() {
		if dsn != ":memory:" {
			_, _ = migrator.Rollback(ctx)
		}
		_ = db.Close()
	})
	return db
}
