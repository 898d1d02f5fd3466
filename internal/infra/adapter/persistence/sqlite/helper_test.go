package sqlite_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"feedwatch/internal/infra/db"
)

// openTestDB returns a migrated in-memory database closed at test cleanup.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, dialect, err := db.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.Equal(t, db.DialectSQLite, dialect)
	require.NoError(t, db.MigrateUp(conn, dialect))
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
