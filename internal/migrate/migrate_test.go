package migrate

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "migrate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&count)
	require.NoError(t, err)
	return count > 0
}

func TestMigratorSQLiteLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	log, buf := logger.NewTestLogger()

	m, err := New(config.DriverSQLite, db, log)
	require.NoError(t, err)

	v, err := m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	statuses, err := m.Status(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, statuses)
	assert.False(t, statuses[0].Applied)

	require.NoError(t, m.Up(ctx))
	assert.True(t, tableExists(t, db, "tasks"))
	assert.Contains(t, buf.String(), "migration applied")

	v, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	statuses, err = m.Status(ctx)
	require.NoError(t, err)
	assert.True(t, statuses[0].Applied)

	require.NoError(t, m.Up(ctx), "up is idempotent")

	require.NoError(t, m.Down(ctx))
	assert.False(t, tableExists(t, db, "tasks"))

	v, err = m.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)
}

func TestNewRejectsUnsupportedDriver(t *testing.T) {
	for _, driver := range []string{config.DriverRedis, config.DriverMemory, "mysql"} {
		_, err := New(driver, nil, nil)
		assert.True(t, errors.Is(err, ErrUnsupportedDriver), "driver %s", driver)
	}
}
