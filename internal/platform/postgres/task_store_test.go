package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/migrate"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/platform/postgres"
	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/phrazzld/tasks-api/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

// testDatabaseURLEnv names the variable that enables the integration tests.
const testDatabaseURLEnv = "TASKS_TEST_DATABASE_URL"

func newTestStore(t *testing.T) *postgres.PostgresTaskStore {
	t.Helper()

	url := os.Getenv(testDatabaseURLEnv)
	if url == "" {
		t.Skipf("%s not set; skipping PostgreSQL integration test", testDatabaseURLEnv)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	log, _ := logger.NewTestLogger()

	db, err := postgres.Open(ctx, url, postgres.PoolConfig{MaxOpenConns: 4})
	require.NoError(t, err)

	m, err := migrate.New(config.DriverPostgres, db, log)
	require.NoError(t, err)
	require.NoError(t, m.Up(ctx))

	_, err = db.ExecContext(ctx, `TRUNCATE tasks`)
	require.NoError(t, err)

	s := postgres.NewPostgresTaskStore(db, log)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresTaskStoreConformance(t *testing.T) {
	storetest.RunTaskStoreSuite(t, func(t *testing.T) store.TaskStore {
		return newTestStore(t)
	})
}
