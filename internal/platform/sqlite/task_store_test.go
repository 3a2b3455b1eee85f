package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/migrate"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/phrazzld/tasks-api/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteTaskStore {
	t.Helper()
	ctx := context.Background()
	log, _ := logger.NewTestLogger()

	db, err := Open(ctx, filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)

	m, err := migrate.New(config.DriverSQLite, db, log)
	require.NoError(t, err)
	require.NoError(t, m.Up(ctx))

	s := NewSQLiteTaskStore(db, log)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteTaskStoreConformance(t *testing.T) {
	storetest.RunTaskStoreSuite(t, func(t *testing.T) store.TaskStore {
		return newTestStore(t)
	})
}

func TestSQLiteTaskStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tasks.db")
	log, _ := logger.NewTestLogger()

	db, err := Open(ctx, path)
	require.NoError(t, err)
	m, err := migrate.New(config.DriverSQLite, db, log)
	require.NoError(t, err)
	require.NoError(t, m.Up(ctx))

	s := NewSQLiteTaskStore(db, log)
	created := storetest.MustCreate(t, s, "survives restart")
	require.NoError(t, s.Close())

	db, err = Open(ctx, path)
	require.NoError(t, err)
	reopened := NewSQLiteTaskStore(db, log)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetByID(ctx, created.ID)
	require.NoError(t, err)
	storetest.AssertTaskEqual(t, created, got)
}

func TestSQLiteTaskStoreWithoutSchema(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	s := NewSQLiteTaskStore(db, nil)
	t.Cleanup(func() { _ = s.Close() })

	_, err = s.List(ctx, store.ListOptions{})
	require.Error(t, err)
	assert.False(t, store.IsNotFoundError(err))
	var storeErr *store.StoreError
	assert.True(t, errors.As(err, &storeErr))
}

func TestDSN(t *testing.T) {
	assert.Equal(t,
		"file:tasks.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		DSN("tasks.db"))
	assert.Equal(t,
		"file:tasks.db?cache=shared&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		DSN("file:tasks.db?cache=shared"))
}
