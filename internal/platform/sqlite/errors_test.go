package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	assert.NoError(t, MapError(nil))

	err := MapError(sql.ErrNoRows)
	assert.True(t, errors.Is(err, store.ErrNotFound))

	plain := errors.New("disk I/O error")
	assert.Equal(t, plain, MapError(plain))
}

func TestMapErrorConstraintViolation(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, filepath.Join(t.TempDir(), "constraints.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, `CREATE TABLE t (title TEXT NOT NULL CHECK (title <> ''))`)
	require.NoError(t, err)

	for _, value := range []any{"", nil} {
		_, err = db.ExecContext(ctx, `INSERT INTO t (title) VALUES (?)`, value)
		require.Error(t, err, fmt.Sprintf("value %v", value))
		assert.True(t, errors.Is(MapError(err), store.ErrInvalidEntity), "value %v: %v", value, err)
	}
}
