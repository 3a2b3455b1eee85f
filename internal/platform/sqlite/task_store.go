package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
)

// SQLiteTaskStore implements store.TaskStore on SQLite.
type SQLiteTaskStore struct {
	db     *sql.DB
	clock  store.Clock
	logger *slog.Logger
}

// NewSQLiteTaskStore creates a store on db. The caller owns the schema;
// run migrations before use. Close closes db.
func NewSQLiteTaskStore(db *sql.DB, log *slog.Logger) *SQLiteTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SQLiteTaskStore{
		db:     db,
		clock:  store.NewMonotonicClock(),
		logger: log.With(slog.String("component", "sqlite_task_store")),
	}
}

var (
	_ store.TaskStore    = (*SQLiteTaskStore)(nil)
	_ store.BatchCreator = (*SQLiteTaskStore)(nil)
)

const selectTaskColumns = `SELECT id, title, description, done, created_at FROM tasks`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t         domain.Task
		id        string
		createdAt int64
	)
	if err := row.Scan(&id, &t.Title, &t.Description, &t.Done, &createdAt); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt task id %q: %w", id, err)
	}
	t.ID = parsed
	t.CreatedAt = time.UnixMicro(createdAt).UTC()
	return &t, nil
}

// Create implements store.TaskStore.
func (s *SQLiteTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Debug("task validation failed during create", slog.String("error", err.Error()))
		return store.InvalidEntity(err)
	}

	if err := s.insert(ctx, s.db, task); err != nil {
		log.Error("failed to create task", slog.String("error", err.Error()))
		return err
	}
	log.Debug("task created", slog.String("task_id", task.ID.String()))
	return nil
}

// CreateBatch implements store.BatchCreator.
func (s *SQLiteTaskStore) CreateBatch(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if err := store.ValidateBatch(tasks); err != nil {
		return err
	}

	inserted := make([]domain.Task, len(tasks))
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		for i, t := range tasks {
			inserted[i] = *t
			if err := s.insert(ctx, tx, &inserted[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for i, t := range tasks {
		t.ID = inserted[i].ID
		t.CreatedAt = inserted[i].CreatedAt
	}
	return nil
}

// insert writes task through q and stamps its ID and CreatedAt on success.
func (s *SQLiteTaskStore) insert(ctx context.Context, q store.DBTX, task *domain.Task) error {
	id := uuid.New()
	createdAt := s.clock.Now()

	_, err := q.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, done, created_at) VALUES (?, ?, ?, ?, ?)`,
		id.String(), task.Title, task.Description, task.Done, createdAt.UnixMicro(),
	)
	if err != nil {
		return store.NewStoreError("task", "create", "failed to insert task", MapError(err))
	}

	task.ID = id
	task.CreatedAt = createdAt
	return nil
}

// GetByID implements store.TaskStore.
func (s *SQLiteTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	row := s.db.QueryRowContext(ctx, selectTaskColumns+` WHERE id = ?`, id.String())
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to get task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "get", "failed to query task", MapError(err))
	}
	return task, nil
}

// List implements store.TaskStore.
func (s *SQLiteTaskStore) List(ctx context.Context, opts store.ListOptions) ([]*domain.Task, error) {
	query := selectTaskColumns + ` ORDER BY created_at DESC, rowid DESC`
	if opts.Order == store.SortOldest {
		query = selectTaskColumns + ` ORDER BY created_at ASC, rowid ASC`
	}

	var args []any
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.NewStoreError("task", "list", "failed to query tasks", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("task", "list", "failed to scan task", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "list", "failed to iterate tasks", err)
	}
	return tasks, nil
}

// Update implements store.TaskStore.
func (s *SQLiteTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Debug("task validation failed during update",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return store.InvalidEntity(err)
	}

	var createdAt int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, done = ? WHERE id = ? RETURNING created_at`,
		task.Title, task.Description, task.Done, task.ID.String(),
	).Scan(&createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrTaskNotFound
		}
		log.Error("failed to update task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "update", "failed to update task", MapError(err))
	}

	task.CreatedAt = time.UnixMicro(createdAt).UTC()
	return nil
}

// Delete implements store.TaskStore.
func (s *SQLiteTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id.String())
	if err != nil {
		return store.NewStoreError("task", "delete", "failed to delete task", MapError(err))
	}

	n, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("task", "delete", "failed to get rows affected", err)
	}
	if n == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

// Ping implements store.TaskStore.
func (s *SQLiteTaskStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements store.TaskStore.
func (s *SQLiteTaskStore) Close() error {
	return s.db.Close()
}
