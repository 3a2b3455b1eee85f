package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     *sql.DB
	clock  store.Clock
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// The store takes ownership of db and closes it in Close.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db *sql.DB, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		clock:  store.NewMonotonicClock(),
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements the store interfaces
var (
	_ store.TaskStore    = (*PostgresTaskStore)(nil)
	_ store.BatchCreator = (*PostgresTaskStore)(nil)
)

const selectTaskColumns = `SELECT id, title, description, done, created_at FROM tasks`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var t domain.Task
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Done, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

// Create implements store.TaskStore.Create.
// It validates the task, assigns ID and CreatedAt, and inserts it.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create", slog.String("error", err.Error()))
		return store.InvalidEntity(err)
	}

	if err := s.insert(ctx, s.db, task); err != nil {
		log.Error("failed to create task", slog.String("error", err.Error()))
		return err
	}
	log.Debug("task created successfully", slog.String("task_id", task.ID.String()))
	return nil
}

// CreateBatch implements store.BatchCreator. All tasks are inserted in one
// transaction, in slice order.
func (s *PostgresTaskStore) CreateBatch(ctx context.Context, tasks []*domain.Task) error {
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
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create task batch",
			slog.Int("count", len(tasks)),
			slog.String("error", err.Error()))
		return err
	}

	for i, t := range tasks {
		t.ID = inserted[i].ID
		t.CreatedAt = inserted[i].CreatedAt
	}
	return nil
}

func (s *PostgresTaskStore) insert(ctx context.Context, q store.DBTX, task *domain.Task) error {
	id := uuid.New()
	createdAt := s.clock.Now()

	query := `
		INSERT INTO tasks (id, title, description, done, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := q.ExecContext(ctx, query, id, task.Title, task.Description, task.Done, createdAt); err != nil {
		return store.NewStoreError("task", "create", "failed to insert task", MapError(err))
	}

	task.ID = id
	task.CreatedAt = createdAt
	return nil
}

// GetByID implements store.TaskStore.GetByID.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := scanTask(s.db.QueryRowContext(ctx, selectTaskColumns+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "get", "failed to query task", MapError(err))
	}
	return task, nil
}

// List implements store.TaskStore.List.
func (s *PostgresTaskStore) List(ctx context.Context, opts store.ListOptions) ([]*domain.Task, error) {
	query := selectTaskColumns + ` ORDER BY created_at DESC, seq DESC`
	if opts.Order == store.SortOldest {
		query = selectTaskColumns + ` ORDER BY created_at ASC, seq ASC`
	}

	var args []any
	if opts.Limit > 0 {
		query += ` LIMIT $1`
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
			slog.String("error", err.Error()))
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

// Update implements store.TaskStore.Update.
// Only title, description and done are written.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return store.InvalidEntity(err)
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, done = $3
		WHERE id = $4
		RETURNING created_at
	`
	err := s.db.QueryRowContext(ctx, query, task.Title, task.Description, task.Done, task.ID).
		Scan(&task.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrTaskNotFound
		}
		log.Error("failed to update task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "update", "failed to update task", MapError(err))
	}
	task.CreatedAt = task.CreatedAt.UTC()
	return nil
}

// Delete implements store.TaskStore.Delete.
// Returns store.ErrTaskNotFound if no task matched.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "delete", "failed to delete task", MapError(err))
	}
	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// Ping implements store.TaskStore.Ping.
func (s *PostgresTaskStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements store.TaskStore.Close.
func (s *PostgresTaskStore) Close() error {
	return s.db.Close()
}
