// Package memory provides an in-process implementation of store.TaskStore.
// It is used by tests and by the "memory" database driver for local runs;
// data does not survive a restart.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/store"
)

type entry struct {
	task domain.Task
	seq  uint64
}

// TaskStore keeps tasks in a map guarded by a mutex.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*entry
	seq   uint64
	clock store.Clock
}

// Option configures a TaskStore.
type Option func(*TaskStore)

// WithClock overrides the clock used to stamp CreatedAt.
func WithClock(c store.Clock) Option {
	return func(s *TaskStore) { s.clock = c }
}

// NewTaskStore returns an empty store.
func NewTaskStore(opts ...Option) *TaskStore {
	s := &TaskStore{
		tasks: make(map[uuid.UUID]*entry),
		clock: store.NewMonotonicClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	_ store.TaskStore    = (*TaskStore)(nil)
	_ store.BatchCreator = (*TaskStore)(nil)
)

// Create implements store.TaskStore.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return store.InvalidEntity(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task.ID = uuid.New()
	task.CreatedAt = s.clock.Now()
	s.seq++
	s.tasks[task.ID] = &entry{task: *task, seq: s.seq}
	return nil
}

// CreateBatch implements store.BatchCreator.
func (s *TaskStore) CreateBatch(ctx context.Context, tasks []*domain.Task) error {
	if err := store.ValidateBatch(tasks); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range tasks {
		task.ID = uuid.New()
		task.CreatedAt = s.clock.Now()
		s.seq++
		s.tasks[task.ID] = &entry{task: *task, seq: s.seq}
	}
	return nil
}

// GetByID implements store.TaskStore.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	t := e.task
	return &t, nil
}

// List implements store.TaskStore.
func (s *TaskStore) List(ctx context.Context, opts store.ListOptions) ([]*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	entries := make([]*entry, 0, len(s.tasks))
	for _, e := range s.tasks {
		cp := *e
		entries = append(entries, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.task.CreatedAt.Equal(b.task.CreatedAt) {
			if opts.Order == store.SortOldest {
				return a.task.CreatedAt.Before(b.task.CreatedAt)
			}
			return a.task.CreatedAt.After(b.task.CreatedAt)
		}
		if opts.Order == store.SortOldest {
			return a.seq < b.seq
		}
		return a.seq > b.seq
	})

	if opts.Limit > 0 && len(entries) > opts.Limit {
		entries = entries[:opts.Limit]
	}

	tasks := make([]*domain.Task, 0, len(entries))
	for _, e := range entries {
		t := e.task
		tasks = append(tasks, &t)
	}
	return tasks, nil
}

// Update implements store.TaskStore.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return store.InvalidEntity(err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[task.ID]
	if !ok {
		return store.ErrTaskNotFound
	}
	e.task.Title = task.Title
	e.task.Description = task.Description
	e.task.Done = task.Done
	task.CreatedAt = e.task.CreatedAt
	return nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

// Ping implements store.TaskStore. The memory store is always reachable.
func (s *TaskStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements store.TaskStore.
func (s *TaskStore) Close() error {
	return nil
}
