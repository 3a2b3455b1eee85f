package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
)

// SortOrder selects the createdAt ordering of a task listing.
type SortOrder int

const (
	// SortNewest orders tasks by createdAt descending. It is the default.
	SortNewest SortOrder = iota
	// SortOldest orders tasks by createdAt ascending.
	SortOldest
)

// String returns the query value for the order.
func (o SortOrder) String() string {
	if o == SortOldest {
		return "oldest"
	}
	return "newest"
}

// ListOptions controls TaskStore.List.
type ListOptions struct {
	// Limit caps the number of returned tasks. Zero means no limit.
	Limit int
	Order SortOrder
}

// TaskStore defines the interface for task persistence.
//
// Ties on createdAt are broken by insertion order in both directions, so
// SortOldest is always the exact reverse of SortNewest.
type TaskStore interface {
	// Create validates and saves a new task. The store assigns ID and
	// CreatedAt and writes them back into task.
	// Returns an error wrapping ErrInvalidEntity and a *domain.ValidationError
	// if the task fails schema validation; nothing is persisted in that case.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns tasks sorted by createdAt according to opts.
	List(ctx context.Context, opts ListOptions) ([]*domain.Task, error)

	// Update validates and persists the mutable fields of an existing task.
	// ID and CreatedAt are never changed.
	// Returns ErrTaskNotFound if the task does not exist and an error wrapping
	// ErrInvalidEntity if the task fails schema validation.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task by ID.
	// Returns ErrTaskNotFound if no task matched.
	Delete(ctx context.Context, id uuid.UUID) error

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// BatchCreator is implemented by stores that can insert several tasks
// atomically. Either every task is created, in slice order, or none is.
type BatchCreator interface {
	CreateBatch(ctx context.Context, tasks []*domain.Task) error
}

// ValidateBatch validates every task before a batch insert. The error
// identifies the first invalid task by its 1-based position.
func ValidateBatch(tasks []*domain.Task) error {
	for i, t := range tasks {
		if err := t.Validate(); err != nil {
			return fmt.Errorf("task %d: %w", i+1, InvalidEntity(err))
		}
	}
	return nil
}
