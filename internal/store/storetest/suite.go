// Package storetest provides a conformance suite that every store.TaskStore
// implementation runs in its own tests.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a new, empty store. It should register any cleanup with t.
type Factory func(t *testing.T) store.TaskStore

// RunTaskStoreSuite exercises the full store.TaskStore contract.
func RunTaskStoreSuite(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("CreateAssignsIDAndCreatedAt", func(t *testing.T) { testCreate(t, newStore(t)) })
	t.Run("CreateRejectsInvalidTask", func(t *testing.T) { testCreateInvalid(t, newStore(t)) })
	t.Run("GetByIDNotFound", func(t *testing.T) { testGetNotFound(t, newStore(t)) })
	t.Run("ListOrderAndLimit", func(t *testing.T) { testList(t, newStore(t)) })
	t.Run("ListEmpty", func(t *testing.T) { testListEmpty(t, newStore(t)) })
	t.Run("Update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("UpdateNotFound", func(t *testing.T) { testUpdateNotFound(t, newStore(t)) })
	t.Run("UpdateRejectsInvalidTask", func(t *testing.T) { testUpdateInvalid(t, newStore(t)) })
	t.Run("Delete", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("ConcurrentCreateListOrder", func(t *testing.T) { testConcurrentCreateListOrder(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newStore(t).Ping(context.Background())) })

	if _, ok := newStore(t).(store.BatchCreator); ok {
		t.Run("CreateBatch", func(t *testing.T) { testCreateBatch(t, newStore(t)) })
		t.Run("CreateBatchAllOrNothing", func(t *testing.T) { testCreateBatchInvalid(t, newStore(t)) })
	}
}

// MustCreate creates a task with the given title and fails the test on error.
func MustCreate(t *testing.T, s store.TaskStore, title string) *domain.Task {
	t.Helper()
	task := &domain.Task{Title: title}
	require.NoError(t, s.Create(context.Background(), task))
	return task
}

// AssertTaskEqual compares two tasks, treating timestamps as equal instants.
func AssertTaskEqual(t *testing.T, want, got *domain.Task) {
	t.Helper()
	require.NotNil(t, got)
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.Done, got.Done)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt),
		"createdAt mismatch: want %s, got %s", want.CreatedAt, got.CreatedAt)
}

func testCreate(t *testing.T, s store.TaskStore) {
	ctx := context.Background()

	task := &domain.Task{Title: "x", Description: "first task"}
	require.NoError(t, s.Create(ctx, task))

	assert.NotEqual(t, uuid.Nil, task.ID)
	assert.False(t, task.CreatedAt.IsZero())
	assert.False(t, task.Done)

	got, err := s.GetByID(ctx, task.ID)
	require.NoError(t, err)
	AssertTaskEqual(t, task, got)

	other := MustCreate(t, s, "y")
	assert.NotEqual(t, task.ID, other.ID)
	assert.False(t, other.CreatedAt.Before(task.CreatedAt))
}

func testCreateInvalid(t *testing.T, s store.TaskStore) {
	ctx := context.Background()

	err := s.Create(ctx, &domain.Task{Description: "no title"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrInvalidEntity))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "title", ve.Fields[0].Field)

	tasks, err := s.List(ctx, store.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, tasks, "invalid task must not be persisted")
}

func testGetNotFound(t *testing.T, s store.TaskStore) {
	_, err := s.GetByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrTaskNotFound))
}

func testList(t *testing.T, s store.TaskStore) {
	ctx := context.Background()

	first := MustCreate(t, s, "first")
	second := MustCreate(t, s, "second")
	third := MustCreate(t, s, "third")

	titles := func(tasks []*domain.Task) []string {
		out := make([]string, len(tasks))
		for i, task := range tasks {
			out[i] = task.Title
		}
		return out
	}

	tests := []struct {
		name string
		opts store.ListOptions
		want []string
	}{
		{name: "default newest first", opts: store.ListOptions{}, want: []string{"third", "second", "first"}},
		{name: "oldest first", opts: store.ListOptions{Order: store.SortOldest}, want: []string{"first", "second", "third"}},
		{name: "limit newest", opts: store.ListOptions{Limit: 2}, want: []string{"third", "second"}},
		{name: "limit oldest", opts: store.ListOptions{Limit: 2, Order: store.SortOldest}, want: []string{"first", "second"}},
		{name: "limit above size", opts: store.ListOptions{Limit: 10}, want: []string{"third", "second", "first"}},
		{name: "limit one", opts: store.ListOptions{Limit: 1, Order: store.SortOldest}, want: []string{"first"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.List(ctx, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, titles(got))
		})
	}

	got, err := s.List(ctx, store.ListOptions{Order: store.SortOldest})
	require.NoError(t, err)
	require.Len(t, got, 3)
	AssertTaskEqual(t, first, got[0])
	AssertTaskEqual(t, second, got[1])
	AssertTaskEqual(t, third, got[2])
}

func testListEmpty(t *testing.T, s store.TaskStore) {
	tasks, err := s.List(context.Background(), store.ListOptions{})
	require.NoError(t, err)
	assert.NotNil(t, tasks, "an empty listing is an empty slice, not nil")
	assert.Empty(t, tasks)
}

func testUpdate(t *testing.T, s store.TaskStore) {
	ctx := context.Background()

	task := &domain.Task{Title: "original", Description: "desc"}
	require.NoError(t, s.Create(ctx, task))
	id, createdAt := task.ID, task.CreatedAt

	task.Done = true
	task.Title = "renamed"
	require.NoError(t, s.Update(ctx, task))

	got, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.Equal(t, "desc", got.Description)
	assert.True(t, got.Done)
	assert.True(t, createdAt.Equal(got.CreatedAt), "createdAt must not change on update")
}

func testUpdateNotFound(t *testing.T, s store.TaskStore) {
	err := s.Update(context.Background(), &domain.Task{ID: uuid.New(), Title: "ghost"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrTaskNotFound))
}

func testUpdateInvalid(t *testing.T, s store.TaskStore) {
	ctx := context.Background()

	task := MustCreate(t, s, "keep")
	bad := *task
	bad.Title = ""

	err := s.Update(ctx, &bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrInvalidEntity))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	got, err := s.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep", got.Title, "invalid update must not be persisted")
}

func testDelete(t *testing.T, s store.TaskStore) {
	ctx := context.Background()

	task := MustCreate(t, s, "doomed")
	keep := MustCreate(t, s, "survivor")

	require.NoError(t, s.Delete(ctx, task.ID))

	_, err := s.GetByID(ctx, task.ID)
	assert.True(t, errors.Is(err, store.ErrTaskNotFound))

	err = s.Delete(ctx, task.ID)
	assert.True(t, errors.Is(err, store.ErrTaskNotFound), "second delete reports not found")

	tasks, err := s.List(ctx, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, keep.ID, tasks[0].ID)
}

func testCreateBatch(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	bc := s.(store.BatchCreator)
	existing := MustCreate(t, s, "existing")

	batch := []*domain.Task{{Title: "one"}, {Title: "two", Done: true}, {Title: "three", Description: "d"}}
	require.NoError(t, bc.CreateBatch(ctx, batch))
	require.NoError(t, bc.CreateBatch(ctx, nil), "an empty batch is a no-op")

	for _, task := range batch {
		assert.NotEqual(t, uuid.Nil, task.ID)
		assert.False(t, task.CreatedAt.Before(existing.CreatedAt))
	}

	got, err := s.List(ctx, store.ListOptions{Order: store.SortOldest})
	require.NoError(t, err)
	require.Len(t, got, 4)
	AssertTaskEqual(t, existing, got[0])
	for i, task := range batch {
		AssertTaskEqual(t, task, got[i+1])
	}
}

func testCreateBatchInvalid(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	bc := s.(store.BatchCreator)

	err := bc.CreateBatch(ctx, []*domain.Task{{Title: "ok"}, {Title: ""}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrInvalidEntity))

	got, err := s.List(ctx, store.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

// AssertSortedByCreatedAt fails unless tasks are ordered by createdAt in the
// given direction.
func AssertSortedByCreatedAt(t *testing.T, tasks []*domain.Task, order store.SortOrder) {
	t.Helper()
	for i := 1; i < len(tasks); i++ {
		prev, cur := tasks[i-1], tasks[i]
		if order == store.SortOldest {
			assert.False(t, cur.CreatedAt.Before(prev.CreatedAt),
				"position %d: %s (%s) listed after %s (%s)", i, cur.Title, cur.CreatedAt, prev.Title, prev.CreatedAt)
		} else {
			assert.False(t, cur.CreatedAt.After(prev.CreatedAt),
				"position %d: %s (%s) listed after %s (%s)", i, cur.Title, cur.CreatedAt, prev.Title, prev.CreatedAt)
		}
	}
}

func testConcurrentCreateListOrder(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	const workers, perWorker = 8, 10

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if err := s.Create(ctx, &domain.Task{Title: fmt.Sprintf("w%d-%d", w, i)}); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	oldest, err := s.List(ctx, store.ListOptions{Order: store.SortOldest})
	require.NoError(t, err)
	require.Len(t, oldest, workers*perWorker)
	AssertSortedByCreatedAt(t, oldest, store.SortOldest)

	newest, err := s.List(ctx, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, newest, len(oldest))
	AssertSortedByCreatedAt(t, newest, store.SortNewest)
	for i := range oldest {
		assert.Equal(t, oldest[i].ID, newest[len(newest)-1-i].ID, "newest-first is the reverse of oldest-first")
	}
}
