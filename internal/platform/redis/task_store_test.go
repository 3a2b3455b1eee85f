package redis

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/phrazzld/tasks-api/internal/store/storetest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...Option) (*TaskStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	log, _ := logger.NewTestLogger()
	s := NewTaskStore(client, log, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisTaskStoreConformance(t *testing.T) {
	storetest.RunTaskStoreSuite(t, func(t *testing.T) store.TaskStore {
		s, _ := newTestStore(t)
		return s
	})
}

func TestRedisTaskStoreKeyLayout(t *testing.T) {
	s, mr := newTestStore(t, WithKeyPrefix("test"))

	task := storetest.MustCreate(t, s, "layout")

	assert.True(t, mr.Exists("test:task:"+task.ID.String()))
	members, err := mr.ZMembers("test:order")
	require.NoError(t, err)
	assert.Equal(t, []string{task.ID.String()}, members)

	require.NoError(t, s.Delete(context.Background(), task.ID))
	assert.False(t, mr.Exists("test:task:"+task.ID.String()))
	assert.False(t, mr.Exists(DefaultKeyPrefix+":order"), "custom prefix leaves the default namespace untouched")
}

func TestRedisTaskStoreListSkipsDanglingIndexEntries(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	kept := storetest.MustCreate(t, s, "kept")
	gone := storetest.MustCreate(t, s, "gone")
	mr.Del(DefaultKeyPrefix + ":task:" + gone.ID.String())

	tasks, err := s.List(ctx, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, kept.ID, tasks[0].ID)
}

func TestRedisTaskStoreUpdateDoesNotResurrect(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	task := storetest.MustCreate(t, s, "x")
	mr.Del(DefaultKeyPrefix + ":task:" + task.ID.String())

	task.Done = true
	err := s.Update(ctx, task)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.False(t, mr.Exists(DefaultKeyPrefix+":task:"+task.ID.String()))
}

func TestRedisTaskStoreUnreachable(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	err := s.Ping(context.Background())
	require.Error(t, err)

	_, err = s.List(context.Background(), store.ListOptions{})
	require.Error(t, err)
	assert.False(t, store.IsNotFoundError(err))
}

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Open(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NoError(t, client.Close())

	_, err = Open(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestRedisTaskStoreCreatedAtFromServerTime(t *testing.T) {
	s, mr := newTestStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 123456000, time.UTC)
	mr.SetTime(now)

	task := storetest.MustCreate(t, s, "stamped")

	assert.True(t, now.Equal(task.CreatedAt), "createdAt %s, server time %s", task.CreatedAt, now)
	assert.True(t, mr.Exists(DefaultKeyPrefix+":clock"))
}

func TestRedisTaskStoreSharedDatabaseOrdering(t *testing.T) {
	ctx := context.Background()
	a, mr := newTestStore(t)
	log, _ := logger.NewTestLogger()
	b := NewTaskStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), log)
	t.Cleanup(func() { _ = b.Close() })

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	mr.SetTime(now)
	first := storetest.MustCreate(t, a, "first")

	// the server clock steps backwards between the two creates
	mr.SetTime(now.Add(-time.Second))
	second := storetest.MustCreate(t, b, "second")
	assert.True(t, second.CreatedAt.After(first.CreatedAt))

	batch := []*domain.Task{{Title: "third"}, {Title: "fourth"}}
	require.NoError(t, a.CreateBatch(ctx, batch))
	assert.True(t, batch[0].CreatedAt.After(second.CreatedAt))
	assert.True(t, batch[1].CreatedAt.After(batch[0].CreatedAt))

	for _, s := range []*TaskStore{a, b} {
		tasks, err := s.List(ctx, store.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"fourth", "third", "second", "first"}, taskTitles(tasks))
		storetest.AssertSortedByCreatedAt(t, tasks, store.SortNewest)
	}
}

func TestRedisTaskStoreConcurrentCreatesAcrossClients(t *testing.T) {
	ctx := context.Background()
	a, mr := newTestStore(t)
	log, _ := logger.NewTestLogger()
	b := NewTaskStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), log)
	t.Cleanup(func() { _ = b.Close() })

	var wg sync.WaitGroup
	for i, s := range []*TaskStore{a, b, a, b} {
		wg.Add(1)
		go func(i int, s *TaskStore) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				assert.NoError(t, s.Create(ctx, &domain.Task{Title: fmt.Sprintf("%d-%d", i, j)}))
			}
		}(i, s)
	}
	wg.Wait()

	tasks, err := a.List(ctx, store.ListOptions{Order: store.SortOldest})
	require.NoError(t, err)
	require.Len(t, tasks, 100)
	storetest.AssertSortedByCreatedAt(t, tasks, store.SortOldest)
	for i := 1; i < len(tasks); i++ {
		assert.True(t, tasks[i].CreatedAt.After(tasks[i-1].CreatedAt), "createdAt is unique per task")
	}
}

func taskTitles(tasks []*domain.Task) []string {
	titles := make([]string, 0, len(tasks))
	for _, t := range tasks {
		titles = append(titles, t.Title)
	}
	return titles
}
