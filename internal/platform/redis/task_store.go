// Package redis provides a store.TaskStore that keeps each task as a JSON
// document in Redis.
//
// Layout under the key prefix (default "tasks"):
//
//	{prefix}:task:{id}  JSON document
//	{prefix}:order      sorted set of ids scored by insertion sequence
//	{prefix}:seq        insertion sequence counter
//	{prefix}:clock      last createdAt handed out (sec, usec)
//
// Sequence numbers and createdAt values are allocated together by one
// script using the server's TIME, so every client sharing the database sees
// createdAt strictly increase with the sequence. Sorting by the sequence is
// therefore sorting by createdAt.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces every key written by the store.
const DefaultKeyPrefix = "tasks"

// taskDocument is the stored JSON form of a task.
type taskDocument struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Done        bool      `json:"done"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toDocument(t *domain.Task) taskDocument {
	return taskDocument{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Done:        t.Done,
		CreatedAt:   t.CreatedAt,
	}
}

func (d taskDocument) toTask() *domain.Task {
	return &domain.Task{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Done:        d.Done,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

// TaskStore implements store.TaskStore on a go-redis client.
type TaskStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// Option configures a TaskStore.
type Option func(*TaskStore)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(s *TaskStore) { s.prefix = prefix }
}

// NewTaskStore creates a store on client. The store takes ownership of
// client and closes it in Close.
func NewTaskStore(client *redis.Client, log *slog.Logger, opts ...Option) *TaskStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	s := &TaskStore{
		client: client,
		prefix: DefaultKeyPrefix,
		logger: log.With(slog.String("component", "redis_task_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open parses a redis:// URL, connects and verifies the server responds.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

var (
	_ store.TaskStore    = (*TaskStore)(nil)
	_ store.BatchCreator = (*TaskStore)(nil)
)

func (s *TaskStore) taskKey(id uuid.UUID) string { return s.prefix + ":task:" + id.String() }
func (s *TaskStore) orderKey() string            { return s.prefix + ":order" }
func (s *TaskStore) seqKey() string              { return s.prefix + ":seq" }
func (s *TaskStore) clockKey() string            { return s.prefix + ":clock" }

// allocateScript reserves ARGV[1] consecutive sequence numbers and as many
// strictly increasing microsecond timestamps. The clock is kept as separate
// sec/usec fields so no value exceeds the precision Lua prints numbers with.
// It returns {first sequence, first sec, first usec}.
var allocateScript = redis.NewScript(`
local n = tonumber(ARGV[1])
local t = redis.call('TIME')
local sec, usec = tonumber(t[1]), tonumber(t[2])
local last = redis.call('HMGET', KEYS[2], 'sec', 'usec')
if last[1] and last[2] then
	local lsec, lusec = tonumber(last[1]), tonumber(last[2])
	if sec < lsec or (sec == lsec and usec <= lusec) then
		sec, usec = lsec, lusec + 1
		if usec >= 1000000 then
			sec, usec = sec + 1, usec - 1000000
		end
	end
end
local esec, eusec = sec, usec + n - 1
esec = esec + math.floor(eusec / 1000000)
eusec = eusec % 1000000
redis.call('HSET', KEYS[2], 'sec', esec, 'usec', eusec)
local seq = redis.call('INCRBY', KEYS[1], n)
return {seq - n + 1, sec, usec}
`)

// allocate reserves n sequence numbers and createdAt values. Task i of the
// allocation gets sequence first+i and createdAt stamp+i microseconds.
func (s *TaskStore) allocate(ctx context.Context, n int) (first int64, stamp time.Time, err error) {
	vals, err := allocateScript.Run(ctx, s.client, []string{s.seqKey(), s.clockKey()}, n).Int64Slice()
	if err != nil {
		return 0, time.Time{}, err
	}
	if len(vals) != 3 {
		return 0, time.Time{}, fmt.Errorf("unexpected allocation reply %v", vals)
	}
	return vals[0], time.UnixMicro(vals[1]*1_000_000 + vals[2]).UTC(), nil
}

// Create implements store.TaskStore.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Debug("task validation failed during create", slog.String("error", err.Error()))
		return store.InvalidEntity(err)
	}

	seq, createdAt, err := s.allocate(ctx, 1)
	if err != nil {
		return store.NewStoreError("task", "create", "failed to allocate sequence", err)
	}

	doc := toDocument(task)
	doc.ID = uuid.New()
	doc.CreatedAt = createdAt
	payload, err := json.Marshal(doc)
	if err != nil {
		return store.NewStoreError("task", "create", "failed to encode task", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.taskKey(doc.ID), payload, 0)
	pipe.ZAdd(ctx, s.orderKey(), redis.Z{Score: float64(seq), Member: doc.ID.String()})
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error("failed to create task", slog.String("error", err.Error()))
		return store.NewStoreError("task", "create", "failed to write task", err)
	}

	task.ID = doc.ID
	task.CreatedAt = doc.CreatedAt
	log.Debug("task created", slog.String("task_id", doc.ID.String()), slog.Int64("seq", seq))
	return nil
}

// CreateBatch implements store.BatchCreator. Sequence numbers and createdAt
// values for the whole batch are reserved in one allocation and the writes
// share one MULTI/EXEC.
func (s *TaskStore) CreateBatch(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if err := store.ValidateBatch(tasks); err != nil {
		return err
	}

	first, stamp, err := s.allocate(ctx, len(tasks))
	if err != nil {
		return store.NewStoreError("task", "create", "failed to allocate sequence", err)
	}

	docs := make([]taskDocument, len(tasks))
	pipe := s.client.TxPipeline()
	for i, t := range tasks {
		doc := toDocument(t)
		doc.ID = uuid.New()
		doc.CreatedAt = stamp.Add(time.Duration(i) * time.Microsecond)
		payload, err := json.Marshal(doc)
		if err != nil {
			return store.NewStoreError("task", "create", "failed to encode task", err)
		}
		pipe.Set(ctx, s.taskKey(doc.ID), payload, 0)
		pipe.ZAdd(ctx, s.orderKey(), redis.Z{Score: float64(first + int64(i)), Member: doc.ID.String()})
		docs[i] = doc
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to create task batch",
			slog.Int("count", len(tasks)),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "create", "failed to write tasks", err)
	}

	for i, t := range tasks {
		t.ID = docs[i].ID
		t.CreatedAt = docs[i].CreatedAt
	}
	return nil
}

func (s *TaskStore) load(ctx context.Context, id uuid.UUID) (taskDocument, error) {
	payload, err := s.client.Get(ctx, s.taskKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return taskDocument{}, store.ErrTaskNotFound
		}
		return taskDocument{}, err
	}
	var doc taskDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return taskDocument{}, fmt.Errorf("decode task %s: %w", id, err)
	}
	return doc, nil
}

// GetByID implements store.TaskStore.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	doc, err := s.load(ctx, id)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, store.NewStoreError("task", "get", "failed to read task", err)
	}
	return doc.toTask(), nil
}

// List implements store.TaskStore.
func (s *TaskStore) List(ctx context.Context, opts store.ListOptions) ([]*domain.Task, error) {
	stop := int64(-1)
	if opts.Limit > 0 {
		stop = int64(opts.Limit) - 1
	}

	var (
		ids []string
		err error
	)
	if opts.Order == store.SortOldest {
		ids, err = s.client.ZRange(ctx, s.orderKey(), 0, stop).Result()
	} else {
		ids, err = s.client.ZRevRange(ctx, s.orderKey(), 0, stop).Result()
	}
	if err != nil {
		return nil, store.NewStoreError("task", "list", "failed to read task order", err)
	}

	tasks := make([]*domain.Task, 0, len(ids))
	if len(ids) == 0 {
		return tasks, nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.prefix+":task:"+id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, store.NewStoreError("task", "list", "failed to read tasks", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// deleted between ZRANGE and MGET
			continue
		}
		var doc taskDocument
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, store.NewStoreError("task", "list", "failed to decode task "+ids[i], err)
		}
		tasks = append(tasks, doc.toTask())
	}
	return tasks, nil
}

// Update implements store.TaskStore.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Debug("task validation failed during update",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return store.InvalidEntity(err)
	}

	existing, err := s.load(ctx, task.ID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return err
		}
		return store.NewStoreError("task", "update", "failed to read task", err)
	}

	existing.Title = task.Title
	existing.Description = task.Description
	existing.Done = task.Done
	payload, err := json.Marshal(existing)
	if err != nil {
		return store.NewStoreError("task", "update", "failed to encode task", err)
	}

	// XX: never resurrect a task deleted since the read above
	err = s.client.SetArgs(ctx, s.taskKey(task.ID), payload, redis.SetArgs{Mode: "XX"}).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return store.ErrTaskNotFound
		}
		log.Error("failed to update task",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("task", "update", "failed to write task", err)
	}

	task.CreatedAt = existing.CreatedAt.UTC()
	return nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.taskKey(id))
	pipe.ZRem(ctx, s.orderKey(), id.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return store.NewStoreError("task", "delete", "failed to delete task", err)
	}
	if del.Val() == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}

// Ping implements store.TaskStore.
func (s *TaskStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close implements store.TaskStore.
func (s *TaskStore) Close() error {
	return s.client.Close()
}
