package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/tasks-api/internal/api/shared"
	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/phrazzld/tasks-api/internal/store"
)

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	store  store.TaskStore
	logger *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
// It panics if taskStore or log is nil.
func NewTaskHandler(taskStore store.TaskStore, log *slog.Logger) *TaskHandler {
	if taskStore == nil {
		panic("taskStore cannot be nil for TaskHandler")
	}
	if log == nil {
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		store:  taskStore,
		logger: log.With(slog.String("component", "task_handler")),
	}
}

// RegisterRoutes mounts the task endpoints on r under /tasks.
func (h *TaskHandler) RegisterRoutes(r chi.Router) {
	r.Route("/tasks", func(r chi.Router) {
		r.Post("/", Wrap(h.CreateTask))
		r.Get("/", Wrap(h.ListTasks))
		r.Get("/{id}", Wrap(h.GetTask))
		r.Patch("/{id}", Wrap(h.UpdateTask))
		r.Delete("/{id}", Wrap(h.DeleteTask))
	})
}

// log returns the request-scoped logger tagged with this component.
func (h *TaskHandler) log(r *http.Request) *slog.Logger {
	if l := logger.FromContext(r.Context()); l != nil {
		return l.With(slog.String("component", "task_handler"))
	}
	return h.logger
}

// readFields reads and decodes the whitelisted task fields from the body.
func readFields(r *http.Request) (domain.TaskFields, error) {
	body, err := shared.ReadBody(r)
	if err != nil {
		return domain.TaskFields{}, fmt.Errorf("read request body: %w", err)
	}
	return domain.DecodeTaskFields(body)
}

// CreateTask handles POST /tasks.
func (h *TaskHandler) CreateTask(r *http.Request) (*Response, error) {
	fields, err := readFields(r)
	if err != nil {
		return nil, err
	}

	task, err := domain.NewTask(fields)
	if err != nil {
		return nil, err
	}

	if err := h.store.Create(r.Context(), task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	h.log(r).Debug("task created", slog.String("task_id", task.ID.String()))
	return JSON(http.StatusCreated, taskToResponse(task)), nil
}

// ListTasks handles GET /tasks.
func (h *TaskHandler) ListTasks(r *http.Request) (*Response, error) {
	opts := parseListOptions(r.URL.Query())

	tasks, err := h.store.List(r.Context(), opts)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	h.log(r).Debug("tasks listed",
		slog.Int("count", len(tasks)),
		slog.Int("limit", opts.Limit),
		slog.String("order", opts.Order.String()))
	return JSON(http.StatusOK, tasksToResponse(tasks)), nil
}

// GetTask handles GET /tasks/{id}.
func (h *TaskHandler) GetTask(r *http.Request) (*Response, error) {
	id, err := getPathTaskID(r)
	if err != nil {
		return nil, err
	}

	task, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return JSON(http.StatusOK, taskToResponse(task)), nil
}

// UpdateTask handles PATCH /tasks/{id}.
// Only the whitelisted fields present in the request body are changed.
func (h *TaskHandler) UpdateTask(r *http.Request) (*Response, error) {
	id, err := getPathTaskID(r)
	if err != nil {
		return nil, err
	}

	task, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		return nil, fmt.Errorf("get task for update: %w", err)
	}

	fields, err := readFields(r)
	if err != nil {
		return nil, err
	}
	task.Apply(fields)

	if err := h.store.Update(r.Context(), task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	h.log(r).Debug("task updated", slog.String("task_id", id.String()))
	return JSON(http.StatusOK, taskToResponse(task)), nil
}

// DeleteTask handles DELETE /tasks/{id}. It responds 200 with an empty body.
func (h *TaskHandler) DeleteTask(r *http.Request) (*Response, error) {
	id, err := getPathTaskID(r)
	if err != nil {
		return nil, err
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		return nil, fmt.Errorf("delete task: %w", err)
	}

	h.log(r).Debug("task deleted", slog.String("task_id", id.String()))
	return Empty(http.StatusOK), nil
}
