package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/tasks-api/internal/api"
	"github.com/phrazzld/tasks-api/internal/api/shared"
	apiMiddleware "github.com/phrazzld/tasks-api/internal/api/middleware"
	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/store"
)

// healthCheckTimeout bounds the store ping behind GET /health.
const healthCheckTimeout = 2 * time.Second

// setupRouter creates the application router from the application's dependencies.
func (app *application) setupRouter() http.Handler {
	return newRouter(app.config.Server, app.taskStore, app.logger)
}

// newRouter creates and configures the router with all routes and middleware.
func newRouter(cfg config.ServerConfig, taskStore store.TaskStore, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.Trace(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestSize(cfg.MaxBodyBytes))

	api.NewTaskHandler(taskStore, logger).RegisterRoutes(r)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		if err := taskStore.Ping(ctx); err != nil {
			logger.Error("Health check failed", "error", err)
			shared.RespondWithError(w, r, http.StatusServiceUnavailable, "store unavailable")
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
