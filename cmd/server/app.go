package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/spf13/cobra"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config    *config.Config
	logger    *slog.Logger
	taskStore store.TaskStore
}

// newApplication creates a new application instance with all dependencies initialized.
// The task store is opened, and migrated when configured, before it returns.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	taskStore, err := openTaskStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("Application initialized successfully",
		"driver", cfg.Database.Driver,
		"port", cfg.Server.Port)
	return &application{
		config:    cfg,
		logger:    logger,
		taskStore: taskStore,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is canceled or the server
// fails. Resources are released before it returns.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", app.config.Server.Port, err)
	}

	srv := &http.Server{
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: app.config.Server.ReadHeaderTimeout,
	}
	return serveHTTP(ctx, srv, ln, app.config.Server.ShutdownTimeout, app.logger)
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.taskStore != nil {
		if err := app.taskStore.Close(); err != nil {
			app.logger.Error("Error closing task store", "error", err)
		}
	}
	app.logger.Info("Application shutdown completed")
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd)
		},
	}
}

func (c *cli) runServe(cmd *cobra.Command) error {
	cfg, log, err := c.loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, err := newApplication(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
