package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/migrate"
	"github.com/phrazzld/tasks-api/internal/platform/memory"
	"github.com/phrazzld/tasks-api/internal/platform/postgres"
	redisstore "github.com/phrazzld/tasks-api/internal/platform/redis"
	"github.com/phrazzld/tasks-api/internal/platform/sqlite"
	"github.com/phrazzld/tasks-api/internal/store"
)

// connectTimeout bounds opening and pinging the database at startup.
const connectTimeout = 10 * time.Second

// openTaskStore opens the store selected by cfg.Database.Driver. SQL stores
// are migrated first when auto_migrate is set.
func openTaskStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.TaskStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory task store; data is lost on restart")
		return memory.NewTaskStore(), nil

	case config.DriverRedis:
		client, err := redisstore.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		logger.Info("Redis connection established")
		return redisstore.NewTaskStore(client, logger), nil

	case config.DriverPostgres, config.DriverSQLite:
		db, err := openSQLDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		logger.Info("Database connection established", "driver", cfg.Database.Driver)

		if cfg.Database.AutoMigrate {
			if err := migrateUp(ctx, cfg.Database.Driver, db, logger); err != nil {
				_ = db.Close()
				return nil, err
			}
		}

		if cfg.Database.Driver == config.DriverPostgres {
			return postgres.NewPostgresTaskStore(db, logger), nil
		}
		return sqlite.NewSQLiteTaskStore(db, logger), nil

	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// openSQLDB opens a database/sql handle for the SQL drivers.
func openSQLDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		return postgres.Open(ctx, cfg.URL, postgres.PoolConfig{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime,
		})
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("%w: %s", migrate.ErrUnsupportedDriver, cfg.Driver)
	}
}

func migrateUp(ctx context.Context, driver string, db *sql.DB, logger *slog.Logger) error {
	m, err := migrate.New(driver, db, logger)
	if err != nil {
		return err
	}
	return m.Up(ctx)
}
