package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/phrazzld/tasks-api/internal/config"
	"github.com/phrazzld/tasks-api/internal/platform/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// cli carries state shared by all subcommands.
type cli struct {
	viper      *viper.Viper
	configFile string
	envFile    string
	logOutput  io.Writer
}

// newRootCmd builds the command tree. Flags are bound into a viper instance
// so they override environment variables and config files.
func newRootCmd() *cobra.Command {
	c := &cli{viper: config.NewViper(), logOutput: os.Stdout}

	root := &cobra.Command{
		Use:           "tasks-api",
		Short:         "Task CRUD HTTP service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "path to a YAML, JSON or TOML config file")
	flags.StringVar(&c.envFile, "env-file", config.DefaultEnvFile, "dotenv file to load before reading the environment")
	flags.Int("port", 8080, "HTTP listen port")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("db-driver", config.DriverSQLite, "database driver (postgres, sqlite, redis, memory)")
	flags.String("db-url", "", "database URL, SQLite path or redis:// URL")
	_ = c.viper.BindPFlag("server.port", flags.Lookup("port"))
	_ = c.viper.BindPFlag("server.log_level", flags.Lookup("log-level"))
	_ = c.viper.BindPFlag("database.driver", flags.Lookup("db-driver"))
	_ = c.viper.BindPFlag("database.url", flags.Lookup("db-url"))

	root.AddCommand(c.serveCmd(), c.migrateCmd(), c.seedCmd())
	return root
}

// loadConfig reads configuration and sets up the default logger.
func (c *cli) loadConfig() (*config.Config, *slog.Logger, error) {
	opts := []config.Option{config.WithViper(c.viper), config.WithEnvFile(c.envFile)}
	if c.configFile != "" {
		opts = append(opts, config.WithConfigFile(c.configFile))
	}

	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel, Output: c.logOutput})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, log, nil
}
