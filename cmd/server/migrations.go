package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/phrazzld/tasks-api/internal/migrate"
	"github.com/spf13/cobra"
)

// migrateCmd exposes the goose migrations for the SQL drivers.
func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect SQL schema migrations",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withMigrator(cmd.Context(), func(ctx context.Context, m *migrate.Migrator) error {
					return m.Up(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withMigrator(cmd.Context(), func(ctx context.Context, m *migrate.Migrator) error {
					return m.Down(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withMigrator(cmd.Context(), func(ctx context.Context, m *migrate.Migrator) error {
					statuses, err := m.Status(ctx)
					if err != nil {
						return err
					}
					return printStatus(cmd.OutOrStdout(), statuses)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.withMigrator(cmd.Context(), func(ctx context.Context, m *migrate.Migrator) error {
					v, err := m.Version(ctx)
					if err != nil {
						return err
					}
					_, err = fmt.Fprintln(cmd.OutOrStdout(), v)
					return err
				})
			},
		},
	)
	return cmd
}

// withMigrator opens the configured SQL database, runs fn and closes it.
func (c *cli) withMigrator(ctx context.Context, fn func(context.Context, *migrate.Migrator) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := c.loadConfig()
	if err != nil {
		return err
	}

	db, err := openSQLDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	m, err := migrate.New(cfg.Database.Driver, db, log)
	if err != nil {
		return err
	}
	return fn(ctx, m)
}

func printStatus(w io.Writer, statuses []migrate.Status) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Version", "State", "Applied At", "Source"})
	for _, s := range statuses {
		state, appliedAt := "pending", "-"
		if s.Applied {
			state = "applied"
			appliedAt = s.AppliedAt.UTC().Format(time.RFC3339)
		}
		tw.AppendRow(table.Row{s.Version, state, appliedAt, s.Path})
	}
	tw.Render()
	return nil
}
