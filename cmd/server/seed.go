package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/phrazzld/tasks-api/internal/domain"
	"github.com/phrazzld/tasks-api/internal/store"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedTask is one entry of a seed file. JSON files parse as YAML too.
type seedTask struct {
	Title       *string `yaml:"title"`
	Description *string `yaml:"description"`
	Done        *bool   `yaml:"done"`
}

// seedFile is either {"tasks": [...]} or a bare list of tasks.
type seedFile struct {
	Tasks []seedTask `yaml:"tasks"`
}

func (c *cli) seedCmd() *cobra.Command {
	var (
		file  string
		reset bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load tasks from a YAML or JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := c.loadConfig()
			if err != nil {
				return err
			}

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer func() { _ = f.Close() }()

			ctx := cmd.Context()
			taskStore, err := openTaskStore(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = taskStore.Close() }()

			n, err := seedTasks(ctx, taskStore, f, reset, log)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d tasks\n", n)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "tasks.yaml", "seed file (YAML or JSON)")
	cmd.Flags().BoolVar(&reset, "reset", false, "delete all existing tasks first")
	return cmd
}

// parseSeedFile decodes and validates every entry. Nothing is returned
// unless all entries are valid.
func parseSeedFile(r io.Reader) ([]*domain.Task, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var entries []seedTask
	var wrapped seedFile
	if err := yaml.Unmarshal(data, &wrapped); err == nil && wrapped.Tasks != nil {
		entries = wrapped.Tasks
	} else if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	tasks := make([]*domain.Task, 0, len(entries))
	for i, e := range entries {
		task, err := domain.NewTask(domain.TaskFields{
			Title:       e.Title,
			Description: e.Description,
			Done:        e.Done,
		})
		if err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i+1, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// seedTasks inserts the tasks read from r in file order, so the first entry
// is the oldest. Stores that support batches insert all or nothing.
// With reset, existing tasks are deleted first.
func seedTasks(ctx context.Context, s store.TaskStore, r io.Reader, reset bool, logger *slog.Logger) (int, error) {
	tasks, err := parseSeedFile(r)
	if err != nil {
		return 0, err
	}

	if reset {
		existing, err := s.List(ctx, store.ListOptions{})
		if err != nil {
			return 0, fmt.Errorf("list existing tasks: %w", err)
		}
		for _, t := range existing {
			if err := s.Delete(ctx, t.ID); err != nil && !store.IsNotFoundError(err) {
				return 0, fmt.Errorf("delete task %s: %w", t.ID, err)
			}
		}
		logger.Info("existing tasks deleted", "count", len(existing))
	}

	if bc, ok := s.(store.BatchCreator); ok {
		if err := bc.CreateBatch(ctx, tasks); err != nil {
			return 0, fmt.Errorf("create seed tasks: %w", err)
		}
	} else {
		for i, t := range tasks {
			if err := s.Create(ctx, t); err != nil {
				return i, fmt.Errorf("create seed task %d: %w", i+1, err)
			}
		}
	}
	logger.Info("seed complete", "count", len(tasks))
	return len(tasks), nil
}
