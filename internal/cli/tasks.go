package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TWRT/tasksync/internal/models"
)

func newAddCmd(opts *rootOptions) *cobra.Command {
	var due string

	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a task to the top of the list",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.mutate(cmd, func(ctx context.Context, a *app) error {
				dueAt, err := parseDue(due, a.clock.Now(), time.Local)
				if err != nil {
					return err
				}
				task, err := a.session.Add(ctx, strings.Join(args, " "), dueAt)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s\n", shortID(task.Id), task.Text)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&due, "due", "d", "", "due time (RFC3339, YYYY-MM-DD[ HH:MM] or +<duration>)")
	return cmd
}

func newListCmd(opts *rootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := models.ParseFilter(filter)
			if err != nil {
				return err
			}
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				printTasks(cmd.OutOrStdout(), a.session.List(f), a.session.Remaining(), a.clock.Now())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all, active or completed")
	return cmd
}

// taskCmd builds a command that resolves args[0] to a task id first.
func taskCmd(opts *rootOptions, use, short string, args cobra.PositionalArgs, run func(ctx context.Context, cmd *cobra.Command, a *app, id string, rest []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, argv []string) error {
			return opts.mutate(cmd, func(ctx context.Context, a *app) error {
				id, err := resolveID(a.session.Snapshot(), argv[0])
				if err != nil {
					return err
				}
				return run(ctx, cmd, a, id, argv[1:])
			})
		},
	}
}

func newToggleCmd(opts *rootOptions) *cobra.Command {
	return taskCmd(opts, "toggle <task>", "Mark a task done or not done", cobra.ExactArgs(1),
		func(ctx context.Context, cmd *cobra.Command, a *app, id string, _ []string) error {
			task, err := a.session.Toggle(ctx, id)
			if err != nil {
				return err
			}
			state := "open"
			if task.Completed {
				state = "done"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %s\n", task.Text, state)
			return nil
		})
}

func newEditCmd(opts *rootOptions) *cobra.Command {
	return taskCmd(opts, "edit <task> <text...>", "Change a task's text", cobra.MinimumNArgs(2),
		func(ctx context.Context, cmd *cobra.Command, a *app, id string, rest []string) error {
			task, err := a.session.EditText(ctx, id, strings.Join(rest, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s\n", shortID(task.Id), task.Text)
			return nil
		})
}

func newDueCmd(opts *rootOptions) *cobra.Command {
	return taskCmd(opts, "due <task> <when|none>", "Set or clear a task's due time", cobra.ExactArgs(2),
		func(ctx context.Context, cmd *cobra.Command, a *app, id string, rest []string) error {
			due, err := parseDue(rest[0], a.clock.Now(), time.Local)
			if err != nil {
				return err
			}
			task, err := a.session.SetDue(ctx, id, due)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatTask(1, task, a.clock.Now()))
			return nil
		})
}

func newMoveCmd(opts *rootOptions) *cobra.Command {
	return taskCmd(opts, "move <task> <target>", "Move a task to another task's position", cobra.ExactArgs(2),
		func(ctx context.Context, cmd *cobra.Command, a *app, id string, rest []string) error {
			target, err := resolveID(a.session.Snapshot(), rest[0])
			if err != nil {
				return err
			}
			if _, err := a.session.Move(ctx, id, target); err != nil {
				return err
			}
			printTasks(cmd.OutOrStdout(), a.session.List(models.FilterAll), a.session.Remaining(), a.clock.Now())
			return nil
		})
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	cmd := taskCmd(opts, "delete <task>", "Delete a task", cobra.ExactArgs(1),
		func(ctx context.Context, cmd *cobra.Command, a *app, id string, _ []string) error {
			task, err := a.session.Delete(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s: %s\n", shortID(task.Id), task.Text)
			return nil
		})
	cmd.Aliases = []string{"rm"}
	return cmd
}

func newClearCompletedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-completed",
		Short: "Delete every completed task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.mutate(cmd, func(ctx context.Context, a *app) error {
				removed, err := a.session.ClearCompleted(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d completed %s\n", len(removed), plural(len(removed), "task", "tasks"))
				return nil
			})
		},
	}
}

func newClearAllCmd(opts *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear-all",
		Short: "Delete every task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear all tasks without --yes")
			}
			return opts.mutate(cmd, func(ctx context.Context, a *app) error {
				removed, err := a.session.ClearAll(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d %s\n", len(removed), plural(len(removed), "task", "tasks"))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm deleting every task")
	return cmd
}
