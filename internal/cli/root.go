package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TWRT/tasksync/internal/config"
)

type rootOptions struct {
	configPath string
	user       string
	noSync     bool
}

// NewRootCmd builds the command tree. Each call returns fresh flag state.
func NewRootCmd(version string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "tasksync",
		Short: "Local-first task list with remote sync and reminders",
		Long: `tasksync keeps a task list on this machine and, when a sync URL is configured,
reconciles it with a remote copy using last-write-wins per task.

Configuration comes from .env, an optional YAML file (--config), and TODO_*
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&opts.user, "user", "u", "", "user whose list to open (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&opts.noSync, "no-sync", false, "do not sync after changing tasks")

	rootCmd.AddCommand(
		newAddCmd(opts),
		newListCmd(opts),
		newToggleCmd(opts),
		newEditCmd(opts),
		newDueCmd(opts),
		newMoveCmd(opts),
		newDeleteCmd(opts),
		newClearCompletedCmd(opts),
		newClearAllCmd(opts),
		newSyncCmd(opts),
		newStatusCmd(opts),
		newHistoryCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newRunCmd(opts),
		newServeCmd(opts),
	)

	return rootCmd
}

func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	var overrides []config.Override
	if o.user != "" {
		overrides = append(overrides, config.WithUser(o.user))
	}
	return config.Load(o.configPath, overrides...)
}

// withApp loads config, wires the app, runs fn and tears everything down.
func (o *rootOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, appOptions{logOut: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

// mutate runs fn and then syncs unless --no-sync was given.
func (o *rootOptions) mutate(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	return o.withApp(cmd, func(ctx context.Context, a *app) error {
		if err := fn(ctx, a); err != nil {
			return err
		}
		if o.noSync {
			return nil
		}
		if report := a.flush(ctx); report != nil {
			printSyncReport(cmd.OutOrStdout(), *report, a.sync.Status())
		}
		return nil
	})
}
