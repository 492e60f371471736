package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/TWRT/tasksync/internal/config"
)

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull, merge and push now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				if !a.sync.Enabled() {
					return fmt.Errorf("sync is not configured, set sync.url or %s_SYNC_URL", config.EnvPrefix)
				}
				report := a.sync.RunSync(ctx)
				printSyncReport(cmd.OutOrStdout(), report, a.sync.Status())
				return nil
			})
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show list and sync status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				now := a.clock.Now()
				tasks := a.session.Snapshot()

				fmt.Fprintf(out, "User:      %s (%s storage, key %s)\n", a.cfg.User, a.cfg.Storage.Driver, a.cfg.Storage.Key)
				fmt.Fprintf(out, "Tasks:     %d total, %d left\n", len(tasks), a.session.Remaining())
				if next := a.session.NextDue(); !next.IsZero() {
					fmt.Fprintf(out, "Next due:  %s (%s)\n", next.Local().Format("Mon Jan 2 15:04"), humanize.Time(next))
				}

				if !a.sync.Enabled() {
					fmt.Fprintln(out, "Sync:      disabled")
					return nil
				}
				fmt.Fprintf(out, "Sync:      %s every %s\n", a.cfg.Sync.URL, a.cfg.Sync.Interval)

				runs, err := a.history(ctx, 1)
				if errors.Is(err, errHistoryUnavailable) {
					return nil
				}
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "Last sync: never")
					return nil
				}
				fmt.Fprintf(out, "Last sync: %s\n", formatRun(runs[0], now))
				return nil
			})
		},
	}
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app) error {
				runs, err := a.history(ctx, limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No sync runs recorded.")
					return nil
				}
				now := a.clock.Now()
				for _, r := range runs {
					fmt.Fprintln(cmd.OutOrStdout(), formatRun(r, now))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	return cmd
}
