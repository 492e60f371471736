package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/TWRT/tasksync/internal/api"
	"github.com/TWRT/tasksync/internal/logger"
)

const shutdownTimeout = 10 * time.Second

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Stay running: deliver reminders and sync in the background",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log, logger.WithOutput(cmd.ErrOrStderr()))

			notifier, closeNotifier, err := newNotifier(cfg, cmd.OutOrStdout(), log)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			a, err := newApp(ctx, cfg, appOptions{notifier: notifier, logOut: cmd.ErrOrStderr()})
			if err != nil {
				if closeNotifier != nil {
					closeNotifier()
				}
				return err
			}

			a.sync.Start(ctx)
			log.Info("tasksync running",
				"user", cfg.User,
				"storage", cfg.Storage.Driver,
				"sync", a.sync.Enabled(),
				"reminders_armed", len(a.reminders.Pending()),
			)

			wait := gfshutdown.GracefulShutdown(ctx, shutdownTimeout, map[string]gfshutdown.Operation{
				"tasksync": func(ctx context.Context) error {
					log.Info("shutting down")
					cancel()
					err := a.Close()
					if closeNotifier != nil {
						if cerr := closeNotifier(); cerr != nil && err == nil {
							err = cerr
						}
					}
					return err
				},
			})

			if code := <-wait; code != 0 {
				return fmt.Errorf("shutdown finished with code %d", code)
			}
			return nil
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a remote copy for other clients to sync against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			log := logger.New(cfg.Log, logger.WithOutput(cmd.ErrOrStderr()))

			if !strings.EqualFold(cfg.Log.Level, "debug") {
				gin.SetMode(gin.ReleaseMode)
			}

			storage := &app{cfg: cfg, log: log}
			if err := storage.openStorage(cfg.Storage.Driver, cfg.Storage.Path); err != nil {
				return err
			}

			router := api.SetupRouter(storage.blobs, cfg.Server.StorageKey, log)
			server := api.NewServer(cfg.Server.Addr, router, log)

			runErr := make(chan error, 1)
			go func() {
				runErr <- server.Run()
			}()

			// Storage closes only after in-flight requests drain.
			wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
				"sync-server": func(ctx context.Context) error {
					if err := server.Shutdown(ctx); err != nil {
						storage.Close()
						return err
					}
					return storage.Close()
				},
			})

			var code int
			select {
			case err := <-runErr:
				if err != nil {
					storage.Close()
					return fmt.Errorf("sync server: %w", err)
				}
				code = <-wait
			case code = <-wait:
			}
			if code != 0 {
				return fmt.Errorf("shutdown finished with code %d", code)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	return cmd
}
