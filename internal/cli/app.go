package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"

	"github.com/TWRT/tasksync/internal/client"
	"github.com/TWRT/tasksync/internal/client/remote"
	"github.com/TWRT/tasksync/internal/clock"
	"github.com/TWRT/tasksync/internal/config"
	"github.com/TWRT/tasksync/internal/logger"
	"github.com/TWRT/tasksync/internal/notify"
	"github.com/TWRT/tasksync/internal/repository"
	"github.com/TWRT/tasksync/internal/service"
)

var errHistoryUnavailable = errors.New("sync history requires the sqlite storage driver")

// app is the wired object graph behind every command.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	clock     clock.Clock
	timers    *clock.Timers
	blobs     repository.BlobStore
	runs      *repository.SyncRunRepository
	reminders *service.ReminderScheduler
	session   *service.Session
	sync      *service.SyncCoordinator
	closers   []func() error
}

type appOptions struct {
	// notifier receives reminders. nil keeps reminders silent.
	notifier notify.Notifier
	logOut   io.Writer
}

func newApp(ctx context.Context, cfg *config.Config, opts appOptions) (*app, error) {
	logOpts := []logger.Option{}
	if opts.logOut != nil {
		logOpts = append(logOpts, logger.WithOutput(opts.logOut))
	}

	a := &app{
		cfg:   cfg,
		log:   logger.New(cfg.Log, logOpts...),
		clock: clock.Real{},
	}
	a.timers = clock.NewTimers(a.clock)

	if err := a.openStorage(cfg.Storage.Driver, cfg.Storage.Path); err != nil {
		a.Close()
		return nil, err
	}

	notifier := opts.notifier
	if notifier == nil {
		notifier = notify.Multi{}
	}

	a.reminders = service.NewReminderScheduler(a.clock, a.timers, notifier, a.log)
	a.session = service.NewSession(service.NewLocalStore(a.blobs, cfg.Storage.Key), a.reminders, a.clock, a.log)

	var rc client.RemoteClient
	if cfg.Sync.Enabled() {
		rc = remote.NewRemoteClient(cfg.Sync.URL, cfg.Sync.Timeout)
	}
	a.sync = service.NewSyncCoordinator(rc, a.session, a.clock, a.timers, service.SyncOptions{
		Debounce:     cfg.Sync.Debounce,
		Interval:     cfg.Sync.Interval,
		StatusSettle: cfg.Sync.StatusSettle,
	}, a.log)
	if a.runs != nil {
		a.sync.SetRecorder(a.runs)
	}
	a.session.AttachSync(a.sync)

	// Load failures are logged by the session and leave it empty.
	_ = a.session.Load(ctx)

	return a, nil
}

// openStorage selects the blob store for driver and, for sqlite, the sync run
// history that lives in the same database.
func (a *app) openStorage(driver, path string) error {
	switch driver {
	case "sqlite":
		db, err := repository.InitDB(path)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		a.blobs = repository.NewSQLiteBlobRepository(db)
		a.runs = repository.NewSyncRunRepository(db)
	case "file":
		store, err := repository.NewFileBlobStore(path)
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		a.blobs = store
	case "redis":
		store := repository.NewRedisBlobStore(redis.NewClient(&redis.Options{Addr: a.cfg.Redis.Addr}), a.cfg.Redis.Prefix)
		a.closers = append(a.closers, store.Close)
		a.blobs = store
	case "memory":
		a.blobs = repository.NewMemoryBlobStore()
	default:
		return fmt.Errorf("unknown storage driver %q", driver)
	}
	return nil
}

// flush pushes pending local edits right away, since a one-shot command exits
// before the debounce timer would fire.
func (a *app) flush(ctx context.Context) *service.SyncReport {
	if !a.sync.Enabled() {
		return nil
	}
	report := a.sync.RunSync(ctx)
	return &report
}

func (a *app) Close() error {
	if a.sync != nil {
		a.sync.Stop()
	}
	if a.reminders != nil {
		a.reminders.Stop()
	}
	if a.timers != nil {
		a.timers.StopAll()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *app) history(ctx context.Context, limit int) ([]repository.SyncRun, error) {
	if a.runs == nil {
		return nil, errHistoryUnavailable
	}
	return a.runs.List(ctx, limit)
}

func newNotifier(cfg *config.Config, out io.Writer, log *logger.Logger) (notify.Notifier, func() error, error) {
	switch cfg.Notify.Driver {
	case "console":
		return notify.NewConsoleNotifier(out), nil, nil
	case "nats":
		n, err := notify.NewNATSNotifier(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			return nil, nil, err
		}
		return notify.Multi{notify.NewLogNotifier(log), n}, n.Close, nil
	default:
		return notify.NewLogNotifier(log), nil, nil
	}
}
