package service

import (
	"context"
	"sync"
	"time"

	"github.com/TWRT/tasksync/internal/client"
	"github.com/TWRT/tasksync/internal/clock"
	"github.com/TWRT/tasksync/internal/logger"
	"github.com/TWRT/tasksync/internal/merge"
	"github.com/TWRT/tasksync/internal/models"
	"github.com/TWRT/tasksync/internal/repository"
)

type SyncState string

const (
	SyncDisabled SyncState = "disabled"
	SyncIdle     SyncState = "idle"
	SyncSyncing  SyncState = "syncing"
	SyncSynced   SyncState = "synced"
	SyncError    SyncState = "error"
)

type SyncReason string

const (
	ReasonManual   SyncReason = "manual"
	ReasonDebounce SyncReason = "debounce"
	ReasonPeriodic SyncReason = "periodic"
	ReasonInitial  SyncReason = "initial"
)

const (
	debounceKey = "sync:debounce"
	periodicKey = "sync:periodic"
	initialKey  = "sync:initial"
	settleKey   = "sync:settle"
	syncPrefix  = "sync:"
)

// Status is what a presentation layer shows. At is when State was entered.
// LastSynced survives Error and Idle.
type Status struct {
	State      SyncState `json:"state"`
	At         time.Time `json:"at"`
	LastSynced time.Time `json:"lastSynced,omitempty"`
	Err        string    `json:"error,omitempty"`
}

type SyncReport struct {
	Reason     SyncReason
	Skipped    bool
	StartedAt  time.Time
	FinishedAt time.Time
	Pulled     int
	Merged     int
	Pushed     int
	Stats      merge.Stats
	PullErr    error
	PersistErr error
	PushErr    error
}

func (r SyncReport) OK() bool {
	return !r.Skipped && r.PushErr == nil
}

// SyncTarget is the local side of a sync. ApplyRemote merges under the
// target's own lock and returns the snapshot to push.
type SyncTarget interface {
	ApplyRemote(ctx context.Context, remote models.Collection) (models.Collection, merge.Stats, error)
	Snapshot() models.Collection
}

type RunRecorder interface {
	Create(ctx context.Context, run *repository.SyncRun) (int64, error)
	Complete(ctx context.Context, run *repository.SyncRun) error
}

type SyncOptions struct {
	Debounce     time.Duration
	Interval     time.Duration
	StatusSettle time.Duration
}

func DefaultSyncOptions() SyncOptions {
	return SyncOptions{
		Debounce:     1500 * time.Millisecond,
		Interval:     60 * time.Second,
		StatusSettle: 2 * time.Second,
	}
}

type SyncCoordinator struct {
	remote   client.RemoteClient
	target   SyncTarget
	clock    clock.Clock
	timers   *clock.Timers
	opts     SyncOptions
	log      *logger.Logger
	recorder RunRecorder

	mu      sync.Mutex
	ctx     context.Context
	syncing bool
	status  Status
}

// NewSyncCoordinator builds a coordinator. A nil remote leaves sync disabled.
func NewSyncCoordinator(remote client.RemoteClient, target SyncTarget, c clock.Clock, timers *clock.Timers, opts SyncOptions, log *logger.Logger) *SyncCoordinator {
	defaults := DefaultSyncOptions()
	if opts.Debounce <= 0 {
		opts.Debounce = defaults.Debounce
	}
	if opts.Interval <= 0 {
		opts.Interval = defaults.Interval
	}
	if opts.StatusSettle <= 0 {
		opts.StatusSettle = defaults.StatusSettle
	}

	s := &SyncCoordinator{
		remote: remote,
		target: target,
		clock:  c,
		timers: timers,
		opts:   opts,
		log:    log.With("component", "sync"),
		ctx:    context.Background(),
	}
	s.status = Status{State: SyncIdle, At: c.Now()}
	if remote == nil {
		s.status.State = SyncDisabled
	}
	return s
}

func (s *SyncCoordinator) SetRecorder(r RunRecorder) {
	s.recorder = r
}

func (s *SyncCoordinator) Enabled() bool {
	return s.remote != nil
}

func (s *SyncCoordinator) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *SyncCoordinator) Syncing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncing
}

// Start schedules an initial sync and the periodic timer. Timer-driven runs use
// ctx for their network calls.
func (s *SyncCoordinator) Start(ctx context.Context) {
	if !s.Enabled() {
		s.log.InfoContext(ctx, "sync disabled, no remote configured")
		return
	}

	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.timers.Schedule(initialKey, 0, func() {
		s.run(s.baseContext(), ReasonInitial)
	})
	s.armPeriodic()
	s.log.InfoContext(ctx, "sync started", "interval", s.opts.Interval, "debounce", s.opts.Debounce)
}

// Stop cancels every pending sync timer. A run already in flight finishes.
func (s *SyncCoordinator) Stop() {
	s.timers.CancelPrefix(syncPrefix)
}

// RequestSync runs now when immediate is set, otherwise re-arms the debounce
// timer so a burst of requests becomes one run after the last of them.
func (s *SyncCoordinator) RequestSync(ctx context.Context, immediate bool) {
	if !s.Enabled() {
		return
	}
	if immediate {
		s.run(ctx, ReasonManual)
		return
	}
	s.timers.Schedule(debounceKey, s.opts.Debounce, func() {
		s.run(s.baseContext(), ReasonDebounce)
	})
}

// RunSync performs one manual pull, merge, push cycle.
func (s *SyncCoordinator) RunSync(ctx context.Context) SyncReport {
	return s.run(ctx, ReasonManual)
}

func (s *SyncCoordinator) armPeriodic() {
	s.timers.Schedule(periodicKey, s.opts.Interval, func() {
		s.armPeriodic()
		s.run(s.baseContext(), ReasonPeriodic)
	})
}

func (s *SyncCoordinator) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *SyncCoordinator) run(ctx context.Context, reason SyncReason) SyncReport {
	report := SyncReport{Reason: reason, StartedAt: s.clock.Now()}

	if !s.Enabled() {
		report.Skipped = true
		return report
	}

	s.mu.Lock()
	if s.syncing {
		s.mu.Unlock()
		s.log.DebugContext(ctx, "sync already running, request dropped", "reason", reason)
		report.Skipped = true
		return report
	}
	s.syncing = true
	s.status = Status{State: SyncSyncing, At: report.StartedAt, LastSynced: s.status.LastSynced}
	s.mu.Unlock()

	// This run covers every change made before it claimed the flag.
	s.timers.Cancel(debounceKey)
	s.timers.Cancel(settleKey)

	run := s.recordStart(ctx, report)
	s.cycle(ctx, &report)

	if reason != ReasonManual {
		s.timers.Schedule(settleKey, s.opts.StatusSettle, s.settle)
	}

	s.recordComplete(ctx, run, report)
	s.log.InfoContext(ctx, "sync finished",
		"reason", reason,
		"pulled", report.Pulled,
		"merged", report.Merged,
		"pushed", report.Pushed,
		"local_wins", report.Stats.LocalWins,
		"remote_wins", report.Stats.RemoteWins,
		"ok", report.OK(),
	)
	return report
}

// cycle runs the pull, merge and push legs and sets the final status. The
// in-flight flag is released even if a leg panics.
func (s *SyncCoordinator) cycle(ctx context.Context, r *SyncReport) {
	defer s.release()

	var outgoing models.Collection
	remote, err := s.remote.Pull(ctx)
	if err != nil {
		r.PullErr = err
		s.log.WarnContext(ctx, "pull failed, keeping local state", "reason", r.Reason, "error", err)
		outgoing = s.target.Snapshot()
	} else {
		r.Pulled = len(remote)
		merged, stats, err := s.target.ApplyRemote(ctx, remote)
		if err != nil {
			r.PersistErr = err
			s.log.ErrorContext(ctx, "persist merged tasks failed", "error", err)
		}
		r.Merged = len(merged)
		r.Stats = stats
		outgoing = merged
	}

	if err := s.remote.Push(ctx, outgoing); err != nil {
		r.PushErr = err
		s.log.WarnContext(ctx, "push failed", "reason", r.Reason, "error", err)
	} else {
		r.Pushed = len(outgoing)
	}

	r.FinishedAt = s.clock.Now()

	s.mu.Lock()
	if r.PushErr != nil {
		s.status = Status{
			State:      SyncError,
			At:         r.FinishedAt,
			LastSynced: s.status.LastSynced,
			Err:        r.PushErr.Error(),
		}
	} else {
		s.status = Status{State: SyncSynced, At: r.FinishedAt, LastSynced: r.FinishedAt}
	}
	s.mu.Unlock()
}

// release clears the in-flight flag. A run that never reached its final
// status, because a leg panicked, is reported as an error.
func (s *SyncCoordinator) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncing = false
	if s.status.State == SyncSyncing {
		s.status = Status{
			State:      SyncError,
			At:         s.clock.Now(),
			LastSynced: s.status.LastSynced,
			Err:        "sync aborted",
		}
	}
}

func (s *SyncCoordinator) settle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncing {
		return
	}
	s.status = Status{State: SyncIdle, At: s.clock.Now(), LastSynced: s.status.LastSynced}
}

func (s *SyncCoordinator) recordStart(ctx context.Context, report SyncReport) *repository.SyncRun {
	if s.recorder == nil {
		return nil
	}
	run := &repository.SyncRun{
		Reason:    string(report.Reason),
		Status:    string(SyncSyncing),
		StartedAt: report.StartedAt,
	}
	id, err := s.recorder.Create(ctx, run)
	if err != nil {
		s.log.WarnContext(ctx, "record sync run failed", "error", err)
		return nil
	}
	run.Id = id
	return run
}

func (s *SyncCoordinator) recordComplete(ctx context.Context, run *repository.SyncRun, report SyncReport) {
	if run == nil {
		return
	}
	finished := report.FinishedAt
	run.Status = string(SyncSynced)
	if !report.OK() {
		run.Status = string(SyncError)
	}
	run.PulledTasks = report.Pulled
	run.MergedTasks = report.Merged
	run.PushedTasks = report.Pushed
	run.PullError = errString(report.PullErr)
	run.PushError = errString(report.PushErr)
	run.CompletedAt = &finished

	if err := s.recorder.Complete(ctx, run); err != nil {
		s.log.WarnContext(ctx, "complete sync run failed", "run_id", run.Id, "error", err)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
