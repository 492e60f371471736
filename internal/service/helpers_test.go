package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TWRT/tasksync/internal/client"
	"github.com/TWRT/tasksync/internal/clock"
	"github.com/TWRT/tasksync/internal/logger"
	"github.com/TWRT/tasksync/internal/models"
	"github.com/TWRT/tasksync/internal/notify"
	"github.com/TWRT/tasksync/internal/repository"
)

var t0 = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

var errOffline = errors.New("connection refused")

type recordingNotifier struct {
	mu        sync.Mutex
	reminders []notify.Reminder
}

func (n *recordingNotifier) Notify(_ context.Context, r notify.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reminders = append(n.reminders, r)
	return nil
}

func (n *recordingNotifier) all() []notify.Reminder {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Reminder(nil), n.reminders...)
}

type fakeRemote struct {
	mu      sync.Mutex
	state   models.Collection
	pullErr error
	pushErr error
	pulls   int
	pushed  []models.Collection
	blockOn chan struct{}
	entered chan struct{}
	panics  bool
}

func (r *fakeRemote) Pull(ctx context.Context) (models.Collection, error) {
	r.mu.Lock()
	r.pulls++
	block, entered, panics := r.blockOn, r.entered, r.panics
	r.mu.Unlock()

	if panics {
		panic("remote pull exploded")
	}

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pullErr != nil {
		return nil, &client.NetworkError{Op: "pull", Err: r.pullErr}
	}
	return r.state.Clone(), nil
}

func (r *fakeRemote) Push(ctx context.Context, tasks models.Collection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushed = append(r.pushed, tasks.Clone())
	if r.pushErr != nil {
		return &client.NetworkError{Op: "push", Err: r.pushErr}
	}
	r.state = tasks.Clone()
	return nil
}

func (r *fakeRemote) counts() (pulls, pushes int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pulls, len(r.pushed)
}

func (r *fakeRemote) lastPushed() models.Collection {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.pushed) == 0 {
		return nil
	}
	return r.pushed[len(r.pushed)-1]
}

type harness struct {
	clock     *clock.Fake
	timers    *clock.Timers
	blobs     *repository.MemoryBlobStore
	store     *LocalStore
	notifier  *recordingNotifier
	reminders *ReminderScheduler
	session   *Session
	remote    *fakeRemote
	sync      *SyncCoordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		clock:    clock.NewFake(t0),
		blobs:    repository.NewMemoryBlobStore(),
		notifier: &recordingNotifier{},
		remote:   &fakeRemote{},
	}
	log := logger.Discard()
	h.timers = clock.NewTimers(h.clock)
	h.store = NewLocalStore(h.blobs, "todos_test")
	h.reminders = NewReminderScheduler(h.clock, h.timers, h.notifier, log)
	h.session = NewSession(h.store, h.reminders, h.clock, log)
	h.sync = NewSyncCoordinator(h.remote, h.session, h.clock, h.timers, DefaultSyncOptions(), log)
	h.session.AttachSync(h.sync)

	require.NoError(t, h.session.Load(context.Background()))
	t.Cleanup(h.timers.StopAll)
	return h
}

func task(id, text string, updatedMs int64) models.Task {
	at := time.UnixMilli(updatedMs).UTC()
	return models.Task{Id: id, Text: text, CreatedAt: at, UpdatedAt: at}
}

func ptr(t time.Time) *time.Time { return &t }
