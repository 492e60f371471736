package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TWRT/tasksync/internal/clock"
	"github.com/TWRT/tasksync/internal/logger"
	"github.com/TWRT/tasksync/internal/merge"
	"github.com/TWRT/tasksync/internal/models"
)

// SyncRequester is the part of SyncCoordinator a Session drives.
type SyncRequester interface {
	RequestSync(ctx context.Context, immediate bool)
}

// Session owns the task collection. Every mutation is applied and saved
// immediately, then reminders are rescheduled and a debounced sync requested.
type Session struct {
	store     *LocalStore
	reminders *ReminderScheduler
	clock     clock.Clock
	log       *logger.Logger

	mu    sync.Mutex
	tasks models.Collection
	sync  SyncRequester
}

func NewSession(store *LocalStore, reminders *ReminderScheduler, c clock.Clock, log *logger.Logger) *Session {
	return &Session{
		store:     store,
		reminders: reminders,
		clock:     c,
		log:       log.With("component", "session"),
		tasks:     models.Collection{},
	}
}

func (s *Session) AttachSync(r SyncRequester) {
	s.mu.Lock()
	s.sync = r
	s.mu.Unlock()
}

// Load replaces the collection with what the store holds. A returned error is
// a soft signal; the session is usable either way.
func (s *Session) Load(ctx context.Context) error {
	tasks, err := s.store.Load(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "stored tasks unreadable, starting empty", "key", s.store.Key(), "error", err)
	}

	s.mu.Lock()
	s.tasks = tasks
	s.reminders.Reschedule(ctx, tasks.Clone())
	s.mu.Unlock()

	s.log.DebugContext(ctx, "tasks loaded", "count", len(tasks))
	return err
}

func (s *Session) Snapshot() models.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Clone()
}

func (s *Session) List(f models.Filter) models.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Filter(f)
}

func (s *Session) Get(id string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks.Find(id)
	if !ok {
		return models.Task{}, fmt.Errorf("get %s: %w", id, models.ErrTaskNotFound)
	}
	return t, nil
}

func (s *Session) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks.Remaining()
}

// NextDue is the earliest future due instant among open tasks, or zero.
func (s *Session) NextDue() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nextDue(s.tasks, s.clock.Now())
}

func (s *Session) Add(ctx context.Context, text string, due *time.Time) (models.Task, error) {
	task, err := models.NewTask(text, due, s.clock.Now())
	if err != nil {
		return models.Task{}, err
	}
	err = s.mutate(ctx, true, func(tasks *models.Collection) error {
		tasks.Add(task)
		return nil
	})
	return task, err
}

func (s *Session) Toggle(ctx context.Context, id string) (models.Task, error) {
	var out models.Task
	err := s.mutate(ctx, true, func(tasks *models.Collection) (err error) {
		out, err = tasks.Toggle(id, s.clock.Now())
		return err
	})
	return out, err
}

func (s *Session) EditText(ctx context.Context, id, text string) (models.Task, error) {
	var out models.Task
	err := s.mutate(ctx, true, func(tasks *models.Collection) (err error) {
		out, err = tasks.EditText(id, text, s.clock.Now())
		return err
	})
	return out, err
}

func (s *Session) SetDue(ctx context.Context, id string, due *time.Time) (models.Task, error) {
	var out models.Task
	err := s.mutate(ctx, true, func(tasks *models.Collection) (err error) {
		out, err = tasks.SetDue(id, due, s.clock.Now())
		return err
	})
	return out, err
}

// Move places src at target's position. Moving a task onto itself is a no-op.
func (s *Session) Move(ctx context.Context, srcID, targetID string) (models.Task, error) {
	var out models.Task
	err := s.mutate(ctx, false, func(tasks *models.Collection) error {
		moved, changed, err := tasks.Move(srcID, targetID, s.clock.Now())
		if err != nil {
			return err
		}
		out = moved
		if !changed {
			return errUnchanged
		}
		return nil
	})
	return out, err
}

func (s *Session) Delete(ctx context.Context, id string) (models.Task, error) {
	var out models.Task
	err := s.mutate(ctx, true, func(tasks *models.Collection) (err error) {
		out, err = tasks.Delete(id)
		return err
	})
	if err == nil {
		s.reminders.Cancel(id)
	}
	return out, err
}

func (s *Session) ClearCompleted(ctx context.Context) ([]string, error) {
	var removed []string
	err := s.mutate(ctx, true, func(tasks *models.Collection) error {
		removed = tasks.ClearCompleted()
		if len(removed) == 0 {
			return errUnchanged
		}
		return nil
	})
	return removed, err
}

func (s *Session) ClearAll(ctx context.Context) ([]string, error) {
	var removed []string
	err := s.mutate(ctx, true, func(tasks *models.Collection) error {
		removed = tasks.ClearAll()
		if len(removed) == 0 {
			return errUnchanged
		}
		return nil
	})
	return removed, err
}

// Import brings in an external collection. With replace the local collection
// is discarded; otherwise incoming records are merged like a pull.
func (s *Session) Import(ctx context.Context, incoming models.Collection, replace bool) (merge.Stats, error) {
	var stats merge.Stats
	err := s.mutate(ctx, true, func(tasks *models.Collection) error {
		clean := incoming.Dedupe()
		if replace {
			stats = merge.Stats{RemoteOnly: len(clean)}
			*tasks = clean.Clone()
			return nil
		}
		stats = merge.Diff(clean, *tasks)
		*tasks = merge.Merge(clean, *tasks)
		return nil
	})
	return stats, err
}

// ApplyRemote merges remote into the current collection and persists it. It
// does not request another sync.
func (s *Session) ApplyRemote(ctx context.Context, remote models.Collection) (models.Collection, merge.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := merge.Diff(remote, s.tasks)
	s.tasks = merge.Merge(remote, s.tasks)
	snapshot := s.tasks.Clone()

	s.reminders.Reschedule(ctx, snapshot)
	if err := s.store.Save(ctx, snapshot); err != nil {
		return snapshot, stats, err
	}
	return snapshot, stats, nil
}

var errUnchanged = errors.New("unchanged")

// mutate applies fn under the lock, saves, reschedules reminders when asked,
// and requests a debounced sync. fn returning errUnchanged skips the rest.
func (s *Session) mutate(ctx context.Context, reschedule bool, fn func(*models.Collection) error) error {
	s.mu.Lock()
	if err := fn(&s.tasks); err != nil {
		s.mu.Unlock()
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	snapshot := s.tasks.Clone()
	saveErr := s.store.Save(ctx, snapshot)
	if reschedule {
		s.reminders.Reschedule(ctx, snapshot)
	}
	requester := s.sync
	s.mu.Unlock()

	if saveErr != nil {
		s.log.ErrorContext(ctx, "save tasks failed", "error", saveErr)
	}
	if requester != nil {
		requester.RequestSync(ctx, false)
	}
	return saveErr
}
