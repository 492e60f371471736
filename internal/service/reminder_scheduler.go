package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/TWRT/tasksync/internal/clock"
	"github.com/TWRT/tasksync/internal/logger"
	"github.com/TWRT/tasksync/internal/models"
	"github.com/TWRT/tasksync/internal/notify"
)

const reminderPrefix = "reminder:"

type deliveryKey struct {
	id  string
	due int64
}

// ReminderScheduler arms one wake-up per open task with a due date. A reminder
// for a given task and due instant is delivered at most once.
type ReminderScheduler struct {
	clock    clock.Clock
	timers   *clock.Timers
	notifier notify.Notifier
	log      *logger.Logger

	mu        sync.Mutex
	delivered map[deliveryKey]struct{}
}

func NewReminderScheduler(c clock.Clock, timers *clock.Timers, notifier notify.Notifier, log *logger.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		clock:     c,
		timers:    timers,
		notifier:  notifier,
		log:       log.With("component", "reminders"),
		delivered: make(map[deliveryKey]struct{}),
	}
}

// Reschedule cancels every armed wake-up and arms the set implied by tasks.
// Reminders already past due are delivered before it returns.
func (s *ReminderScheduler) Reschedule(ctx context.Context, tasks models.Collection) {
	s.timers.CancelPrefix(reminderPrefix)
	s.forgetMissing(tasks)

	now := s.clock.Now()
	for _, task := range tasks {
		if task.Completed || task.DueDate == nil {
			continue
		}
		due := *task.DueDate
		key := deliveryKey{id: task.Id, due: due.UnixMilli()}
		if s.wasDelivered(key) {
			continue
		}

		reminder := notify.Reminder{TaskID: task.Id, Text: task.Text, DueAt: due}
		if !due.After(now) {
			reminder.Overdue = true
			s.deliver(ctx, key, reminder)
			continue
		}

		s.timers.Schedule(reminderPrefix+task.Id, due.Sub(now), func() {
			s.deliver(context.Background(), key, reminder)
		})
		s.log.Debug("reminder armed", "task_id", task.Id, "due_at", due)
	}
}

// Cancel retires the wake-up for one task.
func (s *ReminderScheduler) Cancel(id string) bool {
	return s.timers.Cancel(reminderPrefix + id)
}

func (s *ReminderScheduler) Stop() {
	n := s.timers.CancelPrefix(reminderPrefix)
	s.log.Debug("reminders stopped", "cancelled", n)
}

// Pending lists the task ids with an armed wake-up, sorted.
func (s *ReminderScheduler) Pending() []string {
	keys := s.timers.Keys(reminderPrefix)
	ids := make([]string, len(keys))
	for i, key := range keys {
		ids[i] = strings.TrimPrefix(key, reminderPrefix)
	}
	return ids
}

func (s *ReminderScheduler) deliver(ctx context.Context, key deliveryKey, r notify.Reminder) {
	s.mu.Lock()
	if _, ok := s.delivered[key]; ok {
		s.mu.Unlock()
		return
	}
	s.delivered[key] = struct{}{}
	s.mu.Unlock()

	if err := s.notifier.Notify(ctx, r); err != nil {
		s.log.WarnContext(ctx, "reminder delivery failed", "task_id", r.TaskID, "error", err)
		return
	}
	s.log.InfoContext(ctx, "reminder delivered", "task_id", r.TaskID, "overdue", r.Overdue)
}

func (s *ReminderScheduler) wasDelivered(key deliveryKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.delivered[key]
	return ok
}

// forgetMissing drops delivery marks for tasks that no longer exist.
func (s *ReminderScheduler) forgetMissing(tasks models.Collection) {
	present := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		present[t.Id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.delivered {
		if _, ok := present[key.id]; !ok {
			delete(s.delivered, key)
		}
	}
}

// nextDue is the earliest armed due instant, or zero.
func nextDue(tasks models.Collection, now time.Time) time.Time {
	var next time.Time
	for _, t := range tasks {
		if t.Completed || t.DueDate == nil || !t.DueDate.After(now) {
			continue
		}
		if next.IsZero() || t.DueDate.Before(next) {
			next = *t.DueDate
		}
	}
	return next
}
