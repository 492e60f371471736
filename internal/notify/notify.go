package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/TWRT/tasksync/internal/logger"
)

// Reminder is emitted once per task when its due instant arrives.
type Reminder struct {
	TaskID  string    `json:"taskId"`
	Text    string    `json:"text"`
	Overdue bool      `json:"overdue"`
	DueAt   time.Time `json:"dueAt"`
}

func (r Reminder) Message() string {
	if r.Overdue {
		return "Overdue: " + r.Text
	}
	return "Due now: " + r.Text
}

type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, r Reminder) error {
	n.log.InfoContext(ctx, r.Message(),
		"task_id", r.TaskID,
		"overdue", r.Overdue,
		"due_at", r.DueAt,
	)
	return nil
}

// ConsoleNotifier writes one line per reminder.
type ConsoleNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsoleNotifier(w io.Writer) *ConsoleNotifier {
	return &ConsoleNotifier{w: w}
}

func (n *ConsoleNotifier) Notify(_ context.Context, r Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := fmt.Fprintf(n.w, "🔔 %s\n", r.Message()); err != nil {
		return fmt.Errorf("write reminder %s: %w", r.TaskID, err)
	}
	return nil
}

// Multi delivers to every notifier and returns the first failure.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, r Reminder) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, r); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func encode(r Reminder) ([]byte, error) {
	payload := struct {
		Reminder
		Message string `json:"message"`
	}{r, r.Message()}
	return json.Marshal(payload)
}
