package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyText    = errors.New("task text must not be empty")
	ErrTaskNotFound = errors.New("task not found")
)

// DueDateLayout matches the ISO-8601 form browsers emit for toISOString.
const DueDateLayout = "2006-01-02T15:04:05.000Z07:00"

// DueSoonWindow is how close a due instant must be to count as due soon.
const DueSoonWindow = 24 * time.Hour

type Task struct {
	Id        string
	Text      string
	Completed bool
	DueDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// taskWire is the persisted and transmitted shape of a Task.
type taskWire struct {
	Id        string  `json:"id" yaml:"id"`
	Text      string  `json:"text" yaml:"text"`
	Completed bool    `json:"completed" yaml:"completed"`
	DueDate   *string `json:"dueDate" yaml:"dueDate"`
	CreatedAt int64   `json:"createdAt" yaml:"createdAt"`
	UpdatedAt int64   `json:"updatedAt" yaml:"updatedAt"`
}

// NewTask builds a task with a fresh id. now is truncated to milliseconds so the
// record survives a round trip through the wire format unchanged.
func NewTask(text string, due *time.Time, now time.Time) (Task, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Task{}, ErrEmptyText
	}
	stamp := Millis(now)
	return Task{
		Id:        uuid.NewString(),
		Text:      trimmed,
		Completed: false,
		DueDate:   normalizeDue(due),
		CreatedAt: stamp,
		UpdatedAt: stamp,
	}, nil
}

// Millis drops sub-millisecond precision and the monotonic reading.
func Millis(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.UnixMilli(t.UnixMilli()).UTC()
}

func normalizeDue(due *time.Time) *time.Time {
	if due == nil {
		return nil
	}
	d := Millis(*due)
	return &d
}

func (t *Task) touch(now time.Time) {
	t.UpdatedAt = Millis(now)
}

// IsOverdue reports whether an open task's due instant is before now.
func (t Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}

// IsDueSoon reports whether an open task falls due within DueSoonWindow.
func (t Task) IsDueSoon(now time.Time) bool {
	if t.Completed || t.DueDate == nil || t.DueDate.Before(now) {
		return false
	}
	return t.DueDate.Sub(now) < DueSoonWindow
}

// Equal compares two records field by field, due dates by instant.
func (t Task) Equal(o Task) bool {
	if t.Id != o.Id || t.Text != o.Text || t.Completed != o.Completed {
		return false
	}
	if !t.CreatedAt.Equal(o.CreatedAt) || !t.UpdatedAt.Equal(o.UpdatedAt) {
		return false
	}
	switch {
	case t.DueDate == nil && o.DueDate == nil:
		return true
	case t.DueDate == nil || o.DueDate == nil:
		return false
	default:
		return t.DueDate.Equal(*o.DueDate)
	}
}

func (t Task) toWire() taskWire {
	w := taskWire{
		Id:        t.Id,
		Text:      t.Text,
		Completed: t.Completed,
		CreatedAt: toMillis(t.CreatedAt),
		UpdatedAt: toMillis(t.UpdatedAt),
	}
	if t.DueDate != nil {
		s := t.DueDate.UTC().Format(DueDateLayout)
		w.DueDate = &s
	}
	return w
}

func (w taskWire) toTask() (Task, error) {
	if w.Id == "" {
		return Task{}, fmt.Errorf("task record without id")
	}
	t := Task{
		Id:        w.Id,
		Text:      w.Text,
		Completed: w.Completed,
		CreatedAt: fromMillis(w.CreatedAt),
		UpdatedAt: fromMillis(w.UpdatedAt),
	}
	if w.DueDate != nil && *w.DueDate != "" {
		// An unparseable due date is dropped; it could never arm a reminder anyway.
		if due, err := time.Parse(time.RFC3339, *w.DueDate); err == nil {
			t.DueDate = normalizeDue(&due)
		}
	}
	return t, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func (t Task) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.toWire())
}

func (t *Task) UnmarshalJSON(data []byte) error {
	var w taskWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := w.toTask()
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML and UnmarshalYAML reuse the wire shape for export files.
func (t Task) MarshalYAML() (any, error) {
	return t.toWire(), nil
}

func (t *Task) UnmarshalYAML(unmarshal func(any) error) error {
	var w taskWire
	if err := unmarshal(&w); err != nil {
		return err
	}
	parsed, err := w.toTask()
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
