package models

import (
	"fmt"
	"strings"
	"time"
)

type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(strings.TrimSpace(s))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterActive:
		return FilterActive, nil
	case FilterCompleted:
		return FilterCompleted, nil
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Collection is the ordered task list. Index 0 is the top of the list.
type Collection []Task

// Clone returns a deep copy; due dates are not shared with the receiver.
func (c Collection) Clone() Collection {
	if c == nil {
		return Collection{}
	}
	out := make(Collection, len(c))
	for i, t := range c {
		if t.DueDate != nil {
			d := *t.DueDate
			t.DueDate = &d
		}
		out[i] = t
	}
	return out
}

func (c Collection) Index(id string) int {
	for i := range c {
		if c[i].Id == id {
			return i
		}
	}
	return -1
}

func (c Collection) Find(id string) (Task, bool) {
	if i := c.Index(id); i >= 0 {
		return c[i], true
	}
	return Task{}, false
}

func (c Collection) IDs() []string {
	ids := make([]string, len(c))
	for i, t := range c {
		ids[i] = t.Id
	}
	return ids
}

// Dedupe keeps the first record for every id.
func (c Collection) Dedupe() Collection {
	seen := make(map[string]struct{}, len(c))
	out := make(Collection, 0, len(c))
	for _, t := range c {
		if _, ok := seen[t.Id]; ok {
			continue
		}
		seen[t.Id] = struct{}{}
		out = append(out, t)
	}
	return out
}

func (c Collection) Filter(f Filter) Collection {
	out := make(Collection, 0, len(c))
	for _, t := range c {
		switch f {
		case FilterActive:
			if t.Completed {
				continue
			}
		case FilterCompleted:
			if !t.Completed {
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

// Remaining counts open tasks.
func (c Collection) Remaining() int {
	n := 0
	for _, t := range c {
		if !t.Completed {
			n++
		}
	}
	return n
}

func (c Collection) Equal(o Collection) bool {
	if len(c) != len(o) {
		return false
	}
	for i := range c {
		if !c[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Add puts the task at the top of the list.
func (c *Collection) Add(t Task) {
	*c = append(Collection{t}, *c...)
}

func (c *Collection) Toggle(id string, now time.Time) (Task, error) {
	i := c.Index(id)
	if i < 0 {
		return Task{}, fmt.Errorf("toggle %s: %w", id, ErrTaskNotFound)
	}
	t := &(*c)[i]
	t.Completed = !t.Completed
	t.touch(now)
	return *t, nil
}

func (c *Collection) EditText(id, text string, now time.Time) (Task, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Task{}, ErrEmptyText
	}
	i := c.Index(id)
	if i < 0 {
		return Task{}, fmt.Errorf("edit %s: %w", id, ErrTaskNotFound)
	}
	t := &(*c)[i]
	t.Text = trimmed
	t.touch(now)
	return *t, nil
}

// SetDue replaces the due date; nil clears it.
func (c *Collection) SetDue(id string, due *time.Time, now time.Time) (Task, error) {
	i := c.Index(id)
	if i < 0 {
		return Task{}, fmt.Errorf("set due %s: %w", id, ErrTaskNotFound)
	}
	t := &(*c)[i]
	t.DueDate = normalizeDue(due)
	t.touch(now)
	return *t, nil
}

// Move takes the record srcID out of the list and reinserts it at the index
// targetID occupied before the removal. Moving onto itself is a no-op.
func (c *Collection) Move(srcID, targetID string, now time.Time) (Task, bool, error) {
	src := c.Index(srcID)
	tgt := c.Index(targetID)
	if src < 0 {
		return Task{}, false, fmt.Errorf("move %s: %w", srcID, ErrTaskNotFound)
	}
	if tgt < 0 {
		return Task{}, false, fmt.Errorf("move target %s: %w", targetID, ErrTaskNotFound)
	}
	if src == tgt {
		return (*c)[src], false, nil
	}

	item := (*c)[src]
	rest := make(Collection, 0, len(*c))
	rest = append(rest, (*c)[:src]...)
	rest = append(rest, (*c)[src+1:]...)

	out := make(Collection, 0, len(*c))
	out = append(out, rest[:tgt]...)
	item.touch(now)
	out = append(out, item)
	out = append(out, rest[tgt:]...)
	*c = out
	return item, true, nil
}

func (c *Collection) Delete(id string) (Task, error) {
	i := c.Index(id)
	if i < 0 {
		return Task{}, fmt.Errorf("delete %s: %w", id, ErrTaskNotFound)
	}
	removed := (*c)[i]
	out := make(Collection, 0, len(*c)-1)
	out = append(out, (*c)[:i]...)
	out = append(out, (*c)[i+1:]...)
	*c = out
	return removed, nil
}

// ClearCompleted drops every completed record and returns their ids.
func (c *Collection) ClearCompleted() []string {
	var removed []string
	out := make(Collection, 0, len(*c))
	for _, t := range *c {
		if t.Completed {
			removed = append(removed, t.Id)
			continue
		}
		out = append(out, t)
	}
	*c = out
	return removed
}

func (c *Collection) ClearAll() []string {
	removed := c.IDs()
	*c = Collection{}
	return removed
}
