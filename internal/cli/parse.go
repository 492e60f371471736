package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/TWRT/tasksync/internal/models"
)

var dueLayouts = []string{
	time.RFC3339,
	models.DueDateLayout,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDue accepts an absolute time, a relative offset such as "+90m", or
// "none" to clear. Times without a zone are read in loc.
func parseDue(s string, now time.Time, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return nil, nil
	}

	if strings.HasPrefix(s, "+") {
		d, err := time.ParseDuration(s[1:])
		if err != nil {
			return nil, fmt.Errorf("parse due offset %q: %w", s, err)
		}
		due := now.Add(d)
		return &due, nil
	}

	for _, layout := range dueLayouts {
		if due, err := time.ParseInLocation(layout, s, loc); err == nil {
			return &due, nil
		}
	}
	return nil, fmt.Errorf("parse due %q: use RFC3339, YYYY-MM-DD[ HH:MM], +<duration> or none", s)
}

// resolveID finds the task whose id equals ref or starts with it. A 1-based
// list position is accepted as well.
func resolveID(tasks models.Collection, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("task reference is empty")
	}
	if _, ok := tasks.Find(ref); ok {
		return ref, nil
	}

	var pos int
	if _, err := fmt.Sscanf(ref, "%d", &pos); err == nil && fmt.Sprint(pos) == ref {
		if pos >= 1 && pos <= len(tasks) {
			return tasks[pos-1].Id, nil
		}
	}

	var matches []string
	for _, t := range tasks {
		if strings.HasPrefix(t.Id, ref) {
			matches = append(matches, t.Id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("resolve %s: %w", ref, models.ErrTaskNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("task reference %q is ambiguous (%d matches)", ref, len(matches))
	}
}
