package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TWRT/tasksync/internal/models"
)

func TestParseDue(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		in   string
		want *time.Time
	}{
		{"", nil},
		{"none", nil},
		{"NONE", nil},
		{"+90m", ptrTime(now.Add(90 * time.Minute))},
		{"2026-10-15T18:30:00Z", ptrTime(time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC))},
		{"2026-10-15T18:30:00.123Z", ptrTime(time.Date(2026, 10, 15, 18, 30, 0, 123e6, time.UTC))},
		{"2026-10-15 18:30", ptrTime(time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC))},
		{"2026-10-15T18:30", ptrTime(time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC))},
		{"2026-10-15", ptrTime(time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDue(tt.in, now, time.UTC)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}
}

func TestParseDue_Invalid(t *testing.T) {
	for _, in := range []string{"tomorrow", "+soon", "15/10/2026"} {
		_, err := parseDue(in, time.Now(), time.UTC)
		assert.Error(t, err, in)
	}
}

func TestResolveID(t *testing.T) {
	tasks := models.Collection{
		{Id: "abc123", Text: "one"},
		{Id: "abd456", Text: "two"},
		{Id: "xyz789", Text: "three"},
	}

	tests := []struct {
		ref     string
		want    string
		wantErr bool
	}{
		{"abc123", "abc123", false},
		{"abc", "abc123", false},
		{"x", "xyz789", false},
		{"2", "abd456", false},
		{"ab", "", true},
		{"nope", "", true},
		{"9", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := resolveID(tasks, tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := resolveID(tasks, "nope")
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, "yaml", formatFor("", "tasks.yml"))
	assert.Equal(t, "json", formatFor("", "tasks.txt"))
	assert.Equal(t, "json", formatFor("", ""))
	assert.Equal(t, "yaml", formatFor("YAML", "tasks.json"))
}

func TestEncodeDecodeYAML(t *testing.T) {
	due := time.Date(2026, 10, 15, 18, 30, 0, 0, time.UTC)
	in := models.Collection{{
		Id:        "a",
		Text:      "pay rent",
		DueDate:   &due,
		CreatedAt: time.UnixMilli(1000).UTC(),
		UpdatedAt: time.UnixMilli(2000).UTC(),
	}}

	data, err := encodeTasks(in, "yaml")
	require.NoError(t, err)
	assert.Contains(t, string(data), "text: pay rent")

	out, err := decodeTasks(data, "yaml")
	require.NoError(t, err)
	assert.True(t, in.Equal(out))

	_, err = encodeTasks(in, "toml")
	assert.Error(t, err)
}

func TestFormatTask(t *testing.T) {
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	overdue := now.Add(-2 * time.Hour)
	soon := now.Add(3 * time.Hour)

	assert.Contains(t, formatTask(1, models.Task{Id: "abcdefghij", Text: "plain"}, now), "  1. [ ] plain  (abcdefgh)")
	assert.Contains(t, formatTask(2, models.Task{Id: "a", Text: "late", DueDate: &overdue}, now), "OVERDUE")
	assert.Contains(t, formatTask(2, models.Task{Id: "a", Text: "late", DueDate: &overdue}, now), "2 hours ago")
	assert.Contains(t, formatTask(3, models.Task{Id: "a", Text: "soon", DueDate: &soon}, now), "due soon")
	assert.NotContains(t, formatTask(4, models.Task{Id: "a", Text: "done", Completed: true, DueDate: &overdue}, now), "OVERDUE")
}

func ptrTime(t time.Time) *time.Time { return &t }
