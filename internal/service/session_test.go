package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TWRT/tasksync/internal/models"
)

func TestSession_AddPersistsAndRequestsSync(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	added, err := h.session.Add(ctx, "  water plants  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "water plants", added.Text)
	assert.True(t, t0.Equal(added.CreatedAt))

	stored, err := h.store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{added.Id}, stored.IDs())

	assert.True(t, h.timers.Has(debounceKey))
	h.clock.Advance(DefaultSyncOptions().Debounce)
	assert.Equal(t, []string{added.Id}, h.remote.lastPushed().IDs())
}

func TestSession_AddRejectsEmptyText(t *testing.T) {
	h := newHarness(t)

	_, err := h.session.Add(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, models.ErrEmptyText)
	assert.Empty(t, h.session.Snapshot())
	assert.False(t, h.timers.Has(debounceKey))

	_, err = h.blobs.Get(context.Background(), "todos_test")
	assert.Error(t, err)
}

func TestSession_Mutations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.session.Add(ctx, "first", nil)
	require.NoError(t, err)
	h.clock.Advance(time.Second)
	second, err := h.session.Add(ctx, "second", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{second.Id, first.Id}, h.session.Snapshot().IDs())

	h.clock.Set(t0.Add(time.Hour))
	toggled, err := h.session.Toggle(ctx, first.Id)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)
	assert.True(t, t0.Add(time.Hour).Equal(toggled.UpdatedAt))
	assert.Equal(t, 1, h.session.Remaining())

	edited, err := h.session.EditText(ctx, second.Id, "second, edited")
	require.NoError(t, err)
	assert.Equal(t, "second, edited", edited.Text)

	_, err = h.session.EditText(ctx, second.Id, "")
	assert.ErrorIs(t, err, models.ErrEmptyText)
	got, err := h.session.Get(second.Id)
	require.NoError(t, err)
	assert.Equal(t, "second, edited", got.Text)

	moved, err := h.session.Move(ctx, second.Id, first.Id)
	require.NoError(t, err)
	assert.Equal(t, second.Id, moved.Id)
	assert.Equal(t, []string{first.Id, second.Id}, h.session.Snapshot().IDs())

	assert.Len(t, h.session.List(models.FilterCompleted), 1)
	assert.Len(t, h.session.List(models.FilterActive), 1)

	removed, err := h.session.ClearCompleted(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{first.Id}, removed)

	_, err = h.session.Delete(ctx, second.Id)
	require.NoError(t, err)
	assert.Empty(t, h.session.Snapshot())

	_, err = h.session.Toggle(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrTaskNotFound)
}

func TestSession_DueDateDrivesReminders(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	added, err := h.session.Add(ctx, "dentist", ptr(t0.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, []string{added.Id}, h.reminders.Pending())
	assert.True(t, t0.Add(time.Hour).Equal(h.session.NextDue()))

	_, err = h.session.Toggle(ctx, added.Id)
	require.NoError(t, err)
	assert.Empty(t, h.reminders.Pending())

	_, err = h.session.Toggle(ctx, added.Id)
	require.NoError(t, err)
	_, err = h.session.SetDue(ctx, added.Id, ptr(t0.Add(-time.Hour)))
	require.NoError(t, err)

	got := h.notifier.all()
	require.Len(t, got, 1)
	assert.True(t, got[0].Overdue)
	assert.Equal(t, "Overdue: dentist", got[0].Message())
	assert.Empty(t, h.reminders.Pending())

	_, err = h.session.SetDue(ctx, added.Id, nil)
	require.NoError(t, err)
	assert.True(t, h.session.NextDue().IsZero())
}

func TestSession_DeleteRetiresReminder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	added, err := h.session.Add(ctx, "call", ptr(t0.Add(time.Hour)))
	require.NoError(t, err)
	_, err = h.session.Delete(ctx, added.Id)
	require.NoError(t, err)

	h.clock.Advance(2 * time.Hour)
	assert.Empty(t, h.reminders.Pending())
	assert.Empty(t, h.notifier.all())
}

func TestSession_LoadReschedulesAndSurvivesGarbage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.blobs.Set(ctx, "todos_test", []byte("not json")))
	err := h.session.Load(ctx)
	var parseErr *PersistenceParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Empty(t, h.session.Snapshot())

	overdue := task("a", "stale", t0.UnixMilli())
	overdue.DueDate = ptr(t0.Add(-time.Minute))
	require.NoError(t, h.store.Save(ctx, models.Collection{overdue}))
	require.NoError(t, h.session.Load(ctx))

	require.Len(t, h.notifier.all(), 1)
	assert.Equal(t, "a", h.notifier.all()[0].TaskID)
}

func TestSession_ClearOnEmptyIsQuiet(t *testing.T) {
	h := newHarness(t)

	removed, err := h.session.ClearAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.False(t, h.timers.Has(debounceKey))
}

func TestSession_ImportMerges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.session.Import(ctx, models.Collection{task("a", "old", 100), task("b", "keep", 100)}, true)
	require.NoError(t, err)

	stats, err := h.session.Import(ctx, models.Collection{task("a", "new", 200), task("c", "extra", 1)}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.RemoteWins)
	assert.Equal(t, 1, stats.LocalOnly)
	assert.Equal(t, 1, stats.RemoteOnly)

	tasks := h.session.Snapshot()
	assert.Equal(t, []string{"a", "b", "c"}, tasks.IDs())
	assert.Equal(t, "new", tasks[0].Text)
}
