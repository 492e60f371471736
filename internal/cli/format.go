package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/TWRT/tasksync/internal/models"
	"github.com/TWRT/tasksync/internal/repository"
	"github.com/TWRT/tasksync/internal/service"
)

const shortIDLen = 8

func shortID(id string) string {
	if len(id) <= shortIDLen {
		return id
	}
	return id[:shortIDLen]
}

func formatTask(pos int, t models.Task, now time.Time) string {
	check := " "
	if t.Completed {
		check = "x"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%3d. [%s] %s  (%s)", pos, check, t.Text, shortID(t.Id))

	if t.DueDate != nil {
		due := t.DueDate.Local()
		fmt.Fprintf(&b, "  due %s, %s", due.Format("Mon Jan 2 15:04"), humanize.RelTime(*t.DueDate, now, "ago", "from now"))
		switch {
		case t.Completed:
		case t.IsOverdue(now):
			b.WriteString("  OVERDUE")
		case t.IsDueSoon(now):
			b.WriteString("  due soon")
		}
	}
	return b.String()
}

func printTasks(w io.Writer, tasks models.Collection, remaining int, now time.Time) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
	}
	for i, t := range tasks {
		fmt.Fprintln(w, formatTask(i+1, t, now))
	}
	fmt.Fprintf(w, "%d %s left\n", remaining, plural(remaining, "item", "items"))
}

func printSyncReport(w io.Writer, r service.SyncReport, status service.Status) {
	if r.Skipped {
		fmt.Fprintln(w, "Sync skipped.")
		return
	}
	if r.PullErr != nil {
		fmt.Fprintf(w, "Pull failed: %v\n", r.PullErr)
	} else {
		fmt.Fprintf(w, "Pulled %d, merged to %d (%d local wins, %d remote wins, %d new from remote).\n",
			r.Pulled, r.Merged, r.Stats.LocalWins, r.Stats.RemoteWins, r.Stats.RemoteOnly)
	}
	if r.PushErr != nil {
		fmt.Fprintf(w, "Push failed: %v\n", r.PushErr)
	} else {
		fmt.Fprintf(w, "Pushed %d %s.\n", r.Pushed, plural(r.Pushed, "task", "tasks"))
	}
	fmt.Fprintln(w, formatStatus(status, r.FinishedAt))
}

func formatStatus(s service.Status, now time.Time) string {
	switch s.State {
	case service.SyncDisabled:
		return "Sync disabled"
	case service.SyncSyncing:
		return "Syncing..."
	case service.SyncSynced:
		return "Synced " + s.At.Local().Format("15:04:05")
	case service.SyncError:
		if s.LastSynced.IsZero() {
			return "Sync error"
		}
		return "Sync error (last synced " + humanize.RelTime(s.LastSynced, now, "ago", "from now") + ")"
	default:
		return "Idle"
	}
}

func formatRun(r repository.SyncRun, now time.Time) string {
	line := fmt.Sprintf("#%-4d %-8s %-7s %s  pulled %d, merged %d, pushed %d",
		r.Id, r.Reason, r.Status, humanize.RelTime(r.StartedAt, now, "ago", "from now"),
		r.PulledTasks, r.MergedTasks, r.PushedTasks)
	if r.CompletedAt != nil {
		line += fmt.Sprintf(" in %s", r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond))
	}
	if r.PullError != "" {
		line += "\n      pull: " + r.PullError
	}
	if r.PushError != "" {
		line += "\n      push: " + r.PushError
	}
	return line
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
