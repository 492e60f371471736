package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type SyncRun struct {
	Id          int64
	Reason      string
	Status      string
	PulledTasks int
	MergedTasks int
	PushedTasks int
	PullError   string
	PushError   string
	StartedAt   time.Time
	CompletedAt *time.Time
}

type SyncRunRepository struct {
	db *sql.DB
}

func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

func (r *SyncRunRepository) Create(ctx context.Context, run *SyncRun) (int64, error) {
	query := `
	INSERT INTO sync_runs (reason, status, started_at)
        VALUES (?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		run.Reason,
		run.Status,
		run.StartedAt.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("create sync run: %w", err)
	}

	return result.LastInsertId()
}

func (r *SyncRunRepository) Complete(ctx context.Context, run *SyncRun) error {
	query := `
	UPDATE sync_runs
	SET status = ?, pulled_tasks = ?, merged_tasks = ?, pushed_tasks = ?,
	    pull_error = ?, push_error = ?, completed_at = ?
	WHERE id = ?
	`

	var completed any
	if run.CompletedAt != nil {
		completed = run.CompletedAt.UnixMilli()
	}

	_, err := r.db.ExecContext(ctx, query,
		run.Status,
		run.PulledTasks,
		run.MergedTasks,
		run.PushedTasks,
		nullString(run.PullError),
		nullString(run.PushError),
		completed,
		run.Id,
	)
	if err != nil {
		return fmt.Errorf("complete sync run %d: %w", run.Id, err)
	}
	return nil
}

// List returns the most recent runs first.
func (r *SyncRunRepository) List(ctx context.Context, limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
	SELECT id, reason, status, pulled_tasks, merged_tasks, pushed_tasks,
	       pull_error, push_error, started_at, completed_at
	FROM sync_runs
	ORDER BY id DESC
	LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []SyncRun
	for rows.Next() {
		run, err := scanSyncRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sync runs: %w", err)
	}

	return runs, nil
}

func (r *SyncRunRepository) Get(ctx context.Context, id int64) (SyncRun, error) {
	query := `
	SELECT id, reason, status, pulled_tasks, merged_tasks, pushed_tasks,
	       pull_error, push_error, started_at, completed_at
	FROM sync_runs WHERE id = ?
	`
	run, err := scanSyncRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return SyncRun{}, fmt.Errorf("get sync run %d: %w", id, err)
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncRun(row rowScanner) (SyncRun, error) {
	var (
		run       SyncRun
		pullErr   sql.NullString
		pushErr   sql.NullString
		started   int64
		completed sql.NullInt64
	)
	err := row.Scan(
		&run.Id,
		&run.Reason,
		&run.Status,
		&run.PulledTasks,
		&run.MergedTasks,
		&run.PushedTasks,
		&pullErr,
		&pushErr,
		&started,
		&completed,
	)
	if err != nil {
		return SyncRun{}, err
	}
	run.PullError = pullErr.String
	run.PushError = pushErr.String
	run.StartedAt = time.UnixMilli(started).UTC()
	if completed.Valid {
		t := time.UnixMilli(completed.Int64).UTC()
		run.CompletedAt = &t
	}
	return run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
