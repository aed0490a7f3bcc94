package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// schedulerStore keeps poller state in the state database, next to but
// separate from any index.
type schedulerStore struct {
	db *sql.DB
}

var _ driven.SchedulerStore = (*schedulerStore)(nil)

const (
	selectTasks = `SELECT id, name, interval_ms, enabled, last_run, next_run, last_success, last_error
		FROM scheduled_tasks`
	selectPolls = `SELECT task_id, started_at, ended_at, documents, chunks, rejected, error
		FROM poll_results`
)

func (s *schedulerStore) GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error) {
	tasks, err := queryAll(ctx, s.db, "task "+taskID, scanTask, selectTasks+` WHERE id = ?`, taskID)
	if err != nil || len(tasks) == 0 {
		return nil, err
	}
	return &tasks[0], nil
}

func (s *schedulerStore) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	return queryAll(ctx, s.db, "tasks", scanTask, selectTasks+` ORDER BY id`)
}

func (s *schedulerStore) SaveTask(ctx context.Context, task *domain.ScheduledTask) error {
	if task == nil {
		return domain.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scheduled_tasks (id, name, interval_ms, enabled, last_run, next_run, last_success, last_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, interval_ms = excluded.interval_ms, enabled = excluded.enabled,
			last_run = excluded.last_run, next_run = excluded.next_run,
			last_success = excluded.last_success, last_error = excluded.last_error`,
		task.ID, task.Name, task.Interval.Milliseconds(), task.Enabled,
		textTime(task.LastRun), textTime(task.NextRun), textTime(task.LastSuccess), nullText(task.LastError))
	if err != nil {
		return fmt.Errorf("saving task %s: %w", task.ID, err)
	}
	return nil
}

func (s *schedulerStore) RecordPoll(ctx context.Context, r domain.PollResult) error {
	if r.TaskID == "" {
		return fmt.Errorf("%w: poll result without task id", domain.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO poll_results (task_id, started_at, ended_at, documents, chunks, rejected, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.TaskID, textTime(r.StartedAt), textTime(r.EndedAt), r.Documents, r.Chunks, r.Rejected, nullText(r.Error))
	if err != nil {
		return fmt.Errorf("recording poll: %w", err)
	}
	return nil
}

func (s *schedulerStore) RecentPolls(ctx context.Context, taskID string, limit int) ([]domain.PollResult, error) {
	return queryAll(ctx, s.db, "polls", scanPoll,
		selectPolls+` WHERE task_id = ? ORDER BY started_at DESC, id DESC LIMIT ?`, taskID, limit)
}

// PrunePolls ranks each task's polls newest first and drops those past keep.
func (s *schedulerStore) PrunePolls(ctx context.Context, keep int) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM poll_results WHERE id IN (
			SELECT id FROM (
				SELECT id, ROW_NUMBER() OVER (PARTITION BY task_id ORDER BY started_at DESC, id DESC) AS rn
				FROM poll_results
			) WHERE rn > ?
		)`, keep)
	if err != nil {
		return fmt.Errorf("pruning polls: %w", err)
	}
	return nil
}

func scanTask(rows *sql.Rows) (domain.ScheduledTask, error) {
	var (
		t                             domain.ScheduledTask
		intervalMS                    int64
		lastRun, nextRun, lastSuccess textTime
		lastError                     sql.NullString
	)
	if err := rows.Scan(&t.ID, &t.Name, &intervalMS, &t.Enabled, &lastRun, &nextRun, &lastSuccess, &lastError); err != nil {
		return t, fmt.Errorf("scanning task: %w", err)
	}
	t.Interval = time.Duration(intervalMS) * time.Millisecond
	t.LastRun, t.NextRun, t.LastSuccess = time.Time(lastRun), time.Time(nextRun), time.Time(lastSuccess)
	t.LastError = lastError.String
	return t, nil
}

func scanPoll(rows *sql.Rows) (domain.PollResult, error) {
	var (
		r          domain.PollResult
		start, end textTime
		errText    sql.NullString
	)
	if err := rows.Scan(&r.TaskID, &start, &end, &r.Documents, &r.Chunks, &r.Rejected, &errText); err != nil {
		return r, fmt.Errorf("scanning poll: %w", err)
	}
	r.StartedAt, r.EndedAt, r.Error = time.Time(start), time.Time(end), errText.String
	return r, nil
}

// nullText stores the empty string as NULL.
func nullText(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// textTime stores a time as timeLayout text in UTC, and the zero time as NULL.
type textTime time.Time

func (t textTime) Value() (driver.Value, error) {
	if time.Time(t).IsZero() {
		return nil, nil
	}
	return time.Time(t).UTC().Format(timeLayout), nil
}

func (t *textTime) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case nil:
		*t = textTime{}
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("time column holds %T", src)
	}
	parsed, err := time.Parse(timeLayout, s)
	if err != nil {
		return fmt.Errorf("time column: %w", err)
	}
	*t = textTime(parsed)
	return nil
}
