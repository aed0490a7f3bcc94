package domain

import "time"

// TaskIDStagingIngest is the staging folder poller.
const TaskIDStagingIngest = "staging-ingest"

// DefaultPollInterval is how often the staging folder is checked.
const DefaultPollInterval = 3 * time.Second

// ScheduledTask is the persisted state of a recurring task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time // zero means run at once
	LastSuccess time.Time
	LastError   string
}

// Due reports whether the task should run at now.
func (t *ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && !t.NextRun.After(now)
}

// Finish records a run and schedules the next one an interval after end.
func (t *ScheduledTask) Finish(start, end time.Time, err error) {
	t.LastRun = start
	t.NextRun = end.Add(t.Interval)
	if err != nil {
		t.LastError = err.Error()
		return
	}
	t.LastError = ""
	t.LastSuccess = end
}

// PollResult is the outcome of one poll that found files or failed.
// Polls of an empty staging folder are not recorded.
type PollResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time

	Documents int
	Chunks    int
	Rejected  int

	// Error is empty for a successful poll.
	Error string
}

// NewPollResult builds a result from an ingest report.
func NewPollResult(taskID string, start, end time.Time, report IngestReport, err error) PollResult {
	r := PollResult{
		TaskID:    taskID,
		StartedAt: start,
		EndedAt:   end,
		Documents: report.Documents,
		Chunks:    report.Chunks,
		Rejected:  len(report.Rejected),
	}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Success reports whether the poll completed without error.
func (r PollResult) Success() bool {
	return r.Error == ""
}

// Duration is how long the poll took.
func (r PollResult) Duration() time.Duration {
	return r.EndedAt.Sub(r.StartedAt)
}

// SchedulerConfig switches the scheduler and its tasks on and off.
type SchedulerConfig struct {
	Enabled bool
	Tasks   map[string]TaskConfig
}

type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Task returns the configuration of taskID; unknown tasks are disabled.
func (c SchedulerConfig) Task(taskID string) TaskConfig {
	return c.Tasks[taskID]
}

// DefaultSchedulerConfig polls the staging folder every DefaultPollInterval.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		Tasks: map[string]TaskConfig{
			TaskIDStagingIngest: {Enabled: true, Interval: DefaultPollInterval},
		},
	}
}
