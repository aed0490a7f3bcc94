package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSchedulerConfig(t *testing.T) {
	cfg := DefaultSchedulerConfig()

	assert.True(t, cfg.Enabled)
	task := cfg.Task(TaskIDStagingIngest)
	assert.True(t, task.Enabled)
	assert.Equal(t, 3*time.Second, task.Interval)
}

func TestSchedulerConfig_UnknownTask(t *testing.T) {
	var cfg SchedulerConfig
	assert.Equal(t, TaskConfig{}, cfg.Task("nope"))

	cfg = DefaultSchedulerConfig()
	assert.Equal(t, TaskConfig{}, cfg.Task("nope"))
}

func TestScheduledTask_Due(t *testing.T) {
	now := time.Now()

	task := ScheduledTask{Enabled: true}
	assert.True(t, task.Due(now), "never run")

	task.NextRun = now.Add(time.Second)
	assert.False(t, task.Due(now))
	assert.True(t, task.Due(now.Add(time.Second)))

	task.Enabled = false
	assert.False(t, task.Due(now.Add(time.Hour)))
}

func TestScheduledTask_Finish(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Second)
	task := ScheduledTask{Interval: time.Minute}

	task.Finish(start, end, nil)
	assert.Equal(t, start, task.LastRun)
	assert.Equal(t, end.Add(time.Minute), task.NextRun)
	assert.Equal(t, end, task.LastSuccess)
	assert.Empty(t, task.LastError)

	task.Finish(end, end.Add(time.Second), errors.New("index closed"))
	assert.Equal(t, "index closed", task.LastError)
	assert.Equal(t, end, task.LastSuccess, "failure keeps the last success")
}

func TestNewPollResult(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	report := IngestReport{Files: 3, Documents: 2, Chunks: 9, Rejected: []string{"bad.json"}}

	r := NewPollResult(TaskIDStagingIngest, start, start.Add(1500*time.Millisecond), report, nil)
	assert.Equal(t, PollResult{
		TaskID:    TaskIDStagingIngest,
		StartedAt: start,
		EndedAt:   start.Add(1500 * time.Millisecond),
		Documents: 2,
		Chunks:    9,
		Rejected:  1,
	}, r)
	assert.True(t, r.Success())
	assert.Equal(t, 1500*time.Millisecond, r.Duration())

	failed := NewPollResult(TaskIDStagingIngest, start, start, IngestReport{}, errors.New("disk full"))
	assert.False(t, failed.Success())
	assert.Equal(t, "disk full", failed.Error)
}
