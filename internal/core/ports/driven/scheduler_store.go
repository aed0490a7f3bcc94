package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// SchedulerStore keeps poller state and poll history across restarts.
// It lives outside the index so that a rebuild does not reset it.
type SchedulerStore interface {
	// GetTask returns nil and no error for an unknown task.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask inserts or replaces the task with the same ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	RecordPoll(ctx context.Context, result domain.PollResult) error

	// RecentPolls returns up to limit results of taskID, newest first.
	RecentPolls(ctx context.Context, taskID string, limit int) ([]domain.PollResult, error)

	// PrunePolls keeps the newest keep results of each task.
	PrunePolls(ctx context.Context, keep int) error
}
