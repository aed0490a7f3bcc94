package driving

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// Scheduler runs background tasks such as the staging folder poller.
type Scheduler interface {
	// Start begins running scheduled tasks.
	// Blocks until context is cancelled or an error occurs.
	Start(ctx context.Context) error

	// Stop gracefully stops all running tasks.
	Stop() error

	// Trigger asks the named task to run as soon as possible.
	// Returns false if the task is unknown or a run is already pending.
	Trigger(taskID string) bool

	// History returns recorded staging polls, newest first. Polls that
	// found nothing are not recorded. A limit of zero means all retained.
	History(ctx context.Context, limit int) ([]domain.PollResult, error)
}
