package httpapi

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

// PollHistory lists recent polls of the staging folder.
// driving.Scheduler satisfies it.
type PollHistory interface {
	History(ctx context.Context, limit int) ([]domain.PollResult, error)
}

// Ports aggregates the driving ports served over HTTP.
type Ports struct {
	// Answer retrieves context and generates answers.
	Answer driving.AnswerService

	// Index manages the index contents. Optional: without it the index
	// routes are not registered.
	Index driving.IndexService

	// Polls is optional; without it /v1/polls is not registered.
	Polls PollHistory
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}
