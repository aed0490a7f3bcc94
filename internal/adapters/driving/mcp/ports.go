package mcp

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

// PollHistory lists recent staging folder polls. driving.Scheduler
// satisfies it.
type PollHistory interface {
	History(ctx context.Context, limit int) ([]domain.PollResult, error)
}

// Ports are the services behind the tools. Only Answer is required; the
// index tools need Index and the polls tool needs Polls.
type Ports struct {
	Answer driving.AnswerService
	Index  driving.IndexService
	Polls  PollHistory
}

// Validate reports a missing Answer service.
func (p *Ports) Validate() error {
	if p == nil || p.Answer == nil {
		return ErrMissingAnswerService
	}
	return nil
}
