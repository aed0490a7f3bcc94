package driving

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// AnswerService answers questions from indexed documents.
type AnswerService interface {
	// Answer retrieves context for the query and generates a reply,
	// taking prior conversation turns into account.
	Answer(ctx context.Context, query string, history []domain.ChatMessage) (*domain.Answer, error)

	// Retrieve runs only the retrieval pipeline.
	Retrieve(ctx context.Context, query string) ([]domain.ScoredChunk, error)
}
