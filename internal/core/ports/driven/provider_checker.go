package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// ProviderChecker opens the provider described by settings, pings it and
// releases it again. An empty provider passes.
type ProviderChecker interface {
	CheckEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error
	CheckLLM(ctx context.Context, settings *domain.LLMSettings) error
}
