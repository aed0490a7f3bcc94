package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// LLMService generates the reply to a conversation. Services treat it as
// optional: a nil LLMService means answers cannot be generated.
type LLMService interface {
	// Chat returns the text of the next assistant turn.
	Chat(ctx context.Context, messages []domain.ChatMessage, opts ChatOptions) (string, error)

	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}

// ChatOptions tunes a single Chat call. Zero values leave the provider
// default.
type ChatOptions struct {
	MaxTokens   int
	Temperature float64
}
