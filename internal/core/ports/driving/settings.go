package driving

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// SettingsService reads and changes the persisted settings.
type SettingsService interface {
	// Get returns the settings with defaults filled in.
	Get() (*domain.Settings, error)
	Save(settings *domain.Settings) error

	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider also sets the base URL, which the chat server requires.
	SetLLMProvider(provider domain.AIProvider, model, apiKey, baseURL string) error

	// Validate checks the settings without contacting any provider.
	Validate() error

	// CheckEmbedding and CheckLLM ping the configured providers.
	CheckEmbedding(ctx context.Context) error
	CheckLLM(ctx context.Context) error

	SchedulerConfig() domain.SchedulerConfig
}
