package services

import (
	"cmp"
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
)

var _ driving.SettingsService = (*SettingsService)(nil)

// Keys in config.toml.
//
//nolint:gosec // key names, not credentials
const (
	keyIndexDirectory   = "index.directory"
	keyIndexName        = "index.name"
	keyIndexWindowSize  = "index.window_size"
	keyRetrievalTopK    = "retrieval.top_k"
	keyRetrievalTopN    = "retrieval.top_n"
	keySharedMissingID  = "retrieval.shared_missing_source_id"
	keyFolderStaging    = "folders.tmp"
	keyFolderInDatabase = "folders.in_database"
	keyPollInterval     = "scheduler.poll_interval"
	keySchedulerEnabled = "scheduler.enabled"
	keyMetricsAddr      = "metrics.addr"
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedDimensions  = "embedding.dimensions"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService reads settings from the config store over the defaults
// and writes changes back.
type SettingsService struct {
	configStore driven.ConfigStore
	checker     driven.ProviderChecker
}

// NewSettingsService creates a settings service. Without a checker the
// provider checks always pass.
func NewSettingsService(configStore driven.ConfigStore, checker driven.ProviderChecker) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		checker:     checker,
	}
}

// Get never fails on bad values; each falls back to its default.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		Index: domain.IndexSettings{
			Directory:  s.getString(keyIndexDirectory, defaults.Index.Directory),
			Name:       s.getString(keyIndexName, defaults.Index.Name),
			WindowSize: s.getNonNegativeInt(keyIndexWindowSize, defaults.Index.WindowSize),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:                  s.getInt(keyRetrievalTopK, defaults.Retrieval.TopK),
			TopN:                  s.getInt(keyRetrievalTopN, defaults.Retrieval.TopN),
			SharedMissingSourceID: s.getBool(keySharedMissingID, defaults.Retrieval.SharedMissingSourceID),
		},
		Folders: domain.FolderSettings{
			Staging:    s.getString(keyFolderStaging, defaults.Folders.Staging),
			InDatabase: s.getString(keyFolderInDatabase, defaults.Folders.InDatabase),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			BaseURL:    s.getString(keyEmbedBaseURL, ""),
			APIKey:     s.getString(keyEmbedAPIKey, ""),
			Dimensions: s.getInt(keyEmbedDimensions, defaults.Embedding.Dimensions),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			BaseURL:  s.getString(keyLLMBaseURL, ""),
			APIKey:   s.getString(keyLLMAPIKey, ""),
		},
		PollInterval: s.getDuration(keyPollInterval, defaults.PollInterval),
		MetricsAddr:  s.getString(keyMetricsAddr, ""),
	}

	settings.Embedding.Model = s.getString(keyEmbedModel, domain.DefaultEmbeddingModels()[settings.Embedding.Provider])
	settings.LLM.Model = s.getString(keyLLMModel, domain.DefaultLLMModels()[settings.LLM.Provider])

	return settings, nil
}

// Save persists application settings in one write. API keys are only
// written when set, so a key supplied by the environment never lands
// in the file.
func (s *SettingsService) Save(settings *domain.Settings) error {
	values := map[string]any{
		keyIndexDirectory:   settings.Index.Directory,
		keyIndexName:        settings.Index.Name,
		keyIndexWindowSize:  settings.Index.WindowSize,
		keyRetrievalTopK:    settings.Retrieval.TopK,
		keyRetrievalTopN:    settings.Retrieval.TopN,
		keySharedMissingID:  settings.Retrieval.SharedMissingSourceID,
		keyFolderStaging:    settings.Folders.Staging,
		keyFolderInDatabase: settings.Folders.InDatabase,
		keyPollInterval:     settings.PollInterval.String(),
		keyMetricsAddr:      settings.MetricsAddr,
		keyEmbedProvider:    settings.Embedding.Provider.String(),
		keyEmbedModel:       settings.Embedding.Model,
		keyEmbedBaseURL:     settings.Embedding.BaseURL,
		keyEmbedDimensions:  settings.Embedding.Dimensions,
		keyLLMProvider:      settings.LLM.Provider.String(),
		keyLLMModel:         settings.LLM.Model,
		keyLLMBaseURL:       settings.LLM.BaseURL,
	}
	if settings.Embedding.APIKey != "" {
		values[keyEmbedAPIKey] = settings.Embedding.APIKey
	}
	if settings.LLM.APIKey != "" {
		values[keyLLMAPIKey] = settings.LLM.APIKey
	}

	if err := s.configStore.Update(values); err != nil {
		return fmt.Errorf("saving settings: %w", err)
	}
	return nil
}

// checkProvider rejects unknown providers, providers without the
// capability and missing API keys.
func checkProvider(kind, ability string, provider domain.AIProvider, capable bool, apiKey string) error {
	switch {
	case !provider.IsValid():
		return fmt.Errorf("invalid %s provider: %s", kind, provider)
	case !capable:
		return fmt.Errorf("provider %s does not support %s", provider, ability)
	case provider.RequiresAPIKey() && apiKey == "":
		return fmt.Errorf("API key required for %s", provider)
	}
	return nil
}

// SetEmbeddingProvider switches the embedder. An empty model picks the
// provider default; Ollama gets the local URL unless one is stored.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if err := checkProvider("embedding", "embeddings", provider, provider.CanEmbed(), apiKey); err != nil {
		return err
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	settings.Embedding.Model = cmp.Or(model, domain.DefaultEmbeddingModels()[provider])

	if provider == domain.AIProviderOllama {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = defaultOllamaURL
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	if d := domain.KnownDimensions(settings.Embedding.Model); d > 0 {
		settings.Embedding.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider switches the answer model. baseURL is required for the
// chat server and optional for Ollama.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey, baseURL string) error {
	if err := checkProvider("LLM", "generation", provider, provider.CanGenerate(), apiKey); err != nil {
		return err
	}
	if provider == domain.AIProviderChatServer && baseURL == "" {
		return fmt.Errorf("base URL required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = cmp.Or(model, domain.DefaultLLMModels()[provider])

	switch {
	case baseURL != "":
		settings.LLM.BaseURL = baseURL
	case provider == domain.AIProviderOllama:
		settings.LLM.BaseURL = defaultOllamaURL
	default:
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that current settings can build an index and answer queries.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Index.Name == "" {
		return fmt.Errorf("%w: index name is empty", domain.ErrInvalidInput)
	}
	if settings.Retrieval.TopK <= 0 {
		return fmt.Errorf("%w: retrieval.top_k must be positive", domain.ErrInvalidInput)
	}
	if settings.PollInterval <= 0 {
		return fmt.Errorf("%w: scheduler.poll_interval must be positive", domain.ErrInvalidInput)
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider)
	}
	if settings.LLM.Provider != "" && !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %q is not configured", settings.LLM.Provider)
	}

	return nil
}

// CheckEmbedding pings the configured embedding provider.
func (s *SettingsService) CheckEmbedding(ctx context.Context) error {
	if s.checker == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.checker.CheckEmbedding(ctx, &settings.Embedding)
}

// CheckLLM pings the configured LLM provider.
func (s *SettingsService) CheckLLM(ctx context.Context) error {
	if s.checker == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.checker.CheckLLM(ctx, &settings.LLM)
}

func (s *SettingsService) SchedulerConfig() domain.SchedulerConfig {
	defaults := domain.DefaultSchedulerConfig()

	defaults.Enabled = s.getBool(keySchedulerEnabled, defaults.Enabled)

	taskCfg := defaults.Tasks[domain.TaskIDStagingIngest]
	taskCfg.Interval = s.getDuration(keyPollInterval, taskCfg.Interval)
	defaults.Tasks[domain.TaskIDStagingIngest] = taskCfg

	return defaults
}

// The getters below fall back to the default for a missing key or a
// value of the wrong type.

func (s *SettingsService) getString(key, defaultVal string) string {
	if v, ok := s.configStore.String(key); ok && v != "" {
		return v
	}
	return defaultVal
}

// getInt treats zero as unset.
func (s *SettingsService) getInt(key string, defaultVal int) int {
	if v, ok := s.configStore.Int(key); ok && v != 0 {
		return v
	}
	return defaultVal
}

// getNonNegativeInt accepts an explicit zero.
func (s *SettingsService) getNonNegativeInt(key string, defaultVal int) int {
	if v, ok := s.configStore.Int(key); ok && v >= 0 {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if v, ok := s.configStore.Bool(key); ok {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	if p := domain.AIProvider(s.getString(key, "")); p.IsValid() {
		return p
	}
	return defaultVal
}

// getDuration reads a duration string like "3s" or "1m". Non-positive
// durations fall back to the default.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	d, err := time.ParseDuration(s.getString(key, ""))
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
