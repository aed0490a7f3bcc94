package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/recall/internal/core/domain"
)

func TestNewEmbedder(t *testing.T) {
	tests := map[string]struct {
		settings *domain.EmbeddingSettings
		model    string
		dims     int
		err      string
	}{
		"nil settings":   {},
		"no provider":    {settings: &domain.EmbeddingSettings{Model: "x"}},
		"hashing":        {settings: &domain.EmbeddingSettings{Provider: domain.AIProviderHashing, Dimensions: 64}, model: hashing.DefaultModel, dims: 64},
		"ollama known":   {settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "all-minilm"}, model: "all-minilm", dims: 384},
		"ollama unknown": {settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "custom"}, model: "custom", dims: 768},
		"ollama explicit size": {
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: "all-minilm", Dimensions: 128},
			model:    "all-minilm",
			dims:     128,
		},
		"openai": {
			settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "text-embedding-3-large"},
			model:    "text-embedding-3-large",
			dims:     3072,
		},
		"openai without key": {settings: &domain.EmbeddingSettings{Provider: domain.AIProviderOpenAI}, err: "API key is required"},
		"anthropic":          {settings: &domain.EmbeddingSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"}, err: "anthropic does not support embeddings"},
		"chat server":        {settings: &domain.EmbeddingSettings{Provider: domain.AIProviderChatServer}, err: "chatserver does not support embeddings"},
		"unknown":            {settings: &domain.EmbeddingSettings{Provider: "cohere"}, err: "unsupported embedding provider: cohere"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			svc, err := NewEmbedder(tt.settings)
			if tt.err != "" {
				assert.ErrorContains(t, err, tt.err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			if tt.model == "" {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			t.Cleanup(func() { _ = svc.Close() })
			assert.Equal(t, tt.model, svc.ModelName())
			assert.Equal(t, tt.dims, svc.Dimensions())
		})
	}
}

func TestNewGenerator(t *testing.T) {
	tests := map[string]struct {
		settings *domain.LLMSettings
		model    string
		err      string
	}{
		"nil settings":          {},
		"no provider":           {settings: &domain.LLMSettings{Model: "x"}},
		"ollama default model":  {settings: &domain.LLMSettings{Provider: domain.AIProviderOllama}, model: "llama3.2"},
		"openai":                {settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "k", Model: "gpt-4o"}, model: "gpt-4o"},
		"anthropic":             {settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "k"}, model: "claude-3-5-sonnet-latest"},
		"chat server":           {settings: &domain.LLMSettings{Provider: domain.AIProviderChatServer, BaseURL: "http://gpu:8003"}, model: "chat"},
		"anthropic without key": {settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic}, err: "API key is required"},
		"openai without key":    {settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI}, err: "API key is required"},
		"hashing":               {settings: &domain.LLMSettings{Provider: domain.AIProviderHashing}, err: "hashing does not support generation"},
		"unknown":               {settings: &domain.LLMSettings{Provider: "cohere"}, err: "unsupported LLM provider: cohere"},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			svc, err := NewGenerator(tt.settings)
			if tt.err != "" {
				assert.ErrorContains(t, err, tt.err)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			if tt.model == "" {
				assert.Nil(t, svc)
				return
			}
			require.NotNil(t, svc)
			t.Cleanup(func() { _ = svc.Close() })
			assert.Equal(t, tt.model, svc.ModelName())
		})
	}
}
