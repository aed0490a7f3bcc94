package ai

import (
	"fmt"

	"github.com/custodia-labs/recall/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/recall/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/recall/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/recall/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/recall/internal/adapters/driven/llm/chatserver"
	ollamallm "github.com/custodia-labs/recall/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/recall/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

var embedders = map[domain.AIProvider]func(*domain.EmbeddingSettings) (driven.EmbeddingService, error){
	domain.AIProviderHashing: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return hashing.NewEmbeddingService(s.Dimensions), nil
	},
	domain.AIProviderOllama: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: dimensions(s),
		}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     s.APIKey,
			BaseURL:    s.BaseURL,
			Model:      s.Model,
			Dimensions: dimensions(s),
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
}

var generators = map[domain.AIProvider]func(*domain.LLMSettings) (driven.LLMService, error){
	domain.AIProviderOllama: func(s *domain.LLMSettings) (driven.LLMService, error) {
		return ollamallm.NewLLMService(ollamallm.LLMConfig{BaseURL: s.BaseURL, Model: s.Model}), nil
	},
	domain.AIProviderChatServer: func(s *domain.LLMSettings) (driven.LLMService, error) {
		return chatserver.NewLLMService(chatserver.Config{BaseURL: s.BaseURL, Model: s.Model}), nil
	},
	domain.AIProviderOpenAI: func(s *domain.LLMSettings) (driven.LLMService, error) {
		svc, err := openaillm.NewLLMService(openaillm.LLMConfig{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
	domain.AIProviderAnthropic: func(s *domain.LLMSettings) (driven.LLMService, error) {
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{APIKey: s.APIKey, BaseURL: s.BaseURL, Model: s.Model})
		if err != nil {
			return nil, err
		}
		return svc, nil
	},
}

// NewEmbedder builds the embedding service named by settings without
// contacting it. No provider yields a nil service and no error.
func NewEmbedder(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || settings.Provider == "" {
		return nil, nil
	}
	build, ok := embedders[settings.Provider]
	if !ok {
		return nil, unsupported(settings.Provider, "embedding", "embeddings")
	}
	return build(settings)
}

// NewGenerator is NewEmbedder for text generation.
func NewGenerator(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || settings.Provider == "" {
		return nil, nil
	}
	build, ok := generators[settings.Provider]
	if !ok {
		return nil, unsupported(settings.Provider, "LLM", "generation")
	}
	return build(settings)
}

func unsupported(p domain.AIProvider, kind, capability string) error {
	if p.IsValid() {
		return fmt.Errorf("%s does not support %s", p, capability)
	}
	return fmt.Errorf("unsupported %s provider: %s", kind, p)
}

// dimensions prefers the configured size, then the known size of the model.
// Zero leaves the adapter default.
func dimensions(s *domain.EmbeddingSettings) int {
	if s.Dimensions > 0 {
		return s.Dimensions
	}
	return domain.KnownDimensions(s.Model)
}
