// Package openai generates answers with the OpenAI chat completions API or
// any server that speaks it.
package openai

import (
	"cmp"
	"context"
	"errors"
	"time"

	"github.com/custodia-labs/recall/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/recall/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Defaults.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// ErrNoChoices is returned when a completion carries no choices.
var ErrNoChoices = errors.New("openai: completion has no choices")

// LLMConfig configures the adapter. BaseURL may point at Azure OpenAI or a
// compatible server.
type LLMConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	RateLimit *ratelimit.Config // default ratelimit.OpenAI
}

// LLMService generates text with a chat completions model.
type LLMService struct {
	api   *apiclient.Client
	model string
}

type completionRequest struct {
	Model       string               `json:"model"`
	Messages    []domain.ChatMessage `json:"messages"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Temperature float64              `json:"temperature,omitempty"`
}

type completion struct {
	Choices []struct {
		Message      domain.ChatMessage `json:"message"`
		FinishReason string             `json:"finish_reason"`
	} `json:"choices"`
}

// NewLLMService creates the adapter.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	return &LLMService{
		api: apiclient.New(apiclient.Options{
			Provider:    "openai",
			BaseURL:     cmp.Or(cfg.BaseURL, DefaultBaseURL),
			Header:      apiclient.Bearer(cfg.APIKey),
			Timeout:     cmp.Or(cfg.Timeout, DefaultLLMTimeout),
			RateLimit:   ratelimit.OrDefault(cfg.RateLimit, ratelimit.OpenAI),
			Unavailable: domain.ErrLLMUnavailable,
		}),
		model: cmp.Or(cfg.Model, DefaultLLMModel),
	}, nil
}

// Chat sends the conversation and returns the first choice.
func (s *LLMService) Chat(ctx context.Context, messages []domain.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := completionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   max(opts.MaxTokens, 0),
		Temperature: max(opts.Temperature, 0),
	}

	var out completion
	if err := s.api.Post(ctx, "/chat/completions", req, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}
	return out.Choices[0].Message.Content, nil
}

// ModelName returns the model name.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without spending tokens.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/models", nil)
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
