// Package ollama generates answers with a local Ollama server.
package ollama

import (
	"cmp"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/recall/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/recall/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Defaults.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures the adapter. Every field is optional.
type LLMConfig struct {
	BaseURL   string
	Model     string
	Timeout   time.Duration
	RateLimit *ratelimit.Config // default ratelimit.Ollama
}

// LLMService generates text with an Ollama model.
type LLMService struct {
	api   *apiclient.Client
	model string
}

type generationOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type chatRequest struct {
	Model    string               `json:"model"`
	Messages []domain.ChatMessage `json:"messages"`
	Stream   bool                 `json:"stream"`
	Options  *generationOptions   `json:"options,omitempty"`
}

type chatReply struct {
	Message domain.ChatMessage `json:"message"`
	Done    bool               `json:"done"`
	Error   string             `json:"error,omitempty"`
}

type tagList struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewLLMService creates the adapter.
func NewLLMService(cfg LLMConfig) *LLMService {
	return &LLMService{
		api: apiclient.New(apiclient.Options{
			Provider:    "ollama",
			BaseURL:     cmp.Or(cfg.BaseURL, DefaultBaseURL),
			Timeout:     cmp.Or(cfg.Timeout, DefaultLLMTimeout),
			RateLimit:   ratelimit.OrDefault(cfg.RateLimit, ratelimit.Ollama),
			Unavailable: domain.ErrLLMUnavailable,
		}),
		model: cmp.Or(cfg.Model, DefaultLLMModel),
	}
}

// Chat sends the conversation without streaming.
func (s *LLMService) Chat(ctx context.Context, messages []domain.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := chatRequest{Model: s.model, Messages: messages}
	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		req.Options = &generationOptions{NumPredict: opts.MaxTokens, Temperature: opts.Temperature}
	}

	var out chatReply
	if err := s.api.Post(ctx, "/api/chat", req, &out); err != nil {
		return "", err
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	return out.Message.Content, nil
}

// ModelName returns the model name.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists the local models and checks the configured one is pulled.
func (s *LLMService) Ping(ctx context.Context) error {
	var tags tagList
	if err := s.api.Get(ctx, "/api/tags", &tags); err != nil {
		return err
	}
	for _, m := range tags.Models {
		if m.Name == s.model || strings.TrimSuffix(m.Name, ":latest") == s.model {
			return nil
		}
	}
	return fmt.Errorf("ollama: model %q is not pulled, run 'ollama pull %s'", s.model, s.model)
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
