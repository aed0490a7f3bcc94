// Package anthropic generates answers with the Anthropic Messages API.
package anthropic

import (
	"cmp"
	"context"
	"errors"
	"net/http"
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
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	apiVersion = "2023-06-01"
)

// ErrEmptyReply is returned when the reply holds no text blocks.
var ErrEmptyReply = errors.New("anthropic: reply has no text")

// Config configures the Anthropic adapter. Only APIKey is required.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	RateLimit *ratelimit.Config // default ratelimit.Anthropic
}

// LLMService generates text with an Anthropic model.
type LLMService struct {
	api   *apiclient.Client
	model string
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type reply struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// NewLLMService creates the adapter.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	header := http.Header{}
	header.Set("x-api-key", cfg.APIKey)
	header.Set("anthropic-version", apiVersion)

	return &LLMService{
		api: apiclient.New(apiclient.Options{
			Provider:    "anthropic",
			BaseURL:     cmp.Or(cfg.BaseURL, DefaultBaseURL),
			Header:      header,
			Timeout:     cmp.Or(cfg.Timeout, DefaultTimeout),
			RateLimit:   ratelimit.OrDefault(cfg.RateLimit, ratelimit.Anthropic),
			Unavailable: domain.ErrLLMUnavailable,
		}),
		model: cmp.Or(cfg.Model, DefaultModel),
	}, nil
}

// Chat sends the conversation. The Messages API takes system prompts in a
// separate field, so system turns are lifted out and joined.
func (s *LLMService) Chat(ctx context.Context, messages []domain.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := request{
		Model:       s.model,
		Messages:    make([]message, 0, len(messages)),
		MaxTokens:   DefaultMaxTokens,
		Temperature: opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	var system []string
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, message(m))
	}
	req.System = strings.Join(system, "\n\n")

	var out reply
	if err := s.api.Post(ctx, "/v1/messages", req, &out); err != nil {
		return "", err
	}
	return out.text()
}

func (r reply) text() (string, error) {
	var b strings.Builder
	found := false
	for _, block := range r.Content {
		if block.Type != "text" {
			continue
		}
		found = true
		b.WriteString(block.Text)
	}
	if !found {
		return "", ErrEmptyReply
	}
	return b.String(), nil
}

// ModelName returns the model name.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without spending tokens.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/v1/models", nil)
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
