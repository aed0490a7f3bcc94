// Package chatserver provides an LLM service adapter for a self-hosted chat
// endpoint that accepts the whole conversation and returns the decoded model
// output, prompt included.
package chatserver

import (
	"cmp"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/custodia-labs/recall/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/recall/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL = "http://localhost:8003"
	DefaultModel   = "chat"
	DefaultTimeout = 300 * time.Second
)

// assistantTurn matches each assistant segment of a templated transcript.
var assistantTurn = regexp.MustCompile(`(?s)<\|assistant\|>\s*(.*?)(?:<\|user\|>|$)`)

// Config holds configuration for the chat server.
type Config struct {
	// BaseURL is the server address; requests go to BaseURL + "/chat".
	BaseURL string

	// Model is a display name; the server decides which model runs.
	Model string

	// Timeout is the request timeout (default: 300s).
	Timeout time.Duration

	// RateLimit throttles requests (default: ratelimit.Local).
	RateLimit *ratelimit.Config
}

// LLMService talks to the chat server.
type LLMService struct {
	api   *apiclient.Client
	model string
}

type chatRequest struct {
	Prompt []domain.ChatMessage `json:"prompt"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// NewLLMService creates a chat server client.
func NewLLMService(cfg Config) *LLMService {
	return &LLMService{
		api: apiclient.New(apiclient.Options{
			Provider:    "chatserver",
			BaseURL:     cmp.Or(cfg.BaseURL, DefaultBaseURL),
			Timeout:     cmp.Or(cfg.Timeout, DefaultTimeout),
			RateLimit:   ratelimit.OrDefault(cfg.RateLimit, ratelimit.Local),
			Unavailable: domain.ErrLLMUnavailable,
		}),
		model: cmp.Or(cfg.Model, DefaultModel),
	}
}

// Chat posts the conversation and returns the last assistant turn of the
// reply. Generation options are decided server side and ignored here.
func (s *LLMService) Chat(ctx context.Context, messages []domain.ChatMessage, _ driven.ChatOptions) (string, error) {
	var out chatResponse
	if err := s.api.Post(ctx, "/chat", chatRequest{Prompt: messages}, &out); err != nil {
		return "", err
	}
	return ExtractReply(out.Response), nil
}

// ExtractReply returns the last assistant segment of a transcript, or the
// whole trimmed text when it carries no assistant markers.
func ExtractReply(transcript string) string {
	matches := assistantTurn.FindAllStringSubmatch(transcript, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(transcript)
	}
	return strings.TrimSpace(matches[len(matches)-1][1])
}

// ModelName returns the configured display name.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks the server answers HTTP at all. The endpoint only accepts POST,
// so any status below 500 counts as reachable.
func (s *LLMService) Ping(ctx context.Context) error {
	code, err := s.api.Probe(ctx, "/chat")
	if err != nil {
		return err
	}
	if code >= http.StatusInternalServerError {
		return fmt.Errorf("chatserver: server returned status %d", code)
	}
	return nil
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
