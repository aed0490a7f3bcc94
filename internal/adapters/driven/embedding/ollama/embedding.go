// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/recall/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/recall/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Defaults. DefaultDimensions matches nomic-embed-text.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 30 * time.Second
	DefaultDimensions = 768
)

// ErrDimensions is returned when the model's vectors differ from the
// configured size.
var ErrDimensions = errors.New("ollama: embedding size differs from configuration")

// Config configures the adapter. Dimensions must match the model.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
	RateLimit  *ratelimit.Config // default ratelimit.Ollama
}

type EmbeddingService struct {
	api        *apiclient.Client
	model      string
	dimensions int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedReply struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

func NewEmbeddingService(cfg Config) *EmbeddingService {
	return &EmbeddingService{
		api: apiclient.New(apiclient.Options{
			Provider:    "ollama",
			BaseURL:     cmp.Or(cfg.BaseURL, DefaultBaseURL),
			Timeout:     cmp.Or(cfg.Timeout, DefaultTimeout),
			RateLimit:   ratelimit.OrDefault(cfg.RateLimit, ratelimit.Ollama),
			Unavailable: domain.ErrEmbeddingUnavailable,
		}),
		model:      cmp.Or(cfg.Model, DefaultModel),
		dimensions: cmp.Or(cfg.Dimensions, DefaultDimensions),
	}
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds all texts in one /api/embed call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var out embedReply
	if err := s.api.Post(ctx, "/api/embed", embedRequest{Model: s.model, Input: texts}, &out); err != nil {
		return nil, err
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ollama: %s", out.Error)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: %d embeddings returned for %d texts", len(out.Embeddings), len(texts))
	}
	for i, v := range out.Embeddings {
		if len(v) != s.dimensions {
			return nil, fmt.Errorf("%w: got %d for text %d, configured %d",
				ErrDimensions, len(v), i, s.dimensions)
		}
	}
	return out.Embeddings, nil
}

func (s *EmbeddingService) Dimensions() int { return s.dimensions }

func (s *EmbeddingService) ModelName() string { return s.model }

// Ping checks the server is up and the model is pulled.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
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

func (s *EmbeddingService) Close() error { return nil }
