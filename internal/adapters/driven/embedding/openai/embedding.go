// Package openai embeds text with the OpenAI embeddings API.
package openai

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

// Defaults.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second

	fallbackDimensions = 1536
)

// Config configures the adapter. Only APIKey is required. Dimensions
// shortens the vectors of text-embedding-3 models; other models ignore it.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
	RateLimit  *ratelimit.Config // default ratelimit.OpenAI
}

type EmbeddingService struct {
	api        *apiclient.Client
	model      string
	dimensions int
}

type embeddingRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingList struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	model := cmp.Or(cfg.Model, DefaultModel)

	return &EmbeddingService{
		api: apiclient.New(apiclient.Options{
			Provider:    "openai",
			BaseURL:     cmp.Or(cfg.BaseURL, DefaultBaseURL),
			Header:      apiclient.Bearer(cfg.APIKey),
			Timeout:     cmp.Or(cfg.Timeout, DefaultTimeout),
			RateLimit:   ratelimit.OrDefault(cfg.RateLimit, ratelimit.OpenAI),
			Unavailable: domain.ErrEmbeddingUnavailable,
		}),
		model:      model,
		dimensions: cmp.Or(cfg.Dimensions, domain.KnownDimensions(model), fallbackDimensions),
	}, nil
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in one request. The reply may list vectors in any
// order; they are placed by their index.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := embeddingRequest{Model: s.model, Input: texts}
	if strings.HasPrefix(s.model, "text-embedding-3-") {
		req.Dimensions = s.dimensions
	}

	var list embeddingList
	if err := s.api.Post(ctx, "/embeddings", req, &list); err != nil {
		return nil, err
	}
	if len(list.Data) != len(texts) {
		return nil, fmt.Errorf("openai: %d embeddings returned for %d texts", len(list.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range list.Data {
		if d.Index < 0 || d.Index >= len(texts) || out[d.Index] != nil {
			return nil, fmt.Errorf("openai: unexpected embedding index %d", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

func (s *EmbeddingService) Dimensions() int { return s.dimensions }

func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists models, which checks the key without spending tokens.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/models", nil)
}

func (s *EmbeddingService) Close() error { return nil }
