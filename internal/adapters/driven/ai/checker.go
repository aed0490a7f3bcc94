package ai

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

var _ driven.ProviderChecker = Checker{}

// Checker tries provider settings before they are saved. Unlike Connect*
// it closes the service again and reports the bare cause.
type Checker struct{}

func (Checker) CheckEmbedding(ctx context.Context, settings *domain.EmbeddingSettings) error {
	svc, err := NewEmbedder(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return ping(ctx, svc)
}

func (Checker) CheckLLM(ctx context.Context, settings *domain.LLMSettings) error {
	svc, err := NewGenerator(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return ping(ctx, svc)
}
