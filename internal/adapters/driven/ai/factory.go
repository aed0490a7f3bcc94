// Package ai builds the embedding and generation services from settings
// and checks that they answer before the rest of the program relies on them.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

const pingTimeout = 5 * time.Second

// Providers are the model services of one run.
type Providers struct {
	Embedder  driven.EmbeddingService
	Generator driven.LLMService // nil when answers are unavailable
	Warnings  []string
}

func (p *Providers) Close() {
	if p.Embedder != nil {
		_ = p.Embedder.Close()
	}
	if p.Generator != nil {
		_ = p.Generator.Close()
	}
}

// Initialise connects both providers. The embedder is required because
// every index operation needs it. A missing or unreachable generator is
// only a warning so that ingestion and retrieval keep working.
func Initialise(ctx context.Context, embedding *domain.EmbeddingSettings, llm *domain.LLMSettings) (*Providers, error) {
	embedder, err := ConnectEmbedder(ctx, embedding)
	if err != nil {
		return nil, err
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: no embedding provider configured. Run 'recall settings' to check",
			domain.ErrEmbeddingUnavailable)
	}

	p := &Providers{Embedder: embedder}
	generator, err := ConnectGenerator(ctx, llm)
	switch {
	case err != nil:
		p.Warnings = append(p.Warnings, err.Error())
	case generator == nil:
		p.Warnings = append(p.Warnings, "no LLM provider configured, answers are unavailable")
	default:
		p.Generator = generator
	}
	return p, nil
}

// ConnectEmbedder builds the embedder and pings it.
func ConnectEmbedder(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := NewEmbedder(settings)
	return connect(ctx, svc, err, domain.ErrEmbeddingUnavailable, "embedding")
}

// ConnectGenerator builds the generator and pings it.
func ConnectGenerator(ctx context.Context, settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := NewGenerator(settings)
	return connect(ctx, svc, err, domain.ErrLLMUnavailable, "llm")
}

type service interface {
	Ping(ctx context.Context) error
	Close() error
}

// connect turns a build result into a reachable service. The zero S means
// no provider is configured.
func connect[S service](ctx context.Context, svc S, err error, sentinel error, section string) (S, error) {
	var none S
	if err != nil {
		return none, fmt.Errorf("%w: %w. Check the [%s] section of config.toml", sentinel, err, section)
	}
	if any(svc) == nil {
		return none, nil
	}
	if err := ping(ctx, svc); err != nil {
		_ = svc.Close()
		return none, fmt.Errorf("%w: service unreachable (%w). Check the [%s] section of config.toml",
			sentinel, err, section)
	}
	return svc, nil
}

func ping(ctx context.Context, svc service) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return fmt.Errorf("no reply within %s: %w", pingTimeout, err)
		}
		return err
	}
	return nil
}
