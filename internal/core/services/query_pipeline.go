package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/logger"
)

// QueryPipeline answers similarity queries against one snapshot of an
// index handle. It is derived state: the IndexManager replaces it after
// every mutation and never modifies a published pipeline.
type QueryPipeline struct {
	index      string
	handle     driven.VectorIndex
	embedder   driven.EmbeddingService
	chain      driven.NodePostProcessorPipeline
	topK       int
	generation uint64
	metrics    driven.MetricsRecorder
}

// TopK returns the number of neighbours fetched before post-processing.
func (p *QueryPipeline) TopK() int {
	return p.topK
}

// Generation increases every time the owning manager publishes a pipeline.
func (p *QueryPipeline) Generation() uint64 {
	return p.generation
}

// Retrieve embeds the query, fetches the top-k most similar chunks and runs
// them through the post-processor chain (window text substitution, then
// recency rerank with source dedup).
func (p *QueryPipeline) Retrieve(ctx context.Context, query string) ([]domain.ScoredChunk, error) {
	start := time.Now()
	nodes, err := p.search(ctx, query)
	if err != nil {
		return nil, err
	}

	out, err := p.chain.Postprocess(ctx, domain.CollectionOf(nodes), query)
	if err != nil {
		return nil, fmt.Errorf("post-process: %w", err)
	}

	p.metrics.ObserveRetrieval(p.index, time.Since(start))
	return out.Nodes(), nil
}

// Query is Retrieve for callers that want the wrapped response shape.
// The returned candidates are of kind domain.CandidatesWrapped.
func (p *QueryPipeline) Query(ctx context.Context, query string) (domain.Candidates, error) {
	start := time.Now()
	nodes, err := p.search(ctx, query)
	if err != nil {
		return domain.Candidates{}, err
	}

	out, err := p.chain.Postprocess(ctx, domain.WrappedOf(&domain.QueryResponse{SourceNodes: nodes}), query)
	if err != nil {
		return domain.Candidates{}, fmt.Errorf("post-process: %w", err)
	}

	p.metrics.ObserveRetrieval(p.index, time.Since(start))
	return out, nil
}

func (p *QueryPipeline) search(ctx context.Context, query string) ([]domain.ScoredChunk, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return nil, nil
	}
	if p.handle.Len() == 0 {
		return nil, nil
	}

	vector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}

	hits, err := p.handle.Search(ctx, vector, p.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	nodes := make([]domain.ScoredChunk, 0, len(hits))
	for _, hit := range hits {
		chunk, ok := p.handle.Get(hit.ChunkID)
		if !ok {
			// Deleted between search and lookup.
			continue
		}
		nodes = append(nodes, domain.ScoredChunk{Chunk: chunk, Score: hit.Similarity})
	}

	logger.Debug("Index %q: %d candidates for %q", p.index, len(nodes), query)
	return nodes, nil
}
