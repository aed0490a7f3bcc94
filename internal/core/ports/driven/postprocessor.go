package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// PostProcessor is one ingest-side stage. The first stage of a chain gets
// nil chunks and produces them from the document; later stages refine.
type PostProcessor interface {
	Name() string
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline turns a document into its chunks.
type PostProcessorPipeline interface {
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}

// NodePostProcessor is one query-side stage over retrieved nodes, such as
// window substitution or reranking. It returns new nodes and leaves the
// chunks of its input untouched.
type NodePostProcessor interface {
	Name() string
	PostprocessNodes(ctx context.Context, nodes []domain.ScoredChunk, query string) ([]domain.ScoredChunk, error)
}

// NodePostProcessorPipeline runs the query-side stages. The result has the
// same variant as the candidates it was given.
type NodePostProcessorPipeline interface {
	Postprocess(ctx context.Context, candidates domain.Candidates, query string) (domain.Candidates, error)
}
