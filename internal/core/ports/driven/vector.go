package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// VectorIndex is the in-memory side of an index: chunks with embeddings,
// searchable by cosine similarity. Persisting them is IndexStore's job.
type VectorIndex interface {
	// Insert replaces chunks whose ID is already present. Every chunk
	// needs an embedding.
	Insert(ctx context.Context, chunks []domain.Chunk) error

	// Delete ignores unknown IDs.
	Delete(ctx context.Context, chunkID string) error

	// Search returns at most k hits, most similar first.
	Search(ctx context.Context, query []float32, k int) ([]VectorHit, error)

	Get(chunkID string) (domain.Chunk, bool)

	// Chunks is in insertion order.
	Chunks() []domain.Chunk
	Len() int
	Close() error
}

type VectorHit struct {
	ChunkID    string
	Similarity float64 // cosine
}
