// Package flat provides an exact, in-memory vector index.
//
// Search is brute-force cosine similarity over every stored chunk. That is
// exact and fast enough for the tens of thousands of sentence windows a
// single mailbox or notes folder produces.
package flat

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	chunk domain.Chunk
	norm  float64
}

// Index is a brute-force cosine similarity index.
// Safe for concurrent use; searches share a read lock.
type Index struct {
	mu         sync.RWMutex
	dimensions int
	entries    []entry
	byID       map[string]int
	closed     bool
}

// New creates an empty index. A dimensions value of zero adopts the size of
// the first inserted embedding.
func New(dimensions int) *Index {
	return &Index{
		dimensions: dimensions,
		byID:       make(map[string]int),
	}
}

// Dimensions returns the vector size, zero while still unknown.
func (x *Index) Dimensions() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.dimensions
}

// Insert adds chunks, replacing any with the same ID in place. The batch
// is all or nothing: one invalid embedding rejects every chunk.
func (x *Index) Insert(_ context.Context, chunks []domain.Chunk) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return domain.ErrIndexClosed
	}

	dims := x.dimensions
	for i := range chunks {
		c := &chunks[i]
		if len(c.Embedding) == 0 {
			return fmt.Errorf("chunk %s: missing embedding: %w", c.ID, domain.ErrInvalidInput)
		}
		if dims == 0 {
			dims = len(c.Embedding)
		}
		if len(c.Embedding) != dims {
			return fmt.Errorf("chunk %s: dimension %d, index has %d: %w",
				c.ID, len(c.Embedding), dims, domain.ErrInvalidInput)
		}
	}
	x.dimensions = dims

	for i := range chunks {
		c := chunks[i]
		e := entry{chunk: c, norm: norm(c.Embedding)}
		if pos, ok := x.byID[c.ID]; ok {
			x.entries[pos] = e
			continue
		}
		x.byID[c.ID] = len(x.entries)
		x.entries = append(x.entries, e)
	}
	return nil
}

// Delete removes a chunk. Unknown IDs are ignored.
func (x *Index) Delete(_ context.Context, chunkID string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.closed {
		return domain.ErrIndexClosed
	}

	pos, ok := x.byID[chunkID]
	if !ok {
		return nil
	}
	x.entries = append(x.entries[:pos], x.entries[pos+1:]...)
	delete(x.byID, chunkID)
	for i := pos; i < len(x.entries); i++ {
		x.byID[x.entries[i].chunk.ID] = i
	}
	return nil
}

// Search returns the k most similar chunks, highest similarity first.
// Equal similarities keep insertion order.
func (x *Index) Search(_ context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.closed {
		return nil, domain.ErrIndexClosed
	}
	if k <= 0 || len(x.entries) == 0 {
		return nil, nil
	}
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("query dimension %d, index has %d: %w",
			len(query), x.dimensions, domain.ErrInvalidInput)
	}

	qnorm := norm(query)
	hits := make([]driven.VectorHit, len(x.entries))
	for i, e := range x.entries {
		hits[i] = driven.VectorHit{
			ChunkID:    e.chunk.ID,
			Similarity: cosine(query, e.chunk.Embedding, qnorm, e.norm),
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Similarity > hits[j].Similarity
	})

	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Get returns a chunk by ID.
func (x *Index) Get(chunkID string) (domain.Chunk, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	pos, ok := x.byID[chunkID]
	if !ok {
		return domain.Chunk{}, false
	}
	return x.entries[pos].chunk, true
}

// Chunks returns every chunk in insertion order.
func (x *Index) Chunks() []domain.Chunk {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]domain.Chunk, len(x.entries))
	for i, e := range x.entries {
		out[i] = e.chunk
	}
	return out
}

// Len returns the number of chunks held.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries)
}

// Close drops all chunks. Further calls fail with domain.ErrIndexClosed.
func (x *Index) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.closed = true
	x.entries = nil
	x.byID = make(map[string]int)
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (na * nb)
}
