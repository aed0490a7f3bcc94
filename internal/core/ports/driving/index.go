package driving

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// IndexService manages the lifecycle of a named document index.
type IndexService interface {
	// AddDocuments chunks, embeds, inserts and persists documents.
	// Returns the number of chunks inserted.
	AddDocuments(ctx context.Context, docs []domain.Document) (int, error)

	// RemoveBySourceID removes every chunk carrying the given source_id.
	// Returns the number of chunks removed; zero is not an error.
	RemoveBySourceID(ctx context.Context, sourceID string) (int, error)

	// Rebuild discards all persisted state and reloads the index from the
	// records in sourceFolder. Returns the number of chunks inserted.
	Rebuild(ctx context.Context, sourceFolder string) (int, error)

	// ListDocuments returns the metadata of every chunk keyed by chunk ID.
	ListDocuments(ctx context.Context) (map[string]map[string]any, error)

	// Stats summarises the index.
	Stats(ctx context.Context) (domain.IndexStats, error)
}
