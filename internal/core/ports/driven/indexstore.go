package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// IndexStore persists the snapshot of a single named index.
// Every mutation is applied as one atomic change set so that a crash never
// leaves a half-written snapshot behind.
type IndexStore interface {
	// ApplyChanges writes documents and chunk upserts and removes chunk and
	// document deletions in a single transaction.
	ApplyChanges(ctx context.Context, changes ChangeSet) error

	// LoadChunks returns every persisted chunk with its embedding,
	// ordered by insertion.
	LoadChunks(ctx context.Context) ([]domain.Chunk, error)

	// ListDocuments returns every persisted document.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// GetConfig returns the persisted index configuration.
	// Returns nil and no error if none has been saved.
	GetConfig(ctx context.Context) (*domain.IndexConfig, error)

	// SaveConfig persists the index configuration.
	SaveConfig(ctx context.Context, cfg domain.IndexConfig) error

	// Path returns where the snapshot lives.
	Path() string

	// Close releases resources.
	Close() error
}

// ChangeSet is one atomic mutation of an index snapshot.
type ChangeSet struct {
	// Documents are inserted or replaced.
	Documents []domain.Document

	// Upserts are chunks inserted or replaced.
	Upserts []domain.Chunk

	// Deletes are chunk IDs removed.
	Deletes []string

	// DeleteDocuments are document IDs removed.
	DeleteDocuments []string
}

// Empty reports whether the change set carries no work.
func (c ChangeSet) Empty() bool {
	return len(c.Documents) == 0 && len(c.Upserts) == 0 &&
		len(c.Deletes) == 0 && len(c.DeleteDocuments) == 0
}

// IndexStoreFactory opens the store backing a named index.
type IndexStoreFactory interface {
	// Open opens (creating if needed) the store at dir.
	// Existing but unreadable state yields domain.ErrStorageCorrupt.
	Open(ctx context.Context, dir string) (IndexStore, error)

	// Remove deletes all persisted state at dir.
	Remove(dir string) error
}
