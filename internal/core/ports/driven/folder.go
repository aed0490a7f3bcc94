package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// FolderReader reads ingestion files from the local filesystem.
type FolderReader interface {
	// ReadFolder returns every visible regular file directly inside dir,
	// ordered by file name. Subdirectories are not descended into.
	ReadFolder(ctx context.Context, dir string) ([]domain.RawDocument, error)

	// ReadFile reads a single file.
	ReadFile(ctx context.Context, path string) (*domain.RawDocument, error)
}
