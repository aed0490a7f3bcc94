package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/logger"
)

// Ensure FolderLoader implements the interface.
var _ DocumentLoader = (*FolderLoader)(nil)

// LoadResult is the outcome of reading one folder.
type LoadResult struct {
	// Documents are the normalised documents, in file name order.
	Documents []domain.Document

	// Files holds the path each document was read from; Files[i]
	// produced Documents[i].
	Files []string

	// Rejected lists files that could not be normalised.
	Rejected []string

	// Skipped lists files with no normaliser for their type. They are
	// left where they are.
	Skipped []string
}

// FolderLoader reads every supported file in a folder and normalises it.
type FolderLoader struct {
	reader   driven.FolderReader
	registry driven.NormaliserRegistry
}

// NewFolderLoader creates a loader.
func NewFolderLoader(reader driven.FolderReader, registry driven.NormaliserRegistry) *FolderLoader {
	return &FolderLoader{reader: reader, registry: registry}
}

// LoadFolder normalises the files in dir. A file that fails to normalise
// is logged and reported in Rejected; it never fails the whole load.
func (l *FolderLoader) LoadFolder(ctx context.Context, dir string) (*LoadResult, error) {
	raws, err := l.reader.ReadFolder(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", dir, err)
	}

	result := &LoadResult{}
	for i := range raws {
		raw := &raws[i]
		if !l.registry.Supports(raw.MIMEType) {
			logger.Debug("Skipping %s: no normaliser for %s", raw.URI, raw.MIMEType)
			result.Skipped = append(result.Skipped, raw.URI)
			continue
		}

		doc, err := l.normalise(ctx, raw)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Error("Rejecting %s: %v", raw.URI, err)
			result.Rejected = append(result.Rejected, raw.URI)
			continue
		}

		result.Documents = append(result.Documents, *doc)
		result.Files = append(result.Files, raw.URI)
	}

	logger.Debug("Loaded %d documents from %s (%d rejected, %d skipped)",
		len(result.Documents), dir, len(result.Rejected), len(result.Skipped))
	return result, nil
}

// LoadFiles normalises the given files. Unlike LoadFolder, an unsupported
// file type is an error the caller sees.
func (l *FolderLoader) LoadFiles(ctx context.Context, paths []string) (*LoadResult, error) {
	result := &LoadResult{}
	for _, path := range paths {
		raw, err := l.reader.ReadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		if !l.registry.Supports(raw.MIMEType) {
			return nil, fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedType, path, raw.MIMEType)
		}

		doc, err := l.normalise(ctx, raw)
		if err != nil {
			if errors.Is(err, domain.ErrMalformedRecord) {
				logger.Error("Rejecting %s: %v", path, err)
				result.Rejected = append(result.Rejected, path)
				continue
			}
			return nil, err
		}

		result.Documents = append(result.Documents, *doc)
		result.Files = append(result.Files, path)
	}
	return result, nil
}

func (l *FolderLoader) normalise(ctx context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	res, err := l.registry.Normalise(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &res.Document, nil
}
