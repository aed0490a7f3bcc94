package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// RejectedDirName is the staging subdirectory malformed files are moved to.
const RejectedDirName = "rejected"

// FileLoader loads documents from a folder or from explicit files.
type FileLoader interface {
	DocumentLoader
	LoadFiles(ctx context.Context, paths []string) (*LoadResult, error)
}

// IngestService moves records from the staging folder into the index.
type IngestService struct {
	index      driving.IndexService
	loader     FileLoader
	stagingDir string
	archiveDir string

	// mu keeps the poller and manual ingests from reading the same files.
	mu sync.Mutex
}

// NewIngestService creates an ingest service. Files in stagingDir are
// moved to archiveDir once their documents are persisted.
func NewIngestService(index driving.IndexService, loader FileLoader, stagingDir, archiveDir string) *IngestService {
	return &IngestService{
		index:      index,
		loader:     loader,
		stagingDir: stagingDir,
		archiveDir: archiveDir,
	}
}

// StagingDir returns the folder polled for new files.
func (s *IngestService) StagingDir() string {
	return s.stagingDir
}

// IngestStaging indexes every supported file in the staging folder.
// Files are moved to the archive folder only after AddDocuments
// succeeded, so a failed run leaves them in place for the next poll and
// the archive always reproduces the index on Rebuild. Malformed files are
// moved aside into the rejected subfolder.
func (s *IngestService) IngestStaging(ctx context.Context) (domain.IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.stagingDir, 0o750); err != nil {
		return domain.IngestReport{}, fmt.Errorf("create staging folder: %w", err)
	}

	loaded, err := s.loader.LoadFolder(ctx, s.stagingDir)
	if err != nil {
		return domain.IngestReport{}, err
	}

	report := domain.IngestReport{
		Files:     len(loaded.Files) + len(loaded.Rejected),
		Documents: len(loaded.Documents),
	}

	if len(loaded.Rejected) > 0 {
		rejectedDir := filepath.Join(s.stagingDir, RejectedDirName)
		for _, path := range loaded.Rejected {
			if _, err := moveFile(path, rejectedDir); err != nil {
				logger.Error("Moving rejected file %s: %v", path, err)
			}
		}
		report.Rejected = loaded.Rejected
	}

	if len(loaded.Documents) == 0 {
		return report, nil
	}

	logger.Info("Ingesting %d documents from %s", len(loaded.Documents), s.stagingDir)
	chunks, err := s.index.AddDocuments(ctx, loaded.Documents)
	if err != nil {
		return report, fmt.Errorf("add documents: %w", err)
	}
	report.Chunks = chunks

	var moveErrs []error
	for _, path := range loaded.Files {
		dest, err := moveFile(path, s.archiveDir)
		if err != nil {
			moveErrs = append(moveErrs, err)
			continue
		}
		logger.Debug("Moved %s to %s", path, dest)
		report.Moved = append(report.Moved, dest)
	}
	if len(moveErrs) > 0 {
		// The documents are indexed; a later poll would index them twice.
		return report, fmt.Errorf("archive processed files: %w", errors.Join(moveErrs...))
	}

	return report, nil
}

// IngestFiles indexes the given files without moving them.
func (s *IngestService) IngestFiles(ctx context.Context, paths []string) (domain.IngestReport, error) {
	if len(paths) == 0 {
		return domain.IngestReport{}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded, err := s.loader.LoadFiles(ctx, paths)
	if err != nil {
		return domain.IngestReport{}, err
	}

	report := domain.IngestReport{
		Files:     len(paths),
		Documents: len(loaded.Documents),
		Rejected:  loaded.Rejected,
	}
	if len(loaded.Documents) == 0 {
		return report, nil
	}

	chunks, err := s.index.AddDocuments(ctx, loaded.Documents)
	if err != nil {
		return report, fmt.Errorf("add documents: %w", err)
	}
	report.Chunks = chunks
	return report, nil
}

// moveFile renames path into dir, keeping its base name, and returns the
// new path. An existing file of the same name is replaced.
func moveFile(path, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return "", fmt.Errorf("move %s: %w", path, err)
	}
	return dest, nil
}
