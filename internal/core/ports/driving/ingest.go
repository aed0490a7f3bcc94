package driving

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// IngestService feeds files into the index.
type IngestService interface {
	// IngestStaging indexes every supported file in the staging folder and
	// moves the processed files to the in-database folder.
	IngestStaging(ctx context.Context) (domain.IngestReport, error)

	// IngestFiles indexes the given files in place.
	IngestFiles(ctx context.Context, paths []string) (domain.IngestReport, error)
}
