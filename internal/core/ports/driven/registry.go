package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// NormaliserRegistry dispatches a raw document on its MIME type to the
// registered normaliser with the highest priority.
type NormaliserRegistry interface {
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
	Register(normaliser Normaliser)
	Supports(mimeType string) bool
	SupportedMIMETypes() []string
}
