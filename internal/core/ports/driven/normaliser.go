package driven

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// Normaliser turns the bytes of a staged file into a document.
type Normaliser interface {
	SupportedMIMETypes() []string

	// Priority orders normalisers claiming the same MIME type, highest
	// first. Format parsers use 50 to 89, plain text fallbacks 1 to 9.
	Priority() int

	// Normalise fails with domain.ErrMalformedRecord on structurally
	// invalid input.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)
}

// NormaliseResult carries the document with Content set. Chunking happens
// later, in the post-processor pipeline.
type NormaliseResult struct {
	Document domain.Document
}
