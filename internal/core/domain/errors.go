package domain

import "errors"

// Request and configuration errors. Surfaces map these to user-facing
// statuses, so wrap them with %w rather than replacing them.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrNotConfigured   = errors.New("not configured")
	ErrUnsupportedType = errors.New("unsupported type")

	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable blocks both indexing and retrieval.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")
)

// Index errors.
var (
	// ErrEmptyDocument is skipped per document; the rest of the batch goes on.
	ErrEmptyDocument = errors.New("document has no text")

	// ErrStorageCorrupt means persisted state exists but cannot be read. It is
	// never recreated over.
	ErrStorageCorrupt = errors.New("index storage corrupt")

	// ErrPersistenceFailed is returned after the in-memory index was reloaded
	// from storage.
	ErrPersistenceFailed = errors.New("index persistence failed")

	ErrWindowSizeDrift = errors.New("window size differs from persisted index")
	ErrEmbeddingDrift  = errors.New("embedding model differs from persisted index")
	ErrIndexClosed     = errors.New("index closed")
)

var (
	ErrMalformedRecord  = errors.New("malformed record")
	ErrGenerationFailed = errors.New("generation failed")
)
