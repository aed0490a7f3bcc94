package normalisers

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// TimestampLayout is how normalisers render times in document metadata.
// It is the ISO-8601 form the recency reranker parses.
const TimestampLayout = "2006-01-02T15:04:05Z"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// NewDocument builds a document for raw carrying the loader metadata plus
// the given content. source_id defaults to the file name and timestamp to
// the file modification time; callers override either afterwards.
func NewDocument(raw *domain.RawDocument, content string) domain.Document {
	meta := domain.CopyMetadata(raw.Metadata)
	meta["mime_type"] = raw.MIMEType

	name, _ := meta[domain.MetaFileName].(string)
	if name == "" {
		name = filepath.Base(raw.URI)
		meta[domain.MetaFileName] = name
	}
	meta[domain.MetaSourceID] = name
	if !raw.ModTime.IsZero() {
		meta[domain.MetaTimestamp] = FormatTimestamp(raw.ModTime)
	}

	return domain.Document{
		ID:        uuid.New().String(),
		URI:       raw.URI,
		Content:   content,
		Metadata:  meta,
		CreatedAt: time.Now(),
	}
}
