package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Metadata keys understood by the index, the chunker and the reranker.
const (
	// MetaSourceID identifies the originating record. Deletion and
	// deduplication are keyed on it.
	MetaSourceID = "source_id"

	// MetaTimestamp is the record time, ISO-8601 or epoch seconds.
	MetaTimestamp = "timestamp"

	// MetaWindow holds the JSON encoded sentence window of a chunk.
	MetaWindow = "window"

	// MetaOriginalSentence holds the focal sentence of a chunk.
	MetaOriginalSentence = "original_sentence"

	// MetaDocumentID links a chunk back to its document.
	MetaDocumentID = "document_id"

	// MetaPosition is the chunk ordinal within its document.
	MetaPosition = "position"

	// MetaFileName is the staging file the document was read from.
	MetaFileName = "file_name"
)

// Document represents a normalised record.
// Documents are immutable once indexed; an update is a delete plus a re-insert.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location (file path, URL, etc).
	URI string

	// Content is the full text content after normalisation.
	// This is the complete document text before chunking.
	Content string

	// Metadata contains scalar key-value pairs.
	// Recognised keys are source_id and timestamp.
	Metadata map[string]any

	// CreatedAt is when the document was first indexed.
	CreatedAt time.Time
}

// SourceID returns the document's source_id metadata value.
func (d *Document) SourceID() (string, bool) {
	return metaString(d.Metadata, MetaSourceID)
}

// Chunk represents a sentence-window node within a document.
// Every chunk traces to exactly one document.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the focal sentence of this chunk.
	Content string

	// Position is the ordinal position within the document.
	Position int

	// Embedding is the vector representation for semantic search.
	Embedding []float32

	// Metadata contains the inherited document metadata plus the
	// window and original_sentence entries.
	Metadata map[string]any
}

// SourceID returns the chunk's source_id metadata value.
func (c *Chunk) SourceID() (string, bool) {
	return metaString(c.Metadata, MetaSourceID)
}

// Window decodes the chunk's window metadata.
// Returns false when the entry is missing or not valid JSON.
func (c *Chunk) Window() (Window, bool) {
	return ParseWindow(c.Metadata[MetaWindow])
}

// Window is the context attached to a chunk: the focal sentence plus its
// neighbours, and the timestamp of the owning document.
type Window struct {
	Text      string `json:"text"`
	Timestamp any    `json:"timestamp"`
}

// Encode renders the window as the JSON string stored in chunk metadata.
func (w Window) Encode() (string, error) {
	b, err := json.Marshal(w)
	if err != nil {
		return "", fmt.Errorf("encode window: %w", err)
	}
	return string(b), nil
}

// ParseWindow decodes a window metadata value.
// The value may be a JSON string or an already decoded map.
func ParseWindow(v any) (Window, bool) {
	var w Window
	switch val := v.(type) {
	case string:
		if val == "" {
			return w, false
		}
		if err := json.Unmarshal([]byte(val), &w); err != nil {
			return Window{}, false
		}
		return w, true
	case map[string]any:
		if text, ok := val["text"].(string); ok {
			w.Text = text
		}
		w.Timestamp = val["timestamp"]
		return w, true
	default:
		return w, false
	}
}

// CopyMetadata returns a shallow copy of m. A nil map yields an empty map.
func CopyMetadata(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+4)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func metaString(m map[string]any, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		// JSON numbers decode as float64; keep integral ids readable.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val)), true
		}
		return fmt.Sprint(val), true
	default:
		return fmt.Sprint(val), true
	}
}
