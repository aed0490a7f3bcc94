// Package record normalises JSON ingestion records.
//
// Two record shapes are accepted:
//
//	{"question": "...", "answer": "...", "source_id": "...", "timestamp": "..."}
//	{"information": "...", "source_id": "...", "timestamp": "..."}
//
// The legacy key email_id is read as source_id. Newlines inside text fields
// are collapsed to spaces.
package record

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/normalisers"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// LegacySourceIDKey is the record key older exports use for source_id.
const LegacySourceIDKey = "email_id"

const schemaJSON = `{
  "type": "object",
  "properties": {
    "question":    {"type": "string"},
    "answer":      {"type": "string"},
    "information": {"type": "string"},
    "source_id":   {"type": ["string", "number"]},
    "email_id":    {"type": ["string", "number"]},
    "timestamp":   {"type": ["string", "number"]}
  },
  "required": ["timestamp"],
  "allOf": [
    {"anyOf": [
      {"required": ["question", "answer"]},
      {"required": ["information"]}
    ]},
    {"anyOf": [
      {"required": ["source_id"]},
      {"required": ["email_id"]}
    ]}
  ]
}`

// Record is a decoded ingestion record.
type Record struct {
	Question    string          `json:"question"`
	Answer      string          `json:"answer"`
	Information string          `json:"information"`
	SourceID    json.RawMessage `json:"source_id"`
	EmailID     json.RawMessage `json:"email_id"`
	Timestamp   any             `json:"timestamp"`
}

// Text renders the record the way it is indexed.
func (r *Record) Text() string {
	if r.Question != "" || r.Answer != "" {
		return fmt.Sprintf("Q: %s\nA: %s", collapse(r.Question), collapse(r.Answer))
	}
	return "information: " + collapse(r.Information)
}

// ID returns source_id, falling back to email_id.
func (r *Record) ID() string {
	if id := rawScalar(r.SourceID); id != "" {
		return id
	}
	return rawScalar(r.EmailID)
}

// Normaliser handles JSON records.
type Normaliser struct {
	schema *gojsonschema.Schema
}

// New creates a record normaliser.
func New() (*Normaliser, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile record schema: %w", err)
	}
	return &Normaliser{schema: schema}, nil
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/json"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 80
}

// Normalise validates a JSON record and converts it to a document.
// Anything that is not one of the two record shapes yields
// domain.ErrMalformedRecord.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	rec, err := n.Decode(raw.Content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", raw.URI, err)
	}

	doc := normalisers.NewDocument(raw, rec.Text())
	doc.Metadata[domain.MetaSourceID] = rec.ID()
	doc.Metadata[domain.MetaTimestamp] = rec.Timestamp
	doc.Metadata["format"] = "record"

	return &driven.NormaliseResult{Document: doc}, nil
}

// Decode validates content against the record schema and decodes it.
func (n *Normaliser) Decode(content []byte) (*Record, error) {
	result, err := n.schema.Validate(gojsonschema.NewBytesLoader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedRecord, err)
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			errs = append(errs, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrMalformedRecord, strings.Join(errs, ", "))
	}

	var rec Record
	dec := json.NewDecoder(strings.NewReader(string(content)))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrMalformedRecord, err)
	}
	if n, ok := rec.Timestamp.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			rec.Timestamp = f
		}
	}
	return &rec, nil
}

func collapse(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
}

// rawScalar renders a JSON string or number as plain text.
func rawScalar(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if _, err := strconv.ParseFloat(string(raw), 64); err == nil {
		return string(raw)
	}
	return ""
}
