// Package plaintext is the fallback normaliser for text formats no other
// normaliser claims. source_id is the file name and timestamp the
// modification time.
package plaintext

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"strings"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/normalisers"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// formats maps each handled MIME type to the "format" metadata value.
var formats = map[string]string{
	"text/plain":      "text",
	"text/csv":        "csv",
	"text/html":       "html",
	"text/yaml":       "yaml",
	"application/xml": "xml",
}

type Normaliser struct{}

func New() *Normaliser {
	return &Normaliser{}
}

func (n *Normaliser) SupportedMIMETypes() []string {
	return slices.Sorted(maps.Keys(formats))
}

// Priority is the lowest of the built-in normalisers.
func (n *Normaliser) Priority() int {
	return 5
}

// Normalise decodes the content as UTF-8, dropping a byte order mark and
// replacing invalid bytes. HTML is reduced to its text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	text := decode(raw.Content)
	format, ok := formats[raw.MIMEType]
	if !ok {
		format = "text"
	}
	if format == "html" {
		text = normalisers.HTMLText(text)
	}

	doc := normalisers.NewDocument(raw, text)
	doc.Metadata["format"] = format
	return &driven.NormaliseResult{Document: doc}, nil
}

func decode(b []byte) string {
	b = bytes.TrimPrefix(b, []byte("\ufeff"))
	s := strings.ToValidUTF8(string(b), "�")
	return strings.ReplaceAll(s, "\r\n", "\n")
}
