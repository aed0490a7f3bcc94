// Package window provides the sentence-window chunking processor.
//
// Each sentence of a document becomes one chunk. The chunk carries the
// sentence itself as its text and, in metadata, the surrounding window of
// sentences so that retrieval can match on a single sentence while the
// generator is handed the wider context.
package window

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// DefaultWindowSize is the number of neighbouring sentences kept on each side.
const DefaultWindowSize = domain.DefaultWindowSize

// Processor splits document content into sentence-window chunks.
// It implements the PostProcessor interface.
type Processor struct {
	windowSize int
}

// Option configures the window processor.
type Option func(*Processor)

// WithWindowSize sets the number of sentences on each side of the focal sentence.
func WithWindowSize(size int) Option {
	return func(p *Processor) {
		if size >= 0 {
			p.windowSize = size
		}
	}
}

// New creates a new window processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		windowSize: DefaultWindowSize,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "window"
}

// WindowSize returns the configured window size.
func (p *Processor) WindowSize() int {
	return p.windowSize
}

// Process splits the document content into one chunk per sentence.
// Input chunks are ignored; this processor creates new chunks from document content.
// A document without any sentence yields domain.ErrEmptyDocument.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	sentences := SplitSentences(doc.Content)
	if len(sentences) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	timestamp := doc.Metadata[domain.MetaTimestamp]
	chunks := make([]domain.Chunk, 0, len(sentences))

	for i, sentence := range sentences {
		lo := max(0, i-p.windowSize)
		hi := min(len(sentences), i+p.windowSize+1)

		w := domain.Window{
			Text:      strings.Join(sentences[lo:hi], " "),
			Timestamp: timestamp,
		}
		encoded, err := w.Encode()
		if err != nil {
			return nil, fmt.Errorf("sentence %d: %w", i, err)
		}

		meta := domain.CopyMetadata(doc.Metadata)
		meta[domain.MetaWindow] = encoded
		meta[domain.MetaOriginalSentence] = sentence
		meta[domain.MetaDocumentID] = doc.ID
		meta[domain.MetaPosition] = i

		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Content:    sentence,
			Position:   i,
			Metadata:   meta,
		})
	}

	return chunks, nil
}

// SplitSentences splits text on sentence terminators (. ! ?) and line breaks.
// A terminator only ends a sentence when followed by whitespace or the end of
// the text, so decimals and dotted names stay intact. Sentences are trimmed
// and empty ones dropped. Terminators stay attached to their sentence.
func SplitSentences(text string) []string {
	var (
		sentences []string
		current   strings.Builder
	)

	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\n' || r == '\r' {
			flush()
			continue
		}

		current.WriteRune(r)
		if !isTerminator(r) {
			continue
		}

		// Absorb runs like "?!" or "..." into the same sentence.
		for i+1 < len(runes) && isTerminator(runes[i+1]) {
			i++
			current.WriteRune(runes[i])
		}
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			flush()
		}
	}
	flush()

	return sentences
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
