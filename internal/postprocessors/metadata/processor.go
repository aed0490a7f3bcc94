// Package metadata provides the metadata replacement node processor.
package metadata

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// Processor replaces each node's text with a metadata entry.
// With the default target key the focal sentence is swapped for its
// surrounding sentence window.
type Processor struct {
	targetKey string
}

// Option configures the metadata replacement processor.
type Option func(*Processor)

// WithTargetKey sets the metadata key whose value replaces the node text.
func WithTargetKey(key string) Option {
	return func(p *Processor) {
		if key != "" {
			p.targetKey = key
		}
	}
}

// New creates a metadata replacement processor.
func New(opts ...Option) *Processor {
	p := &Processor{targetKey: domain.MetaWindow}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "metadata_replacement"
}

// TargetKey returns the metadata key used for replacement.
func (p *Processor) TargetKey() string {
	return p.targetKey
}

// PostprocessNodes returns copies of the nodes with their text replaced.
// Window entries contribute their text field; other string entries are used
// verbatim. Nodes without the key keep their text.
func (p *Processor) PostprocessNodes(_ context.Context, nodes []domain.ScoredChunk, _ string) ([]domain.ScoredChunk, error) {
	out := make([]domain.ScoredChunk, len(nodes))
	for i, n := range nodes {
		out[i] = n
		if text, ok := p.replacement(n.Chunk); ok {
			out[i].Chunk.Content = text
		}
	}
	return out, nil
}

func (p *Processor) replacement(c domain.Chunk) (string, bool) {
	v, ok := c.Metadata[p.targetKey]
	if !ok {
		return "", false
	}
	if p.targetKey == domain.MetaWindow {
		if w, ok := domain.ParseWindow(v); ok {
			return w.Text, true
		}
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return "", false
}
