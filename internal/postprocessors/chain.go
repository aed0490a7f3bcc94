// Package postprocessors assembles the processor chains run at ingest time
// (document to chunks) and at query time (retrieved nodes to final nodes).
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

var (
	_ driven.PostProcessorPipeline     = (*Ingest)(nil)
	_ driven.NodePostProcessorPipeline = (*Query)(nil)
)

// Ingest runs chunking processors in order. The first stage receives nil
// chunks and creates them; later stages rewrite what they are given.
type Ingest struct {
	stages []driven.PostProcessor
}

func NewIngest(stages ...driven.PostProcessor) *Ingest {
	return &Ingest{stages: stages}
}

func (c *Ingest) Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", domain.ErrInvalidInput)
	}
	var chunks []domain.Chunk
	for _, stage := range c.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var err error
		if chunks, err = stage.Process(ctx, doc, chunks); err != nil {
			return nil, stageError(stage, err)
		}
	}
	return chunks, nil
}

func (c *Ingest) Names() []string { return names(c.stages) }

// Query runs node processors over retrieved candidates. The candidate
// variant is resolved once and the result keeps the variant it came in.
type Query struct {
	stages []driven.NodePostProcessor
}

func NewQuery(stages ...driven.NodePostProcessor) *Query {
	return &Query{stages: stages}
}

func (c *Query) Postprocess(ctx context.Context, in domain.Candidates, query string) (domain.Candidates, error) {
	nodes := in.Nodes()
	for _, stage := range c.stages {
		var err error
		if nodes, err = stage.PostprocessNodes(ctx, nodes, query); err != nil {
			return domain.Candidates{}, stageError(stage, err)
		}
	}
	return in.WithNodes(nodes), nil
}

func (c *Query) Names() []string { return names(c.stages) }

type named interface{ Name() string }

func names[S named](stages []S) []string {
	out := make([]string, len(stages))
	for i, s := range stages {
		out[i] = s.Name()
	}
	return out
}

func stageError(stage named, err error) error {
	return fmt.Errorf("processor %s: %w", stage.Name(), err)
}
