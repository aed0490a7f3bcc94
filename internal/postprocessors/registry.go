package postprocessors

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// ErrUnknownProcessor is returned when a chain names a processor that is
// not registered for its side.
var ErrUnknownProcessor = errors.New("unknown processor")

// BuilderFunc creates an ingest processor from its config table.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// NodeBuilderFunc creates a query processor from its config table.
type NodeBuilderFunc func(cfg map[string]any) (driven.NodePostProcessor, error)

// Registry builds both chains by processor name. It is filled once at
// startup and read-only afterwards.
type Registry struct {
	ingest map[string]BuilderFunc
	query  map[string]NodeBuilderFunc
}

func NewRegistry() *Registry {
	return &Registry{
		ingest: map[string]BuilderFunc{},
		query:  map[string]NodeBuilderFunc{},
	}
}

// Register adds an ingest processor. A later registration under the same
// name replaces the earlier one.
func (r *Registry) Register(name string, b BuilderFunc) { r.ingest[name] = b }

// RegisterNode adds a query processor.
func (r *Registry) RegisterNode(name string, b NodeBuilderFunc) { r.query[name] = b }

// Ingest builds the chunking chain described by cfg.
func (r *Registry) Ingest(cfg domain.PipelineConfig) (*Ingest, error) {
	stages, err := build(r.ingest, "ingest", cfg)
	if err != nil {
		return nil, err
	}
	return NewIngest(stages...), nil
}

// Query builds the retrieval chain described by cfg.
func (r *Registry) Query(cfg domain.PipelineConfig) (*Query, error) {
	stages, err := build(r.query, "query", cfg)
	if err != nil {
		return nil, err
	}
	return NewQuery(stages...), nil
}

// Names lists every registered processor of either side, sorted.
func (r *Registry) Names() []string {
	all := slices.Collect(maps.Keys(r.ingest))
	all = slices.AppendSeq(all, maps.Keys(r.query))
	slices.Sort(all)
	return slices.Compact(all)
}

func build[P any, B ~func(map[string]any) (P, error)](builders map[string]B, side string, cfg domain.PipelineConfig) ([]P, error) {
	stages := make([]P, 0, len(cfg.Processors))
	for _, name := range cfg.Processors {
		b, ok := builders[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s processor %q", ErrUnknownProcessor, side, name)
		}
		p, err := b(cfg.OptionsFor(name))
		if err != nil {
			return nil, fmt.Errorf("building %s: %w", name, err)
		}
		stages = append(stages, p)
	}
	return stages, nil
}
