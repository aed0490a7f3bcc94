// Package recency provides the timestamp reranker node processor.
//
// Candidates are ordered newest first and deduplicated by source_id so that
// a single long record cannot crowd every slot of the generator's context.
package recency

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/logger"
)

// DefaultTopN is the number of nodes kept after reranking.
const DefaultTopN = domain.DefaultRerankTopN

// isoLayout matches YYYY-MM-DDTHH:MM:SS; a fractional second is accepted
// on parse without being named in the layout.
const isoLayout = "2006-01-02T15:04:05"

// MissingIDPolicy decides how candidates without a source_id are deduplicated.
type MissingIDPolicy int

const (
	// MissingIDDistinct treats every candidate without a source_id as unique.
	MissingIDDistinct MissingIDPolicy = iota

	// MissingIDShared collapses all candidates without a source_id onto one
	// key, so at most one of them survives.
	MissingIDShared
)

// Processor sorts nodes by timestamp and keeps the newest per source.
type Processor struct {
	topN   int
	policy MissingIDPolicy
}

// Option configures the recency processor.
type Option func(*Processor)

// WithTopN sets how many nodes are kept. Zero or less keeps every unique node.
func WithTopN(n int) Option {
	return func(p *Processor) {
		p.topN = n
	}
}

// WithMissingIDPolicy sets the dedup policy for nodes without a source_id.
func WithMissingIDPolicy(policy MissingIDPolicy) Option {
	return func(p *Processor) {
		p.policy = policy
	}
}

// New creates a recency processor.
func New(opts ...Option) *Processor {
	p := &Processor{topN: DefaultTopN, policy: MissingIDDistinct}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "recency"
}

// TopN returns the configured limit.
func (p *Processor) TopN() int {
	return p.topN
}

// PostprocessNodes stable-sorts nodes by descending timestamp, then walks the
// sorted list keeping the first node seen per source_id until topN are kept.
func (p *Processor) PostprocessNodes(_ context.Context, nodes []domain.ScoredChunk, _ string) ([]domain.ScoredChunk, error) {
	return p.rerank(nodes), nil
}

// Rerank applies the processor to candidates of either variant and returns
// the same variant.
func (p *Processor) Rerank(c domain.Candidates) domain.Candidates {
	return c.WithNodes(p.rerank(c.Nodes()))
}

type dedupKey struct {
	id   string
	slot int
}

func (p *Processor) rerank(nodes []domain.ScoredChunk) []domain.ScoredChunk {
	type entry struct {
		node domain.ScoredChunk
		ts   float64
	}

	entries := make([]entry, len(nodes))
	for i, n := range nodes {
		entries[i] = entry{node: n, ts: Timestamp(n.Chunk.Metadata)}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ts > entries[j].ts
	})

	out := make([]domain.ScoredChunk, 0, min(len(entries), max(p.topN, 0)))
	seen := make(map[dedupKey]struct{}, len(entries))
	for i, e := range entries {
		key := p.key(e.node.Chunk, i)
		if _, dup := seen[key]; !dup {
			seen[key] = struct{}{}
			out = append(out, e.node)
			logger.Debug("recency: kept %s (ts=%.0f)", e.node.Chunk.ID, e.ts)
		}
		if p.topN > 0 && len(out) == p.topN {
			break
		}
	}
	return out
}

func (p *Processor) key(c domain.Chunk, i int) dedupKey {
	if id, ok := c.SourceID(); ok {
		return dedupKey{id: id}
	}
	if p.policy == MissingIDShared {
		return dedupKey{slot: 1}
	}
	return dedupKey{slot: i + 2}
}

// Timestamp extracts the sort key of a node from its metadata, in epoch
// seconds. The window entry's timestamp wins when it is set; otherwise the
// direct timestamp entry is used. Numeric values are taken as epoch seconds,
// strings are parsed as numbers first and then as ISO-8601 without offset
// (a trailing Z is dropped and the time read as UTC). Anything else is 0.
func Timestamp(meta map[string]any) float64 {
	var ts any
	if w, ok := domain.ParseWindow(meta[domain.MetaWindow]); ok {
		ts = w.Timestamp
	}
	if !truthy(ts) {
		ts = meta[domain.MetaTimestamp]
	}
	if ts == nil || ts == "" {
		return 0
	}

	if f, ok := toFloat(ts); ok {
		return f
	}

	s, ok := ts.(string)
	if !ok {
		return 0
	}
	s = strings.TrimSuffix(s, "Z")
	t, err := time.Parse(isoLayout, s)
	if err != nil {
		return 0
	}
	return float64(t.UnixNano()) / float64(time.Second)
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case bool:
		return val
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case json.Number:
		f, err := val.Float64()
		return err != nil || f != 0
	default:
		return true
	}
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case bool:
		if val {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
