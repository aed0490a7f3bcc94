package domain

import "sort"

// SourceSummary groups the chunks of one source_id.
type SourceSummary struct {
	SourceID string `json:"source_id"`
	Chunks   int    `json:"chunks"`

	// Latest is the greatest timestamp among the chunks, in text order.
	Latest string `json:"latest,omitempty"`
}

// MetadataString renders a metadata value as text. Missing and nil
// values yield "".
func MetadataString(m map[string]any, key string) string {
	s, _ := metaString(m, key)
	return s
}

// SummariseSources groups a chunk listing by source_id, ordered by
// source_id. Chunks without a source_id share the "" group.
func SummariseSources(listing map[string]map[string]any) []SourceSummary {
	bySource := make(map[string]*SourceSummary)
	for _, meta := range listing {
		sourceID := MetadataString(meta, MetaSourceID)
		summary, ok := bySource[sourceID]
		if !ok {
			summary = &SourceSummary{SourceID: sourceID}
			bySource[sourceID] = summary
		}
		summary.Chunks++
		if ts := MetadataString(meta, MetaTimestamp); ts > summary.Latest {
			summary.Latest = ts
		}
	}

	out := make([]SourceSummary, 0, len(bySource))
	for _, s := range bySource {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out
}
