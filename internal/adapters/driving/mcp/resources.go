package mcp

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/recall/internal/core/domain"
)

const (
	chunksURI       = "recall://chunks"
	sourceURIPrefix = "recall://sources/"
	sourceURISuffix = "/chunks"
)

type chunkInfo struct {
	ID        string `json:"id"`
	SourceID  string `json:"source_id"`
	Timestamp string `json:"timestamp,omitempty"`
	Sentence  string `json:"sentence,omitempty"`
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         chunksURI,
		Name:        "chunks",
		Description: "Metadata of every chunk in the index",
		MIMEType:    "application/json",
	}, s.handleChunksResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: sourceURIPrefix + "{sourceId}" + sourceURISuffix,
		Name:        "source-chunks",
		Description: "Chunks indexed from one source_id",
		MIMEType:    "application/json",
	}, s.handleSourceChunksResource)
}

// handleChunksResource lists every chunk; an index-less server has none.
func (s *Server) handleChunksResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	if s.ports.Index == nil {
		return jsonResult(req.Params.URI, "[]"), nil
	}
	infos, err := s.listChunks(ctx, func(string) bool { return true })
	if err != nil {
		return nil, err
	}
	return marshalResult(req.Params.URI, infos)
}

// handleSourceChunksResource reports an unknown source as a missing
// resource rather than an empty list.
func (s *Server) handleSourceChunksResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	sourceID := extractSourceID(uri)
	if s.ports.Index == nil || sourceID == "" {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	infos, err := s.listChunks(ctx, func(sid string) bool { return sid == sourceID })
	if err != nil {
		return nil, err
	}
	if len(infos) == 0 {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	return marshalResult(uri, infos)
}

// listChunks returns the chunks whose source_id passes keep, ordered by
// source_id then chunk id.
func (s *Server) listChunks(ctx context.Context, keep func(sourceID string) bool) ([]chunkInfo, error) {
	listing, err := s.ports.Index.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing chunks: %w", err)
	}

	var infos []chunkInfo
	for id, meta := range listing {
		sid, _ := meta[domain.MetaSourceID].(string)
		if !keep(sid) {
			continue
		}
		sentence, _ := meta[domain.MetaOriginalSentence].(string)
		infos = append(infos, chunkInfo{
			ID:        id,
			SourceID:  sid,
			Timestamp: domain.MetadataString(meta, domain.MetaTimestamp),
			Sentence:  sentence,
		})
	}
	slices.SortFunc(infos, func(a, b chunkInfo) int {
		return cmp.Or(cmp.Compare(a.SourceID, b.SourceID), cmp.Compare(a.ID, b.ID))
	})
	return infos, nil
}

func marshalResult(uri string, infos []chunkInfo) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling chunks: %w", err)
	}
	return jsonResult(uri, string(data)), nil
}

func jsonResult(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "application/json", Text: text}},
	}
}

// extractSourceID returns the {sourceId} of recall://sources/{sourceId}/chunks,
// or "" for any other URI.
func extractSourceID(uri string) string {
	rest, ok := strings.CutPrefix(uri, sourceURIPrefix)
	if !ok {
		return ""
	}
	id, _ := strings.CutSuffix(rest, sourceURISuffix)
	if id == rest {
		return ""
	}
	return id
}
