package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// MessageInput is one prior conversation turn.
type MessageInput struct {
	Role    string `json:"role" jsonschema:"user or assistant"`
	Content string `json:"content" jsonschema:"the message text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query   string         `json:"query" jsonschema:"the question to answer from indexed documents"`
	History []MessageInput `json:"history,omitempty" jsonschema:"earlier turns of the conversation, oldest first"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer       string        `json:"answer"`
	Sources      []ChunkOutput `json:"sources"`
	RetrievalMS  int64         `json:"retrieval_ms"`
	GenerationMS int64         `json:"generation_ms"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query string `json:"query" jsonschema:"the text to find related chunks for"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Chunks []ChunkOutput `json:"chunks"`
	Count  int           `json:"count"`
}

// ChunkOutput represents a single retrieved chunk.
type ChunkOutput struct {
	ChunkID   string  `json:"chunk_id"`
	SourceID  string  `json:"source_id,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
}

// RemoveSourceInput is the input schema for the remove_source tool.
type RemoveSourceInput struct {
	SourceID string `json:"source_id" jsonschema:"the source_id whose chunks are removed"`
}

// RemoveSourceOutput is the output schema for the remove_source tool.
type RemoveSourceOutput struct {
	Removed int `json:"removed"`
}

// RebuildInput is the input schema for the rebuild tool.
type RebuildInput struct {
	Folder string `json:"folder,omitempty" jsonschema:"folder to rebuild from (default: the in-database folder)"`
}

// RebuildOutput is the output schema for the rebuild tool.
type RebuildOutput struct {
	Chunks int `json:"chunks"`
}

// StatsInput is the (empty) input schema for the stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the stats tool.
type StatsOutput struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	WindowSize int    `json:"window_size"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
}

// PollsInput is the input schema for the polls tool.
type PollsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"number of polls to return, newest first (default 20)"`
}

// PollsOutput is the output schema for the polls tool.
type PollsOutput struct {
	Polls []PollOutput `json:"polls"`
}

// PollOutput is one poll of the staging folder.
type PollOutput struct {
	StartedAt  string `json:"started_at"`
	DurationMS int64  `json:"duration_ms"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
	Rejected   int    `json:"rejected"`
	Error      string `json:"error,omitempty"`
}

const defaultPollsLimit = 20

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed documents",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the indexed chunks most related to a text, newest first per source",
	}, s.handleRetrieve)

	if s.ports.Polls != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "polls",
			Description: "List recent polls of the staging folder that ingested files or failed",
		}, s.handlePolls)
	}

	if s.ports.Index == nil {
		return
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_source",
		Description: "Remove every chunk of a source from the index",
	}, s.handleRemoveSource)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "rebuild",
		Description: "Discard the index and rebuild it from a folder of records",
	}, s.handleRebuild)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Summarise the index",
	}, s.handleStats)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if input.Query == "" {
		return nil, AskOutput{}, fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}

	history := make([]domain.ChatMessage, 0, len(input.History))
	for _, m := range input.History {
		history = append(history, domain.ChatMessage{Role: m.Role, Content: m.Content})
	}

	answer, err := s.ports.Answer.Answer(ctx, input.Query, history)
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:       answer.Text,
		Sources:      toChunkOutputs(answer.Chunks),
		RetrievalMS:  answer.Timings.Retrieval.Milliseconds(),
		GenerationMS: answer.Timings.Generation.Milliseconds(),
	}, nil
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	chunks, err := s.ports.Answer.Retrieve(ctx, input.Query)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	out := toChunkOutputs(chunks)
	return nil, RetrieveOutput{Chunks: out, Count: len(out)}, nil
}

// handleRemoveSource handles the remove_source tool invocation.
func (s *Server) handleRemoveSource(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RemoveSourceInput,
) (*mcp.CallToolResult, RemoveSourceOutput, error) {
	if input.SourceID == "" {
		return nil, RemoveSourceOutput{}, fmt.Errorf("%w: source_id is required", domain.ErrInvalidInput)
	}

	n, err := s.ports.Index.RemoveBySourceID(ctx, input.SourceID)
	if err != nil {
		return nil, RemoveSourceOutput{}, err
	}
	return nil, RemoveSourceOutput{Removed: n}, nil
}

// handleRebuild handles the rebuild tool invocation.
func (s *Server) handleRebuild(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RebuildInput,
) (*mcp.CallToolResult, RebuildOutput, error) {
	n, err := s.ports.Index.Rebuild(ctx, input.Folder)
	if err != nil {
		return nil, RebuildOutput{}, err
	}
	return nil, RebuildOutput{Chunks: n}, nil
}

// handleStats handles the stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.ports.Index.Stats(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrIndexClosed) {
			return nil, StatsOutput{}, fmt.Errorf("index is shutting down: %w", err)
		}
		return nil, StatsOutput{}, err
	}

	return nil, StatsOutput{
		Name:       stats.Name,
		Path:       stats.Path,
		WindowSize: stats.WindowSize,
		Documents:  stats.Documents,
		Chunks:     stats.Chunks,
	}, nil
}

func (s *Server) handlePolls(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input PollsInput,
) (*mcp.CallToolResult, PollsOutput, error) {
	if input.Limit < 0 {
		return nil, PollsOutput{}, fmt.Errorf("%w: limit must not be negative", domain.ErrInvalidInput)
	}
	limit := input.Limit
	if limit == 0 {
		limit = defaultPollsLimit
	}

	polls, err := s.ports.Polls.History(ctx, limit)
	if err != nil {
		return nil, PollsOutput{}, err
	}

	out := PollsOutput{Polls: make([]PollOutput, len(polls))}
	for i, p := range polls {
		out.Polls[i] = PollOutput{
			StartedAt:  p.StartedAt.UTC().Format(time.RFC3339Nano),
			DurationMS: p.Duration().Milliseconds(),
			Documents:  p.Documents,
			Chunks:     p.Chunks,
			Rejected:   p.Rejected,
			Error:      p.Error,
		}
	}
	return nil, out, nil
}

func toChunkOutputs(chunks []domain.ScoredChunk) []ChunkOutput {
	out := make([]ChunkOutput, len(chunks))
	for i := range chunks {
		c := &chunks[i].Chunk
		sourceID, _ := c.SourceID()
		out[i] = ChunkOutput{
			ChunkID:   c.ID,
			SourceID:  sourceID,
			Timestamp: domain.MetadataString(c.Metadata, domain.MetaTimestamp),
			Text:      c.Content,
			Score:     chunks[i].Score,
		}
	}
	return out
}
