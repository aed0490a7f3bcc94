package httpapi

import (
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// DefaultPollsLimit is the number of polls GET /v1/polls returns without a limit.
const DefaultPollsLimit = 20

// SenderUser marks a /query message written by the user. Any other sender
// is treated as the assistant.
const SenderUser = "user"

// QueryMessage is one entry of the /query conversation.
type QueryMessage struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// QueryResponse is the /query reply.
type QueryResponse struct {
	Answer  string `json:"answer"`
	Context string `json:"context"`
}

// ErrorResponse carries an error message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Query   string               `json:"query" binding:"required"`
	History []domain.ChatMessage `json:"history"`
}

// AskResponse is the reply of POST /v1/ask.
type AskResponse struct {
	Answer       string          `json:"answer"`
	Context      string          `json:"context"`
	Sources      []ChunkResponse `json:"sources"`
	Error        string          `json:"error,omitempty"`
	RetrievalMS  int64           `json:"retrieval_ms"`
	GenerationMS int64           `json:"generation_ms"`
	TotalMS      int64           `json:"total_ms"`
}

// RetrieveRequest is the body of POST /v1/retrieve.
type RetrieveRequest struct {
	Query string `json:"query" binding:"required"`
}

// ChunkResponse is one retrieved chunk.
type ChunkResponse struct {
	ChunkID   string  `json:"chunk_id"`
	SourceID  string  `json:"source_id,omitempty"`
	Timestamp string  `json:"timestamp,omitempty"`
	Text      string  `json:"text"`
	Score     float64 `json:"score"`
}

// StatsResponse summarises the index.
type StatsResponse struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	WindowSize int    `json:"window_size"`
	Documents  int    `json:"documents"`
	Chunks     int    `json:"chunks"`
}

// RebuildRequest is the optional body of POST /v1/index/rebuild.
type RebuildRequest struct {
	Folder string `json:"folder"`
}

// CountResponse reports how many chunks an operation touched.
type CountResponse struct {
	Chunks int `json:"chunks"`
}

// PollResponse is one entry of GET /v1/polls.
type PollResponse struct {
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Documents  int       `json:"documents"`
	Chunks     int       `json:"chunks"`
	Rejected   int       `json:"rejected"`
	Error      string    `json:"error,omitempty"`
}

func toPollResponses(polls []domain.PollResult) []PollResponse {
	out := make([]PollResponse, len(polls))
	for i, p := range polls {
		out[i] = PollResponse{
			StartedAt:  p.StartedAt,
			DurationMS: p.Duration().Milliseconds(),
			Documents:  p.Documents,
			Chunks:     p.Chunks,
			Rejected:   p.Rejected,
			Error:      p.Error,
		}
	}
	return out
}

func toChunkResponses(chunks []domain.ScoredChunk) []ChunkResponse {
	out := make([]ChunkResponse, len(chunks))
	for i := range chunks {
		c := &chunks[i].Chunk
		sourceID, _ := c.SourceID()
		out[i] = ChunkResponse{
			ChunkID:   c.ID,
			SourceID:  sourceID,
			Timestamp: domain.MetadataString(c.Metadata, domain.MetaTimestamp),
			Text:      c.Content,
			Score:     chunks[i].Score,
		}
	}
	return out
}
