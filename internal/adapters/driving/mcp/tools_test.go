package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func TestServer_handleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answer with sources", func(t *testing.T) {
		answers := &mockAnswerService{
			answer: &domain.Answer{
				Text: "Lunch is at noon.",
				Chunks: []domain.ScoredChunk{
					scored("c1", "mail-1", "2024-02-01T10:00:00", "Lunch moved to noon.", 0.9),
				},
				Timings: domain.Timings{Retrieval: 12 * time.Millisecond, Generation: 2 * time.Second},
			},
		}
		server, err := NewServer(&Ports{Answer: answers})
		require.NoError(t, err)

		_, output, err := server.handleAsk(ctx, nil, AskInput{
			Query:   "When is lunch?",
			History: []MessageInput{{Role: "user", Content: "Hi"}, {Role: "assistant", Content: "Hello"}},
		})
		require.NoError(t, err)

		assert.Equal(t, "Lunch is at noon.", output.Answer)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, "c1", output.Sources[0].ChunkID)
		assert.Equal(t, "mail-1", output.Sources[0].SourceID)
		assert.Equal(t, "2024-02-01T10:00:00", output.Sources[0].Timestamp)
		assert.Equal(t, int64(12), output.RetrievalMS)
		assert.Equal(t, int64(2000), output.GenerationMS)

		assert.Equal(t, "When is lunch?", answers.query)
		assert.Equal(t, []domain.ChatMessage{{Role: "user", Content: "Hi"}, {Role: "assistant", Content: "Hello"}}, answers.history)
	})

	t.Run("query is required", func(t *testing.T) {
		server, err := NewServer(&Ports{Answer: &mockAnswerService{}})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("returns error on answer failure", func(t *testing.T) {
		server, err := NewServer(&Ports{Answer: &mockAnswerService{err: domain.ErrLLMUnavailable}})
		require.NoError(t, err)

		_, _, err = server.handleAsk(ctx, nil, AskInput{Query: "q"})
		assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	})
}

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	answers := &mockAnswerService{
		chunks: []domain.ScoredChunk{
			scored("c1", "a", 1700000000.0, "one", 0.8),
			scored("c2", "b", nil, "two", 0.5),
		},
	}
	server, err := NewServer(&Ports{Answer: answers})
	require.NoError(t, err)

	_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "numbers"})
	require.NoError(t, err)
	assert.Equal(t, 2, output.Count)
	assert.Equal(t, "1700000000", output.Chunks[0].Timestamp)
	assert.Empty(t, output.Chunks[1].Timestamp)
	assert.Equal(t, "numbers", answers.query)

	answers.err = errors.New("embedding down")
	_, _, err = server.handleRetrieve(ctx, nil, RetrieveInput{Query: "numbers"})
	assert.EqualError(t, err, "embedding down")
}

func TestServer_IndexTools(t *testing.T) {
	ctx := context.Background()
	index := &mockIndexService{
		count: 3,
		stats: domain.IndexStats{Name: "default", Path: "/data/default", WindowSize: 3, Documents: 2, Chunks: 7},
	}
	server, err := NewServer(&Ports{Answer: &mockAnswerService{}, Index: index})
	require.NoError(t, err)

	_, removed, err := server.handleRemoveSource(ctx, nil, RemoveSourceInput{SourceID: "mail-1"})
	require.NoError(t, err)
	assert.Equal(t, 3, removed.Removed)
	assert.Equal(t, "mail-1", index.removed)

	_, _, err = server.handleRemoveSource(ctx, nil, RemoveSourceInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, rebuilt, err := server.handleRebuild(ctx, nil, RebuildInput{Folder: "/records"})
	require.NoError(t, err)
	assert.Equal(t, 3, rebuilt.Chunks)
	assert.Equal(t, "/records", index.rebuiltFrom)

	_, stats, err := server.handleStats(ctx, nil, StatsInput{})
	require.NoError(t, err)
	assert.Equal(t, StatsOutput{Name: "default", Path: "/data/default", WindowSize: 3, Documents: 2, Chunks: 7}, stats)

	index.err = domain.ErrIndexClosed
	_, _, err = server.handleStats(ctx, nil, StatsInput{})
	require.ErrorIs(t, err, domain.ErrIndexClosed)
	assert.Contains(t, err.Error(), "shutting down")
}

func TestServer_handlePolls(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 9, 30, 0, 0, time.FixedZone("CEST", 2*3600))
	history := &mockPollHistory{polls: []domain.PollResult{
		{StartedAt: start, EndedAt: start.Add(80 * time.Millisecond), Documents: 3, Chunks: 9},
		{StartedAt: start.Add(-time.Minute), EndedAt: start.Add(-time.Minute), Rejected: 1, Error: "disk full"},
	}}
	server, err := NewServer(&Ports{Answer: &mockAnswerService{}, Polls: history})
	require.NoError(t, err)

	_, output, err := server.handlePolls(ctx, nil, PollsInput{})
	require.NoError(t, err)
	assert.Equal(t, defaultPollsLimit, history.limit)
	require.Len(t, output.Polls, 2)
	assert.Equal(t, PollOutput{StartedAt: "2024-05-01T07:30:00Z", DurationMS: 80, Documents: 3, Chunks: 9}, output.Polls[0])
	assert.Equal(t, "disk full", output.Polls[1].Error)

	_, _, err = server.handlePolls(ctx, nil, PollsInput{Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, history.limit)

	_, _, err = server.handlePolls(ctx, nil, PollsInput{Limit: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	history.err = errors.New("database is locked")
	_, _, err = server.handlePolls(ctx, nil, PollsInput{})
	assert.EqualError(t, err, "database is locked")
}
