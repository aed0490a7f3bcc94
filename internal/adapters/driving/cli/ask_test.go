package cli

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
)

func TestAskCmd_Use(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)
	require.NotNil(t, askCmd.Flags().Lookup("json"))
	require.NotNil(t, askCmd.Flags().Lookup("context"))
}

func TestAskCmd_PrintsAnswerAndSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mocks.answer.answers = []*domain.Answer{{
		Text: "Lunch is at noon.",
		Chunks: []domain.ScoredChunk{
			scored("c1", "mail-1", "2024-02-01T10:00:00", "Lunch moved to noon.", 0.91),
			{Chunk: domain.Chunk{ID: "c2", Content: "Orphan."}, Score: 0.5},
		},
		Timings: domain.Timings{Retrieval: 12 * time.Millisecond, Generation: 2 * time.Second},
	}}

	out, err := executeCommand("ask", "When", "is", "lunch?")
	require.NoError(t, err)

	assert.Equal(t, []string{"When is lunch?"}, mocks.answer.queries)
	assert.Empty(t, mocks.answer.histories[0])
	assert.Contains(t, out, "Lunch is at noon.")
	assert.Contains(t, out, "Sources (2)")
	assert.Contains(t, out, "[1] mail-1 @ 2024-02-01T10:00:00 (0.910)")
	assert.Contains(t, out, "[2] (no source_id) (0.500)")
	assert.Contains(t, out, "retrieval 12ms, generation 2s")
}

func TestAskCmd_NoSources(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("ask", "anything")
	require.NoError(t, err)
	assert.Contains(t, out, domain.NoRelevantInformation)
	assert.NotContains(t, out, "Sources")
}

func TestAskCmd_ShowsContext(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mocks.answer.answers = []*domain.Answer{{Text: "Yes.", Context: "Document 1: Lunch moved to noon."}}

	out, err := executeCommand("ask", "--context", "lunch?")
	require.NoError(t, err)
	assert.Contains(t, out, "Document 1: Lunch moved to noon.")
}

func TestAskCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mocks.answer.answers = []*domain.Answer{{
		Text:    "Lunch is at noon.",
		Chunks:  []domain.ScoredChunk{scored("c1", "mail-1", 1700000000.0, "Lunch moved to noon.", 0.9)},
		Context: "hidden unless asked",
		Timings: domain.Timings{Retrieval: 5 * time.Millisecond, Generation: 40 * time.Millisecond},
	}}

	out, err := executeCommand("ask", "--json", "lunch?")
	require.NoError(t, err)

	var got answerJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "Lunch is at noon.", got.Answer)
	assert.Empty(t, got.Error)
	assert.Empty(t, got.Context)
	assert.Equal(t, int64(5), got.RetrievalMS)
	assert.Equal(t, int64(40), got.GenerationMS)
	require.Len(t, got.Sources, 1)
	assert.Equal(t, sourceJSON{
		ChunkID:   "c1",
		SourceID:  "mail-1",
		Timestamp: "1700000000",
		Score:     0.9,
		Text:      "Lunch moved to noon.",
	}, got.Sources[0])
}

func TestAskCmd_JSONReportsGenerationError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mocks.answer.answers = []*domain.Answer{{
		Text: "No language model is configured.",
		Err:  domain.ErrLLMUnavailable,
	}}

	out, err := executeCommand("ask", "--json", "lunch?")
	require.NoError(t, err)

	var got answerJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, domain.ErrLLMUnavailable.Error(), got.Error)
	assert.Empty(t, got.Sources)
}

func TestAskCmd_ServiceError(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mocks.answer.err = errors.New("embedding down")

	_, err := executeCommand("ask", "lunch?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "answering: embedding down")
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("ask")
	assert.Error(t, err)
	assert.Empty(t, mocks.answer.queries)
}

func TestAskCmd_NotConfigured(t *testing.T) {
	defer resetFlags()
	SetServices(&Services{})

	_, err := executeCommand("ask", "lunch?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "answer service not configured")
}
