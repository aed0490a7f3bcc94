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

func samplePolls() []domain.PollResult {
	start := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	return []domain.PollResult{
		{
			TaskID:    domain.TaskIDStagingIngest,
			StartedAt: start.Add(time.Minute),
			EndedAt:   start.Add(time.Minute + 120*time.Millisecond),
			Documents: 2,
			Chunks:    7,
			Rejected:  1,
		},
		{
			TaskID:    domain.TaskIDStagingIngest,
			StartedAt: start,
			EndedAt:   start.Add(5 * time.Millisecond),
			Error:     "embedding service unavailable",
		},
	}
}

func TestPollsCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mocks.scheduler.polls = samplePolls()
	out, err := executeCommand("polls")
	require.NoError(t, err)
	assert.Contains(t, out, "2 documents, 7 chunks, 1 rejected")
	assert.Contains(t, out, " 120ms")
	assert.Contains(t, out, "error: embedding service unavailable")
}

func TestPollsCmd_Limit(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mocks.scheduler.polls = samplePolls()
	out, err := executeCommand("polls", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2 documents")
	assert.NotContains(t, out, "error:")

	_, err = executeCommand("polls", "--limit", "0")
	assert.ErrorContains(t, err, "--limit must be positive")
}

func TestPollsCmd_Empty(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("polls")
	require.NoError(t, err)
	assert.Contains(t, out, "No polls recorded yet.")
}

func TestPollsCmd_JSON(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mocks.scheduler.polls = samplePolls()
	out, err := executeCommand("polls", "--json")
	require.NoError(t, err)

	var got []pollJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, int64(120), got[0].DurationMS)
	assert.Equal(t, 7, got[0].Chunks)
	assert.Empty(t, got[0].Error)
	assert.Equal(t, "embedding service unavailable", got[1].Error)
}

func TestPollsCmd_Error(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	mocks.scheduler.historyErr = errors.New("database is locked")
	_, err := executeCommand("polls")
	assert.ErrorContains(t, err, "failed to read poll history: database is locked")
}

func TestFormatPoll(t *testing.T) {
	p := domain.PollResult{
		StartedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		EndedAt:   time.Date(2024, 5, 1, 9, 30, 1, 0, time.UTC),
		Documents: 1,
		Chunks:    1,
	}
	line := formatPoll(p)
	assert.Contains(t, line, "1000ms  1 documents, 1 chunks")
	assert.NotContains(t, line, "rejected")
}
