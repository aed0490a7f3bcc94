package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

func TestNewLLMService_RequiresAPIKey(t *testing.T) {
	_, err := NewLLMService(Config{})
	assert.ErrorContains(t, err, "API key is required")

	s, err := NewLLMService(Config{APIKey: "key"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, s.ModelName())
}

func TestChat_LiftsSystemMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))

		var req request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Rules.\n\nMore rules.", req.System)
		assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
		assert.Equal(t, []message{{"user", "Question"}, {"assistant", "Answer"}}, req.Messages)

		_, _ = w.Write([]byte(`{"content": [
			{"type": "text", "text": "Part one. "},
			{"type": "tool_use"},
			{"type": "text", "text": "Part two."}
		], "stop_reason": "end_turn"}`))
	}))
	defer server.Close()

	s, err := NewLLMService(Config{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)

	reply, err := s.Chat(context.Background(), []domain.ChatMessage{
		{Role: "system", Content: "Rules."},
		{Role: "user", Content: "Question"},
		{Role: "system", Content: "More rules."},
		{Role: "assistant", Content: "Answer"},
	}, driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Part one. Part two.", reply)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api error", http.StatusBadRequest, `{"type": "error", "error": {"type": "invalid_request_error", "message": "max_tokens too large"}}`, "anthropic: status 400: max_tokens too large"},
		{"no text", http.StatusOK, `{"content": [{"type": "tool_use"}]}`, ErrEmptyReply.Error()},
		{"not json", http.StatusServiceUnavailable, `overloaded`, "anthropic: status 503: overloaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s, err := NewLLMService(Config{APIKey: "key", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = s.Chat(context.Background(), nil, driven.ChatOptions{MaxTokens: 10})
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestChat_OverloadedIsUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(529)
	}))
	defer server.Close()

	s, err := NewLLMService(Config{APIKey: "key", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.Chat(context.Background(), nil, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestChat_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	s, err := NewLLMService(Config{APIKey: "key", BaseURL: url})
	require.NoError(t, err)

	_, err = s.Chat(context.Background(), nil, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.ErrorIs(t, s.Ping(context.Background()), domain.ErrLLMUnavailable)
}
