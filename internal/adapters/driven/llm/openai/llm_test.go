package openai

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

func TestNewLLMService_Defaults(t *testing.T) {
	_, err := NewLLMService(LLMConfig{})
	assert.ErrorContains(t, err, "API key is required")

	s, err := NewLLMService(LLMConfig{APIKey: "sk"})
	require.NoError(t, err)
	assert.Equal(t, DefaultLLMModel, s.ModelName())
	assert.Equal(t, "openai", s.api.Provider())
}

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req completionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-test", req.Model)
		assert.Equal(t, []domain.ChatMessage{
			{Role: "system", Content: "Be brief."},
			{Role: "user", Content: "When is lunch?"},
		}, req.Messages)
		assert.Equal(t, 256, req.MaxTokens)
		assert.InDelta(t, 0.1, req.Temperature, 1e-9)

		_, _ = w.Write([]byte(`{"choices": [{"message": {"role": "assistant", "content": "Noon."}, "finish_reason": "stop"}]}`))
	}))
	defer server.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: server.URL + "/", Model: "gpt-test"})
	require.NoError(t, err)

	reply, err := s.Chat(context.Background(), []domain.ChatMessage{
		{Role: "system", Content: "Be brief."},
		{Role: "user", Content: "When is lunch?"},
	}, driven.ChatOptions{MaxTokens: 256, Temperature: 0.1})
	require.NoError(t, err)
	assert.Equal(t, "Noon.", reply)
}

func TestChat_OmitsUnsetOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		assert.NotContains(t, raw, "max_tokens")
		assert.NotContains(t, raw, "temperature")
		_, _ = w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer server.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "sk", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.Chat(context.Background(), nil, driven.ChatOptions{MaxTokens: -1})
	require.NoError(t, err)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api error", http.StatusUnauthorized, `{"error": {"message": "Incorrect API key"}}`, "openai: status 401: Incorrect API key"},
		{"no choices", http.StatusOK, `{"choices": []}`, ErrNoChoices.Error()},
		{"not json", http.StatusBadGateway, `bad gateway`, "openai: status 502: bad gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			s, err := NewLLMService(LLMConfig{APIKey: "sk", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = s.Chat(context.Background(), nil, driven.ChatOptions{})
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestChat_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "sk", BaseURL: url})
	require.NoError(t, err)

	_, err = s.Chat(context.Background(), nil, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("denied"))
			return
		}
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	s, err := NewLLMService(LLMConfig{APIKey: "good", BaseURL: server.URL})
	require.NoError(t, err)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())

	s, err = NewLLMService(LLMConfig{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)
	assert.EqualError(t, s.Ping(context.Background()), "openai: status 401: denied")
}
