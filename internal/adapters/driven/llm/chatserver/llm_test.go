package chatserver

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

func TestExtractReply(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		want       string
	}{
		{"plain", "  Just text.\n", "Just text."},
		{"single turn", "<|system|>\nRules\n<|user|>\nHi\n<|assistant|>\nHello there.\n", "Hello there."},
		{
			"last of several",
			"<|user|>\nA\n<|assistant|>\nfirst\n<|user|>\nB\n<|assistant|>\nsecond\n<|user|>\nC",
			"second",
		},
		{"empty turn", "<|user|>\nHi\n<|assistant|>\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractReply(tt.transcript))
		})
	}
}

func TestChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)

		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Prompt, 2)
		assert.Equal(t, domain.ChatMessage{Role: "user", Content: "Where?"}, req.Prompt[1])

		_ = json.NewEncoder(w).Encode(chatResponse{
			Response: "<|system|>\nBe nice\n<|user|>\nWhere?\n<|assistant|>\nRoom 12.",
		})
	}))
	defer server.Close()

	s := NewLLMService(Config{BaseURL: server.URL + "/"})
	assert.Equal(t, DefaultModel, s.ModelName())

	reply, err := s.Chat(context.Background(), []domain.ChatMessage{
		{Role: "system", Content: "Be nice"},
		{Role: "user", Content: "Where?"},
	}, driven.ChatOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Room 12.", reply)
}

func TestChat_Errors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("CUDA out of memory"))
	}))
	defer server.Close()

	s := NewLLMService(Config{BaseURL: server.URL})
	_, err := s.Chat(context.Background(), nil, driven.ChatOptions{})
	assert.EqualError(t, err, "chatserver: status 500: CUDA out of memory")
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
	assert.EqualError(t, s.Ping(context.Background()), "chatserver: server returned status 500")

	server.Close()
	_, err = s.Chat(context.Background(), nil, driven.ChatOptions{})
	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestPing_MethodNotAllowedIsReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer server.Close()

	require.NoError(t, NewLLMService(Config{BaseURL: server.URL}).Ping(context.Background()))
}
