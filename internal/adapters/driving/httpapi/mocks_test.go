package httpapi

import (
	"context"

	"github.com/custodia-labs/recall/internal/core/domain"
)

type mockAnswerService struct {
	answer  *domain.Answer
	chunks  []domain.ScoredChunk
	err     error
	query   string
	history []domain.ChatMessage
}

func (m *mockAnswerService) Answer(_ context.Context, query string, history []domain.ChatMessage) (*domain.Answer, error) {
	m.query = query
	m.history = history
	return m.answer, m.err
}

func (m *mockAnswerService) Retrieve(_ context.Context, query string) ([]domain.ScoredChunk, error) {
	m.query = query
	return m.chunks, m.err
}

type mockIndexService struct {
	listing     map[string]map[string]any
	stats       domain.IndexStats
	count       int
	err         error
	removed     string
	rebuiltFrom string
}

func (m *mockIndexService) AddDocuments(_ context.Context, _ []domain.Document) (int, error) {
	return m.count, m.err
}

func (m *mockIndexService) RemoveBySourceID(_ context.Context, sourceID string) (int, error) {
	m.removed = sourceID
	return m.count, m.err
}

func (m *mockIndexService) Rebuild(_ context.Context, folder string) (int, error) {
	m.rebuiltFrom = folder
	return m.count, m.err
}

func (m *mockIndexService) ListDocuments(_ context.Context) (map[string]map[string]any, error) {
	return m.listing, m.err
}

func (m *mockIndexService) Stats(_ context.Context) (domain.IndexStats, error) {
	return m.stats, m.err
}

type mockPollHistory struct {
	polls []domain.PollResult
	err   error
	limit int
}

func (m *mockPollHistory) History(_ context.Context, limit int) ([]domain.PollResult, error) {
	m.limit = limit
	return m.polls, m.err
}

func scored(id, sourceID string, ts any, text string, score float64) domain.ScoredChunk {
	meta := map[string]any{domain.MetaSourceID: sourceID}
	if ts != nil {
		meta[domain.MetaTimestamp] = ts
	}
	return domain.ScoredChunk{
		Chunk: domain.Chunk{ID: id, Content: text, Metadata: meta},
		Score: score,
	}
}
