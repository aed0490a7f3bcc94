package services

import (
	"context"
	"errors"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/recall/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/recall/internal/adapters/driven/vector/flat"
	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/postprocessors"
)

// Ensure mocks implement interfaces
var (
	_ driven.SchedulerStore    = (*mockSchedulerStore)(nil)
	_ driving.IngestService    = (*mockIngestService)(nil)
	_ driven.EmbeddingService  = (*mockEmbeddingService)(nil)
	_ driven.LLMService        = (*mockLLMService)(nil)
	_ driven.ProviderChecker   = (*mockProviderChecker)(nil)
	_ driven.PromptStore       = (*mockPromptStore)(nil)
	_ driven.MetricsRecorder   = (*mockMetrics)(nil)
)

// ==================== Scheduler Store ====================

// mockSchedulerStore implements driven.SchedulerStore for testing.
type mockSchedulerStore struct {
	mu       sync.RWMutex
	tasks    map[string]*domain.ScheduledTask
	results  map[string][]domain.PollResult
	saveErr  error
	listErr  error
	getErr   error
	pruneErr error
}

func newMockSchedulerStore() *mockSchedulerStore {
	return &mockSchedulerStore{
		tasks:   make(map[string]*domain.ScheduledTask),
		results: make(map[string][]domain.PollResult),
	}
}

func (m *mockSchedulerStore) GetTask(_ context.Context, taskID string) (*domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	task, exists := m.tasks[taskID]
	if !exists {
		return nil, nil
	}
	taskCopy := *task
	return &taskCopy, nil
}

func (m *mockSchedulerStore) ListTasks(_ context.Context) ([]domain.ScheduledTask, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	tasks := make([]domain.ScheduledTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		tasks = append(tasks, *t)
	}
	return tasks, nil
}

func (m *mockSchedulerStore) SaveTask(_ context.Context, task *domain.ScheduledTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if task == nil {
		return domain.ErrInvalidInput
	}
	taskCopy := *task
	m.tasks[task.ID] = &taskCopy
	return nil
}

func (m *mockSchedulerStore) RecordPoll(_ context.Context, result domain.PollResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result.TaskID] = append(m.results[result.TaskID], result)
	return nil
}

func (m *mockSchedulerStore) RecentPolls(_ context.Context, taskID string, limit int) ([]domain.PollResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	results := m.results[taskID]
	out := make([]domain.PollResult, 0, len(results))
	for i := len(results) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, results[i])
	}
	return out, nil
}

func (m *mockSchedulerStore) PrunePolls(_ context.Context, _ int) error {
	return m.pruneErr
}

// ==================== Ingest ====================

// mockIngestService counts staging polls.
type mockIngestService struct {
	mu     sync.Mutex
	calls  int
	report domain.IngestReport
	err    error
}

func (m *mockIngestService) IngestStaging(_ context.Context) (domain.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.report, m.err
}

func (m *mockIngestService) IngestFiles(_ context.Context, _ []string) (domain.IngestReport, error) {
	return domain.IngestReport{}, nil
}

func (m *mockIngestService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ==================== Embedding ====================

const mockDimensions = 32

// mockEmbeddingService embeds text as a bag of hashed lower-case words, so
// texts sharing words are similar and results are deterministic.
type mockEmbeddingService struct {
	mu       sync.Mutex
	model    string
	embedErr error
	batchErr error
	calls    int
}

func newMockEmbeddingService() *mockEmbeddingService {
	return &mockEmbeddingService{model: "mock-bow"}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return bagOfWords(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = bagOfWords(text)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int   { return mockDimensions }
func (m *mockEmbeddingService) ModelName() string { return m.model }

func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// gatedEmbedder blocks EmbedBatch once armed, until release is closed.
// Embed never blocks, so queries keep working while a batch is held.
type gatedEmbedder struct {
	*mockEmbeddingService
	armed   atomic.Bool
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func newGatedEmbedder() *gatedEmbedder {
	return &gatedEmbedder{
		mockEmbeddingService: newMockEmbeddingService(),
		entered:              make(chan struct{}),
		release:              make(chan struct{}),
	}
}

func (g *gatedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if g.armed.Load() {
		g.once.Do(func() { close(g.entered) })
		<-g.release
	}
	return g.mockEmbeddingService.EmbedBatch(ctx, texts)
}

// shortLastEmbedder returns a vector one dimension short for the last text
// of each batch once armed.
type shortLastEmbedder struct {
	*mockEmbeddingService
	armed atomic.Bool
}

func (s *shortLastEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out, err := s.mockEmbeddingService.EmbedBatch(ctx, texts)
	if err != nil || !s.armed.Load() || len(out) == 0 {
		return out, err
	}
	last := len(out) - 1
	out[last] = out[last][:len(out[last])-1]
	return out, nil
}

func bagOfWords(text string) []float32 {
	vec := make([]float32, mockDimensions)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(word))
		vec[h.Sum32()%mockDimensions]++
	}
	// Keep every vector non-zero so cosine similarity is defined.
	vec[0] += 0.01
	return vec
}

// ==================== LLM ====================

// mockLLMService records the prompts it receives.
type mockLLMService struct {
	mu       sync.Mutex
	response string
	err      error
	calls    int
	messages []domain.ChatMessage
	opts     driven.ChatOptions
}

func (m *mockLLMService) Chat(_ context.Context, messages []domain.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.messages = append([]domain.ChatMessage(nil), messages...)
	m.opts = opts
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func (m *mockLLMService) ModelName() string            { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

// ==================== Provider Checker ====================

type mockProviderChecker struct {
	embeddingErr   error
	llmErr         error
	embeddingCalls int
	llmCalls       int
	llmProvider    domain.AIProvider
}

func (m *mockProviderChecker) CheckEmbedding(_ context.Context, _ *domain.EmbeddingSettings) error {
	m.embeddingCalls++
	return m.embeddingErr
}

func (m *mockProviderChecker) CheckLLM(_ context.Context, s *domain.LLMSettings) error {
	m.llmCalls++
	m.llmProvider = s.Provider
	return m.llmErr
}

// ==================== Prompts ====================

type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", errors.New("prompt not found")
	}
	return p, nil
}

// ==================== Metrics ====================

type mockMetrics struct {
	mu        sync.Mutex
	outcomes  []string
	mutations map[string]int
	chunks    map[string]int
	retrieval int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{mutations: make(map[string]int), chunks: make(map[string]int)}
}

func (m *mockMetrics) ObserveRetrieval(string, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrieval++
}

func (m *mockMetrics) ObserveGeneration(time.Duration) {}

func (m *mockMetrics) CountAnswer(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *mockMetrics) CountMutation(_, op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.mutations[op+"/"+status]++
}

func (m *mockMetrics) SetChunks(index string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[index] = n
}

// ==================== Index fixtures ====================

// stubLoader returns canned folder contents.
type stubLoader struct {
	mu     sync.Mutex
	result map[string]*LoadResult
	err    error
	calls  int
}

func (l *stubLoader) LoadFolder(_ context.Context, dir string) (*LoadResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	if r, ok := l.result[dir]; ok {
		return r, nil
	}
	return &LoadResult{}, nil
}

// testDeps wires the real flat index and post-processors over an
// in-memory store.
func testDeps(t *testing.T, stores driven.IndexStoreFactory, loader DocumentLoader) IndexDependencies {
	t.Helper()

	registry := postprocessors.NewRegistry()
	postprocessors.RegisterDefaults(registry)

	if stores == nil {
		stores = memory.NewIndexStoreFactory()
	}
	return IndexDependencies{
		Stores:         stores,
		Embedder:       newMockEmbeddingService(),
		NewVectorIndex: func() driven.VectorIndex { return flat.New(0) },
		NewChunker: func(windowSize int) (driven.PostProcessorPipeline, error) {
			return registry.Ingest(domain.DefaultIngestPipelineConfig(windowSize))
		},
		NewNodeChain: func() (driven.NodePostProcessorPipeline, error) {
			return registry.Query(domain.DefaultQueryPipelineConfig(domain.DefaultRerankTopN, false))
		},
		Loader: loader,
	}
}

func openTestIndex(t *testing.T, deps IndexDependencies, opts ...IndexOption) *IndexManager {
	t.Helper()
	m, err := OpenIndexManager(context.Background(), deps, "test", t.TempDir(), 1, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func recordDoc(sourceID, timestamp, text string) domain.Document {
	return domain.Document{
		Content: text,
		Metadata: map[string]any{
			domain.MetaSourceID:  sourceID,
			domain.MetaTimestamp: timestamp,
		},
	}
}

// sourceIDs returns the distinct source_id values of a listing, sorted.
func sourceIDs(listing map[string]map[string]any) []string {
	seen := make(map[string]bool)
	for _, meta := range listing {
		if id, ok := meta[domain.MetaSourceID].(string); ok {
			seen[id] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
