package cli

import (
	"bytes"
	"context"
	"sync"

	"github.com/fatih/color"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// mockAnswerService implements driving.AnswerService.
type mockAnswerService struct {
	answers   []*domain.Answer
	err       error
	queries   []string
	histories [][]domain.ChatMessage
}

func (m *mockAnswerService) Answer(_ context.Context, query string, history []domain.ChatMessage) (*domain.Answer, error) {
	m.queries = append(m.queries, query)
	m.histories = append(m.histories, append([]domain.ChatMessage(nil), history...))
	if m.err != nil {
		return nil, m.err
	}
	if len(m.answers) == 0 {
		return &domain.Answer{Text: domain.NoRelevantInformation}, nil
	}
	a := m.answers[0]
	if len(m.answers) > 1 {
		m.answers = m.answers[1:]
	}
	return a, nil
}

func (m *mockAnswerService) Retrieve(_ context.Context, query string) ([]domain.ScoredChunk, error) {
	m.queries = append(m.queries, query)
	return nil, m.err
}

// mockIndexService implements driving.IndexService.
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

// mockIngestService implements driving.IngestService.
type mockIngestService struct {
	report  domain.IngestReport
	err     error
	staging bool
	files   []string
}

func (m *mockIngestService) IngestStaging(_ context.Context) (domain.IngestReport, error) {
	m.staging = true
	return m.report, m.err
}

func (m *mockIngestService) IngestFiles(_ context.Context, paths []string) (domain.IngestReport, error) {
	m.files = paths
	return m.report, m.err
}

// mockSettingsService implements driving.SettingsService.
type mockSettingsService struct {
	settings    domain.Settings
	validateErr error
	pingErr     error

	embedding []string
	llm       []string
}

func (m *mockSettingsService) Get() (*domain.Settings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.Settings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.embedding = []string{string(provider), model, apiKey}
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey, baseURL string) error {
	m.llm = []string{string(provider), model, apiKey, baseURL}
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) CheckEmbedding(context.Context) error { return m.pingErr }

func (m *mockSettingsService) CheckLLM(context.Context) error { return m.pingErr }

func (m *mockSettingsService) SchedulerConfig() domain.SchedulerConfig {
	return domain.DefaultSchedulerConfig()
}

// mockScheduler implements driving.Scheduler.
type mockScheduler struct {
	started chan struct{}

	mu        sync.Mutex
	stopped   bool
	triggered []string

	polls      []domain.PollResult
	historyErr error
}

func newMockScheduler() *mockScheduler {
	return &mockScheduler{started: make(chan struct{})}
}

func (m *mockScheduler) Start(ctx context.Context) error {
	close(m.started)
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	return nil
}

func (m *mockScheduler) Trigger(taskID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.triggered = append(m.triggered, taskID)
	return true
}

func (m *mockScheduler) History(_ context.Context, limit int) ([]domain.PollResult, error) {
	if m.historyErr != nil {
		return nil, m.historyErr
	}
	if limit > 0 && limit < len(m.polls) {
		return m.polls[:limit], nil
	}
	return m.polls, nil
}

func (m *mockScheduler) Triggered() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.triggered...)
}

func (m *mockScheduler) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	answer    *mockAnswerService
	index     *mockIndexService
	ingest    *mockIngestService
	settings  *mockSettingsService
	scheduler *mockScheduler
}

var mocks testServices

// setupTestServices installs fresh mocks and returns a cleanup function
// that removes them and resets command flags.
func setupTestServices() func() {
	mocks = testServices{
		answer:    &mockAnswerService{},
		index:     &mockIndexService{},
		ingest:    &mockIngestService{},
		settings:  &mockSettingsService{settings: domain.DefaultSettings()},
		scheduler: newMockScheduler(),
	}
	SetServices(&Services{
		Settings:        mocks.settings,
		Index:           mocks.index,
		Answer:          mocks.answer,
		Ingest:          mocks.ingest,
		Scheduler:       mocks.scheduler,
		SchedulerConfig: domain.DefaultSchedulerConfig(),
	})

	noColor := color.NoColor
	color.NoColor = true

	return func() {
		SetServices(&Services{})
		color.NoColor = noColor
		resetFlags()
	}
}

func resetFlags() {
	askJSON = false
	askShowContext = false
	listJSON = false
	pollsJSON = false
	pollsLimit = defaultPollsLimit
	chatPlain = false
	serveAddr = DefaultServeAddr
	serveMetricsAddr = ""
	serveOrigins = nil
	serveNoMCP = false
	serveNoWatch = false
	mcpAddr = ""
	verbose = false
	configDir = ""
	bootstrap = Bootstrap{}
}

// executeCommand runs the root command with args and returns its output.
func executeCommand(args ...string) (string, error) {
	return executeCommandWithInput("", args...)
}

func executeCommandWithInput(input string, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(bytes.NewBufferString(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
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
