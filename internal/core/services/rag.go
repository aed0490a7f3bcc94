package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
)

var _ driving.AnswerService = (*RAGService)(nil)

// DefaultTemperature keeps answers close to the retrieved text.
const DefaultTemperature = 0.1

// generationErrorPrefix starts the answer text when the generator fails.
const generationErrorPrefix = "Error generating response: "

// PipelineSource hands out the current query pipeline of an index.
type PipelineSource interface {
	QueryPipeline() *QueryPipeline
}

// RAGOption configures a RAGService.
type RAGOption func(*RAGService)

// WithTemperature sets the sampling temperature passed to the generator.
func WithTemperature(t float64) RAGOption {
	return func(s *RAGService) {
		s.opts.Temperature = t
	}
}

// WithMaxTokens caps the generated answer length. Zero leaves the
// provider default.
func WithMaxTokens(n int) RAGOption {
	return func(s *RAGService) {
		s.opts.MaxTokens = n
	}
}

// WithPrompts loads the answer prompts from store. Without it, or when
// the store fails, the built-in prompts are used.
func WithPrompts(store driven.PromptStore) RAGOption {
	return func(s *RAGService) {
		s.promptStore = store
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m driven.MetricsRecorder) RAGOption {
	return func(s *RAGService) {
		if m != nil {
			s.metrics = m
		}
	}
}

// RAGService answers questions by retrieving chunks from an index and
// handing them to a text generator.
type RAGService struct {
	source      PipelineSource
	llm         driven.LLMService
	promptStore driven.PromptStore
	opts        driven.ChatOptions
	metrics     driven.MetricsRecorder
}

// NewRAGService creates a RAG service. llm may be nil, in which case
// answers that need generation report domain.ErrLLMUnavailable.
func NewRAGService(source PipelineSource, llm driven.LLMService, opts ...RAGOption) *RAGService {
	s := &RAGService{
		source:  source,
		llm:     llm,
		opts:    driven.ChatOptions{Temperature: DefaultTemperature},
		metrics: driven.NopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Retrieve runs only the retrieval pipeline.
func (s *RAGService) Retrieve(ctx context.Context, query string) ([]domain.ScoredChunk, error) {
	p := s.source.QueryPipeline()
	if p == nil {
		return nil, domain.ErrIndexClosed
	}
	return p.Retrieve(ctx, query)
}

// Answer retrieves context for query and asks the generator for a reply.
//
// With no retrieved chunks the fixed domain.NoRelevantInformation answer
// is returned and the generator is not called. A generator failure does
// not fail the call: the answer text describes the error and Answer.Err
// wraps domain.ErrGenerationFailed. Only retrieval errors are returned.
func (s *RAGService) Answer(ctx context.Context, query string, history []domain.ChatMessage) (*domain.Answer, error) {
	start := time.Now()

	chunks, err := s.Retrieve(ctx, query)
	if err != nil {
		s.metrics.CountAnswer(driven.OutcomeRetrieval)
		return nil, fmt.Errorf("retrieve: %w", err)
	}

	answer := &domain.Answer{Chunks: chunks}
	answer.Timings.Retrieval = time.Since(start)
	logger.Timing("retrieval", answer.Timings.Retrieval)

	if len(chunks) == 0 {
		answer.Text = domain.NoRelevantInformation
		answer.Timings.Total = time.Since(start)
		s.metrics.CountAnswer(driven.OutcomeNoContext)
		return answer, nil
	}

	answer.Context = FormatContext(chunks)
	answer.Messages = s.buildMessages(query, answer.Context, history)

	genStart := time.Now()
	text, err := s.generate(ctx, answer.Messages)
	answer.Timings.Generation = time.Since(genStart)
	answer.Timings.Total = time.Since(start)
	logger.Timing("generation", answer.Timings.Generation)
	s.metrics.ObserveGeneration(answer.Timings.Generation)

	if err != nil {
		logger.Error("Generation failed: %v", err)
		answer.Text = generationErrorPrefix + err.Error()
		answer.Err = fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
		s.metrics.CountAnswer(driven.OutcomeGenError)
		return answer, nil
	}

	answer.Text = text
	s.metrics.CountAnswer(driven.OutcomeGenerated)
	return answer, nil
}

func (s *RAGService) generate(ctx context.Context, messages []domain.ChatMessage) (string, error) {
	if s.llm == nil {
		return "", domain.ErrLLMUnavailable
	}
	return s.llm.Chat(ctx, messages, s.opts)
}

// buildMessages lays out the prompt: system message, prior turns, then a
// user turn carrying the documents and the query.
func (s *RAGService) buildMessages(query, docContext string, history []domain.ChatMessage) []domain.ChatMessage {
	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: s.loadPrompt(driven.PromptAnswerSystem, domain.DefaultAnswerSystemPrompt),
	})
	messages = append(messages, history...)

	tmpl := s.loadPrompt(driven.PromptAnswerContext, domain.DefaultAnswerContextPrompt)
	if strings.Count(tmpl, "%s") != 2 {
		logger.Warn("Prompt %s needs exactly two %%s placeholders, using built-in", driven.PromptAnswerContext)
		tmpl = domain.DefaultAnswerContextPrompt
	}
	messages = append(messages, domain.ChatMessage{
		Role:    domain.RoleUser,
		Content: fmt.Sprintf(tmpl, docContext, query),
	})
	return messages
}

// loadPrompt returns fallback when no store is set or it fails.
func (s *RAGService) loadPrompt(name, fallback string) string {
	if s.promptStore == nil {
		return fallback
	}
	prompt, err := s.promptStore.Load(name)
	if err != nil {
		return fallback
	}
	return prompt
}

// FormatContext numbers chunk texts as "Document N: text", separated by
// blank lines.
func FormatContext(chunks []domain.ScoredChunk) string {
	parts := make([]string, len(chunks))
	for i := range chunks {
		parts[i] = fmt.Sprintf("Document %d: %s", i+1, chunks[i].Chunk.Content)
	}
	return strings.Join(parts, "\n\n")
}
