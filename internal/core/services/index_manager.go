package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
	"github.com/custodia-labs/recall/internal/core/ports/driving"
	"github.com/custodia-labs/recall/internal/logger"
)

// Ensure IndexManager implements the interface.
var _ driving.IndexService = (*IndexManager)(nil)

// Mutation names reported to metrics.
const (
	opAdd     = "add"
	opRemove  = "remove"
	opRebuild = "rebuild"
)

// DocumentLoader reads every supported record in a folder.
type DocumentLoader interface {
	LoadFolder(ctx context.Context, dir string) (*LoadResult, error)
}

// IndexDependencies are the collaborators shared by every index manager.
type IndexDependencies struct {
	// Stores opens the persisted snapshot of an index.
	Stores driven.IndexStoreFactory

	// Embedder embeds chunks and queries.
	Embedder driven.EmbeddingService

	// NewVectorIndex returns an empty in-memory handle.
	NewVectorIndex func() driven.VectorIndex

	// NewChunker returns the ingest chain for a window size.
	NewChunker func(windowSize int) (driven.PostProcessorPipeline, error)

	// NewNodeChain returns a fresh query-time chain.
	NewNodeChain func() (driven.NodePostProcessorPipeline, error)

	// Loader reads records for Rebuild.
	Loader DocumentLoader

	// Metrics is optional.
	Metrics driven.MetricsRecorder
}

func (d IndexDependencies) validate() error {
	switch {
	case d.Stores == nil:
		return fmt.Errorf("%w: index store factory is required", domain.ErrInvalidInput)
	case d.Embedder == nil:
		return fmt.Errorf("%w: embedding service is required", domain.ErrInvalidInput)
	case d.NewVectorIndex == nil:
		return fmt.Errorf("%w: vector index constructor is required", domain.ErrInvalidInput)
	case d.NewChunker == nil:
		return fmt.Errorf("%w: chunker constructor is required", domain.ErrInvalidInput)
	case d.NewNodeChain == nil:
		return fmt.Errorf("%w: node chain constructor is required", domain.ErrInvalidInput)
	}
	return nil
}

// IndexOption configures an IndexManager.
type IndexOption func(*indexOptions)

type indexOptions struct {
	rebuildSource string
	topK          int
}

// WithRebuildSource names the folder an index is rebuilt from when its
// persisted configuration no longer matches, and the default folder for
// Rebuild.
func WithRebuildSource(dir string) IndexOption {
	return func(o *indexOptions) {
		o.rebuildSource = dir
	}
}

// WithSimilarityTopK sets how many nearest neighbours a query fetches
// before post-processing.
func WithSimilarityTopK(k int) IndexOption {
	return func(o *indexOptions) {
		if k > 0 {
			o.topK = k
		}
	}
}

// IndexManager owns one named index: its persisted snapshot, its in-memory
// vector handle and the query pipeline derived from that handle.
//
// Structural operations (add, remove, rebuild, list) are serialised by mu.
// Go mutexes are not re-entrant, so helpers suffixed with Locked expect mu
// to be held by the caller. Queries never take mu: they read the pipeline
// published through an atomic pointer.
type IndexManager struct {
	name       string
	path       string
	windowSize int
	opts       indexOptions
	deps       IndexDependencies
	metrics    driven.MetricsRecorder

	mu      sync.Mutex
	store   driven.IndexStore
	handle  driven.VectorIndex
	chunker driven.PostProcessorPipeline
	closed  bool

	pipeline   atomic.Pointer[QueryPipeline]
	generation atomic.Uint64
}

// OpenIndexManager loads the index persisted at dir/name, or creates and
// persists an empty one.
//
// Persisted state that cannot be read yields domain.ErrStorageCorrupt.
// If the persisted index was built with another window size or embedding
// model it is rebuilt from the rebuild source when one is configured;
// otherwise domain.ErrWindowSizeDrift or domain.ErrEmbeddingDrift is returned.
func OpenIndexManager(
	ctx context.Context,
	deps IndexDependencies,
	name, dir string,
	windowSize int,
	opts ...IndexOption,
) (*IndexManager, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: index name is empty", domain.ErrInvalidInput)
	}
	if windowSize < 0 {
		return nil, fmt.Errorf("%w: window size %d is negative", domain.ErrInvalidInput, windowSize)
	}

	o := indexOptions{topK: domain.DefaultSimilarityTopK}
	for _, opt := range opts {
		opt(&o)
	}

	chunker, err := deps.NewChunker(windowSize)
	if err != nil {
		return nil, fmt.Errorf("build chunker: %w", err)
	}

	m := &IndexManager{
		name:       name,
		path:       filepath.Join(dir, name),
		windowSize: windowSize,
		opts:       o,
		deps:       deps,
		metrics:    deps.Metrics,
		chunker:    chunker,
	}
	if m.metrics == nil {
		m.metrics = driven.NopMetrics{}
	}

	store, err := deps.Stores.Open(ctx, m.path)
	if err != nil {
		return nil, fmt.Errorf("open index %q: %w", name, err)
	}
	m.store = store

	m.mu.Lock()
	defer m.mu.Unlock()

	drift, err := m.loadLocked(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	if drift != nil {
		if o.rebuildSource == "" {
			_ = store.Close()
			return nil, drift
		}
		logger.Warn("Index %q: %v, rebuilding from %s", name, drift, o.rebuildSource)
		if _, err := m.rebuildLocked(ctx, o.rebuildSource); err != nil {
			_ = m.store.Close()
			return nil, fmt.Errorf("rebuild index %q: %w", name, err)
		}
	}

	logger.Info("Index %q opened at %s with %d chunks", name, m.path, m.handle.Len())
	return m, nil
}

// loadLocked reads the persisted snapshot into a fresh handle.
// A configuration mismatch is returned as drift rather than as an error so
// the caller can decide to rebuild.
func (m *IndexManager) loadLocked(ctx context.Context) (drift, err error) {
	cfg, err := m.store.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("read index config: %w", err)
	}

	if cfg == nil {
		if err := m.store.SaveConfig(ctx, m.currentConfig()); err != nil {
			return nil, fmt.Errorf("%w: save index config: %w", domain.ErrPersistenceFailed, err)
		}
	} else {
		drift = m.checkDrift(cfg)
	}

	if err := m.reloadHandleLocked(ctx); err != nil {
		return nil, err
	}
	return drift, nil
}

func (m *IndexManager) currentConfig() domain.IndexConfig {
	return domain.IndexConfig{
		WindowSize:     m.windowSize,
		EmbeddingModel: m.deps.Embedder.ModelName(),
		Dimensions:     m.deps.Embedder.Dimensions(),
	}
}

func (m *IndexManager) checkDrift(cfg *domain.IndexConfig) error {
	if cfg.WindowSize != m.windowSize {
		return fmt.Errorf("%w: persisted %d, requested %d",
			domain.ErrWindowSizeDrift, cfg.WindowSize, m.windowSize)
	}
	want := m.currentConfig()
	if cfg.EmbeddingModel != want.EmbeddingModel || cfg.Dimensions != want.Dimensions {
		return fmt.Errorf("%w: persisted %s/%d, configured %s/%d", domain.ErrEmbeddingDrift,
			cfg.EmbeddingModel, cfg.Dimensions, want.EmbeddingModel, want.Dimensions)
	}
	return nil
}

// reloadHandleLocked replaces the in-memory handle with the persisted
// chunks and publishes a new pipeline.
func (m *IndexManager) reloadHandleLocked(ctx context.Context) error {
	chunks, err := m.store.LoadChunks(ctx)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}

	handle, err := m.fillHandle(ctx, chunks)
	if err != nil {
		return fmt.Errorf("%w: persisted chunks rejected: %w", domain.ErrStorageCorrupt, err)
	}
	m.handle = handle
	return m.publishLocked()
}

// fillHandle returns a new handle holding chunks. Replaced handles are not
// closed: queries that fetched an earlier pipeline finish against it.
func (m *IndexManager) fillHandle(ctx context.Context, chunks []domain.Chunk) (driven.VectorIndex, error) {
	handle := m.deps.NewVectorIndex()
	if len(chunks) == 0 {
		return handle, nil
	}
	if err := handle.Insert(ctx, chunks); err != nil {
		_ = handle.Close()
		return nil, err
	}
	return handle, nil
}

// publishLocked derives a new query pipeline from the current handle.
// Pipelines are never patched in place.
func (m *IndexManager) publishLocked() error {
	chain, err := m.deps.NewNodeChain()
	if err != nil {
		return fmt.Errorf("build query chain: %w", err)
	}

	p := &QueryPipeline{
		index:      m.name,
		handle:     m.handle,
		embedder:   m.deps.Embedder,
		chain:      chain,
		topK:       m.opts.topK,
		generation: m.generation.Add(1),
		metrics:    m.metrics,
	}
	m.pipeline.Store(p)
	m.metrics.SetChunks(m.name, m.handle.Len())
	return nil
}

// Name returns the index name.
func (m *IndexManager) Name() string {
	return m.name
}

// Path returns where the index is persisted.
func (m *IndexManager) Path() string {
	return m.path
}

// WindowSize returns the sentence window the index is chunked with.
func (m *IndexManager) WindowSize() int {
	return m.windowSize
}

// QueryPipeline returns the current query pipeline.
// Callers should fetch it per query; it is replaced after every mutation.
func (m *IndexManager) QueryPipeline() *QueryPipeline {
	return m.pipeline.Load()
}

// ==================== Mutations ====================

// AddDocuments chunks, embeds, inserts and persists documents.
// Documents without text are logged and skipped. Returns the number of
// chunks inserted. Chunking and embedding run before the lock is taken;
// insert and persist hold it.
func (m *IndexManager) AddDocuments(ctx context.Context, docs []domain.Document) (int, error) {
	prepared, chunks, err := m.prepare(ctx, docs)
	if err != nil {
		m.metrics.CountMutation(m.name, opAdd, err)
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.insertLocked(ctx, prepared, chunks)
	m.metrics.CountMutation(m.name, opAdd, err)
	return n, err
}

// prepare chunks and embeds documents. It touches no shared state, so
// it runs outside the manager lock.
func (m *IndexManager) prepare(ctx context.Context, docs []domain.Document) ([]domain.Document, []domain.Chunk, error) {
	prepared := make([]domain.Document, 0, len(docs))
	var chunks []domain.Chunk //nolint:prealloc // size unknown until chunked

	for i := range docs {
		doc := docs[i]
		if doc.ID == "" {
			doc.ID = uuid.New().String()
		}
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = time.Now()
		}

		docChunks, err := m.chunker.Process(ctx, &doc)
		if errors.Is(err, domain.ErrEmptyDocument) {
			logger.Error("Skipping document %s (%s): %v", doc.ID, doc.URI, err)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("chunk document %s: %w", doc.ID, err)
		}

		prepared = append(prepared, doc)
		chunks = append(chunks, docChunks...)
	}

	if len(chunks) == 0 {
		return prepared, nil, nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	vectors, err := m.deps.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, nil, fmt.Errorf("%w: embedder returned %d vectors for %d chunks",
			domain.ErrEmbeddingUnavailable, len(vectors), len(chunks))
	}
	for i := range chunks {
		chunks[i].Embedding = vectors[i]
	}

	return prepared, chunks, nil
}

// insertLocked adds prepared chunks to the handle and persists them.
func (m *IndexManager) insertLocked(ctx context.Context, docs []domain.Document, chunks []domain.Chunk) (int, error) {
	if m.closed {
		return 0, domain.ErrIndexClosed
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	if err := m.handle.Insert(ctx, chunks); err != nil {
		// the handle may hold part of the batch
		if reloadErr := m.reloadHandleLocked(ctx); reloadErr != nil {
			return 0, fmt.Errorf("insert chunks: %w (reload: %w)", err, reloadErr)
		}
		return 0, fmt.Errorf("insert chunks: %w", err)
	}

	changes := driven.ChangeSet{Documents: docs, Upserts: chunks}
	if err := m.persistLocked(ctx, changes); err != nil {
		return 0, err
	}

	logger.Info("Index %q: added %d documents as %d chunks", m.name, len(docs), len(chunks))
	return len(chunks), nil
}

// persistLocked writes a change set and republishes the pipeline. When the
// write fails the handle is reloaded from storage so both agree again.
func (m *IndexManager) persistLocked(ctx context.Context, changes driven.ChangeSet) error {
	if err := m.store.ApplyChanges(ctx, changes); err != nil {
		return m.persistFailedLocked(ctx, err)
	}
	return m.publishLocked()
}

// persistFailedLocked realigns the handle with storage after a failed
// write and returns domain.ErrPersistenceFailed wrapping err.
func (m *IndexManager) persistFailedLocked(ctx context.Context, err error) error {
	logger.Error("Index %q: persisting changes failed: %v", m.name, err)
	if reloadErr := m.reloadHandleLocked(ctx); reloadErr != nil {
		return fmt.Errorf("%w: %w (reload: %w)", domain.ErrPersistenceFailed, err, reloadErr)
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistenceFailed, err)
}

// RemoveBySourceID removes every chunk whose source_id equals sourceID,
// together with documents left without chunks. Zero matches is not an error.
func (m *IndexManager) RemoveBySourceID(ctx context.Context, sourceID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.removeLocked(ctx, sourceID)
	m.metrics.CountMutation(m.name, opRemove, err)
	return n, err
}

func (m *IndexManager) removeLocked(ctx context.Context, sourceID string) (int, error) {
	if m.closed {
		return 0, domain.ErrIndexClosed
	}

	var removed []string
	touched := make(map[string]bool)
	remaining := make(map[string]int)

	for _, chunk := range m.handle.Chunks() {
		if id, ok := chunk.SourceID(); ok && id == sourceID {
			removed = append(removed, chunk.ID)
			touched[chunk.DocumentID] = true
			continue
		}
		remaining[chunk.DocumentID]++
	}

	if len(removed) == 0 {
		logger.Debug("Index %q: no chunks with source_id %q", m.name, sourceID)
		return 0, nil
	}

	for _, id := range removed {
		if err := m.handle.Delete(ctx, id); err != nil {
			return 0, fmt.Errorf("delete chunk %s: %w", id, err)
		}
	}

	var orphaned []string //nolint:prealloc // size unknown from query
	for docID := range touched {
		if remaining[docID] == 0 {
			orphaned = append(orphaned, docID)
		}
	}

	changes := driven.ChangeSet{Deletes: removed, DeleteDocuments: orphaned}
	if err := m.persistLocked(ctx, changes); err != nil {
		return 0, err
	}

	logger.Info("Index %q: removed %d chunks for source_id %q", m.name, len(removed), sourceID)
	return len(removed), nil
}

// Rebuild discards all persisted state and reloads the index from the
// records in sourceFolder, or the configured rebuild source when empty.
//
// The records are read, chunked and embedded into a new handle before
// anything is deleted, and queries keep using the old pipeline until the
// new one is published. A folder that cannot be read or embedded leaves the
// index untouched.
func (m *IndexManager) Rebuild(ctx context.Context, sourceFolder string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, err := m.rebuildLocked(ctx, sourceFolder)
	m.metrics.CountMutation(m.name, opRebuild, err)
	return n, err
}

func (m *IndexManager) rebuildLocked(ctx context.Context, sourceFolder string) (int, error) {
	if m.closed {
		return 0, domain.ErrIndexClosed
	}
	if sourceFolder == "" {
		sourceFolder = m.opts.rebuildSource
	}
	if sourceFolder == "" {
		return 0, fmt.Errorf("%w: no rebuild source folder", domain.ErrInvalidInput)
	}
	if m.deps.Loader == nil {
		return 0, fmt.Errorf("document loader: %w", domain.ErrNotConfigured)
	}

	loaded, err := m.deps.Loader.LoadFolder(ctx, sourceFolder)
	if err != nil {
		return 0, fmt.Errorf("load %s: %w", sourceFolder, err)
	}
	for _, path := range loaded.Rejected {
		logger.Error("Skipping malformed record %s", path)
	}

	logger.Info("Index %q: rebuilding from %s (%d documents)", m.name, sourceFolder, len(loaded.Documents))

	docs, chunks, err := m.prepare(ctx, loaded.Documents)
	if err != nil {
		return 0, err
	}
	handle, err := m.fillHandle(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("insert chunks: %w", err)
	}

	if err := m.replaceStoreLocked(ctx, driven.ChangeSet{Documents: docs, Upserts: chunks}); err != nil {
		_ = handle.Close()
		return 0, err
	}

	m.handle = handle
	if err := m.publishLocked(); err != nil {
		return 0, err
	}
	logger.Info("Index %q: rebuilt with %d documents as %d chunks", m.name, len(docs), len(chunks))
	return len(chunks), nil
}

// replaceStoreLocked deletes the persisted index and writes changes into a
// new one. Once the old state is gone a failed write leaves the handle
// matching whatever the new store holds.
func (m *IndexManager) replaceStoreLocked(ctx context.Context, changes driven.ChangeSet) error {
	if err := m.store.Close(); err != nil {
		logger.Warn("Index %q: closing store before rebuild: %v", m.name, err)
	}
	if err := m.deps.Stores.Remove(m.path); err != nil {
		m.closed = true
		return fmt.Errorf("remove index state: %w", err)
	}
	store, err := m.deps.Stores.Open(ctx, m.path)
	if err != nil {
		m.closed = true
		return fmt.Errorf("recreate index: %w", err)
	}
	m.store = store

	if err := m.store.SaveConfig(ctx, m.currentConfig()); err != nil {
		return m.persistFailedLocked(ctx, fmt.Errorf("save index config: %w", err))
	}
	if len(changes.Upserts) == 0 {
		return nil
	}
	if err := m.store.ApplyChanges(ctx, changes); err != nil {
		return m.persistFailedLocked(ctx, err)
	}
	return nil
}

// ==================== Reads ====================

// ListDocuments returns the metadata of every chunk keyed by chunk ID.
func (m *IndexManager) ListDocuments(_ context.Context) (map[string]map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, domain.ErrIndexClosed
	}

	chunks := m.handle.Chunks()
	result := make(map[string]map[string]any, len(chunks))
	for i := range chunks {
		result[chunks[i].ID] = domain.CopyMetadata(chunks[i].Metadata)
	}
	return result, nil
}

// Chunks returns every chunk in insertion order.
func (m *IndexManager) Chunks() []domain.Chunk {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	return m.handle.Chunks()
}

// Stats summarises the index.
func (m *IndexManager) Stats(_ context.Context) (domain.IndexStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domain.IndexStats{}, domain.ErrIndexClosed
	}

	chunks := m.handle.Chunks()
	docs := make(map[string]struct{})
	for i := range chunks {
		docs[chunks[i].DocumentID] = struct{}{}
	}

	return domain.IndexStats{
		Name:       m.name,
		Path:       m.store.Path(),
		WindowSize: m.windowSize,
		Documents:  len(docs),
		Chunks:     len(chunks),
	}, nil
}

// Close releases the handle and the store. Further operations fail with
// domain.ErrIndexClosed.
func (m *IndexManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	if m.handle != nil {
		if err := m.handle.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close handle: %w", err))
		}
	}
	if err := m.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
