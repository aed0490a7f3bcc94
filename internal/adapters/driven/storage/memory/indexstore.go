package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

// Ensure IndexStore implements the interface.
var _ driven.IndexStore = (*IndexStore)(nil)

// IndexStore is an in-memory implementation of driven.IndexStore for testing.
// A change set is applied all-or-nothing, like the SQLite store.
type IndexStore struct {
	mu        sync.RWMutex
	path      string
	documents map[string]domain.Document
	docOrder  []string
	chunks    map[string]domain.Chunk
	order     []string
	config    *domain.IndexConfig
	applyErr  error
	applies   int
	closed    bool
}

// NewIndexStore creates a new in-memory index store.
func NewIndexStore(path string) *IndexStore {
	return &IndexStore{
		path:      path,
		documents: make(map[string]domain.Document),
		chunks:    make(map[string]domain.Chunk),
	}
}

// FailApplies makes every following ApplyChanges return err without
// changing state. Passing nil restores normal behaviour.
func (s *IndexStore) FailApplies(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyErr = err
}

// Applies returns how many change sets were committed.
func (s *IndexStore) Applies() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applies
}

// Closed reports whether Close was called.
func (s *IndexStore) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// ApplyChanges applies the change set.
func (s *IndexStore) ApplyChanges(_ context.Context, changes driven.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.applyErr != nil {
		return s.applyErr
	}
	if changes.Empty() {
		return nil
	}

	for i := range changes.Documents {
		doc := changes.Documents[i]
		if _, ok := s.documents[doc.ID]; !ok {
			s.docOrder = append(s.docOrder, doc.ID)
		}
		s.documents[doc.ID] = doc
	}
	for i := range changes.Upserts {
		chunk := changes.Upserts[i]
		if _, ok := s.chunks[chunk.ID]; !ok {
			s.order = append(s.order, chunk.ID)
		}
		s.chunks[chunk.ID] = chunk
	}
	for _, id := range changes.Deletes {
		delete(s.chunks, id)
	}
	for _, id := range changes.DeleteDocuments {
		delete(s.documents, id)
		for chunkID, chunk := range s.chunks {
			if chunk.DocumentID == id {
				delete(s.chunks, chunkID)
			}
		}
	}

	s.order = compact(s.order, func(id string) bool { _, ok := s.chunks[id]; return ok })
	s.docOrder = compact(s.docOrder, func(id string) bool { _, ok := s.documents[id]; return ok })
	s.applies++
	return nil
}

// LoadChunks returns every chunk in insertion order.
func (s *IndexStore) LoadChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Chunk, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.chunks[id])
	}
	return result, nil
}

// ListDocuments returns every document in insertion order.
func (s *IndexStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Document, 0, len(s.docOrder))
	for _, id := range s.docOrder {
		result = append(result, s.documents[id])
	}
	return result, nil
}

// GetConfig returns the stored configuration, or nil if none was saved.
func (s *IndexStore) GetConfig(_ context.Context) (*domain.IndexConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return nil, nil
	}
	cfg := *s.config
	return &cfg, nil
}

// SaveConfig stores the configuration.
func (s *IndexStore) SaveConfig(_ context.Context, cfg domain.IndexConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = &cfg
	return nil
}

// Path returns the path the store was created with.
func (s *IndexStore) Path() string {
	return s.path
}

// Close marks the store closed. State is kept so it can be reopened.
func (s *IndexStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func compact(ids []string, keep func(string) bool) []string {
	out := ids[:0]
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}

// ==================== Factory ====================

// Ensure IndexStoreFactory implements the interface.
var _ driven.IndexStoreFactory = (*IndexStoreFactory)(nil)

// IndexStoreFactory hands out in-memory stores keyed by directory.
// Reopening a directory returns the same store, so state survives
// Close and Open the way a file would.
type IndexStoreFactory struct {
	mu      sync.Mutex
	stores  map[string]*IndexStore
	openErr map[string]error
	removed []string
}

// NewIndexStoreFactory creates an empty factory.
func NewIndexStoreFactory() *IndexStoreFactory {
	return &IndexStoreFactory{
		stores:  make(map[string]*IndexStore),
		openErr: make(map[string]error),
	}
}

// Open returns the store for dir, creating it on first use.
func (f *IndexStoreFactory) Open(_ context.Context, dir string) (driven.IndexStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.openErr[dir]; err != nil {
		return nil, err
	}
	store, ok := f.stores[dir]
	if !ok {
		store = NewIndexStore(dir)
		f.stores[dir] = store
	}
	store.mu.Lock()
	store.closed = false
	store.mu.Unlock()
	return store, nil
}

// Remove forgets the store for dir.
func (f *IndexStoreFactory) Remove(dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stores, dir)
	f.removed = append(f.removed, dir)
	return nil
}

// Store returns the store for dir, if one was opened.
func (f *IndexStoreFactory) Store(dir string) (*IndexStore, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	store, ok := f.stores[dir]
	return store, ok
}

// FailOpen makes Open for dir return err.
func (f *IndexStoreFactory) FailOpen(dir string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErr[dir] = err
}

// Removed returns the directories passed to Remove.
func (f *IndexStoreFactory) Removed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.removed...)
}
