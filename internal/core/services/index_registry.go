package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/recall/internal/core/domain"
)

// IndexRegistry owns the open index managers of the process. Managers are
// opened on first use and shared afterwards; Close releases all of them.
type IndexRegistry struct {
	deps       IndexDependencies
	dir        string
	windowSize int
	opts       []IndexOption

	mu       sync.Mutex
	managers map[string]*IndexManager
	closed   bool
}

// NewIndexRegistry creates a registry opening indexes under dir.
func NewIndexRegistry(deps IndexDependencies, dir string, windowSize int, opts ...IndexOption) *IndexRegistry {
	return &IndexRegistry{
		deps:       deps,
		dir:        dir,
		windowSize: windowSize,
		opts:       opts,
		managers:   make(map[string]*IndexManager),
	}
}

// Get returns the manager for name, opening it if needed.
func (r *IndexRegistry) Get(ctx context.Context, name string) (*IndexManager, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, fmt.Errorf("index registry: %w", domain.ErrIndexClosed)
	}
	if m, ok := r.managers[name]; ok {
		return m, nil
	}

	m, err := OpenIndexManager(ctx, r.deps, name, r.dir, r.windowSize, r.opts...)
	if err != nil {
		return nil, err
	}
	r.managers[name] = m
	return m, nil
}

// Names returns the open index names, sorted.
func (r *IndexRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.managers))
	for name := range r.managers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes every open manager. The registry cannot be used afterwards.
func (r *IndexRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for name, m := range r.managers {
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close index %q: %w", name, err))
		}
	}
	r.managers = nil
	return errors.Join(errs...)
}
