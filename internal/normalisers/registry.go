package normalisers

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/custodia-labs/recall/internal/core/domain"
	"github.com/custodia-labs/recall/internal/core/ports/driven"
)

var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches a raw document to the highest priority normaliser
// claiming its MIME type. Equal priorities keep registration order.
type Registry struct {
	mu    sync.RWMutex
	byPri []driven.Normaliser
}

func NewRegistry(normalisers ...driven.Normaliser) *Registry {
	r := &Registry{}
	for _, n := range normalisers {
		r.Register(n)
	}
	return r
}

func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPri = append(r.byPri, n)
	slices.SortStableFunc(r.byPri, func(a, b driven.Normaliser) int {
		return cmp.Compare(b.Priority(), a.Priority())
	})
}

// Normalise returns domain.ErrUnsupportedType when nothing claims the
// document's MIME type.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	n, ok := r.lookup(raw.MIMEType)
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedType, raw.MIMEType, raw.URI)
	}
	return n.Normalise(ctx, raw)
}

func (r *Registry) Supports(mimeType string) bool {
	_, ok := r.lookup(mimeType)
	return ok
}

func (r *Registry) lookup(mimeType string) (driven.Normaliser, bool) {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	r.mu.RLock()
	defer r.mu.RUnlock()
	i := slices.IndexFunc(r.byPri, func(n driven.Normaliser) bool {
		return slices.Contains(n.SupportedMIMETypes(), mimeType)
	})
	if i < 0 {
		return nil, false
	}
	return r.byPri[i], true
}

// SupportedMIMETypes returns the union of the claimed MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var types []string
	for _, n := range r.byPri {
		types = append(types, n.SupportedMIMETypes()...)
	}
	slices.Sort(types)
	return slices.Compact(types)
}
