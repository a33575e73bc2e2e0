package blanks

import (
	"context"
	"sync"
)

// MemoryRegistry serves a Catalog held in memory. Replace swaps it atomically.
type MemoryRegistry struct {
	mu      sync.RWMutex
	catalog *Catalog
}

// NewMemoryRegistry constructs a MemoryRegistry; a nil catalog serves nothing.
func NewMemoryRegistry(catalog *Catalog) *MemoryRegistry {
	if catalog == nil {
		catalog, _ = NewCatalog(nil, nil)
	}
	return &MemoryRegistry{catalog: catalog}
}

// Replace installs a new catalog snapshot.
func (r *MemoryRegistry) Replace(catalog *Catalog) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = catalog
}

func (r *MemoryRegistry) snapshot() *Catalog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.catalog
}

// ListBlanks returns blanks matching the filter.
func (r *MemoryRegistry) ListBlanks(ctx context.Context, filter Filter) ([]Blank, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.snapshot().Blanks(filter), nil
}

// InScope returns the question sequence for a policy.
func (r *MemoryRegistry) InScope(ctx context.Context, policyID string) ([]Blank, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.snapshot().InScope(policyID), nil
}

// Get returns a blank by id.
func (r *MemoryRegistry) Get(ctx context.Context, id string) (Blank, error) {
	if err := ctx.Err(); err != nil {
		return Blank{}, err
	}
	b, ok := r.snapshot().Blank(id)
	if !ok {
		return Blank{}, ErrNotFound
	}
	return b, nil
}

// GetDefault returns the registry default for a blank; absence is not an error.
func (r *MemoryRegistry) GetDefault(ctx context.Context, id string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	b, ok := r.snapshot().Blank(id)
	if !ok {
		return "", false, nil
	}
	v, ok := b.Default()
	return v, ok, nil
}

// ListPolicies returns every catalog policy.
func (r *MemoryRegistry) ListPolicies(ctx context.Context) ([]Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.snapshot().Policies(), nil
}

var _ Registry = (*MemoryRegistry)(nil)
