package answers

import (
	"context"
	"sort"
	"sync"
)

type answerKey struct {
	blankID        string
	organizationID string
}

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu       sync.RWMutex
	answers  map[answerKey]Answer
	defaults map[answerKey]string
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		answers:  make(map[answerKey]Answer),
		defaults: make(map[answerKey]string),
	}
}

// Get returns the stored answer for a blank and organization.
func (r *MemoryRepo) Get(ctx context.Context, blankID, organizationID string) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.answers[answerKey{blankID, organizationID}]
	if !ok {
		return Answer{}, ErrNotFound
	}
	return a, nil
}

// ListByOrganization returns every answer an organization has stored, ordered by blank id.
func (r *MemoryRepo) ListByOrganization(ctx context.Context, organizationID string) ([]Answer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Answer, 0)
	for k, a := range r.answers {
		if k.organizationID == organizationID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BlankID < out[j].BlankID })
	return out, nil
}

// Upsert stores the answer and promoted default under one lock.
func (r *MemoryRepo) Upsert(ctx context.Context, answer Answer) (Answer, bool, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, false, err
	}
	key := answerKey{answer.BlankID, answer.OrganizationID}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.answers[key]; ok && existing.sameAs(answer) {
		return existing, false, nil
	}
	r.answers[key] = answer
	if answer.IsDefault {
		r.defaults[key] = answer.Value
	}
	return answer, true, nil
}

// Defaults returns the organization's promoted defaults keyed by blank id.
func (r *MemoryRepo) Defaults(ctx context.Context, organizationID string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string)
	for k, v := range r.defaults {
		if k.organizationID == organizationID {
			out[k.blankID] = v
		}
	}
	return out, nil
}

var _ Repo = (*MemoryRepo)(nil)
