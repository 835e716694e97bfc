package sos

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu    sync.RWMutex
	cases map[string]*Case
}

// NewInMemoryRepository creates a new in-memory SOS repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		cases: make(map[string]*Case),
	}
}

// Create stores a new case.
func (r *InMemoryRepository) Create(_ context.Context, c *Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cases[c.ID] = copyCase(c)
	return nil
}

// Get retrieves a case by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Case, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cases[id]
	if !ok {
		return nil, ErrCaseNotFound
	}
	return copyCase(c), nil
}

// Update replaces a stored case.
func (r *InMemoryRepository) Update(_ context.Context, c *Case) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cases[c.ID]; !ok {
		return ErrCaseNotFound
	}
	r.cases[c.ID] = copyCase(c)
	return nil
}

// ListForBoat returns a boat's most recent cases, newest first.
func (r *InMemoryRepository) ListForBoat(_ context.Context, boatID string, limit int) ([]*Case, error) {
	out := r.filter(func(c *Case) bool { return c.Boat == boatID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListActive returns all active cases, newest first.
func (r *InMemoryRepository) ListActive(_ context.Context) ([]*Case, error) {
	return r.filter(func(c *Case) bool { return c.Status == StatusActive }), nil
}

// Stats counts cases by status.
func (r *InMemoryRepository) Stats(_ context.Context) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &Stats{Total: len(r.cases)}
	for _, c := range r.cases {
		switch c.Status {
		case StatusActive:
			stats.Active++
		case StatusResolved:
			stats.Resolved++
		}
	}
	return stats, nil
}

func (r *InMemoryRepository) filter(keep func(*Case) bool) []*Case {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Case
	for _, c := range r.cases {
		if keep(c) {
			out = append(out, copyCase(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
