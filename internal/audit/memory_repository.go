package audit

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu        sync.RWMutex
	bySubject map[string][]Attempt
}

// NewInMemoryRepository creates a new in-memory audit repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		bySubject: make(map[string][]Attempt),
	}
}

// Append stores an attempt.
func (r *InMemoryRepository) Append(_ context.Context, a *Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bySubject[a.SubjectID] = append(r.bySubject[a.SubjectID], *a)
	return nil
}

// ListBySubject returns all entries for a subject, oldest first.
func (r *InMemoryRepository) ListBySubject(_ context.Context, subjectID string) ([]*Attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := r.bySubject[subjectID]
	out := make([]*Attempt, 0, len(entries))
	for i := range entries {
		cpy := entries[i]
		out = append(out, &cpy)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
