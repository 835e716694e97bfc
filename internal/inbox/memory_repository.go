package inbox

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewInMemoryRepository creates a new in-memory inbox repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		entries: make(map[string]*Entry),
	}
}

// Add stores a new entry.
func (r *InMemoryRepository) Add(_ context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[e.ID] = copyEntry(e)
	return nil
}

// Get retrieves an entry from a boat's inbox.
func (r *InMemoryRepository) Get(_ context.Context, boat, id string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok || e.Boat != boat {
		return nil, ErrEntryNotFound
	}
	return copyEntry(e), nil
}

// ListForBoat returns a boat's entries, newest first.
func (r *InMemoryRepository) ListForBoat(_ context.Context, boat string, opts ListOptions) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entry
	for _, e := range r.entries {
		if e.Boat != boat {
			continue
		}
		if opts.ActiveOnly && !e.Active {
			continue
		}
		out = append(out, copyEntry(e))
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkRead flags an entry read.
func (r *InMemoryRepository) MarkRead(_ context.Context, boat, id string, at time.Time) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.Boat != boat {
		return nil, ErrEntryNotFound
	}
	markRead(e, at)
	return copyEntry(e), nil
}

// Acknowledge flags an entry acknowledged.
func (r *InMemoryRepository) Acknowledge(_ context.Context, boat, id string, at time.Time) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok || e.Boat != boat {
		return nil, ErrEntryNotFound
	}
	markRead(e, at)
	if !e.Acknowledged {
		e.Acknowledged = true
		e.AcknowledgedAt = &at
	}
	return copyEntry(e), nil
}

// DeactivateBySource hides every entry created from sourceID.
func (r *InMemoryRepository) DeactivateBySource(_ context.Context, sourceID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.SourceID == sourceID && e.Active {
			e.Active = false
			n++
		}
	}
	return n, nil
}

func markRead(e *Entry, at time.Time) {
	if e.Read {
		return
	}
	e.Read = true
	e.ReadAt = &at
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
