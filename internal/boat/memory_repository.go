package boat

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/uyirkavalan/uyirkavalan/internal/geo"
)

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu    sync.RWMutex
	boats map[string]*Boat
}

// NewInMemoryRepository creates a new in-memory boat repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		boats: make(map[string]*Boat),
	}
}

// Get retrieves a boat by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Boat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.boats[id]
	if !ok {
		return nil, ErrBoatNotFound
	}
	return copyBoat(b), nil
}

// ListActive returns all active boats ordered by ID.
func (r *InMemoryRepository) ListActive(_ context.Context) ([]*Boat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	boats := make([]*Boat, 0, len(r.boats))
	for _, b := range r.boats {
		if b.Active {
			boats = append(boats, copyBoat(b))
		}
	}

	sort.Slice(boats, func(i, j int) bool { return boats[i].ID < boats[j].ID })
	return boats, nil
}

// Upsert creates or replaces a boat profile.
func (r *InMemoryRepository) Upsert(_ context.Context, b *Boat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cpy := copyBoat(b)
	if existing, ok := r.boats[b.ID]; ok {
		cpy.LastKnownLocation = copyBoat(existing).LastKnownLocation
		cpy.CreatedAt = existing.CreatedAt
	}
	r.boats[b.ID] = cpy
	return nil
}

// UpdateLastLocation sets the boat's last known location.
func (r *InMemoryRepository) UpdateLastLocation(_ context.Context, id string, loc geo.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.boats[id]
	if !ok {
		return ErrBoatNotFound
	}

	stored := loc
	if loc.Accuracy != nil {
		acc := *loc.Accuracy
		stored.Accuracy = &acc
	}
	b.LastKnownLocation = &stored
	b.UpdatedAt = time.Now()
	return nil
}

// Deactivate marks the boat inactive.
func (r *InMemoryRepository) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.boats[id]
	if !ok {
		return ErrBoatNotFound
	}
	b.Active = false
	b.UpdatedAt = time.Now()
	return nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
