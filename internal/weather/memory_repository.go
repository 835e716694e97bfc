package weather

import (
	"context"
	"sync"
)

// InMemoryRepository is an in-memory implementation of SnapshotRepository.
type InMemoryRepository struct {
	mu    sync.RWMutex
	boats map[string]*BoatConditions
}

// NewInMemoryRepository creates a new in-memory snapshot repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{boats: make(map[string]*BoatConditions)}
}

// Save replaces the boat's conditions.
func (r *InMemoryRepository) Save(_ context.Context, c *BoatConditions) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boats[c.Snapshot.Boat] = &BoatConditions{
		Snapshot:   copySnapshot(c.Snapshot),
		Assessment: copyAssessment(c.Assessment),
	}
	return nil
}

// Get returns the boat's conditions.
func (r *InMemoryRepository) Get(_ context.Context, boatID string) (*BoatConditions, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.boats[boatID]
	if !ok {
		return nil, ErrNoWeatherData
	}
	return &BoatConditions{
		Snapshot:   copySnapshot(c.Snapshot),
		Assessment: copyAssessment(c.Assessment),
	}, nil
}

// Ensure InMemoryRepository implements SnapshotRepository interface.
var _ SnapshotRepository = (*InMemoryRepository)(nil)
