package navigation

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryPortRepository is an in-memory implementation of PortRepository.
type InMemoryPortRepository struct {
	mu    sync.RWMutex
	ports map[string]*Port
}

// NewInMemoryPortRepository creates a port store holding the given ports.
func NewInMemoryPortRepository(seed ...*Port) *InMemoryPortRepository {
	r := &InMemoryPortRepository{ports: make(map[string]*Port)}
	for _, p := range seed {
		r.ports[p.ID] = copyPort(p)
	}
	return r
}

// List returns all ports ordered by ID.
func (r *InMemoryPortRepository) List(_ context.Context) ([]*Port, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Port, 0, len(r.ports))
	for _, p := range r.ports {
		out = append(out, copyPort(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Get retrieves a port by ID.
func (r *InMemoryPortRepository) Get(_ context.Context, id string) (*Port, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.ports[id]
	if !ok {
		return nil, ErrPortNotFound
	}
	return copyPort(p), nil
}

// Create stores a new port.
func (r *InMemoryPortRepository) Create(_ context.Context, p *Port) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ports[p.ID]; ok {
		return ErrPortExists
	}
	r.ports[p.ID] = copyPort(p)
	return nil
}

// Update replaces a port's attributes.
func (r *InMemoryPortRepository) Update(_ context.Context, p *Port) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ports[p.ID]; !ok {
		return ErrPortNotFound
	}
	r.ports[p.ID] = copyPort(p)
	return nil
}

// Deactivate marks a port inactive.
func (r *InMemoryPortRepository) Deactivate(_ context.Context, id string, at time.Time) (*Port, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.ports[id]
	if !ok {
		return nil, ErrPortNotFound
	}
	if p.Active {
		t := at
		p.Active = false
		p.DeactivatedAt = &t
		p.UpdatedAt = at
	}
	return copyPort(p), nil
}

// InMemoryTrackRepository is an in-memory implementation of TrackRepository.
type InMemoryTrackRepository struct {
	mu         sync.RWMutex
	history    map[string][]*HistoryEntry
	advisories map[string]*Advisory
}

// NewInMemoryTrackRepository creates a new in-memory track repository.
func NewInMemoryTrackRepository() *InMemoryTrackRepository {
	return &InMemoryTrackRepository{
		history:    make(map[string][]*HistoryEntry),
		advisories: make(map[string]*Advisory),
	}
}

// AppendHistory records a position.
func (r *InMemoryTrackRepository) AppendHistory(_ context.Context, e *HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *e
	r.history[e.Boat] = append(r.history[e.Boat], &cp)
	return nil
}

// ListHistory returns a boat's newest positions first.
func (r *InMemoryTrackRepository) ListHistory(_ context.Context, boat string, limit int) ([]*HistoryEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.history[boat]
	out := make([]*HistoryEntry, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		cp := *log[i]
		out = append(out, &cp)
	}
	return out, nil
}

// SaveAdvisory replaces a boat's advisory.
func (r *InMemoryTrackRepository) SaveAdvisory(_ context.Context, a *Advisory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.advisories[a.Boat] = copyAdvisory(a)
	return nil
}

// GetAdvisory returns a boat's advisory.
func (r *InMemoryTrackRepository) GetAdvisory(_ context.Context, boat string) (*Advisory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.advisories[boat]
	if !ok {
		return nil, ErrNoAdvisory
	}
	return copyAdvisory(a), nil
}

// Ensure the in-memory repositories implement their interfaces.
var (
	_ PortRepository  = (*InMemoryPortRepository)(nil)
	_ TrackRepository = (*InMemoryTrackRepository)(nil)
)

// Ensure the in-memory repositories implement their interfaces.
var (
	_ PortRepository  = (*InMemoryPortRepository)(nil)
	_ TrackRepository = (*InMemoryTrackRepository)(nil)
)
