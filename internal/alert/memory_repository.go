package alert

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu     sync.RWMutex
	alerts map[string]*Alert
}

// NewInMemoryRepository creates a new in-memory alert repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		alerts: make(map[string]*Alert),
	}
}

// Create stores a new alert.
func (r *InMemoryRepository) Create(_ context.Context, a *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts[a.ID] = copyAlert(a)
	return nil
}

// Get retrieves an alert by ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	return copyAlert(a), nil
}

// ListActive returns active alerts, newest first.
func (r *InMemoryRepository) ListActive(_ context.Context) ([]*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Alert
	for _, a := range r.alerts {
		if a.Active {
			out = append(out, copyAlert(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// AddAcknowledgment adds boat to the alert's acknowledged set.
func (r *InMemoryRepository) AddAcknowledgment(_ context.Context, id, boat string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return ErrAlertNotFound
	}
	if !a.Acknowledged(boat) {
		a.AcknowledgedBy = append(a.AcknowledgedBy, boat)
		a.UpdatedAt = time.Now()
	}
	return nil
}

// Deactivate marks an alert inactive.
func (r *InMemoryRepository) Deactivate(_ context.Context, id string, at time.Time) (*Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.alerts[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	if a.Active {
		t := at
		a.Active = false
		a.DeactivatedAt = &t
		a.UpdatedAt = at
	}
	return copyAlert(a), nil
}

// Stats counts alerts by state and severity.
func (r *InMemoryRepository) Stats(_ context.Context) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &Stats{BySeverity: make(map[Severity]int)}
	for _, a := range r.alerts {
		stats.Total++
		if a.Active {
			stats.Active++
		}
		stats.Acknowledgments += len(a.AcknowledgedBy)
		stats.BySeverity[a.Severity]++
	}
	return stats, nil
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
