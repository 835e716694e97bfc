package navigation

import (
	"context"
	"time"
)

// PortRepository stores safe harbours.
type PortRepository interface {
	// List returns all ports ordered by ID, including inactive ones.
	List(ctx context.Context) ([]*Port, error)

	// Get retrieves a port by ID.
	// Returns ErrPortNotFound if the port does not exist.
	Get(ctx context.Context, id string) (*Port, error)

	// Create stores a new port.
	// Returns ErrPortExists if the ID is taken.
	Create(ctx context.Context, p *Port) error

	// Update replaces a port's attributes.
	Update(ctx context.Context, p *Port) error

	// Deactivate marks a port inactive.
	Deactivate(ctx context.Context, id string, at time.Time) (*Port, error)
}

// TrackRepository stores location history and the latest advisory per boat.
type TrackRepository interface {
	// AppendHistory records a position. History is append-only.
	AppendHistory(ctx context.Context, e *HistoryEntry) error

	// ListHistory returns a boat's newest positions first.
	ListHistory(ctx context.Context, boat string, limit int) ([]*HistoryEntry, error)

	// SaveAdvisory replaces a boat's advisory.
	SaveAdvisory(ctx context.Context, a *Advisory) error

	// GetAdvisory returns a boat's advisory.
	// Returns ErrNoAdvisory if none has been computed.
	GetAdvisory(ctx context.Context, boat string) (*Advisory, error)
}
