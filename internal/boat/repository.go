package boat

import (
	"context"

	"github.com/uyirkavalan/uyirkavalan/internal/geo"
)

// Directory resolves boat identities and contacts. It is the read side other
// packages depend on.
type Directory interface {
	// Get retrieves a boat by registration ID.
	// Returns ErrBoatNotFound if the boat doesn't exist.
	Get(ctx context.Context, id string) (*Boat, error)

	// ListActive returns all active boats ordered by ID.
	ListActive(ctx context.Context) ([]*Boat, error)
}

// Repository defines the interface for boat persistence.
type Repository interface {
	Directory

	// Upsert creates the boat or replaces its profile and contacts.
	// The last known location is left untouched on update.
	Upsert(ctx context.Context, b *Boat) error

	// UpdateLastLocation sets the boat's last known location.
	UpdateLastLocation(ctx context.Context, id string, loc geo.Location) error

	// Deactivate marks the boat inactive.
	Deactivate(ctx context.Context, id string) error
}
