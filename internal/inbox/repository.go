package inbox

import (
	"context"
	"time"
)

// DefaultListLimit is the number of entries returned when no limit is given.
const DefaultListLimit = 10

// ListOptions filters a boat's inbox listing.
type ListOptions struct {
	Limit      int
	ActiveOnly bool
}

// Repository defines the interface for inbox persistence.
type Repository interface {
	// Add stores a new entry.
	Add(ctx context.Context, e *Entry) error

	// Get retrieves an entry from a boat's inbox.
	// Returns ErrEntryNotFound if it doesn't exist or belongs to another boat.
	Get(ctx context.Context, boat, id string) (*Entry, error)

	// ListForBoat returns a boat's entries, newest first.
	ListForBoat(ctx context.Context, boat string, opts ListOptions) ([]*Entry, error)

	// MarkRead flags an entry read. Marking an already read entry keeps the first ReadAt.
	MarkRead(ctx context.Context, boat, id string, at time.Time) (*Entry, error)

	// Acknowledge flags an entry acknowledged (and read).
	Acknowledge(ctx context.Context, boat, id string, at time.Time) (*Entry, error)

	// DeactivateBySource hides every entry created from sourceID.
	DeactivateBySource(ctx context.Context, sourceID string) (int, error)
}
