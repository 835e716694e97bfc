package sos

import "context"

// Repository defines the interface for SOS case persistence.
type Repository interface {
	// Create stores a new case.
	Create(ctx context.Context, c *Case) error

	// Get retrieves a case by ID.
	// Returns ErrCaseNotFound if the case doesn't exist.
	Get(ctx context.Context, id string) (*Case, error)

	// Update replaces a stored case.
	Update(ctx context.Context, c *Case) error

	// ListForBoat returns a boat's most recent cases, newest first.
	ListForBoat(ctx context.Context, boatID string, limit int) ([]*Case, error)

	// ListActive returns all active cases, newest first.
	ListActive(ctx context.Context) ([]*Case, error)

	// Stats counts cases by status.
	Stats(ctx context.Context) (*Stats, error)
}
