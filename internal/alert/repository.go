package alert

import (
	"context"
	"time"
)

// Repository defines the interface for alert storage.
type Repository interface {
	// Create stores a new alert.
	Create(ctx context.Context, a *Alert) error

	// Get retrieves an alert by ID.
	// Returns ErrAlertNotFound if the alert does not exist.
	Get(ctx context.Context, id string) (*Alert, error)

	// ListActive returns active alerts, newest first.
	ListActive(ctx context.Context) ([]*Alert, error)

	// AddAcknowledgment adds boat to the alert's acknowledged set.
	// Adding a boat twice is a no-op.
	AddAcknowledgment(ctx context.Context, id, boat string) error

	// Deactivate marks an alert inactive.
	Deactivate(ctx context.Context, id string, at time.Time) (*Alert, error)

	// Stats counts alerts by state and severity.
	Stats(ctx context.Context) (*Stats, error)
}
