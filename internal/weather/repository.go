package weather

import "context"

// SnapshotRepository stores the latest snapshot and assessment per boat.
type SnapshotRepository interface {
	// Save replaces the boat's conditions.
	Save(ctx context.Context, c *BoatConditions) error

	// Get returns ErrNoWeatherData when the boat has never been refreshed.
	Get(ctx context.Context, boatID string) (*BoatConditions, error)
}
