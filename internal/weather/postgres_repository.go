package weather

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uyirkavalan/uyirkavalan/internal/risk"
)

// PostgresRepository is a PostgreSQL implementation of SnapshotRepository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL snapshot repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Save upserts the boat's row.
func (r *PostgresRepository) Save(ctx context.Context, c *BoatConditions) error {
	var assessment []byte
	if c.Assessment != nil {
		var err error
		if assessment, err = json.Marshal(c.Assessment); err != nil {
			return err
		}
	}

	s := c.Snapshot
	_, err := r.pool.Exec(ctx, `
		INSERT INTO weather_snapshots (
			boat_id, wind_speed, wind_direction, temperature, humidity, pressure,
			visibility_km, sea_condition, tide_speed, description, lat, lon,
			captured_at, assessment
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (boat_id) DO UPDATE SET
			wind_speed = EXCLUDED.wind_speed,
			wind_direction = EXCLUDED.wind_direction,
			temperature = EXCLUDED.temperature,
			humidity = EXCLUDED.humidity,
			pressure = EXCLUDED.pressure,
			visibility_km = EXCLUDED.visibility_km,
			sea_condition = EXCLUDED.sea_condition,
			tide_speed = EXCLUDED.tide_speed,
			description = EXCLUDED.description,
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			captured_at = EXCLUDED.captured_at,
			assessment = EXCLUDED.assessment`,
		s.Boat, s.WindSpeed, s.WindDirection, s.Temperature, s.Humidity, s.Pressure,
		s.VisibilityKm, string(s.SeaCondition), s.TideSpeed, s.Description, s.Location.Lat, s.Location.Lon,
		s.CapturedAt, assessment,
	)
	return err
}

// Get returns the boat's conditions.
func (r *PostgresRepository) Get(ctx context.Context, boatID string) (*BoatConditions, error) {
	var (
		s          Snapshot
		sea        string
		assessment []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT boat_id, wind_speed, wind_direction, temperature, humidity, pressure,
			visibility_km, sea_condition, tide_speed, description, lat, lon,
			captured_at, assessment
		FROM weather_snapshots
		WHERE boat_id = $1`, boatID).Scan(
		&s.Boat, &s.WindSpeed, &s.WindDirection, &s.Temperature, &s.Humidity, &s.Pressure,
		&s.VisibilityKm, &sea, &s.TideSpeed, &s.Description, &s.Location.Lat, &s.Location.Lon,
		&s.CapturedAt, &assessment,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoWeatherData
		}
		return nil, err
	}
	s.SeaCondition = risk.SeaCondition(sea)

	out := &BoatConditions{Snapshot: &s}
	if len(assessment) > 0 {
		var a risk.Assessment
		if err := json.Unmarshal(assessment, &a); err != nil {
			return nil, err
		}
		out.Assessment = &a
	}
	return out, nil
}

// Ensure PostgresRepository implements SnapshotRepository interface.
var _ SnapshotRepository = (*PostgresRepository)(nil)
