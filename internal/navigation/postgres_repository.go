package navigation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uyirkavalan/uyirkavalan/internal/risk"
)

// PostgresPortRepository is a PostgreSQL implementation of PortRepository.
type PostgresPortRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresPortRepository creates a new PostgreSQL port repository.
func NewPostgresPortRepository(pool *pgxpool.Pool) *PostgresPortRepository {
	return &PostgresPortRepository{pool: pool}
}

const portColumns = `
	id, name, localized_name, lat, lon, capacity, facilities, active,
	created_at, updated_at, deactivated_at`

// Seed inserts ports that do not exist yet.
func (r *PostgresPortRepository) Seed(ctx context.Context, ports []*Port) error {
	for _, p := range ports {
		err := r.Create(ctx, p)
		if err != nil && !errors.Is(err, ErrPortExists) {
			return err
		}
	}
	return nil
}

// List returns all ports ordered by ID.
func (r *PostgresPortRepository) List(ctx context.Context) ([]*Port, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+portColumns+` FROM ports ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Port
	for rows.Next() {
		p, err := scanPort(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get retrieves a port by ID.
func (r *PostgresPortRepository) Get(ctx context.Context, id string) (*Port, error) {
	p, err := scanPort(r.pool.QueryRow(ctx, `SELECT`+portColumns+` FROM ports WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPortNotFound
		}
		return nil, err
	}
	return p, nil
}

// Create stores a new port.
func (r *PostgresPortRepository) Create(ctx context.Context, p *Port) error {
	query := `INSERT INTO ports (` + portColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.LocalizedName, p.Location.Lat, p.Location.Lon, p.Capacity, p.Facilities, p.Active,
		p.CreatedAt, p.UpdatedAt, p.DeactivatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrPortExists
	}
	return err
}

// Update replaces a port's attributes.
func (r *PostgresPortRepository) Update(ctx context.Context, p *Port) error {
	query := `
		UPDATE ports
		SET name = $2, localized_name = $3, lat = $4, lon = $5, capacity = $6,
			facilities = $7, active = $8, updated_at = $9
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		p.ID, p.Name, p.LocalizedName, p.Location.Lat, p.Location.Lon, p.Capacity,
		p.Facilities, p.Active, p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPortNotFound
	}
	return nil
}

// Deactivate marks a port inactive.
func (r *PostgresPortRepository) Deactivate(ctx context.Context, id string, at time.Time) (*Port, error) {
	query := `
		UPDATE ports
		SET active = FALSE,
			deactivated_at = COALESCE(deactivated_at, $2),
			updated_at = CASE WHEN active THEN $2 ELSE updated_at END
		WHERE id = $1
		RETURNING` + portColumns

	p, err := scanPort(r.pool.QueryRow(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPortNotFound
		}
		return nil, err
	}
	return p, nil
}

func scanPort(row pgx.Row) (*Port, error) {
	var p Port
	err := row.Scan(
		&p.ID, &p.Name, &p.LocalizedName, &p.Location.Lat, &p.Location.Lon, &p.Capacity, &p.Facilities, &p.Active,
		&p.CreatedAt, &p.UpdatedAt, &p.DeactivatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PostgresTrackRepository is a PostgreSQL implementation of TrackRepository.
type PostgresTrackRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTrackRepository creates a new PostgreSQL track repository.
func NewPostgresTrackRepository(pool *pgxpool.Pool) *PostgresTrackRepository {
	return &PostgresTrackRepository{pool: pool}
}

// AppendHistory records a position.
func (r *PostgresTrackRepository) AppendHistory(ctx context.Context, e *HistoryEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO location_history (boat_id, lat, lon, accuracy, captured_at, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.Boat, e.Location.Lat, e.Location.Lon, e.Location.Accuracy, e.Location.CapturedAt, e.RecordedAt,
	)
	return err
}

// ListHistory returns a boat's newest positions first.
func (r *PostgresTrackRepository) ListHistory(ctx context.Context, boat string, limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.pool.Query(ctx, `
		SELECT boat_id, lat, lon, accuracy, captured_at, recorded_at
		FROM location_history
		WHERE boat_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2`, boat, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(
			&e.Boat, &e.Location.Lat, &e.Location.Lon, &e.Location.Accuracy, &e.Location.CapturedAt, &e.RecordedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveAdvisory replaces a boat's advisory.
func (r *PostgresTrackRepository) SaveAdvisory(ctx context.Context, a *Advisory) error {
	var portJSON, riskJSON []byte
	var err error
	if a.NearestPort != nil {
		if portJSON, err = json.Marshal(a.NearestPort); err != nil {
			return err
		}
	}
	if a.Risk != nil {
		if riskJSON, err = json.Marshal(a.Risk); err != nil {
			return err
		}
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO navigation_advisories (
			boat_id, lat, lon, accuracy, captured_at, nearest_port, distance_km,
			bearing_deg, eta_minutes, risk, computed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (boat_id) DO UPDATE SET
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			accuracy = EXCLUDED.accuracy,
			captured_at = EXCLUDED.captured_at,
			nearest_port = EXCLUDED.nearest_port,
			distance_km = EXCLUDED.distance_km,
			bearing_deg = EXCLUDED.bearing_deg,
			eta_minutes = EXCLUDED.eta_minutes,
			risk = EXCLUDED.risk,
			computed_at = EXCLUDED.computed_at`,
		a.Boat, a.CurrentLocation.Lat, a.CurrentLocation.Lon, a.CurrentLocation.Accuracy, a.CurrentLocation.CapturedAt,
		portJSON, a.DistanceKm, a.BearingDeg, a.ETAMinutes, riskJSON, a.ComputedAt,
	)
	return err
}

// GetAdvisory returns a boat's advisory.
func (r *PostgresTrackRepository) GetAdvisory(ctx context.Context, boat string) (*Advisory, error) {
	var (
		a                  Advisory
		portJSON, riskJSON []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT boat_id, lat, lon, accuracy, captured_at, nearest_port, distance_km,
			bearing_deg, eta_minutes, risk, computed_at
		FROM navigation_advisories
		WHERE boat_id = $1`, boat).Scan(
		&a.Boat, &a.CurrentLocation.Lat, &a.CurrentLocation.Lon, &a.CurrentLocation.Accuracy, &a.CurrentLocation.CapturedAt,
		&portJSON, &a.DistanceKm, &a.BearingDeg, &a.ETAMinutes, &riskJSON, &a.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoAdvisory
		}
		return nil, err
	}

	if len(portJSON) > 0 {
		var p Port
		if err := json.Unmarshal(portJSON, &p); err != nil {
			return nil, err
		}
		a.NearestPort = &p
	}
	if len(riskJSON) > 0 {
		var assessment risk.Assessment
		if err := json.Unmarshal(riskJSON, &assessment); err != nil {
			return nil, err
		}
		a.Risk = &assessment
	}
	return &a, nil
}

// Ensure the PostgreSQL repositories implement their interfaces.
var (
	_ PortRepository  = (*PostgresPortRepository)(nil)
	_ TrackRepository = (*PostgresTrackRepository)(nil)
)

// Ensure the PostgreSQL repositories implement their interfaces.
var (
	_ PortRepository  = (*PostgresPortRepository)(nil)
	_ TrackRepository = (*PostgresTrackRepository)(nil)
)
