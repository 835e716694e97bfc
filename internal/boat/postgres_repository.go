package boat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uyirkavalan/uyirkavalan/internal/geo"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL boat repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const boatColumns = `
	id, owner_name, phone, role, language, active,
	last_lat, last_lon, last_accuracy, last_captured_at,
	emergency_contacts, created_at, updated_at`

// Get retrieves a boat by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Boat, error) {
	query := `SELECT` + boatColumns + ` FROM boats WHERE id = $1`

	b, err := scanBoat(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBoatNotFound
		}
		return nil, err
	}
	return b, nil
}

// ListActive returns all active boats ordered by ID.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*Boat, error) {
	query := `SELECT` + boatColumns + ` FROM boats WHERE active = TRUE ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var boats []*Boat
	for rows.Next() {
		b, err := scanBoat(rows)
		if err != nil {
			return nil, err
		}
		boats = append(boats, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return boats, nil
}

// Upsert creates or replaces a boat profile.
func (r *PostgresRepository) Upsert(ctx context.Context, b *Boat) error {
	contacts, err := json.Marshal(b.EmergencyContacts)
	if err != nil {
		return fmt.Errorf("encoding emergency contacts: %w", err)
	}

	query := `
		INSERT INTO boats (
			id, owner_name, phone, role, language, active,
			emergency_contacts, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			owner_name = EXCLUDED.owner_name,
			phone = EXCLUDED.phone,
			role = EXCLUDED.role,
			language = EXCLUDED.language,
			active = EXCLUDED.active,
			emergency_contacts = EXCLUDED.emergency_contacts,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.pool.Exec(ctx, query,
		b.ID,
		b.OwnerName,
		b.Phone,
		string(b.Role),
		string(b.Language),
		b.Active,
		contacts,
		b.CreatedAt,
		b.UpdatedAt,
	)
	return err
}

// UpdateLastLocation sets the boat's last known location.
func (r *PostgresRepository) UpdateLastLocation(ctx context.Context, id string, loc geo.Location) error {
	query := `
		UPDATE boats
		SET last_lat = $2, last_lon = $3, last_accuracy = $4, last_captured_at = $5, updated_at = NOW()
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, id, loc.Lat, loc.Lon, loc.Accuracy, loc.CapturedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBoatNotFound
	}
	return nil
}

// Deactivate marks the boat inactive.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE boats SET active = FALSE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBoatNotFound
	}
	return nil
}

// scanBoat scans a boat row produced by a boatColumns select.
func scanBoat(row pgx.Row) (*Boat, error) {
	var (
		b          Boat
		role       string
		language   string
		lastLat    *float64
		lastLon    *float64
		lastAcc    *float64
		capturedAt *time.Time
		contacts   []byte
	)

	err := row.Scan(
		&b.ID,
		&b.OwnerName,
		&b.Phone,
		&role,
		&language,
		&b.Active,
		&lastLat,
		&lastLon,
		&lastAcc,
		&capturedAt,
		&contacts,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.Role = Role(role)
	b.Language = Language(language)

	if lastLat != nil && lastLon != nil {
		loc := &geo.Location{
			Point:    geo.Point{Lat: *lastLat, Lon: *lastLon},
			Accuracy: lastAcc,
		}
		if capturedAt != nil {
			loc.CapturedAt = *capturedAt
		}
		b.LastKnownLocation = loc
	}

	if len(contacts) > 0 {
		if err := json.Unmarshal(contacts, &b.EmergencyContacts); err != nil {
			return nil, fmt.Errorf("decoding emergency contacts: %w", err)
		}
	}

	return &b, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
