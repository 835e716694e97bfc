package sos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL SOS repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const caseColumns = `
	id, boat_id, requester, owner_name, phone,
	lat, lon, accuracy, captured_at,
	message, status, priority, emergency_contacts, voice_text,
	created_at, updated_at, resolved_at, resolved_by, notes`

// Create stores a new case.
func (r *PostgresRepository) Create(ctx context.Context, c *Case) error {
	contacts, err := json.Marshal(c.EmergencyContacts)
	if err != nil {
		return fmt.Errorf("encoding emergency contacts: %w", err)
	}

	query := `INSERT INTO sos_cases (` + caseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err = r.pool.Exec(ctx, query,
		c.ID, c.Boat, c.Requester, c.OwnerName, c.Phone,
		c.Location.Lat, c.Location.Lon, c.Location.Accuracy, c.Location.CapturedAt,
		c.Message, string(c.Status), c.Priority, contacts, c.VoiceText,
		c.CreatedAt, c.UpdatedAt, c.ResolvedAt, c.ResolvedBy, c.Notes,
	)
	return err
}

// Get retrieves a case by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Case, error) {
	query := `SELECT` + caseColumns + ` FROM sos_cases WHERE id = $1`

	c, err := scanCase(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		return nil, err
	}
	return c, nil
}

// Update replaces the mutable fields of a stored case.
func (r *PostgresRepository) Update(ctx context.Context, c *Case) error {
	query := `
		UPDATE sos_cases
		SET status = $2, updated_at = $3, resolved_at = $4, resolved_by = $5, notes = $6
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, c.ID, string(c.Status), c.UpdatedAt, c.ResolvedAt, c.ResolvedBy, c.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCaseNotFound
	}
	return nil
}

// ListForBoat returns a boat's most recent cases, newest first.
func (r *PostgresRepository) ListForBoat(ctx context.Context, boatID string, limit int) ([]*Case, error) {
	if limit <= 0 {
		limit = BoatListLimit
	}
	query := `SELECT` + caseColumns + ` FROM sos_cases WHERE boat_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.list(ctx, query, boatID, limit)
}

// ListActive returns all active cases, newest first.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*Case, error) {
	query := `SELECT` + caseColumns + ` FROM sos_cases WHERE status = 'active' ORDER BY created_at DESC`
	return r.list(ctx, query)
}

// Stats counts cases by status.
func (r *PostgresRepository) Stats(ctx context.Context) (*Stats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'active'),
			COUNT(*) FILTER (WHERE status = 'resolved'),
			COUNT(*)
		FROM sos_cases
	`

	var stats Stats
	if err := r.pool.QueryRow(ctx, query).Scan(&stats.Active, &stats.Resolved, &stats.Total); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...interface{}) ([]*Case, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return cases, nil
}

func scanCase(row pgx.Row) (*Case, error) {
	var (
		c        Case
		status   string
		contacts []byte
	)

	err := row.Scan(
		&c.ID, &c.Boat, &c.Requester, &c.OwnerName, &c.Phone,
		&c.Location.Lat, &c.Location.Lon, &c.Location.Accuracy, &c.Location.CapturedAt,
		&c.Message, &status, &c.Priority, &contacts, &c.VoiceText,
		&c.CreatedAt, &c.UpdatedAt, &c.ResolvedAt, &c.ResolvedBy, &c.Notes,
	)
	if err != nil {
		return nil, err
	}

	c.Status = Status(status)
	if len(contacts) > 0 {
		if err := json.Unmarshal(contacts, &c.EmergencyContacts); err != nil {
			return nil, fmt.Errorf("decoding emergency contacts: %w", err)
		}
	}
	return &c, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
