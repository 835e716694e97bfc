package inbox

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uyirkavalan/uyirkavalan/internal/geo"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL inbox repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const entryColumns = `
	id, boat_id, kind, source_id, title, body, severity, voice_text, voice_url,
	lat, lon, active, is_read, read_at, acknowledged, acknowledged_at, received_at`

// Add stores a new entry.
func (r *PostgresRepository) Add(ctx context.Context, e *Entry) error {
	var lat, lon *float64
	if e.Location != nil {
		lat, lon = &e.Location.Lat, &e.Location.Lon
	}

	query := `INSERT INTO inbox_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.pool.Exec(ctx, query,
		e.ID, e.Boat, string(e.Kind), e.SourceID, e.Title, e.Body, e.Severity, e.VoiceText, e.VoiceURL,
		lat, lon, e.Active, e.Read, e.ReadAt, e.Acknowledged, e.AcknowledgedAt, e.ReceivedAt,
	)
	return err
}

// Get retrieves an entry from a boat's inbox.
func (r *PostgresRepository) Get(ctx context.Context, boat, id string) (*Entry, error) {
	query := `SELECT` + entryColumns + ` FROM inbox_entries WHERE id = $1 AND boat_id = $2`
	return r.queryOne(ctx, query, id, boat)
}

// ListForBoat returns a boat's entries, newest first.
func (r *PostgresRepository) ListForBoat(ctx context.Context, boat string, opts ListOptions) ([]*Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT` + entryColumns + `
		FROM inbox_entries
		WHERE boat_id = $1 AND ($2 = FALSE OR active = TRUE)
		ORDER BY received_at DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, boat, opts.ActiveOnly, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkRead flags an entry read.
func (r *PostgresRepository) MarkRead(ctx context.Context, boat, id string, at time.Time) (*Entry, error) {
	query := `
		UPDATE inbox_entries
		SET is_read = TRUE, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND boat_id = $2
		RETURNING` + entryColumns

	return r.queryOne(ctx, query, id, boat, at)
}

// Acknowledge flags an entry acknowledged.
func (r *PostgresRepository) Acknowledge(ctx context.Context, boat, id string, at time.Time) (*Entry, error) {
	query := `
		UPDATE inbox_entries
		SET is_read = TRUE, read_at = COALESCE(read_at, $3),
			acknowledged = TRUE, acknowledged_at = COALESCE(acknowledged_at, $3)
		WHERE id = $1 AND boat_id = $2
		RETURNING` + entryColumns

	return r.queryOne(ctx, query, id, boat, at)
}

// DeactivateBySource hides every entry created from sourceID.
func (r *PostgresRepository) DeactivateBySource(ctx context.Context, sourceID string) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE inbox_entries SET active = FALSE WHERE source_id = $1 AND active = TRUE`, sourceID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*Entry, error) {
	e, err := scanEntry(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return e, nil
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var (
		e        Entry
		kind     string
		lat, lon *float64
	)

	err := row.Scan(
		&e.ID, &e.Boat, &kind, &e.SourceID, &e.Title, &e.Body, &e.Severity, &e.VoiceText, &e.VoiceURL,
		&lat, &lon, &e.Active, &e.Read, &e.ReadAt, &e.Acknowledged, &e.AcknowledgedAt, &e.ReceivedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Kind = Kind(kind)
	if lat != nil && lon != nil {
		e.Location = &geo.Point{Lat: *lat, Lon: *lon}
	}
	return &e, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
