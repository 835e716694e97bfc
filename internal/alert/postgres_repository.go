package alert

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL alert repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const alertColumns = `
	id, type, severity, title, description, affected_areas, estimated_time,
	recommended_actions, voice_text, voice_url, active, acknowledged_by,
	created_by, created_at, updated_at, deactivated_at`

// Create stores a new alert.
func (r *PostgresRepository) Create(ctx context.Context, a *Alert) error {
	query := `INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, string(a.Type), string(a.Severity), a.Title, a.Description, a.AffectedAreas, a.EstimatedTime,
		a.RecommendedActions, a.VoiceText, a.VoiceURL, a.Active, a.AcknowledgedBy,
		a.CreatedBy, a.CreatedAt, a.UpdatedAt, a.DeactivatedAt,
	)
	return err
}

// Get retrieves an alert by ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Alert, error) {
	return r.queryOne(ctx, `SELECT`+alertColumns+` FROM alerts WHERE id = $1`, id)
}

// ListActive returns active alerts, newest first.
func (r *PostgresRepository) ListActive(ctx context.Context) ([]*Alert, error) {
	rows, err := r.pool.Query(ctx, `SELECT`+alertColumns+` FROM alerts WHERE active = TRUE ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// AddAcknowledgment adds boat to the alert's acknowledged set.
func (r *PostgresRepository) AddAcknowledgment(ctx context.Context, id, boat string) error {
	query := `
		UPDATE alerts
		SET acknowledged_by = CASE
				WHEN $2 = ANY(acknowledged_by) THEN acknowledged_by
				ELSE array_append(acknowledged_by, $2)
			END,
			updated_at = NOW()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, boat)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

// Deactivate marks an alert inactive.
func (r *PostgresRepository) Deactivate(ctx context.Context, id string, at time.Time) (*Alert, error) {
	query := `
		UPDATE alerts
		SET active = FALSE,
			deactivated_at = COALESCE(deactivated_at, $2),
			updated_at = CASE WHEN active THEN $2 ELSE updated_at END
		WHERE id = $1
		RETURNING` + alertColumns

	return r.queryOne(ctx, query, id, at)
}

// Stats counts alerts by state and severity.
func (r *PostgresRepository) Stats(ctx context.Context) (*Stats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT severity,
			COUNT(*),
			COUNT(*) FILTER (WHERE active),
			COALESCE(SUM(cardinality(acknowledged_by)), 0)
		FROM alerts
		GROUP BY severity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &Stats{BySeverity: make(map[Severity]int)}
	for rows.Next() {
		var (
			severity            string
			total, active, acks int
		)
		if err := rows.Scan(&severity, &total, &active, &acks); err != nil {
			return nil, err
		}
		stats.Total += total
		stats.Active += active
		stats.Acknowledgments += acks
		stats.BySeverity[Severity(severity)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*Alert, error) {
	a, err := scanAlert(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return a, nil
}

func scanAlert(row pgx.Row) (*Alert, error) {
	var (
		a        Alert
		typ      string
		severity string
	)
	err := row.Scan(
		&a.ID, &typ, &severity, &a.Title, &a.Description, &a.AffectedAreas, &a.EstimatedTime,
		&a.RecommendedActions, &a.VoiceText, &a.VoiceURL, &a.Active, &a.AcknowledgedBy,
		&a.CreatedBy, &a.CreatedAt, &a.UpdatedAt, &a.DeactivatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Type = Type(typ)
	a.Severity = Severity(severity)
	return &a, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
