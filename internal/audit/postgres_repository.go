package audit

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL audit repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Append stores an attempt.
func (r *PostgresRepository) Append(ctx context.Context, a *Attempt) error {
	query := `
		INSERT INTO notification_attempts (
			id, subject_id, subject_kind, event,
			target_kind, target, target_name, channel,
			provider, status, provider_ref, error,
			actor, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.SubjectID,
		string(a.SubjectKind),
		string(a.Event),
		string(a.TargetKind),
		a.Target,
		a.TargetName,
		string(a.Channel),
		a.Provider,
		string(a.Status),
		a.ProviderRef,
		a.Error,
		a.Actor,
		a.Timestamp,
	)
	return err
}

// ListBySubject returns all entries for a subject, oldest first.
func (r *PostgresRepository) ListBySubject(ctx context.Context, subjectID string) ([]*Attempt, error) {
	query := `
		SELECT
			id, subject_id, subject_kind, event,
			target_kind, target, target_name, channel,
			provider, status, provider_ref, error,
			actor, created_at
		FROM notification_attempts
		WHERE subject_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []*Attempt
	for rows.Next() {
		var (
			a                                             Attempt
			subjectKind, event, targetKind, channel, stat string
		)
		if err := rows.Scan(
			&a.ID,
			&a.SubjectID,
			&subjectKind,
			&event,
			&targetKind,
			&a.Target,
			&a.TargetName,
			&channel,
			&a.Provider,
			&stat,
			&a.ProviderRef,
			&a.Error,
			&a.Actor,
			&a.Timestamp,
		); err != nil {
			return nil, err
		}
		a.SubjectKind = SubjectKind(subjectKind)
		a.Event = Event(event)
		a.TargetKind = TargetKind(targetKind)
		a.Channel = Channel(channel)
		a.Status = Status(stat)
		attempts = append(attempts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return attempts, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
