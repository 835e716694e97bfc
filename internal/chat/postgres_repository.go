package chat

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
// Thread order is the insertion sequence, not the send timestamp.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL chat repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const messageColumns = `
	id, thread_id, from_boat, to_boat, body, kind, sent_at,
	delivered, delivered_at, is_read, read_at, transport_status`

// Append adds a message to the end of its thread log.
func (r *PostgresRepository) Append(ctx context.Context, m *Message) error {
	query := `INSERT INTO chat_messages (` + messageColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		m.ID, m.ThreadID, m.FromBoat, m.ToBoat, m.Body, string(m.Kind), m.SentAt,
		m.Delivered, m.DeliveredAt, m.Read, m.ReadAt, string(m.TransportStatus),
	)
	return err
}

// SetTransport records the transport outcome of a message.
func (r *PostgresRepository) SetTransport(ctx context.Context, id string, status TransportStatus, deliveredAt *time.Time) error {
	query := `
		UPDATE chat_messages
		SET transport_status = $2,
			delivered = delivered OR $3::timestamptz IS NOT NULL,
			delivered_at = COALESCE($3, delivered_at)
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query, id, string(status), deliveredAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// History returns the newest limit messages of a thread in chronological order.
func (r *PostgresRepository) History(ctx context.Context, threadID string, limit int) ([]*Message, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `SELECT` + messageColumns + ` FROM (
			SELECT seq,` + messageColumns + `
			FROM chat_messages
			WHERE thread_id = $1
			ORDER BY seq DESC
			LIMIT $2
		) recent
		ORDER BY seq ASC`

	rows, err := r.pool.Query(ctx, query, threadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectMessages(rows)
}

// MarkRead flags unread messages addressed to boat as read.
func (r *PostgresRepository) MarkRead(ctx context.Context, threadID, boat string, at time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE chat_messages
		SET is_read = TRUE, read_at = $3
		WHERE thread_id = $1 AND to_boat = $2 AND is_read = FALSE`,
		threadID, boat, at)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// UnreadCount counts unread messages addressed to boat in the thread.
func (r *PostgresRepository) UnreadCount(ctx context.Context, threadID, boat string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM chat_messages
		WHERE thread_id = $1 AND to_boat = $2 AND is_read = FALSE`,
		threadID, boat).Scan(&n)
	return n, err
}

// Threads returns a summary of every thread boat takes part in.
func (r *PostgresRepository) Threads(ctx context.Context, boat string) ([]ThreadSummary, error) {
	query := `
		SELECT DISTINCT ON (thread_id)` + messageColumns + `,
			(SELECT COUNT(*) FROM chat_messages u
			 WHERE u.thread_id = m.thread_id AND u.to_boat = $1 AND u.is_read = FALSE)
		FROM chat_messages m
		WHERE from_boat = $1 OR to_boat = $1
		ORDER BY thread_id, seq DESC`

	rows, err := r.pool.Query(ctx, query, boat)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ThreadSummary
	for rows.Next() {
		var (
			m      Message
			kind   string
			status string
			unread int
		)
		if err := rows.Scan(
			&m.ID, &m.ThreadID, &m.FromBoat, &m.ToBoat, &m.Body, &kind, &m.SentAt,
			&m.Delivered, &m.DeliveredAt, &m.Read, &m.ReadAt, &status, &unread,
		); err != nil {
			return nil, err
		}
		m.Kind = Kind(kind)
		m.TransportStatus = TransportStatus(status)

		other := m.ToBoat
		if other == boat {
			other = m.FromBoat
		}
		out = append(out, ThreadSummary{
			ThreadID:    m.ThreadID,
			OtherBoat:   other,
			LastMessage: &m,
			UnreadCount: unread,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessage.SentAt.After(out[j].LastMessage.SentAt)
	})
	return out, nil
}

// Stats summarises boat's threads.
func (r *PostgresRepository) Stats(ctx context.Context, boat string, since time.Time) (*Stats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE to_boat = $1 AND is_read = FALSE),
			COUNT(DISTINCT thread_id) FILTER (WHERE sent_at > $2),
			COUNT(DISTINCT thread_id)
		FROM chat_messages
		WHERE from_boat = $1 OR to_boat = $1`

	var s Stats
	err := r.pool.QueryRow(ctx, query, boat, since).Scan(
		&s.TotalMessages, &s.UnreadMessages, &s.ActiveThreads, &s.TotalThreads,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// AddBackup files an entry in the recipient's backup queue.
func (r *PostgresRepository) AddBackup(ctx context.Context, e *BackupEntry) error {
	query := `
		INSERT INTO chat_backup (
			boat_id, message_id, thread_id, from_boat, to_boat, body, kind, sent_at,
			delivered, delivered_at, is_read, read_at, transport_status, backed_up_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.pool.Exec(ctx, query,
		e.ToBoat, e.ID, e.ThreadID, e.FromBoat, e.ToBoat, e.Body, string(e.Kind), e.SentAt,
		e.Delivered, e.DeliveredAt, e.Read, e.ReadAt, string(e.TransportStatus), e.BackedUpAt,
	)
	return err
}

// ListBackup returns a boat's backup queue, oldest first.
func (r *PostgresRepository) ListBackup(ctx context.Context, boat string) ([]*BackupEntry, error) {
	query := `
		SELECT message_id, thread_id, from_boat, to_boat, body, kind, sent_at,
			delivered, delivered_at, is_read, read_at, transport_status, backed_up_at
		FROM chat_backup
		WHERE boat_id = $1
		ORDER BY backed_up_at ASC, seq ASC`

	rows, err := r.pool.Query(ctx, query, boat)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*BackupEntry
	for rows.Next() {
		var (
			e      BackupEntry
			kind   string
			status string
		)
		if err := rows.Scan(
			&e.ID, &e.ThreadID, &e.FromBoat, &e.ToBoat, &e.Body, &kind, &e.SentAt,
			&e.Delivered, &e.DeliveredAt, &e.Read, &e.ReadAt, &status, &e.BackedUpAt,
		); err != nil {
			return nil, err
		}
		e.Kind = Kind(kind)
		e.TransportStatus = TransportStatus(status)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ClearBackup empties a boat's backup queue.
func (r *PostgresRepository) ClearBackup(ctx context.Context, boat string) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chat_backup WHERE boat_id = $1`, boat)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// AckBackup removes the named entries from a boat's backup queue.
func (r *PostgresRepository) AckBackup(ctx context.Context, boat string, messageIDs []string) (int, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM chat_backup WHERE boat_id = $1 AND message_id = ANY($2)`,
		boat, messageIDs)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func collectMessages(rows pgx.Rows) ([]*Message, error) {
	var out []*Message
	for rows.Next() {
		var (
			m      Message
			kind   string
			status string
		)
		if err := rows.Scan(
			&m.ID, &m.ThreadID, &m.FromBoat, &m.ToBoat, &m.Body, &kind, &m.SentAt,
			&m.Delivered, &m.DeliveredAt, &m.Read, &m.ReadAt, &status,
		); err != nil {
			return nil, err
		}
		m.Kind = Kind(kind)
		m.TransportStatus = TransportStatus(status)
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
