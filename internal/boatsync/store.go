// Package boatsync keeps a boat's messages and alerts on board. It pulls the
// boat's offline backup queue and alert inbox from the API whenever the link
// is up, commits them to a local SQLite file and only then clears the queue
// on the server.
package boatsync

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	id               TEXT PRIMARY KEY,
	thread_id        TEXT    NOT NULL,
	from_boat        TEXT    NOT NULL,
	to_boat          TEXT    NOT NULL,
	body             TEXT    NOT NULL,
	kind             TEXT    NOT NULL,
	sent_at          INTEGER NOT NULL,
	backed_up_at     INTEGER NOT NULL,
	transport_status TEXT    NOT NULL DEFAULT '',
	read_at          INTEGER,
	stored_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, sent_at);

CREATE TABLE IF NOT EXISTS inbox (
	id              TEXT PRIMARY KEY,
	kind            TEXT    NOT NULL,
	source_id       TEXT    NOT NULL,
	title           TEXT    NOT NULL,
	body            TEXT    NOT NULL,
	severity        TEXT    NOT NULL DEFAULT '',
	voice_text      TEXT    NOT NULL DEFAULT '',
	voice_url       TEXT    NOT NULL DEFAULT '',
	lat             REAL,
	lon             REAL,
	active          INTEGER NOT NULL,
	acknowledged    INTEGER NOT NULL,
	received_at     INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_state (
	boat            TEXT PRIMARY KEY,
	last_sync_at    INTEGER NOT NULL,
	messages_saved  INTEGER NOT NULL,
	inbox_saved     INTEGER NOT NULL,
	last_error      TEXT    NOT NULL DEFAULT ''
);
`

// ErrNoSyncState is returned before the first sync attempt.
var ErrNoSyncState = errors.New("boat has never synced")

// Message is a chat message held on board.
type Message struct {
	ID              string
	ThreadID        string
	FromBoat        string
	ToBoat          string
	Body            string
	Kind            string
	SentAt          time.Time
	BackedUpAt      time.Time
	TransportStatus string
	ReadAt          time.Time
}

// InboxEntry is an alert or SOS notice held on board.
type InboxEntry struct {
	ID           string
	Kind         string
	SourceID     string
	Title        string
	Body         string
	Severity     string
	VoiceText    string
	VoiceURL     string
	Lat          *float64
	Lon          *float64
	Active       bool
	Acknowledged bool
	ReceivedAt   time.Time
}

// SyncState records the outcome of the latest sync attempt.
type SyncState struct {
	Boat          string
	LastSyncAt    time.Time
	MessagesSaved int
	InboxSaved    int
	LastError     string
}

// Store is the on-board SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveMessages stores msgs in one transaction and returns how many were new.
// Messages already on board are left untouched so a local read mark survives
// a re-delivered backup.
func (s *Store) SaveMessages(ctx context.Context, msgs []Message) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin message tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO messages(id, thread_id, from_boat, to_boat, body, kind, sent_at, backed_up_at, transport_status, stored_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare message insert: %w", err)
	}
	defer stmt.Close()

	storedAt := toUnixMillis(s.now())
	inserted := 0
	for _, m := range msgs {
		res, err := stmt.ExecContext(ctx,
			m.ID, m.ThreadID, m.FromBoat, m.ToBoat, m.Body, m.Kind,
			toUnixMillis(m.SentAt), toUnixMillis(m.BackedUpAt), m.TransportStatus, storedAt)
		if err != nil {
			return 0, fmt.Errorf("insert message %s: %w", m.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit messages: %w", err)
	}
	return inserted, nil
}

// SaveInbox upserts entries. The server copy wins for everything except
// acknowledgement, which is never undone locally.
func (s *Store) SaveInbox(ctx context.Context, entries []InboxEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin inbox tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO inbox(id, kind, source_id, title, body, severity, voice_text, voice_url, lat, lon, active, acknowledged, received_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			severity = excluded.severity,
			voice_text = excluded.voice_text,
			voice_url = excluded.voice_url,
			active = excluded.active,
			acknowledged = MAX(inbox.acknowledged, excluded.acknowledged),
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare inbox upsert: %w", err)
	}
	defer stmt.Close()

	updatedAt := toUnixMillis(s.now())
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.Kind, e.SourceID, e.Title, e.Body, e.Severity, e.VoiceText, e.VoiceURL,
			nullableFloat(e.Lat), nullableFloat(e.Lon), boolToInt(e.Active), boolToInt(e.Acknowledged),
			toUnixMillis(e.ReceivedAt), updatedAt); err != nil {
			return 0, fmt.Errorf("upsert inbox entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit inbox: %w", err)
	}
	return len(entries), nil
}

// ListThread returns the messages of a thread, oldest first.
func (s *Store) ListThread(ctx context.Context, threadID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, from_boat, to_boat, body, kind, sent_at, backed_up_at, transport_status, read_at
		FROM messages
		WHERE thread_id = ?
		ORDER BY sent_at ASC, id ASC
	`, threadID)
	if err != nil {
		return nil, fmt.Errorf("list thread: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			m                Message
			sentMs, backedMs int64
			readMs           sql.NullInt64
		)
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.FromBoat, &m.ToBoat, &m.Body, &m.Kind,
			&sentMs, &backedMs, &m.TransportStatus, &readMs); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.SentAt = fromUnixMillis(sentMs)
		m.BackedUpAt = fromUnixMillis(backedMs)
		if readMs.Valid {
			m.ReadAt = fromUnixMillis(readMs.Int64)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thread: %w", err)
	}
	return out, nil
}

// MarkThreadRead marks every unread message in the thread addressed to boat.
func (s *Store) MarkThreadRead(ctx context.Context, threadID, boat string) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET read_at = ?
		WHERE thread_id = ? AND to_boat = ? AND read_at IS NULL
	`, toUnixMillis(s.now()), threadID, boat)
	if err != nil {
		return 0, fmt.Errorf("mark thread read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark thread read: %w", err)
	}
	return int(n), nil
}

// UnreadCount counts messages to boat that have not been read on board.
func (s *Store) UnreadCount(ctx context.Context, boat string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE to_boat = ? AND read_at IS NULL`, boat).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

// ActiveInbox returns active entries, newest first.
func (s *Store) ActiveInbox(ctx context.Context) ([]InboxEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, source_id, title, body, severity, voice_text, voice_url, lat, lon, active, acknowledged, received_at
		FROM inbox
		WHERE active = 1
		ORDER BY received_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	defer rows.Close()

	var out []InboxEntry
	for rows.Next() {
		var (
			e                    InboxEntry
			lat, lon             sql.NullFloat64
			active, acknowledged int
			receivedMs           int64
		)
		if err := rows.Scan(&e.ID, &e.Kind, &e.SourceID, &e.Title, &e.Body, &e.Severity,
			&e.VoiceText, &e.VoiceURL, &lat, &lon, &active, &acknowledged, &receivedMs); err != nil {
			return nil, fmt.Errorf("scan inbox entry: %w", err)
		}
		if lat.Valid && lon.Valid {
			e.Lat, e.Lon = &lat.Float64, &lon.Float64
		}
		e.Active = active != 0
		e.Acknowledged = acknowledged != 0
		e.ReceivedAt = fromUnixMillis(receivedMs)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inbox: %w", err)
	}
	return out, nil
}

// RecordSync stores the outcome of a sync attempt for boat.
func (s *Store) RecordSync(ctx context.Context, st SyncState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_state(boat, last_sync_at, messages_saved, inbox_saved, last_error)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(boat) DO UPDATE SET
			last_sync_at = excluded.last_sync_at,
			messages_saved = excluded.messages_saved,
			inbox_saved = excluded.inbox_saved,
			last_error = excluded.last_error
	`, st.Boat, toUnixMillis(st.LastSyncAt), st.MessagesSaved, st.InboxSaved, st.LastError)
	if err != nil {
		return fmt.Errorf("record sync state: %w", err)
	}
	return nil
}

// LastSync returns the latest recorded sync for boat.
func (s *Store) LastSync(ctx context.Context, boat string) (*SyncState, error) {
	var (
		st     = SyncState{Boat: boat}
		lastMs int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT last_sync_at, messages_saved, inbox_saved, last_error
		FROM sync_state WHERE boat = ?
	`, boat).Scan(&lastMs, &st.MessagesSaved, &st.InboxSaved, &st.LastError)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSyncState
	}
	if err != nil {
		return nil, fmt.Errorf("load sync state: %w", err)
	}
	st.LastSyncAt = fromUnixMillis(lastMs)
	return &st, nil
}

func toUnixMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromUnixMillis(v int64) time.Time {
	if v <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(v).UTC()
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
