package chat

import (
	"context"
	"time"
)

// Repository stores thread logs and per-boat backup queues.
// Writes are independent; there is no transaction spanning a message and its backup entry.
type Repository interface {
	// Append adds a message to the end of its thread log.
	Append(ctx context.Context, m *Message) error

	// SetTransport records the transport outcome of a message.
	// Returns ErrMessageNotFound if the message does not exist.
	SetTransport(ctx context.Context, id string, status TransportStatus, deliveredAt *time.Time) error

	// History returns the newest limit messages of a thread in chronological order.
	History(ctx context.Context, threadID string, limit int) ([]*Message, error)

	// MarkRead flags every unread message addressed to boat in the thread as read
	// and returns how many were flipped.
	MarkRead(ctx context.Context, threadID, boat string, at time.Time) (int, error)

	// UnreadCount counts unread messages addressed to boat in the thread.
	UnreadCount(ctx context.Context, threadID, boat string) (int, error)

	// Threads returns a summary of every thread boat takes part in,
	// most recently active first.
	Threads(ctx context.Context, boat string) ([]ThreadSummary, error)

	// Stats summarises boat's threads. Threads with a message after since count as active.
	Stats(ctx context.Context, boat string, since time.Time) (*Stats, error)

	// AddBackup files an entry in the recipient's backup queue.
	AddBackup(ctx context.Context, e *BackupEntry) error

	// ListBackup returns a boat's backup queue, oldest first. The queue is not cleared.
	ListBackup(ctx context.Context, boat string) ([]*BackupEntry, error)

	// ClearBackup empties a boat's backup queue and returns how many entries were removed.
	ClearBackup(ctx context.Context, boat string) (int, error)

	// AckBackup removes the entries for the given message IDs from a boat's
	// backup queue and returns how many were removed. Entries not named stay queued.
	AckBackup(ctx context.Context, boat string, messageIDs []string) (int, error)
}
