package chat

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu      sync.RWMutex
	threads map[string][]*Message
	byID    map[string]*Message
	backups map[string][]*BackupEntry
}

// NewInMemoryRepository creates a new in-memory chat repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		threads: make(map[string][]*Message),
		byID:    make(map[string]*Message),
		backups: make(map[string][]*BackupEntry),
	}
}

// Append adds a message to the end of its thread log.
func (r *InMemoryRepository) Append(_ context.Context, m *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyMessage(m)
	r.threads[m.ThreadID] = append(r.threads[m.ThreadID], stored)
	r.byID[m.ID] = stored
	return nil
}

// SetTransport records the transport outcome of a message.
func (r *InMemoryRepository) SetTransport(_ context.Context, id string, status TransportStatus, deliveredAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return ErrMessageNotFound
	}
	m.TransportStatus = status
	if deliveredAt != nil {
		t := *deliveredAt
		m.Delivered = true
		m.DeliveredAt = &t
	}
	return nil
}

// History returns the newest limit messages of a thread in chronological order.
func (r *InMemoryRepository) History(_ context.Context, threadID string, limit int) ([]*Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log := r.threads[threadID]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}

	out := make([]*Message, 0, len(log))
	for _, m := range log {
		out = append(out, copyMessage(m))
	}
	return out, nil
}

// MarkRead flags unread messages addressed to boat as read.
func (r *InMemoryRepository) MarkRead(_ context.Context, threadID, boat string, at time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, m := range r.threads[threadID] {
		if m.ToBoat != boat || m.Read {
			continue
		}
		t := at
		m.Read = true
		m.ReadAt = &t
		n++
	}
	return n, nil
}

// UnreadCount counts unread messages addressed to boat in the thread.
func (r *InMemoryRepository) UnreadCount(_ context.Context, threadID, boat string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return unread(r.threads[threadID], boat), nil
}

// Threads returns a summary of every thread boat takes part in.
func (r *InMemoryRepository) Threads(_ context.Context, boat string) ([]ThreadSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ThreadSummary
	for id, log := range r.threads {
		a, b, err := ParseThreadID(id)
		if err != nil || (a != boat && b != boat) || len(log) == 0 {
			continue
		}
		other := a
		if a == boat {
			other = b
		}
		out = append(out, ThreadSummary{
			ThreadID:    id,
			OtherBoat:   other,
			LastMessage: copyMessage(log[len(log)-1]),
			UnreadCount: unread(log, boat),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].LastMessage.SentAt, out[j].LastMessage.SentAt
		if ti.Equal(tj) {
			return out[i].ThreadID < out[j].ThreadID
		}
		return ti.After(tj)
	})
	return out, nil
}

// Stats summarises boat's threads.
func (r *InMemoryRepository) Stats(_ context.Context, boat string, since time.Time) (*Stats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &Stats{}
	for id, log := range r.threads {
		if !Participant(id, boat) {
			continue
		}
		stats.TotalThreads++
		stats.TotalMessages += len(log)
		stats.UnreadMessages += unread(log, boat)
		for _, m := range log {
			if m.SentAt.After(since) {
				stats.ActiveThreads++
				break
			}
		}
	}
	return stats, nil
}

// AddBackup files an entry in the recipient's backup queue.
func (r *InMemoryRepository) AddBackup(_ context.Context, e *BackupEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.backups[e.ToBoat] = append(r.backups[e.ToBoat], copyBackup(e))
	return nil
}

// ListBackup returns a boat's backup queue, oldest first.
func (r *InMemoryRepository) ListBackup(_ context.Context, boat string) ([]*BackupEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	queue := r.backups[boat]
	out := make([]*BackupEntry, 0, len(queue))
	for _, e := range queue {
		out = append(out, copyBackup(e))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BackedUpAt.Before(out[j].BackedUpAt) })
	return out, nil
}

// ClearBackup empties a boat's backup queue.
func (r *InMemoryRepository) ClearBackup(_ context.Context, boat string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.backups[boat])
	delete(r.backups, boat)
	return n, nil
}

// AckBackup removes the named entries from a boat's backup queue.
func (r *InMemoryRepository) AckBackup(_ context.Context, boat string, messageIDs []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	acked := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		acked[id] = true
	}

	queue := r.backups[boat]
	kept := queue[:0]
	for _, e := range queue {
		if !acked[e.ID] {
			kept = append(kept, e)
		}
	}
	n := len(queue) - len(kept)
	clear(queue[len(kept):])
	if len(kept) == 0 {
		delete(r.backups, boat)
	} else {
		r.backups[boat] = kept
	}
	return n, nil
}

func unread(log []*Message, boat string) int {
	n := 0
	for _, m := range log {
		if m.ToBoat == boat && !m.Read {
			n++
		}
	}
	return n
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
