package boatsync_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uyirkavalan/uyirkavalan/internal/boatsync"
)

type mockServer struct {
	mu       sync.Mutex
	backup   []boatsync.Message
	inbox    []boatsync.InboxEntry
	fetchErr error
	ackCalls int
}

func (m *mockServer) FetchBackup(_ context.Context, _ string) ([]boatsync.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	return append([]boatsync.Message(nil), m.backup...), nil
}

func (m *mockServer) AckBackup(_ context.Context, _ string, messageIDs []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ackCalls++
	acked := make(map[string]bool, len(messageIDs))
	for _, id := range messageIDs {
		acked[id] = true
	}
	var kept []boatsync.Message
	for _, msg := range m.backup {
		if !acked[msg.ID] {
			kept = append(kept, msg)
		}
	}
	n := len(m.backup) - len(kept)
	m.backup = kept
	return n, nil
}

func (m *mockServer) queue(msg boatsync.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backup = append(m.backup, msg)
}

func (m *mockServer) queued() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, 0, len(m.backup))
	for _, msg := range m.backup {
		ids = append(ids, msg.ID)
	}
	return ids
}

func (m *mockServer) FetchInbox(_ context.Context, _ string) ([]boatsync.InboxEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inbox, nil
}

func (m *mockServer) acks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ackCalls
}

// brokenStore fails every message write.
type brokenStore struct {
	*boatsync.Store
}

func (brokenStore) SaveMessages(context.Context, []boatsync.Message) (int, error) {
	return 0, errors.New("disk full")
}

func TestSyncer_CommitsThenAcks(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	now := time.Now().UTC()
	server := &mockServer{
		backup: []boatsync.Message{testMessage("msg_1", now), testMessage("msg_2", now)},
		inbox:  []boatsync.InboxEntry{{ID: "inb_1", Kind: "alert", SourceID: "alt_1", Title: "High wind", Active: true, ReceivedAt: now}},
	}

	syncer := boatsync.NewSyncer(boatsync.SyncerConfig{
		Boat:   "TN01-AB123",
		Server: server,
		Store:  store,
		Logger: zerolog.Nop(),
	})

	res, err := syncer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Fetched)
	assert.Equal(t, 2, res.MessagesSaved)
	assert.Equal(t, 2, res.Cleared)
	assert.Equal(t, 1, res.InboxSaved)
	assert.Equal(t, 1, server.acks())

	thread, err := store.ListThread(ctx, "TN01-AB123_TN02-CD456")
	require.NoError(t, err)
	assert.Len(t, thread, 2)

	st, err := store.LastSync(ctx, "TN01-AB123")
	require.NoError(t, err)
	assert.Equal(t, 2, st.MessagesSaved)
	assert.Empty(t, st.LastError)

	// Nothing queued: no ack call.
	res, err = syncer.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, res.Fetched)
	assert.Equal(t, 1, server.acks())
}

func TestSyncer_LocalFailureKeepsServerQueue(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	server := &mockServer{backup: []boatsync.Message{testMessage("msg_1", time.Now())}}

	syncer := boatsync.NewSyncer(boatsync.SyncerConfig{
		Boat:   "TN01-AB123",
		Server: server,
		Store:  brokenStore{store},
		Logger: zerolog.Nop(),
	})

	_, err := syncer.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Zero(t, server.acks())

	st, err := store.LastSync(ctx, "TN01-AB123")
	require.NoError(t, err)
	assert.Contains(t, st.LastError, "disk full")
}

func TestSyncer_FetchFailure(t *testing.T) {
	server := &mockServer{fetchErr: errors.New("link down")}
	syncer := boatsync.NewSyncer(boatsync.SyncerConfig{
		Boat:   "TN01-AB123",
		Server: server,
		Store:  openStore(t),
		Logger: zerolog.Nop(),
	})

	_, err := syncer.Run(context.Background())
	require.Error(t, err)
	assert.Zero(t, server.acks())
}

// committingStore runs during while the fetched messages are being committed.
type committingStore struct {
	*boatsync.Store
	during func()
}

func (s committingStore) SaveMessages(ctx context.Context, msgs []boatsync.Message) (int, error) {
	s.during()
	return s.Store.SaveMessages(ctx, msgs)
}

func TestSyncer_MessageQueuedDuringSyncSurvives(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	store := openStore(t)
	server := &mockServer{backup: []boatsync.Message{testMessage("msg_1", now)}}
	late := testMessage("msg_late", now.Add(time.Second))

	syncer := boatsync.NewSyncer(boatsync.SyncerConfig{
		Boat:   "TN01-AB123",
		Server: server,
		Store:  committingStore{Store: store, during: func() { server.queue(late) }},
		Logger: zerolog.Nop(),
	})

	res, err := syncer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Fetched)
	assert.Equal(t, 1, res.Cleared)
	assert.Equal(t, []string{"msg_late"}, server.queued())

	// The next pass picks it up.
	syncer = boatsync.NewSyncer(boatsync.SyncerConfig{
		Boat:   "TN01-AB123",
		Server: server,
		Store:  store,
		Logger: zerolog.Nop(),
	})
	res, err = syncer.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Cleared)
	assert.Empty(t, server.queued())

	thread, err := store.ListThread(ctx, "TN01-AB123_TN02-CD456")
	require.NoError(t, err)
	assert.Len(t, thread, 2)
}
