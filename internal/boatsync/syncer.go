package boatsync

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Server is the remote side of a sync.
type Server interface {
	FetchBackup(ctx context.Context, boat string) ([]Message, error)
	AckBackup(ctx context.Context, boat string, messageIDs []string) (int, error)
	FetchInbox(ctx context.Context, boat string) ([]InboxEntry, error)
}

// LocalStore is the on-board side of a sync.
type LocalStore interface {
	SaveMessages(ctx context.Context, msgs []Message) (int, error)
	SaveInbox(ctx context.Context, entries []InboxEntry) (int, error)
	RecordSync(ctx context.Context, st SyncState) error
}

// Result summarises one sync pass.
type Result struct {
	Fetched       int
	MessagesSaved int
	Cleared       int
	InboxSaved    int
	Duration      time.Duration
}

// SyncerConfig holds dependencies for the syncer.
type SyncerConfig struct {
	Boat   string
	Server Server
	Store  LocalStore
	Logger zerolog.Logger
	Now    func() time.Time
}

// Syncer moves a boat's queued messages and alerts from the API to the
// local store.
type Syncer struct {
	boat   string
	server Server
	store  LocalStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewSyncer creates a syncer for one boat.
func NewSyncer(cfg SyncerConfig) *Syncer {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Syncer{
		boat:   cfg.Boat,
		server: cfg.Server,
		store:  cfg.Store,
		logger: cfg.Logger.With().Str("boat_id", cfg.Boat).Logger(),
		now:    now,
	}
}

// Run performs one sync pass. Fetched messages are acknowledged to the
// server by ID only after they are committed locally, so a failed pass
// leaves the queue intact and messages queued mid-pass wait for the next one.
func (s *Syncer) Run(ctx context.Context) (*Result, error) {
	start := s.now()
	res, err := s.run(ctx)
	res.Duration = s.now().Sub(start)

	st := SyncState{
		Boat:          s.boat,
		LastSyncAt:    start,
		MessagesSaved: res.MessagesSaved,
		InboxSaved:    res.InboxSaved,
	}
	if err != nil {
		st.LastError = err.Error()
	}
	if recErr := s.store.RecordSync(ctx, st); recErr != nil {
		s.logger.Warn().Err(recErr).Msg("failed to record sync state")
	}

	if err != nil {
		s.logger.Error().Err(err).Msg("sync failed")
		return res, err
	}

	s.logger.Info().
		Int("fetched", res.Fetched).
		Int("saved", res.MessagesSaved).
		Int("cleared", res.Cleared).
		Int("inbox", res.InboxSaved).
		Dur("duration", res.Duration).
		Msg("sync complete")
	return res, nil
}

func (s *Syncer) run(ctx context.Context) (*Result, error) {
	res := &Result{}

	msgs, err := s.server.FetchBackup(ctx, s.boat)
	if err != nil {
		return res, err
	}
	res.Fetched = len(msgs)

	if len(msgs) > 0 {
		saved, err := s.store.SaveMessages(ctx, msgs)
		if err != nil {
			return res, fmt.Errorf("save messages: %w", err)
		}
		res.MessagesSaved = saved

		ids := make([]string, len(msgs))
		for i, m := range msgs {
			ids[i] = m.ID
		}
		cleared, err := s.server.AckBackup(ctx, s.boat, ids)
		if err != nil {
			return res, err
		}
		res.Cleared = cleared
	}

	entries, err := s.server.FetchInbox(ctx, s.boat)
	if err != nil {
		return res, err
	}
	saved, err := s.store.SaveInbox(ctx, entries)
	if err != nil {
		return res, fmt.Errorf("save inbox: %w", err)
	}
	res.InboxSaved = saved

	return res, nil
}
