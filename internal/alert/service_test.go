package alert_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uyirkavalan/uyirkavalan/internal/alert"
	"github.com/uyirkavalan/uyirkavalan/internal/audit"
	"github.com/uyirkavalan/uyirkavalan/internal/boat"
	"github.com/uyirkavalan/uyirkavalan/internal/dispatch"
	"github.com/uyirkavalan/uyirkavalan/internal/geo"
	"github.com/uyirkavalan/uyirkavalan/internal/inbox"
	"github.com/uyirkavalan/uyirkavalan/internal/voice"
)

type fakeSynth struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (s *fakeSynth) Synthesize(_ context.Context, _, language string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.fail {
		return "", errors.New("tts unavailable")
	}
	return "https://audio.example.com/" + language + ".mp3", nil
}

type fixture struct {
	svc   *alert.Service
	inbox *inbox.InMemoryRepository
	audit *audit.InMemoryRepository
	synth *fakeSynth
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	boats := boat.NewInMemoryRepository()
	for _, id := range []string{"TN01-AB123", "TN02-CD456", "TN03-EF789"} {
		require.NoError(t, boats.Upsert(ctx, &boat.Boat{ID: id, Role: boat.RoleFisherman, Active: true}))
	}
	loc := geo.Location{Point: geo.Point{Lat: 13.08, Lon: 80.29}, CapturedAt: time.Now()}
	require.NoError(t, boats.UpdateLastLocation(ctx, "TN01-AB123", loc))
	require.NoError(t, boats.UpdateLastLocation(ctx, "TN02-CD456", loc))

	f := &fixture{
		inbox: inbox.NewInMemoryRepository(),
		audit: audit.NewInMemoryRepository(),
		synth: &fakeSynth{},
	}

	d := dispatch.New(dispatch.Config{
		Inbox:     f.inbox,
		Audit:     f.audit,
		Directory: boats,
		Logger:    zerolog.Nop(),
	})

	f.svc = alert.NewService(alert.ServiceConfig{
		Repo:      alert.NewInMemoryRepository(),
		Inbox:     f.inbox,
		Directory: boats,
		Notifier:  d,
		Voice:     voice.NewCache(f.synth, zerolog.Nop()),
		Audit:     f.audit,
		Logger:    zerolog.Nop(),
	})
	return f
}

func cycloneInput() *alert.CreateInput {
	return &alert.CreateInput{
		Type:               alert.TypeCyclone,
		Severity:           alert.SeverityHigh,
		Title:              "Cyclone warning",
		Description:        "Deep depression over the Bay of Bengal",
		AffectedAreas:      []string{"Chennai coast"},
		EstimatedTime:      time.Now().Add(6 * time.Hour),
		RecommendedActions: []string{"Return to harbour"},
		VoiceText:          "புயல் எச்சரிக்கை",
		CreatedBy:          "admin-1",
	}
}

func TestService_Create_BroadcastsToLocatedBoats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, cycloneInput())
	require.NoError(t, err)

	a := res.Alert
	assert.Regexp(t, `^alt_`, a.ID)
	assert.True(t, a.Active)
	assert.Empty(t, a.AcknowledgedBy)
	assert.Equal(t, "https://audio.example.com/ta.mp3", a.VoiceURL)

	// TN03 has never reported a position.
	require.Len(t, res.Deliveries, 2)
	for _, d := range res.Deliveries {
		assert.True(t, d.OK())
		assert.Equal(t, audit.TargetNearbyBoat, d.TargetKind)
	}

	entries, err := f.svc.ListForBoat(ctx, "TN01-AB123")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, inbox.KindAlert, entries[0].Kind)
	assert.Equal(t, a.ID, entries[0].SourceID)
	assert.Equal(t, a.VoiceURL, entries[0].VoiceURL)

	none, err := f.svc.ListForBoat(ctx, "TN03-EF789")
	require.NoError(t, err)
	assert.Empty(t, none)

	trail, err := f.audit.ListBySubject(ctx, a.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 3)
	assert.Equal(t, audit.EventCreated, trail[0].Event)
}

func TestService_Create_VoiceFailureTolerated(t *testing.T) {
	f := newFixture(t)
	f.synth.fail = true

	res, err := f.svc.Create(context.Background(), cycloneInput())
	require.NoError(t, err)
	assert.Empty(t, res.Alert.VoiceURL)
	assert.Len(t, res.Deliveries, 2)
}

func TestService_Create_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(in *alert.CreateInput)
		field  string
	}{
		{"unknown type", func(in *alert.CreateInput) { in.Type = "flood" }, "type"},
		{"unknown severity", func(in *alert.CreateInput) { in.Severity = "extreme" }, "severity"},
		{"short title", func(in *alert.CreateInput) { in.Title = "Gale" }, "title"},
		{"short description", func(in *alert.CreateInput) { in.Description = "Wind" }, "description"},
		{"missing areas", func(in *alert.CreateInput) { in.AffectedAreas = nil }, "affectedAreas"},
		{"past time", func(in *alert.CreateInput) { in.EstimatedTime = time.Now().Add(-time.Minute) }, "estimatedTime"},
		{"no actions", func(in *alert.CreateInput) { in.RecommendedActions = nil }, "recommendedActions"},
		{"short voice text", func(in *alert.CreateInput) { in.VoiceText = "abc" }, "voiceAlertText"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := cycloneInput()
			tt.mutate(in)

			_, err := f.svc.Create(context.Background(), in)

			var vErr *alert.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Len(t, vErr.Errors, 1)
			assert.Equal(t, tt.field, vErr.Errors[0].Field)
		})
	}

	active, err := f.svc.ListActive(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestService_AcknowledgeAndRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, cycloneInput())
	require.NoError(t, err)

	entries, err := f.svc.ListForBoat(ctx, "TN02-CD456")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entryID := entries[0].ID

	read, err := f.svc.MarkRead(ctx, "TN02-CD456", entryID)
	require.NoError(t, err)
	assert.True(t, read.Read)
	assert.False(t, read.Acknowledged)

	for i := 0; i < 2; i++ {
		ack, err := f.svc.Acknowledge(ctx, "TN02-CD456", entryID)
		require.NoError(t, err)
		assert.True(t, ack.Acknowledged)
	}

	a, err := f.svc.Get(ctx, res.Alert.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"TN02-CD456"}, a.AcknowledgedBy)

	// Another boat cannot touch this entry.
	_, err = f.svc.Acknowledge(ctx, "TN01-AB123", entryID)
	assert.ErrorIs(t, err, inbox.ErrEntryNotFound)
}

func TestService_Deactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, cycloneInput())
	require.NoError(t, err)

	a, err := f.svc.Deactivate(ctx, res.Alert.ID, "admin-1")
	require.NoError(t, err)
	assert.False(t, a.Active)
	assert.NotNil(t, a.DeactivatedAt)

	entries, err := f.svc.ListForBoat(ctx, "TN01-AB123")
	require.NoError(t, err)
	assert.Empty(t, entries)

	active, err := f.svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 0, stats.Active)
	assert.Equal(t, 1, stats.BySeverity[alert.SeverityHigh])

	_, err = f.svc.Deactivate(ctx, "alt_missing", "admin-1")
	assert.ErrorIs(t, err, alert.ErrAlertNotFound)
}

func TestService_TestVoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vt, err := f.svc.TestVoice(ctx, "TN01-AB123")
	require.NoError(t, err)
	assert.Contains(t, vt.Text, "TN01-AB123")
	assert.Equal(t, "https://audio.example.com/ta.mp3", vt.VoiceURL)

	_, err = f.svc.TestVoice(ctx, "TN01-AB123")
	require.NoError(t, err)
	assert.Equal(t, 1, f.synth.calls)

	f.synth.fail = true
	_, err = f.svc.TestVoice(ctx, "TN02-CD456")
	assert.Error(t, err)
}
