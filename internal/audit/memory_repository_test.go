package audit_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uyirkavalan/uyirkavalan/internal/audit"
)

func TestInMemoryRepository_AppendAndList(t *testing.T) {
	repo := audit.NewInMemoryRepository()
	ctx := context.Background()
	base := time.Now()

	created := audit.Lifecycle(audit.SubjectSOS, "sos_1", audit.EventCreated, "TN01-AB123")
	created.Timestamp = base

	sms := &audit.Attempt{
		ID:          audit.NewAttemptID(),
		SubjectID:   "sos_1",
		SubjectKind: audit.SubjectSOS,
		Event:       audit.EventNotification,
		TargetKind:  audit.TargetAuthority,
		Target:      "+91-1800-425-3784",
		Channel:     audit.ChannelSMS,
		Status:      audit.StatusSent,
		Timestamp:   base.Add(time.Second),
	}

	require.NoError(t, repo.Append(ctx, sms))
	require.NoError(t, repo.Append(ctx, created))
	require.NoError(t, repo.Append(ctx, audit.Lifecycle(audit.SubjectSOS, "sos_other", audit.EventCreated, "")))

	entries, err := repo.ListBySubject(ctx, "sos_1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, audit.EventCreated, entries[0].Event)
	assert.Equal(t, audit.EventNotification, entries[1].Event)
	assert.True(t, strings.HasPrefix(entries[1].ID, "att_"))
}

func TestInMemoryRepository_EntriesAreImmutable(t *testing.T) {
	repo := audit.NewInMemoryRepository()
	ctx := context.Background()

	a := audit.Lifecycle(audit.SubjectAlert, "alt_1", audit.EventCreated, "admin")
	require.NoError(t, repo.Append(ctx, a))
	a.Event = audit.EventResolved

	entries, err := repo.ListBySubject(ctx, "alt_1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.EventCreated, entries[0].Event)

	entries[0].Event = audit.EventDeactivated
	again, err := repo.ListBySubject(ctx, "alt_1")
	require.NoError(t, err)
	assert.Equal(t, audit.EventCreated, again[0].Event)
}
