package integration

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncLog_Finalize(t *testing.T) {
	t.Run("clean run completes", func(t *testing.T) {
		log := NewSyncLog(uuid.New(), "contacts", DirectionInbound, SyncTypeIncremental, TriggerScheduled)
		log.Counts.Processed = 3
		log.Counts.Created = 3
		require.NoError(t, log.Finalize())
		assert.Equal(t, RunCompleted, log.Status)
		assert.NotNil(t, log.CompletedAt)
	})

	t.Run("run with failures is partial", func(t *testing.T) {
		log := NewSyncLog(uuid.New(), "contacts", DirectionInbound, SyncTypeIncremental, TriggerScheduled)
		log.Counts.Processed = 3
		log.RecordError("rec-1", "transform failed")
		require.NoError(t, log.Finalize())
		assert.Equal(t, RunPartial, log.Status)
		assert.Len(t, log.Errors, 1)
		assert.Equal(t, 1, log.Counts.Failed)
	})

	t.Run("finalized log is immutable", func(t *testing.T) {
		log := NewSyncLog(uuid.New(), "contacts", DirectionInbound, SyncTypeFull, TriggerManual)
		require.NoError(t, log.Finalize())
		assert.ErrorIs(t, log.Finalize(), ErrSyncLogImmutable)
		assert.ErrorIs(t, log.Fail("late failure"), ErrSyncLogImmutable)
	})
}

func TestSyncLog_Fail(t *testing.T) {
	log := NewSyncLog(uuid.New(), "invoices", DirectionBidirectional, SyncTypeIncremental, TriggerWebhook)
	require.NoError(t, log.Fail("provider rate limited"))
	assert.Equal(t, RunFailed, log.Status)
	require.Len(t, log.Errors, 1)
	assert.Equal(t, "provider rate limited", log.Errors[0].Message)
}

func TestSyncRecord_ResolveConflict(t *testing.T) {
	now := time.Now()

	t.Run("keep local requeues outbound", func(t *testing.T) {
		rec := NewSyncRecord(uuid.New(), "l1", "r1", "hash", RecordSynced)
		rec.MarkConflict("conflict-hash", now)
		require.NoError(t, rec.ResolveConflict(true, now))
		assert.Equal(t, RecordPendingOutbound, rec.Status)
		assert.Equal(t, "conflict-hash", rec.RemoteHash)
	})

	t.Run("keep remote clears hash", func(t *testing.T) {
		rec := NewSyncRecord(uuid.New(), "l1", "r1", "hash", RecordSynced)
		rec.MarkConflict("conflict-hash", now)
		require.NoError(t, rec.ResolveConflict(false, now))
		assert.Equal(t, RecordPendingInbound, rec.Status)
		assert.Empty(t, rec.RemoteHash)
	})

	t.Run("only conflicted records resolve", func(t *testing.T) {
		rec := NewSyncRecord(uuid.New(), "l1", "r1", "hash", RecordSynced)
		assert.ErrorIs(t, rec.ResolveConflict(true, now), ErrRecordNotInConflict)
	})
}
