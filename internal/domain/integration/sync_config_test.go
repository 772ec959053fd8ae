package integration

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncDirection(t *testing.T) {
	assert.True(t, DirectionInbound.Inbound())
	assert.False(t, DirectionInbound.Outbound())
	assert.True(t, DirectionOutbound.Outbound())
	assert.False(t, DirectionOutbound.Inbound())
	assert.True(t, DirectionBidirectional.Inbound())
	assert.True(t, DirectionBidirectional.Outbound())
	assert.False(t, SyncDirection("SIDEWAYS").IsValid())
}

func TestNewSyncConfig(t *testing.T) {
	integrationID := uuid.New()

	t.Run("valid", func(t *testing.T) {
		cfg, err := NewSyncConfig(integrationID, "contacts", "Customer", DirectionBidirectional, 900, ConflictLastWriteWins, PriorityRemote)
		require.NoError(t, err)
		assert.True(t, cfg.Enabled)
		assert.Equal(t, 15*time.Minute, cfg.Interval())
	})

	t.Run("interval floor", func(t *testing.T) {
		cfg, err := NewSyncConfig(integrationID, "contacts", "Customer", DirectionInbound, 5, ConflictLastWriteWins, PriorityRemote)
		require.NoError(t, err)
		assert.Equal(t, 3600, cfg.SyncInterval)
	})

	t.Run("invalid direction", func(t *testing.T) {
		_, err := NewSyncConfig(integrationID, "contacts", "Customer", SyncDirection("UP"), 900, ConflictLastWriteWins, PriorityRemote)
		assert.ErrorIs(t, err, ErrInvalidDirection)
	})

	t.Run("invalid strategy", func(t *testing.T) {
		_, err := NewSyncConfig(integrationID, "contacts", "Customer", DirectionInbound, 900, ConflictStrategy("COIN_FLIP"), PriorityRemote)
		assert.ErrorIs(t, err, ErrInvalidConflictMode)
	})
}

func TestSyncConfig_Due(t *testing.T) {
	now := time.Now()
	cfg, err := NewSyncConfig(uuid.New(), "invoices", "Invoice", DirectionInbound, 600, ConflictSourcePriority, PriorityRemote)
	require.NoError(t, err)

	t.Run("never synced is due", func(t *testing.T) {
		assert.True(t, cfg.Due(now))
	})

	t.Run("recently synced is not due", func(t *testing.T) {
		cfg.AdvanceWatermark(now.Add(-5 * time.Minute))
		assert.False(t, cfg.Due(now))
	})

	t.Run("past interval is due", func(t *testing.T) {
		cfg.AdvanceWatermark(now.Add(-11 * time.Minute))
		assert.True(t, cfg.Due(now))
	})

	t.Run("disabled is never due", func(t *testing.T) {
		cfg.Enabled = false
		cfg.LastSyncAt = nil
		assert.False(t, cfg.Due(now))
	})
}
