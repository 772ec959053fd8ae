package integration

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgercrm/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// SyncDirection
// ---------------------------------------------------------------------------

// SyncDirection controls which passes of a sync run execute.
type SyncDirection string

const (
	DirectionInbound       SyncDirection = "INBOUND"
	DirectionOutbound      SyncDirection = "OUTBOUND"
	DirectionBidirectional SyncDirection = "BIDIRECTIONAL"
)

// IsValid returns true if the direction is valid
func (d SyncDirection) IsValid() bool {
	switch d {
	case DirectionInbound, DirectionOutbound, DirectionBidirectional:
		return true
	default:
		return false
	}
}

// Inbound reports whether the inbound pass runs for this direction.
func (d SyncDirection) Inbound() bool {
	return d == DirectionInbound || d == DirectionBidirectional
}

// Outbound reports whether the outbound pass runs for this direction.
func (d SyncDirection) Outbound() bool {
	return d == DirectionOutbound || d == DirectionBidirectional
}

// ---------------------------------------------------------------------------
// ConflictStrategy
// ---------------------------------------------------------------------------

// ConflictStrategy selects how the engine resolves a record changed on
// both sides since the last successful sync.
type ConflictStrategy string

const (
	// ConflictLastWriteWins applies the side with the later modification
	// timestamp; ties fall back to the priority source.
	ConflictLastWriteWins ConflictStrategy = "LAST_WRITE_WINS"
	// ConflictSourcePriority unconditionally applies the configured
	// priority source.
	ConflictSourcePriority ConflictStrategy = "SOURCE_PRIORITY"
	// ConflictManualReview applies neither side; the record is parked in
	// conflict until resolved out-of-band.
	ConflictManualReview ConflictStrategy = "MANUAL_REVIEW"
	// ConflictMerge unions fields, favoring the priority source on
	// overlap. Shallow, best-effort; not a three-way merge.
	ConflictMerge ConflictStrategy = "MERGE"
)

// IsValid returns true if the strategy is valid
func (s ConflictStrategy) IsValid() bool {
	switch s {
	case ConflictLastWriteWins, ConflictSourcePriority, ConflictManualReview, ConflictMerge:
		return true
	default:
		return false
	}
}

// ---------------------------------------------------------------------------
// PrioritySource
// ---------------------------------------------------------------------------

// PrioritySource names the side that wins under source-priority and on
// last-write-wins ties.
type PrioritySource string

const (
	PriorityLocal  PrioritySource = "LOCAL"
	PriorityRemote PrioritySource = "REMOTE"
)

// IsValid returns true if the priority source is valid
func (p PrioritySource) IsValid() bool {
	return p == PriorityLocal || p == PriorityRemote
}

// ---------------------------------------------------------------------------
// SyncConfig
// ---------------------------------------------------------------------------

// SyncConfig binds one local entity type to one remote entity of an
// integration and carries the sync policy for that pair. At most one
// active config may exist per (integration, entity type).
type SyncConfig struct {
	shared.BaseEntity
	IntegrationID uuid.UUID
	// EntityType is the local entity name (e.g. "contacts").
	EntityType string
	// RemoteEntity is the provider's entity name (e.g. "Customer").
	RemoteEntity string
	Direction    SyncDirection
	// SyncInterval is the scheduled run period in seconds.
	SyncInterval       int
	ConflictResolution ConflictStrategy
	PrioritySource     PrioritySource
	Enabled            bool
	LastSyncAt         *time.Time
}

// NewSyncConfig creates an enabled sync config with validated policy.
func NewSyncConfig(integrationID uuid.UUID, entityType, remoteEntity string, direction SyncDirection, intervalSeconds int, strategy ConflictStrategy, priority PrioritySource) (*SyncConfig, error) {
	if entityType == "" || remoteEntity == "" {
		return nil, shared.ErrInvalidInput
	}
	if !direction.IsValid() {
		return nil, ErrInvalidDirection
	}
	if !strategy.IsValid() {
		return nil, ErrInvalidConflictMode
	}
	if !priority.IsValid() {
		priority = PriorityRemote
	}
	if intervalSeconds < 60 {
		intervalSeconds = 3600
	}
	return &SyncConfig{
		BaseEntity:         shared.NewBaseEntity(),
		IntegrationID:      integrationID,
		EntityType:         entityType,
		RemoteEntity:       remoteEntity,
		Direction:          direction,
		SyncInterval:       intervalSeconds,
		ConflictResolution: strategy,
		PrioritySource:     priority,
		Enabled:            true,
	}, nil
}

// Interval returns the sync interval as a duration.
func (c *SyncConfig) Interval() time.Duration {
	return time.Duration(c.SyncInterval) * time.Second
}

// Due reports whether a scheduled run is due. A config that has never
// synced is always due.
func (c *SyncConfig) Due(now time.Time) bool {
	if !c.Enabled {
		return false
	}
	if c.LastSyncAt == nil {
		return true
	}
	return !c.LastSyncAt.Add(c.Interval()).After(now)
}

// AdvanceWatermark records a successful (or partial) run completion time.
// Fully failed runs must not advance the watermark so the next run retries
// the same window.
func (c *SyncConfig) AdvanceWatermark(at time.Time) {
	c.LastSyncAt = &at
	c.UpdatedAt = at
}
