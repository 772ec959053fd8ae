package integration

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgercrm/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// SyncRecordStatus
// ---------------------------------------------------------------------------

// SyncRecordStatus is the reconciliation state of one local↔remote pair.
type SyncRecordStatus string

const (
	// RecordSynced indicates both sides agree as of last_synced_at.
	RecordSynced SyncRecordStatus = "SYNCED"
	// RecordPendingInbound indicates a remote change awaits application.
	RecordPendingInbound SyncRecordStatus = "PENDING_INBOUND"
	// RecordPendingOutbound indicates a local change awaits pushing.
	RecordPendingOutbound SyncRecordStatus = "PENDING_OUTBOUND"
	// RecordConflict indicates both sides changed; excluded from automated
	// sync until resolved.
	RecordConflict SyncRecordStatus = "CONFLICT"
	// RecordError indicates the last reconciliation attempt failed.
	RecordError SyncRecordStatus = "ERROR"
)

// IsValid returns true if the status is valid
func (s SyncRecordStatus) IsValid() bool {
	switch s {
	case RecordSynced, RecordPendingInbound, RecordPendingOutbound, RecordConflict, RecordError:
		return true
	default:
		return false
	}
}

// String returns the string representation of SyncRecordStatus
func (s SyncRecordStatus) String() string {
	return string(s)
}

// ---------------------------------------------------------------------------
// SyncRecord
// ---------------------------------------------------------------------------

// SyncRecord is the reconciliation unit tracking one (sync_config, local,
// remote) triple. Unique on (sync_config_id, remote_id). Records are never
// silently deleted; they remain as the audit trail of the pairing.
type SyncRecord struct {
	shared.BaseEntity
	SyncConfigID uuid.UUID
	LocalID      string
	RemoteID     string
	// RemoteHash is the canonical content hash of the last-seen remote
	// payload; change detection compares against it instead of trusting
	// provider timestamps.
	RemoteHash      string
	Status          SyncRecordStatus
	LocalUpdatedAt  *time.Time
	RemoteUpdatedAt *time.Time
	LastSyncedAt    *time.Time
	LastError       string
}

// NewSyncRecord creates a record the first time a pair is observed.
func NewSyncRecord(syncConfigID uuid.UUID, localID, remoteID, remoteHash string, status SyncRecordStatus) *SyncRecord {
	return &SyncRecord{
		BaseEntity:   shared.NewBaseEntity(),
		SyncConfigID: syncConfigID,
		LocalID:      localID,
		RemoteID:     remoteID,
		RemoteHash:   remoteHash,
		Status:       status,
	}
}

// MarkSynced records a successful reconciliation.
func (r *SyncRecord) MarkSynced(remoteHash string, remoteUpdatedAt *time.Time, now time.Time) {
	r.RemoteHash = remoteHash
	r.RemoteUpdatedAt = remoteUpdatedAt
	r.Status = RecordSynced
	r.LastSyncedAt = &now
	r.LastError = ""
	r.UpdatedAt = now
}

// MarkPendingOutbound flags a local-side change awaiting push.
func (r *SyncRecord) MarkPendingOutbound(localUpdatedAt time.Time) {
	r.Status = RecordPendingOutbound
	r.LocalUpdatedAt = &localUpdatedAt
	r.UpdatedAt = time.Now()
}

// MarkConflict parks the record for manual review. The conflicting
// remote hash is stored so a keep-local resolution is not re-detected as
// a conflict by the next inbound pass.
func (r *SyncRecord) MarkConflict(remoteHash string, now time.Time) {
	r.Status = RecordConflict
	r.RemoteHash = remoteHash
	r.UpdatedAt = now
}

// MarkError records a per-record failure without blocking other records.
func (r *SyncRecord) MarkError(message string, now time.Time) {
	r.Status = RecordError
	r.LastError = message
	r.UpdatedAt = now
}

// ResolveConflict releases a conflicted record back into automated sync.
// keepLocal requeues the local side for push; otherwise the next inbound
// pass re-applies the remote side (the stored hash is cleared so the
// remote payload is not skipped as unchanged).
func (r *SyncRecord) ResolveConflict(keepLocal bool, now time.Time) error {
	if r.Status != RecordConflict {
		return ErrRecordNotInConflict
	}
	if keepLocal {
		r.Status = RecordPendingOutbound
	} else {
		r.Status = RecordPendingInbound
		r.RemoteHash = ""
	}
	r.UpdatedAt = now
	return nil
}
