package integration

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgercrm/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Run enums
// ---------------------------------------------------------------------------

// SyncRunStatus is the state machine of one sync run.
type SyncRunStatus string

const (
	RunRunning SyncRunStatus = "RUNNING"
	// RunCompleted indicates every record processed cleanly.
	RunCompleted SyncRunStatus = "COMPLETED"
	// RunPartial indicates the run finished but at least one record failed.
	RunPartial SyncRunStatus = "PARTIAL"
	// RunFailed indicates a connector-level error aborted the run before
	// per-record processing could meaningfully proceed.
	RunFailed SyncRunStatus = "FAILED"
)

// IsValid returns true if the run status is valid
func (s SyncRunStatus) IsValid() bool {
	switch s {
	case RunRunning, RunCompleted, RunPartial, RunFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the run has finished.
func (s SyncRunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunPartial || s == RunFailed
}

// SyncType distinguishes full resyncs from incremental runs.
type SyncType string

const (
	SyncTypeFull        SyncType = "FULL"
	SyncTypeIncremental SyncType = "INCREMENTAL"
)

// TriggerType records what started a run.
type TriggerType string

const (
	TriggerManual    TriggerType = "MANUAL"
	TriggerScheduled TriggerType = "SCHEDULED"
	TriggerWebhook   TriggerType = "WEBHOOK"
)

// ---------------------------------------------------------------------------
// SyncLog
// ---------------------------------------------------------------------------

// SyncError is one error entry accumulated during a run.
type SyncError struct {
	RecordID string `json:"record_id,omitempty"`
	Message  string `json:"message"`
}

// SyncCounts aggregates per-record outcomes of a run.
type SyncCounts struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// SyncLog is the immutable record of one sync run. It is mutable while the
// run is in progress and frozen once a terminal status is set.
type SyncLog struct {
	shared.BaseEntity
	SyncConfigID uuid.UUID
	EntityType   string
	Direction    SyncDirection
	SyncType     SyncType
	Trigger      TriggerType
	Status       SyncRunStatus
	Counts       SyncCounts
	Errors       []SyncError
	StartedAt    time.Time
	CompletedAt  *time.Time
}

// NewSyncLog opens a running log for a triggered run.
func NewSyncLog(syncConfigID uuid.UUID, entityType string, direction SyncDirection, syncType SyncType, trigger TriggerType) *SyncLog {
	return &SyncLog{
		BaseEntity:   shared.NewBaseEntity(),
		SyncConfigID: syncConfigID,
		EntityType:   entityType,
		Direction:    direction,
		SyncType:     syncType,
		Trigger:      trigger,
		Status:       RunRunning,
		Errors:       []SyncError{},
		StartedAt:    time.Now(),
	}
}

// RecordError appends an error entry and bumps the failed count.
func (l *SyncLog) RecordError(recordID, message string) {
	l.Errors = append(l.Errors, SyncError{RecordID: recordID, Message: message})
	l.Counts.Failed++
}

// Finalize derives the terminal status from the accumulated counts.
// Returns ErrSyncLogImmutable when the log already completed.
func (l *SyncLog) Finalize() error {
	if l.Status.IsTerminal() {
		return ErrSyncLogImmutable
	}
	now := time.Now()
	l.CompletedAt = &now
	if l.Counts.Failed == 0 {
		l.Status = RunCompleted
	} else {
		l.Status = RunPartial
	}
	l.UpdatedAt = now
	return nil
}

// Fail marks the run as aborted by a connector-level error.
func (l *SyncLog) Fail(message string) error {
	if l.Status.IsTerminal() {
		return ErrSyncLogImmutable
	}
	now := time.Now()
	l.CompletedAt = &now
	l.Status = RunFailed
	l.Errors = append(l.Errors, SyncError{Message: message})
	l.UpdatedAt = now
	return nil
}
