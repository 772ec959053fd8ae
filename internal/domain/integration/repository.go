package integration

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Repository Ports
// ---------------------------------------------------------------------------
//
// Production implementations are GORM-backed (internal/infrastructure/
// persistence); tests use in-memory fakes of the same interfaces.

// IntegrationRepository persists Integration aggregates.
type IntegrationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Integration, error)
	FindByOrgAndProvider(ctx context.Context, orgID uuid.UUID, provider ProviderCode) (*Integration, error)
	FindAllByOrg(ctx context.Context, orgID uuid.UUID) ([]Integration, error)
	FindActive(ctx context.Context) ([]Integration, error)
	Save(ctx context.Context, integ *Integration) error
	// Delete cascades to the integration's sync configs, field mappings,
	// sync records, sync logs and webhooks.
	Delete(ctx context.Context, id uuid.UUID) error
}

// SyncConfigRepository persists SyncConfigs.
type SyncConfigRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*SyncConfig, error)
	FindByIntegration(ctx context.Context, integrationID uuid.UUID) ([]SyncConfig, error)
	FindByIntegrationAndEntity(ctx context.Context, integrationID uuid.UUID, entityType string) (*SyncConfig, error)
	// FindEnabled returns enabled configs across all integrations, for
	// the scheduler's due computation.
	FindEnabled(ctx context.Context) ([]SyncConfig, error)
	Save(ctx context.Context, cfg *SyncConfig) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// FieldMappingRepository persists FieldMappings.
type FieldMappingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*FieldMapping, error)
	FindBySyncConfig(ctx context.Context, syncConfigID uuid.UUID) ([]FieldMapping, error)
	Save(ctx context.Context, mapping *FieldMapping) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SyncRecordRepository persists SyncRecords.
type SyncRecordRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*SyncRecord, error)
	FindByRemoteID(ctx context.Context, syncConfigID uuid.UUID, remoteID string) (*SyncRecord, error)
	FindByLocalID(ctx context.Context, syncConfigID uuid.UUID, localID string) (*SyncRecord, error)
	FindByStatus(ctx context.Context, syncConfigID uuid.UUID, status SyncRecordStatus) ([]SyncRecord, error)
	Save(ctx context.Context, record *SyncRecord) error
}

// SyncLogRepository persists SyncLogs.
type SyncLogRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*SyncLog, error)
	FindBySyncConfig(ctx context.Context, syncConfigID uuid.UUID, limit int) ([]SyncLog, error)
	// FindRunning returns the in-progress log for a config, nil when none.
	FindRunning(ctx context.Context, syncConfigID uuid.UUID) (*SyncLog, error)
	// FindRecent returns the most recent terminal logs across an
	// integration's configs, newest first.
	FindRecent(ctx context.Context, integrationID uuid.UUID, limit int) ([]SyncLog, error)
	Save(ctx context.Context, log *SyncLog) error
}

// WebhookRepository persists Webhooks and their inbound events.
type WebhookRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Webhook, error)
	FindByIntegration(ctx context.Context, integrationID uuid.UUID) ([]Webhook, error)
	Save(ctx context.Context, webhook *Webhook) error
	Delete(ctx context.Context, id uuid.UUID) error
	SaveEvent(ctx context.Context, event *WebhookEvent) error
}

// EventDeduper suppresses duplicate webhook deliveries. Providers retry
// deliveries on timeout, so the same provider event ID can arrive more
// than once. MarkProcessed returns false when the ID was already seen
// within the TTL.
type EventDeduper interface {
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, eventID string) (bool, error)
}

// ---------------------------------------------------------------------------
// OAuth state store
// ---------------------------------------------------------------------------

// OAuthStateStore holds short-lived, single-use authorization states.
// Consume atomically returns and invalidates a state; a second Consume of
// the same token fails with ErrOAuthStateNotFound.
type OAuthStateStore interface {
	Put(ctx context.Context, state *OAuthState, ttl time.Duration) error
	Consume(ctx context.Context, token string) (*OAuthState, error)
}

// ---------------------------------------------------------------------------
// Local record store (collaborator port)
// ---------------------------------------------------------------------------

// LocalRecord is a local-side record with the bookkeeping the engine needs.
type LocalRecord struct {
	ID        string
	Data      Record
	UpdatedAt time.Time
}

// LocalStore is the record source/sink the CRM/invoicing subsystems expose
// per local entity type. The sync engine treats it as an opaque store; it
// does not own its schema.
type LocalStore interface {
	Get(ctx context.Context, entityType, id string) (*LocalRecord, error)
	Create(ctx context.Context, entityType string, data Record) (*LocalRecord, error)
	Update(ctx context.Context, entityType, id string, data Record) (*LocalRecord, error)
}
