package integration

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Integration DTOs
// ---------------------------------------------------------------------------

// IntegrationResponse represents an integration in API responses. Tokens
// and client secrets never leave the application layer.
type IntegrationResponse struct {
	ID             uuid.UUID                     `json:"id"`
	OrganizationID uuid.UUID                     `json:"organization_id"`
	Provider       integration.ProviderCode      `json:"provider"`
	Category       integration.Category          `json:"category"`
	Name           string                        `json:"name"`
	Status         integration.IntegrationStatus `json:"status"`
	Connected      bool                          `json:"connected"`
	TokenExpiry    *time.Time                    `json:"token_expiry,omitempty"`
	LastError      string                        `json:"last_error,omitempty"`
	CreatedAt      time.Time                     `json:"created_at"`
	UpdatedAt      time.Time                     `json:"updated_at"`
}

// ToIntegrationResponse converts a domain integration to a response DTO
func ToIntegrationResponse(integ *integration.Integration) IntegrationResponse {
	return IntegrationResponse{
		ID:             integ.ID,
		OrganizationID: integ.OrganizationID,
		Provider:       integ.Provider,
		Category:       integ.Category,
		Name:           integ.Name,
		Status:         integ.Status,
		Connected:      integ.Credentials.AccessToken != "",
		TokenExpiry:    integ.Credentials.TokenExpiry,
		LastError:      integ.LastError,
		CreatedAt:      integ.CreatedAt,
		UpdatedAt:      integ.UpdatedAt,
	}
}

// ConnectResponse carries the provider authorization URL to redirect to.
type ConnectResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// ConnectionTestResponse reports the outcome of a credentials check.
type ConnectionTestResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// ProviderResponse describes an available provider.
type ProviderResponse struct {
	Code     integration.ProviderCode `json:"code"`
	Category integration.Category     `json:"category"`
}

// ---------------------------------------------------------------------------
// Sync config DTOs
// ---------------------------------------------------------------------------

// SyncConfigResponse represents a sync config in API responses
type SyncConfigResponse struct {
	ID                 uuid.UUID                    `json:"id"`
	IntegrationID      uuid.UUID                    `json:"integration_id"`
	EntityType         string                       `json:"entity_type"`
	RemoteEntity       string                       `json:"remote_entity"`
	Direction          integration.SyncDirection    `json:"direction"`
	SyncInterval       int                          `json:"sync_interval"`
	ConflictResolution integration.ConflictStrategy `json:"conflict_resolution"`
	PrioritySource     integration.PrioritySource   `json:"priority_source"`
	Enabled            bool                         `json:"enabled"`
	LastSyncAt         *time.Time                   `json:"last_sync_at,omitempty"`
	CreatedAt          time.Time                    `json:"created_at"`
	UpdatedAt          time.Time                    `json:"updated_at"`
}

// ToSyncConfigResponse converts a domain sync config to a response DTO
func ToSyncConfigResponse(cfg *integration.SyncConfig) SyncConfigResponse {
	return SyncConfigResponse{
		ID:                 cfg.ID,
		IntegrationID:      cfg.IntegrationID,
		EntityType:         cfg.EntityType,
		RemoteEntity:       cfg.RemoteEntity,
		Direction:          cfg.Direction,
		SyncInterval:       cfg.SyncInterval,
		ConflictResolution: cfg.ConflictResolution,
		PrioritySource:     cfg.PrioritySource,
		Enabled:            cfg.Enabled,
		LastSyncAt:         cfg.LastSyncAt,
		CreatedAt:          cfg.CreatedAt,
		UpdatedAt:          cfg.UpdatedAt,
	}
}

// FieldMappingResponse represents a field mapping in API responses
type FieldMappingResponse struct {
	ID           uuid.UUID                    `json:"id"`
	SyncConfigID uuid.UUID                    `json:"sync_config_id"`
	LocalField   string                       `json:"local_field"`
	RemoteField  string                       `json:"remote_field"`
	Transform    integration.TransformType    `json:"transform"`
	Config       map[string]any               `json:"config,omitempty"`
	Direction    integration.MappingDirection `json:"direction"`
	Required     bool                         `json:"required"`
	Default      any                          `json:"default,omitempty"`
}

// ToFieldMappingResponse converts a domain field mapping to a response DTO
func ToFieldMappingResponse(m *integration.FieldMapping) FieldMappingResponse {
	return FieldMappingResponse{
		ID:           m.ID,
		SyncConfigID: m.SyncConfigID,
		LocalField:   m.LocalField,
		RemoteField:  m.RemoteField,
		Transform:    m.Transform,
		Config:       m.Config,
		Direction:    m.Direction,
		Required:     m.Required,
		Default:      m.Default,
	}
}

// ---------------------------------------------------------------------------
// Sync run DTOs
// ---------------------------------------------------------------------------

// SyncRunResponse represents one sync run in API responses.
type SyncRunResponse struct {
	ID           uuid.UUID                 `json:"id"`
	SyncConfigID uuid.UUID                 `json:"sync_config_id"`
	EntityType   string                    `json:"entity_type"`
	Direction    integration.SyncDirection `json:"direction"`
	SyncType     integration.SyncType      `json:"sync_type"`
	Trigger      integration.TriggerType   `json:"trigger"`
	Status       integration.SyncRunStatus `json:"status"`
	Counts       integration.SyncCounts    `json:"counts"`
	Errors       []integration.SyncError   `json:"errors,omitempty"`
	StartedAt    time.Time                 `json:"started_at"`
	CompletedAt  *time.Time                `json:"completed_at,omitempty"`
}

// ToSyncRunResponse converts a domain sync log to a response DTO
func ToSyncRunResponse(log *integration.SyncLog) SyncRunResponse {
	return SyncRunResponse{
		ID:           log.ID,
		SyncConfigID: log.SyncConfigID,
		EntityType:   log.EntityType,
		Direction:    log.Direction,
		SyncType:     log.SyncType,
		Trigger:      log.Trigger,
		Status:       log.Status,
		Counts:       log.Counts,
		Errors:       log.Errors,
		StartedAt:    log.StartedAt,
		CompletedAt:  log.CompletedAt,
	}
}

// SyncRecordResponse represents a sync record in API responses
type SyncRecordResponse struct {
	ID              uuid.UUID                    `json:"id"`
	SyncConfigID    uuid.UUID                    `json:"sync_config_id"`
	LocalID         string                       `json:"local_id"`
	RemoteID        string                       `json:"remote_id"`
	Status          integration.SyncRecordStatus `json:"status"`
	LocalUpdatedAt  *time.Time                   `json:"local_updated_at,omitempty"`
	RemoteUpdatedAt *time.Time                   `json:"remote_updated_at,omitempty"`
	LastSyncedAt    *time.Time                   `json:"last_synced_at,omitempty"`
	LastError       string                       `json:"last_error,omitempty"`
}

// ToSyncRecordResponse converts a domain sync record to a response DTO
func ToSyncRecordResponse(rec *integration.SyncRecord) SyncRecordResponse {
	return SyncRecordResponse{
		ID:              rec.ID,
		SyncConfigID:    rec.SyncConfigID,
		LocalID:         rec.LocalID,
		RemoteID:        rec.RemoteID,
		Status:          rec.Status,
		LocalUpdatedAt:  rec.LocalUpdatedAt,
		RemoteUpdatedAt: rec.RemoteUpdatedAt,
		LastSyncedAt:    rec.LastSyncedAt,
		LastError:       rec.LastError,
	}
}

// ---------------------------------------------------------------------------
// Webhook DTOs
// ---------------------------------------------------------------------------

// WebhookResponse represents a webhook registration in API responses
type WebhookResponse struct {
	ID            uuid.UUID `json:"id"`
	IntegrationID uuid.UUID `json:"integration_id"`
	URL           string    `json:"url"`
	EventTypes    []string  `json:"event_types"`
	RemoteID      string    `json:"remote_id,omitempty"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
}

// ToWebhookResponse converts a domain webhook to a response DTO
func ToWebhookResponse(w *integration.Webhook) WebhookResponse {
	return WebhookResponse{
		ID:            w.ID,
		IntegrationID: w.IntegrationID,
		URL:           w.URL,
		EventTypes:    w.EventTypes,
		RemoteID:      w.RemoteID,
		Enabled:       w.Enabled,
		CreatedAt:     w.CreatedAt,
	}
}

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// CreateIntegrationRequest represents a request to register an integration
type CreateIntegrationRequest struct {
	Provider     string `json:"provider" validate:"required"`
	Name         string `json:"name" validate:"required,max=120"`
	ClientID     string `json:"client_id" validate:"required"`
	ClientSecret string `json:"client_secret" validate:"required"`
}

// CreateSyncConfigRequest represents a request to create a sync config
type CreateSyncConfigRequest struct {
	EntityType         string                       `json:"entity_type" validate:"required"`
	RemoteEntity       string                       `json:"remote_entity" validate:"required"`
	Direction          integration.SyncDirection    `json:"direction" validate:"required"`
	SyncInterval       int                          `json:"sync_interval,omitempty"`
	ConflictResolution integration.ConflictStrategy `json:"conflict_resolution" validate:"required"`
	PrioritySource     integration.PrioritySource   `json:"priority_source,omitempty"`
}

// UpdateSyncConfigRequest represents a partial update of a sync config
type UpdateSyncConfigRequest struct {
	Direction          *integration.SyncDirection    `json:"direction,omitempty"`
	SyncInterval       *int                          `json:"sync_interval,omitempty"`
	ConflictResolution *integration.ConflictStrategy `json:"conflict_resolution,omitempty"`
	PrioritySource     *integration.PrioritySource   `json:"priority_source,omitempty"`
	Enabled            *bool                         `json:"enabled,omitempty"`
}

// CreateFieldMappingRequest represents a request to create a field mapping
type CreateFieldMappingRequest struct {
	LocalField  string                       `json:"local_field,omitempty"`
	RemoteField string                       `json:"remote_field,omitempty"`
	Transform   integration.TransformType    `json:"transform" validate:"required"`
	Config      map[string]any               `json:"config,omitempty"`
	Direction   integration.MappingDirection `json:"direction,omitempty"`
	Required    bool                         `json:"required,omitempty"`
	Default     any                          `json:"default,omitempty"`
}

// CreateWebhookRequest represents a request to register a webhook
type CreateWebhookRequest struct {
	URL        string   `json:"url" validate:"required,url"`
	EventTypes []string `json:"event_types" validate:"required,min=1"`
}

// ResolveConflictRequest selects the winning side of a parked conflict.
type ResolveConflictRequest struct {
	Resolution string `json:"resolution" validate:"required,oneof=keep_local keep_remote"`
}

// ---------------------------------------------------------------------------
// Health DTOs
// ---------------------------------------------------------------------------

// EntityHealth summarizes sync health for one entity type. SuccessRate is
// the share of fully completed runs among the sampled terminal runs;
// RunsSampled is how many runs backed the score.
type EntityHealth struct {
	EntityType  string                    `json:"entity_type"`
	Enabled     bool                      `json:"enabled"`
	LastSyncAt  *time.Time                `json:"last_sync_at,omitempty"`
	LastStatus  integration.SyncRunStatus `json:"last_status,omitempty"`
	LastCounts  integration.SyncCounts    `json:"last_counts"`
	SuccessRate float64                   `json:"success_rate"`
	RunsSampled int                       `json:"runs_sampled"`
}

// HealthResponse summarizes an integration's sync health. SuccessRate
// aggregates the sampled runs across all entities.
type HealthResponse struct {
	IntegrationID uuid.UUID                     `json:"integration_id"`
	Provider      integration.ProviderCode      `json:"provider"`
	Status        integration.IntegrationStatus `json:"status"`
	TokenExpiry   *time.Time                    `json:"token_expiry,omitempty"`
	LastError     string                        `json:"last_error,omitempty"`
	SuccessRate   float64                       `json:"success_rate"`
	Entities      []EntityHealth                `json:"entities"`
}
