package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Integration
// ---------------------------------------------------------------------------

// IntegrationModel is the persistence model for the Integration aggregate.
// The client secret and token columns hold ciphertext; the repository
// encrypts on the way in and decrypts on the way out.
type IntegrationModel struct {
	BaseModel
	OrganizationID uuid.UUID                     `gorm:"type:uuid;not null;index:idx_integrations_org,priority:1;index:idx_integrations_org_provider,priority:1,unique"`
	Provider       integration.ProviderCode      `gorm:"type:varchar(20);not null;index:idx_integrations_org_provider,priority:2,unique"`
	Category       integration.Category          `gorm:"type:varchar(20);not null"`
	Name           string                        `gorm:"type:varchar(255);not null"`
	ClientID       string                        `gorm:"type:varchar(255)"`
	ClientSecret   string                        `gorm:"type:text"`
	AccessToken    string                        `gorm:"type:text"`
	RefreshToken   string                        `gorm:"type:text"`
	TokenExpiry    *time.Time
	ExtrasJSON     string                        `gorm:"type:jsonb;column:extras"`
	Status         integration.IntegrationStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
	LastError      string                        `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "integrations"
}

// ToDomain converts the persistence model to a domain Integration.
func (m *IntegrationModel) ToDomain() *integration.Integration {
	integ := &integration.Integration{
		BaseEntity:     m.BaseModel.ToDomain(),
		OrganizationID: m.OrganizationID,
		Provider:       m.Provider,
		Category:       m.Category,
		Name:           m.Name,
		Credentials: integration.Credentials{
			ClientID:     m.ClientID,
			ClientSecret: m.ClientSecret,
			AccessToken:  m.AccessToken,
			RefreshToken: m.RefreshToken,
			TokenExpiry:  m.TokenExpiry,
		},
		Status:    m.Status,
		LastError: m.LastError,
	}
	if m.ExtrasJSON != "" {
		var extras map[string]string
		if err := json.Unmarshal([]byte(m.ExtrasJSON), &extras); err == nil {
			integ.Credentials.Extras = extras
		}
	}
	return integ
}

// FromDomain populates the persistence model from a domain Integration.
func (m *IntegrationModel) FromDomain(i *integration.Integration) {
	m.FromDomainBaseEntity(i.BaseEntity)
	m.OrganizationID = i.OrganizationID
	m.Provider = i.Provider
	m.Category = i.Category
	m.Name = i.Name
	m.ClientID = i.Credentials.ClientID
	m.ClientSecret = i.Credentials.ClientSecret
	m.AccessToken = i.Credentials.AccessToken
	m.RefreshToken = i.Credentials.RefreshToken
	m.TokenExpiry = i.Credentials.TokenExpiry
	m.Status = i.Status
	m.LastError = i.LastError

	if len(i.Credentials.Extras) > 0 {
		if raw, err := json.Marshal(i.Credentials.Extras); err == nil {
			m.ExtrasJSON = string(raw)
		}
	} else {
		m.ExtrasJSON = "{}"
	}
}

// IntegrationModelFromDomain creates a persistence model from a domain Integration.
func IntegrationModelFromDomain(i *integration.Integration) *IntegrationModel {
	m := &IntegrationModel{}
	m.FromDomain(i)
	return m
}

// ---------------------------------------------------------------------------
// SyncConfig
// ---------------------------------------------------------------------------

// SyncConfigModel is the persistence model for the SyncConfig aggregate.
type SyncConfigModel struct {
	BaseModel
	IntegrationID      uuid.UUID                    `gorm:"type:uuid;not null;index:idx_sync_configs_integration,priority:1;index:idx_sync_configs_integration_entity,priority:1,unique"`
	EntityType         string                       `gorm:"type:varchar(100);not null;index:idx_sync_configs_integration_entity,priority:2,unique"`
	RemoteEntity       string                       `gorm:"type:varchar(100);not null"`
	Direction          integration.SyncDirection    `gorm:"type:varchar(20);not null"`
	SyncInterval       int                          `gorm:"not null"`
	ConflictResolution integration.ConflictStrategy `gorm:"type:varchar(30);not null"`
	PrioritySource     integration.PrioritySource   `gorm:"type:varchar(20);not null"`
	Enabled            bool                         `gorm:"not null;default:true"`
	LastSyncAt         *time.Time                   `gorm:"index"`
}

// TableName returns the table name for GORM
func (SyncConfigModel) TableName() string {
	return "sync_configs"
}

// ToDomain converts the persistence model to a domain SyncConfig.
func (m *SyncConfigModel) ToDomain() *integration.SyncConfig {
	return &integration.SyncConfig{
		BaseEntity:         m.BaseModel.ToDomain(),
		IntegrationID:      m.IntegrationID,
		EntityType:         m.EntityType,
		RemoteEntity:       m.RemoteEntity,
		Direction:          m.Direction,
		SyncInterval:       m.SyncInterval,
		ConflictResolution: m.ConflictResolution,
		PrioritySource:     m.PrioritySource,
		Enabled:            m.Enabled,
		LastSyncAt:         m.LastSyncAt,
	}
}

// FromDomain populates the persistence model from a domain SyncConfig.
func (m *SyncConfigModel) FromDomain(c *integration.SyncConfig) {
	m.FromDomainBaseEntity(c.BaseEntity)
	m.IntegrationID = c.IntegrationID
	m.EntityType = c.EntityType
	m.RemoteEntity = c.RemoteEntity
	m.Direction = c.Direction
	m.SyncInterval = c.SyncInterval
	m.ConflictResolution = c.ConflictResolution
	m.PrioritySource = c.PrioritySource
	m.Enabled = c.Enabled
	m.LastSyncAt = c.LastSyncAt
}

// SyncConfigModelFromDomain creates a persistence model from a domain SyncConfig.
func SyncConfigModelFromDomain(c *integration.SyncConfig) *SyncConfigModel {
	m := &SyncConfigModel{}
	m.FromDomain(c)
	return m
}

// ---------------------------------------------------------------------------
// FieldMapping
// ---------------------------------------------------------------------------

// FieldMappingModel is the persistence model for the FieldMapping entity.
type FieldMappingModel struct {
	BaseModel
	SyncConfigID uuid.UUID                    `gorm:"type:uuid;not null;index:idx_field_mappings_config"`
	LocalField   string                       `gorm:"type:varchar(255)"`
	RemoteField  string                       `gorm:"type:varchar(255)"`
	Transform    integration.TransformType    `gorm:"type:varchar(20);not null"`
	ConfigJSON   string                       `gorm:"type:jsonb;column:config"`
	Direction    integration.MappingDirection `gorm:"type:varchar(20);not null"`
	Required     bool                         `gorm:"not null;default:false"`
	DefaultJSON  string                       `gorm:"type:jsonb;column:default_value"`
}

// TableName returns the table name for GORM
func (FieldMappingModel) TableName() string {
	return "field_mappings"
}

// ToDomain converts the persistence model to a domain FieldMapping.
func (m *FieldMappingModel) ToDomain() *integration.FieldMapping {
	mapping := &integration.FieldMapping{
		BaseEntity:   m.BaseModel.ToDomain(),
		SyncConfigID: m.SyncConfigID,
		LocalField:   m.LocalField,
		RemoteField:  m.RemoteField,
		Transform:    m.Transform,
		Direction:    m.Direction,
		Required:     m.Required,
	}
	if m.ConfigJSON != "" {
		var config map[string]any
		if err := json.Unmarshal([]byte(m.ConfigJSON), &config); err == nil {
			mapping.Config = config
		}
	}
	if m.DefaultJSON != "" {
		var value any
		if err := json.Unmarshal([]byte(m.DefaultJSON), &value); err == nil {
			mapping.Default = value
		}
	}
	return mapping
}

// FromDomain populates the persistence model from a domain FieldMapping.
func (m *FieldMappingModel) FromDomain(fm *integration.FieldMapping) {
	m.FromDomainBaseEntity(fm.BaseEntity)
	m.SyncConfigID = fm.SyncConfigID
	m.LocalField = fm.LocalField
	m.RemoteField = fm.RemoteField
	m.Transform = fm.Transform
	m.Direction = fm.Direction
	m.Required = fm.Required

	if len(fm.Config) > 0 {
		if raw, err := json.Marshal(fm.Config); err == nil {
			m.ConfigJSON = string(raw)
		}
	} else {
		m.ConfigJSON = "{}"
	}
	if fm.Default != nil {
		if raw, err := json.Marshal(fm.Default); err == nil {
			m.DefaultJSON = string(raw)
		}
	} else {
		m.DefaultJSON = ""
	}
}

// FieldMappingModelFromDomain creates a persistence model from a domain FieldMapping.
func FieldMappingModelFromDomain(fm *integration.FieldMapping) *FieldMappingModel {
	m := &FieldMappingModel{}
	m.FromDomain(fm)
	return m
}

// ---------------------------------------------------------------------------
// SyncRecord
// ---------------------------------------------------------------------------

// SyncRecordModel is the persistence model for the SyncRecord entity.
type SyncRecordModel struct {
	BaseModel
	SyncConfigID    uuid.UUID                    `gorm:"type:uuid;not null;index:idx_sync_records_config,priority:1;index:idx_sync_records_config_remote,priority:1,unique;index:idx_sync_records_config_local,priority:1"`
	LocalID         string                       `gorm:"type:varchar(100);index:idx_sync_records_config_local,priority:2"`
	RemoteID        string                       `gorm:"type:varchar(100);index:idx_sync_records_config_remote,priority:2,unique"`
	RemoteHash      string                       `gorm:"type:varchar(64)"`
	Status          integration.SyncRecordStatus `gorm:"type:varchar(20);not null;index"`
	LocalUpdatedAt  *time.Time
	RemoteUpdatedAt *time.Time
	LastSyncedAt    *time.Time
	LastError       string                       `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SyncRecordModel) TableName() string {
	return "sync_records"
}

// ToDomain converts the persistence model to a domain SyncRecord.
func (m *SyncRecordModel) ToDomain() *integration.SyncRecord {
	return &integration.SyncRecord{
		BaseEntity:      m.BaseModel.ToDomain(),
		SyncConfigID:    m.SyncConfigID,
		LocalID:         m.LocalID,
		RemoteID:        m.RemoteID,
		RemoteHash:      m.RemoteHash,
		Status:          m.Status,
		LocalUpdatedAt:  m.LocalUpdatedAt,
		RemoteUpdatedAt: m.RemoteUpdatedAt,
		LastSyncedAt:    m.LastSyncedAt,
		LastError:       m.LastError,
	}
}

// FromDomain populates the persistence model from a domain SyncRecord.
func (m *SyncRecordModel) FromDomain(r *integration.SyncRecord) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.SyncConfigID = r.SyncConfigID
	m.LocalID = r.LocalID
	m.RemoteID = r.RemoteID
	m.RemoteHash = r.RemoteHash
	m.Status = r.Status
	m.LocalUpdatedAt = r.LocalUpdatedAt
	m.RemoteUpdatedAt = r.RemoteUpdatedAt
	m.LastSyncedAt = r.LastSyncedAt
	m.LastError = r.LastError
}

// SyncRecordModelFromDomain creates a persistence model from a domain SyncRecord.
func SyncRecordModelFromDomain(r *integration.SyncRecord) *SyncRecordModel {
	m := &SyncRecordModel{}
	m.FromDomain(r)
	return m
}

// ---------------------------------------------------------------------------
// SyncLog
// ---------------------------------------------------------------------------

// SyncLogModel is the persistence model for the SyncLog entity.
type SyncLogModel struct {
	BaseModel
	SyncConfigID uuid.UUID                 `gorm:"type:uuid;not null;index:idx_sync_logs_config"`
	EntityType   string                    `gorm:"type:varchar(100);not null"`
	Direction    integration.SyncDirection `gorm:"type:varchar(20);not null"`
	SyncType     integration.SyncType      `gorm:"type:varchar(20);not null"`
	Trigger      integration.TriggerType   `gorm:"type:varchar(20);not null;column:trigger_type"`
	Status       integration.SyncRunStatus `gorm:"type:varchar(20);not null;index"`
	Processed    int                       `gorm:"not null;default:0"`
	Created      int                       `gorm:"not null;default:0"`
	Updated      int                       `gorm:"not null;default:0"`
	Failed       int                       `gorm:"not null;default:0"`
	Skipped      int                       `gorm:"not null;default:0"`
	ErrorsJSON   string                    `gorm:"type:jsonb;column:errors"`
	StartedAt    time.Time                 `gorm:"not null;index"`
	CompletedAt  *time.Time
}

// TableName returns the table name for GORM
func (SyncLogModel) TableName() string {
	return "sync_logs"
}

// ToDomain converts the persistence model to a domain SyncLog.
func (m *SyncLogModel) ToDomain() *integration.SyncLog {
	log := &integration.SyncLog{
		BaseEntity:   m.BaseModel.ToDomain(),
		SyncConfigID: m.SyncConfigID,
		EntityType:   m.EntityType,
		Direction:    m.Direction,
		SyncType:     m.SyncType,
		Trigger:      m.Trigger,
		Status:       m.Status,
		Counts: integration.SyncCounts{
			Processed: m.Processed,
			Created:   m.Created,
			Updated:   m.Updated,
			Failed:    m.Failed,
			Skipped:   m.Skipped,
		},
		Errors:      []integration.SyncError{},
		StartedAt:   m.StartedAt,
		CompletedAt: m.CompletedAt,
	}
	if m.ErrorsJSON != "" {
		var errs []integration.SyncError
		if err := json.Unmarshal([]byte(m.ErrorsJSON), &errs); err == nil {
			log.Errors = errs
		}
	}
	return log
}

// FromDomain populates the persistence model from a domain SyncLog.
func (m *SyncLogModel) FromDomain(l *integration.SyncLog) {
	m.FromDomainBaseEntity(l.BaseEntity)
	m.SyncConfigID = l.SyncConfigID
	m.EntityType = l.EntityType
	m.Direction = l.Direction
	m.SyncType = l.SyncType
	m.Trigger = l.Trigger
	m.Status = l.Status
	m.Processed = l.Counts.Processed
	m.Created = l.Counts.Created
	m.Updated = l.Counts.Updated
	m.Failed = l.Counts.Failed
	m.Skipped = l.Counts.Skipped
	m.StartedAt = l.StartedAt
	m.CompletedAt = l.CompletedAt

	if len(l.Errors) > 0 {
		if raw, err := json.Marshal(l.Errors); err == nil {
			m.ErrorsJSON = string(raw)
		}
	} else {
		m.ErrorsJSON = "[]"
	}
}

// SyncLogModelFromDomain creates a persistence model from a domain SyncLog.
func SyncLogModelFromDomain(l *integration.SyncLog) *SyncLogModel {
	m := &SyncLogModel{}
	m.FromDomain(l)
	return m
}

// ---------------------------------------------------------------------------
// Webhook
// ---------------------------------------------------------------------------

// WebhookModel is the persistence model for the Webhook entity. The secret
// column holds ciphertext managed by the repository.
type WebhookModel struct {
	BaseModel
	IntegrationID  uuid.UUID `gorm:"type:uuid;not null;index:idx_webhooks_integration"`
	URL            string    `gorm:"type:varchar(500);not null"`
	EventTypesJSON string    `gorm:"type:jsonb;column:event_types"`
	Secret         string    `gorm:"type:text;not null"`
	RemoteID       string    `gorm:"type:varchar(100)"`
	Enabled        bool      `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (WebhookModel) TableName() string {
	return "webhooks"
}

// ToDomain converts the persistence model to a domain Webhook.
func (m *WebhookModel) ToDomain() *integration.Webhook {
	hook := &integration.Webhook{
		BaseEntity:    m.BaseModel.ToDomain(),
		IntegrationID: m.IntegrationID,
		URL:           m.URL,
		EventTypes:    []string{},
		Secret:        m.Secret,
		RemoteID:      m.RemoteID,
		Enabled:       m.Enabled,
	}
	if m.EventTypesJSON != "" {
		var types []string
		if err := json.Unmarshal([]byte(m.EventTypesJSON), &types); err == nil {
			hook.EventTypes = types
		}
	}
	return hook
}

// FromDomain populates the persistence model from a domain Webhook.
func (m *WebhookModel) FromDomain(w *integration.Webhook) {
	m.FromDomainBaseEntity(w.BaseEntity)
	m.IntegrationID = w.IntegrationID
	m.URL = w.URL
	m.Secret = w.Secret
	m.RemoteID = w.RemoteID
	m.Enabled = w.Enabled

	if len(w.EventTypes) > 0 {
		if raw, err := json.Marshal(w.EventTypes); err == nil {
			m.EventTypesJSON = string(raw)
		}
	} else {
		m.EventTypesJSON = "[]"
	}
}

// WebhookModelFromDomain creates a persistence model from a domain Webhook.
func WebhookModelFromDomain(w *integration.Webhook) *WebhookModel {
	m := &WebhookModel{}
	m.FromDomain(w)
	return m
}

// ---------------------------------------------------------------------------
// WebhookEvent
// ---------------------------------------------------------------------------

// WebhookEventModel is the persistence model for inbound webhook events.
type WebhookEventModel struct {
	BaseModel
	IntegrationID uuid.UUID `gorm:"type:uuid;not null;index:idx_webhook_events_integration"`
	EventType     string    `gorm:"type:varchar(100);not null"`
	Payload       []byte    `gorm:"type:bytea"`
	Processed     bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the persistence model to a domain WebhookEvent.
func (m *WebhookEventModel) ToDomain() *integration.WebhookEvent {
	return &integration.WebhookEvent{
		BaseEntity:    m.BaseModel.ToDomain(),
		IntegrationID: m.IntegrationID,
		EventType:     m.EventType,
		Payload:       m.Payload,
		Processed:     m.Processed,
	}
}

// FromDomain populates the persistence model from a domain WebhookEvent.
func (m *WebhookEventModel) FromDomain(e *integration.WebhookEvent) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.IntegrationID = e.IntegrationID
	m.EventType = e.EventType
	m.Payload = e.Payload
	m.Processed = e.Processed
}

// WebhookEventModelFromDomain creates a persistence model from a domain WebhookEvent.
func WebhookEventModelFromDomain(e *integration.WebhookEvent) *WebhookEventModel {
	m := &WebhookEventModel{}
	m.FromDomain(e)
	return m
}

// ---------------------------------------------------------------------------
// LocalRecord
// ---------------------------------------------------------------------------

// LocalRecordModel backs the local record store the sync engine reads and
// writes. One table serves every entity type; payloads are schemaless JSON.
type LocalRecordModel struct {
	EntityType string    `gorm:"type:varchar(100);primary_key"`
	RecordID   string    `gorm:"type:varchar(100);primary_key;column:record_id"`
	DataJSON   string    `gorm:"type:jsonb;column:data"`
	UpdatedAt  time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (LocalRecordModel) TableName() string {
	return "local_records"
}

// ToDomain converts the persistence model to a domain LocalRecord.
func (m *LocalRecordModel) ToDomain() *integration.LocalRecord {
	record := &integration.LocalRecord{
		ID:        m.RecordID,
		Data:      integration.Record{},
		UpdatedAt: m.UpdatedAt,
	}
	if m.DataJSON != "" {
		var data map[string]any
		if err := json.Unmarshal([]byte(m.DataJSON), &data); err == nil {
			record.Data = data
		}
	}
	return record
}
