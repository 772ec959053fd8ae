package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/infrastructure/persistence/models"
)

// GormLocalStore implements the engine's LocalStore port over a single
// schemaless table. It stands in for the CRM/invoicing subsystems that
// own local records in a full deployment.
type GormLocalStore struct {
	db *gorm.DB
}

// NewGormLocalStore creates a new GormLocalStore
func NewGormLocalStore(db *gorm.DB) *GormLocalStore {
	return &GormLocalStore{db: db}
}

var _ integration.LocalStore = (*GormLocalStore)(nil)

// Get fetches a local record, ErrSyncRecordNotFound when absent
func (s *GormLocalStore) Get(ctx context.Context, entityType, id string) (*integration.LocalRecord, error) {
	var model models.LocalRecordModel
	if err := s.db.WithContext(ctx).
		Where("entity_type = ? AND record_id = ?", entityType, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create inserts a local record with a generated id
func (s *GormLocalStore) Create(ctx context.Context, entityType string, data integration.Record) (*integration.LocalRecord, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("persistence: encode local record: %w", err)
	}
	model := models.LocalRecordModel{
		EntityType: entityType,
		RecordID:   uuid.NewString(),
		DataJSON:   string(raw),
		UpdatedAt:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// Update replaces a local record's payload
func (s *GormLocalStore) Update(ctx context.Context, entityType, id string, data integration.Record) (*integration.LocalRecord, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("persistence: encode local record: %w", err)
	}

	result := s.db.WithContext(ctx).
		Model(&models.LocalRecordModel{}).
		Where("entity_type = ? AND record_id = ?", entityType, id).
		Updates(map[string]any{
			"data":       string(raw),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, integration.ErrSyncRecordNotFound
	}
	return s.Get(ctx, entityType, id)
}
