package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/infrastructure/persistence/models"
)

// GormSyncConfigRepository implements SyncConfigRepository using GORM
type GormSyncConfigRepository struct {
	db *gorm.DB
}

// NewGormSyncConfigRepository creates a new GormSyncConfigRepository
func NewGormSyncConfigRepository(db *gorm.DB) *GormSyncConfigRepository {
	return &GormSyncConfigRepository{db: db}
}

var _ integration.SyncConfigRepository = (*GormSyncConfigRepository)(nil)

// FindByID finds a sync config by its ID
func (r *GormSyncConfigRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.SyncConfig, error) {
	var model models.SyncConfigModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncConfigNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIntegration finds all sync configs of an integration
func (r *GormSyncConfigRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID) ([]integration.SyncConfig, error) {
	var configModels []models.SyncConfigModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("entity_type ASC").
		Find(&configModels).Error; err != nil {
		return nil, err
	}
	return syncConfigsToDomain(configModels), nil
}

// FindByIntegrationAndEntity finds the sync config for one local entity type
func (r *GormSyncConfigRepository) FindByIntegrationAndEntity(ctx context.Context, integrationID uuid.UUID, entityType string) (*integration.SyncConfig, error) {
	var model models.SyncConfigModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND entity_type = ?", integrationID, entityType).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncConfigNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindEnabled finds enabled sync configs across all integrations
func (r *GormSyncConfigRepository) FindEnabled(ctx context.Context) ([]integration.SyncConfig, error) {
	var configModels []models.SyncConfigModel
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("last_sync_at ASC NULLS FIRST").
		Find(&configModels).Error; err != nil {
		return nil, err
	}
	return syncConfigsToDomain(configModels), nil
}

// Save creates or updates a sync config
func (r *GormSyncConfigRepository) Save(ctx context.Context, cfg *integration.SyncConfig) error {
	model := models.SyncConfigModelFromDomain(cfg)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a sync config with its mappings, records and logs
func (r *GormSyncConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.FieldMappingModel{}, "sync_config_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.SyncRecordModel{}, "sync_config_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.SyncLogModel{}, "sync_config_id = ?", id).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.SyncConfigModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return integration.ErrSyncConfigNotFound
		}
		return nil
	})
}

func syncConfigsToDomain(configModels []models.SyncConfigModel) []integration.SyncConfig {
	configs := make([]integration.SyncConfig, len(configModels))
	for i := range configModels {
		configs[i] = *configModels[i].ToDomain()
	}
	return configs
}
