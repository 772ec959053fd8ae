package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/infrastructure/persistence/models"
)

// GormFieldMappingRepository implements FieldMappingRepository using GORM
type GormFieldMappingRepository struct {
	db *gorm.DB
}

// NewGormFieldMappingRepository creates a new GormFieldMappingRepository
func NewGormFieldMappingRepository(db *gorm.DB) *GormFieldMappingRepository {
	return &GormFieldMappingRepository{db: db}
}

var _ integration.FieldMappingRepository = (*GormFieldMappingRepository)(nil)

// FindByID finds a field mapping by its ID
func (r *GormFieldMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.FieldMapping, error) {
	var model models.FieldMappingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrFieldMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySyncConfig finds all mappings of a sync config
func (r *GormFieldMappingRepository) FindBySyncConfig(ctx context.Context, syncConfigID uuid.UUID) ([]integration.FieldMapping, error) {
	var mappingModels []models.FieldMappingModel
	if err := r.db.WithContext(ctx).
		Where("sync_config_id = ?", syncConfigID).
		Order("created_at ASC").
		Find(&mappingModels).Error; err != nil {
		return nil, err
	}

	mappings := make([]integration.FieldMapping, len(mappingModels))
	for i := range mappingModels {
		mappings[i] = *mappingModels[i].ToDomain()
	}
	return mappings, nil
}

// Save creates or updates a field mapping
func (r *GormFieldMappingRepository) Save(ctx context.Context, mapping *integration.FieldMapping) error {
	model := models.FieldMappingModelFromDomain(mapping)
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a field mapping
func (r *GormFieldMappingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.FieldMappingModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrFieldMappingNotFound
	}
	return nil
}
