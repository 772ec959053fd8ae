package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/infrastructure/persistence/models"
)

// GormSyncRecordRepository implements SyncRecordRepository using GORM
type GormSyncRecordRepository struct {
	db *gorm.DB
}

// NewGormSyncRecordRepository creates a new GormSyncRecordRepository
func NewGormSyncRecordRepository(db *gorm.DB) *GormSyncRecordRepository {
	return &GormSyncRecordRepository{db: db}
}

var _ integration.SyncRecordRepository = (*GormSyncRecordRepository)(nil)

// FindByID finds a sync record by its ID
func (r *GormSyncRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.SyncRecord, error) {
	var model models.SyncRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByRemoteID finds the record linked to a remote id
func (r *GormSyncRecordRepository) FindByRemoteID(ctx context.Context, syncConfigID uuid.UUID, remoteID string) (*integration.SyncRecord, error) {
	var model models.SyncRecordModel
	if err := r.db.WithContext(ctx).
		Where("sync_config_id = ? AND remote_id = ?", syncConfigID, remoteID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByLocalID finds the record linked to a local id
func (r *GormSyncRecordRepository) FindByLocalID(ctx context.Context, syncConfigID uuid.UUID, localID string) (*integration.SyncRecord, error) {
	var model models.SyncRecordModel
	if err := r.db.WithContext(ctx).
		Where("sync_config_id = ? AND local_id = ?", syncConfigID, localID).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncRecordNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByStatus finds a config's records in a given status
func (r *GormSyncRecordRepository) FindByStatus(ctx context.Context, syncConfigID uuid.UUID, status integration.SyncRecordStatus) ([]integration.SyncRecord, error) {
	var recordModels []models.SyncRecordModel
	if err := r.db.WithContext(ctx).
		Where("sync_config_id = ? AND status = ?", syncConfigID, status).
		Order("local_id ASC").
		Find(&recordModels).Error; err != nil {
		return nil, err
	}

	records := make([]integration.SyncRecord, len(recordModels))
	for i := range recordModels {
		records[i] = *recordModels[i].ToDomain()
	}
	return records, nil
}

// Save creates or updates a sync record
func (r *GormSyncRecordRepository) Save(ctx context.Context, record *integration.SyncRecord) error {
	model := models.SyncRecordModelFromDomain(record)
	return r.db.WithContext(ctx).Save(model).Error
}
