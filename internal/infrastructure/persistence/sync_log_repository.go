package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/infrastructure/persistence/models"
)

// GormSyncLogRepository implements SyncLogRepository using GORM
type GormSyncLogRepository struct {
	db *gorm.DB
}

// NewGormSyncLogRepository creates a new GormSyncLogRepository
func NewGormSyncLogRepository(db *gorm.DB) *GormSyncLogRepository {
	return &GormSyncLogRepository{db: db}
}

var _ integration.SyncLogRepository = (*GormSyncLogRepository)(nil)

// FindByID finds a sync log by its ID
func (r *GormSyncLogRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.SyncLog, error) {
	var model models.SyncLogModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrSyncLogNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindBySyncConfig finds a config's logs, newest first
func (r *GormSyncLogRepository) FindBySyncConfig(ctx context.Context, syncConfigID uuid.UUID, limit int) ([]integration.SyncLog, error) {
	var logModels []models.SyncLogModel
	query := r.db.WithContext(ctx).
		Where("sync_config_id = ?", syncConfigID).
		Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&logModels).Error; err != nil {
		return nil, err
	}
	return syncLogsToDomain(logModels), nil
}

// FindRunning finds the in-progress log for a config, nil when none
func (r *GormSyncLogRepository) FindRunning(ctx context.Context, syncConfigID uuid.UUID) (*integration.SyncLog, error) {
	var model models.SyncLogModel
	if err := r.db.WithContext(ctx).
		Where("sync_config_id = ? AND status = ?", syncConfigID, integration.RunRunning).
		Order("started_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindRecent finds the most recent terminal logs across an integration's configs
func (r *GormSyncLogRepository) FindRecent(ctx context.Context, integrationID uuid.UUID, limit int) ([]integration.SyncLog, error) {
	var logModels []models.SyncLogModel
	query := r.db.WithContext(ctx).
		Where("sync_config_id IN (?)",
			r.db.Model(&models.SyncConfigModel{}).Select("id").Where("integration_id = ?", integrationID)).
		Where("status <> ?", integration.RunRunning).
		Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&logModels).Error; err != nil {
		return nil, err
	}
	return syncLogsToDomain(logModels), nil
}

// Save creates or updates a sync log
func (r *GormSyncLogRepository) Save(ctx context.Context, log *integration.SyncLog) error {
	model := models.SyncLogModelFromDomain(log)
	return r.db.WithContext(ctx).Save(model).Error
}

func syncLogsToDomain(logModels []models.SyncLogModel) []integration.SyncLog {
	logs := make([]integration.SyncLog, len(logModels))
	for i := range logModels {
		logs[i] = *logModels[i].ToDomain()
	}
	return logs
}
