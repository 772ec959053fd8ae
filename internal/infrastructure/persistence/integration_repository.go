package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/infrastructure/persistence/models"
)

// GormIntegrationRepository implements IntegrationRepository using GORM.
// Credential columns are encrypted before they hit the database.
type GormIntegrationRepository struct {
	db     *gorm.DB
	cipher *TokenCipher
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB, cipher *TokenCipher) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db, cipher: cipher}
}

var _ integration.IntegrationRepository = (*GormIntegrationRepository)(nil)

// FindByID finds an integration by its ID
func (r *GormIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrIntegrationNotFound
		}
		return nil, err
	}
	return r.toDomain(&model)
}

// FindByOrgAndProvider finds an organization's integration for a provider
func (r *GormIntegrationRepository) FindByOrgAndProvider(ctx context.Context, orgID uuid.UUID, provider integration.ProviderCode) (*integration.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND provider = ?", orgID, provider).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrIntegrationNotFound
		}
		return nil, err
	}
	return r.toDomain(&model)
}

// FindAllByOrg finds all integrations of an organization
func (r *GormIntegrationRepository) FindAllByOrg(ctx context.Context, orgID uuid.UUID) ([]integration.Integration, error) {
	var integModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Find(&integModels).Error; err != nil {
		return nil, err
	}
	return r.toDomainSlice(integModels)
}

// FindActive finds all active integrations across organizations
func (r *GormIntegrationRepository) FindActive(ctx context.Context) ([]integration.Integration, error) {
	var integModels []models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", integration.IntegrationStatusActive).
		Order("created_at ASC").
		Find(&integModels).Error; err != nil {
		return nil, err
	}
	return r.toDomainSlice(integModels)
}

// Save creates or updates an integration
func (r *GormIntegrationRepository) Save(ctx context.Context, integ *integration.Integration) error {
	model := models.IntegrationModelFromDomain(integ)
	if err := r.encryptCredentials(model); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes an integration and everything hanging off it
func (r *GormIntegrationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var configIDs []uuid.UUID
		if err := tx.Model(&models.SyncConfigModel{}).
			Where("integration_id = ?", id).
			Pluck("id", &configIDs).Error; err != nil {
			return err
		}

		if len(configIDs) > 0 {
			if err := tx.Delete(&models.FieldMappingModel{}, "sync_config_id IN ?", configIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.SyncRecordModel{}, "sync_config_id IN ?", configIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.SyncLogModel{}, "sync_config_id IN ?", configIDs).Error; err != nil {
				return err
			}
			if err := tx.Delete(&models.SyncConfigModel{}, "integration_id = ?", id).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&models.WebhookModel{}, "integration_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.WebhookEventModel{}, "integration_id = ?", id).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.IntegrationModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return integration.ErrIntegrationNotFound
		}
		return nil
	})
}

// ---------------------------------------------------------------------------
// Credential encryption
// ---------------------------------------------------------------------------

func (r *GormIntegrationRepository) encryptCredentials(m *models.IntegrationModel) error {
	var err error
	if m.ClientSecret, err = r.cipher.Encrypt(m.ClientSecret); err != nil {
		return err
	}
	if m.AccessToken, err = r.cipher.Encrypt(m.AccessToken); err != nil {
		return err
	}
	if m.RefreshToken, err = r.cipher.Encrypt(m.RefreshToken); err != nil {
		return err
	}
	return nil
}

func (r *GormIntegrationRepository) toDomain(m *models.IntegrationModel) (*integration.Integration, error) {
	var err error
	if m.ClientSecret, err = r.cipher.Decrypt(m.ClientSecret); err != nil {
		return nil, err
	}
	if m.AccessToken, err = r.cipher.Decrypt(m.AccessToken); err != nil {
		return nil, err
	}
	if m.RefreshToken, err = r.cipher.Decrypt(m.RefreshToken); err != nil {
		return nil, err
	}
	return m.ToDomain(), nil
}

func (r *GormIntegrationRepository) toDomainSlice(integModels []models.IntegrationModel) ([]integration.Integration, error) {
	integrations := make([]integration.Integration, len(integModels))
	for i := range integModels {
		integ, err := r.toDomain(&integModels[i])
		if err != nil {
			return nil, err
		}
		integrations[i] = *integ
	}
	return integrations, nil
}
