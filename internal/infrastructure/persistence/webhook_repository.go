package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/infrastructure/persistence/models"
)

// GormWebhookRepository implements WebhookRepository using GORM. Webhook
// secrets are encrypted before they hit the database.
type GormWebhookRepository struct {
	db     *gorm.DB
	cipher *TokenCipher
}

// NewGormWebhookRepository creates a new GormWebhookRepository
func NewGormWebhookRepository(db *gorm.DB, cipher *TokenCipher) *GormWebhookRepository {
	return &GormWebhookRepository{db: db, cipher: cipher}
}

var _ integration.WebhookRepository = (*GormWebhookRepository)(nil)

// FindByID finds a webhook by its ID
func (r *GormWebhookRepository) FindByID(ctx context.Context, id uuid.UUID) (*integration.Webhook, error) {
	var model models.WebhookModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, integration.ErrWebhookNotFound
		}
		return nil, err
	}
	return r.toDomain(&model)
}

// FindByIntegration finds all webhooks of an integration
func (r *GormWebhookRepository) FindByIntegration(ctx context.Context, integrationID uuid.UUID) ([]integration.Webhook, error) {
	var hookModels []models.WebhookModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("created_at ASC").
		Find(&hookModels).Error; err != nil {
		return nil, err
	}

	hooks := make([]integration.Webhook, len(hookModels))
	for i := range hookModels {
		hook, err := r.toDomain(&hookModels[i])
		if err != nil {
			return nil, err
		}
		hooks[i] = *hook
	}
	return hooks, nil
}

// Save creates or updates a webhook
func (r *GormWebhookRepository) Save(ctx context.Context, webhook *integration.Webhook) error {
	model := models.WebhookModelFromDomain(webhook)
	secret, err := r.cipher.Encrypt(model.Secret)
	if err != nil {
		return err
	}
	model.Secret = secret
	return r.db.WithContext(ctx).Save(model).Error
}

// Delete removes a webhook
func (r *GormWebhookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.WebhookModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return integration.ErrWebhookNotFound
	}
	return nil
}

// SaveEvent persists an inbound webhook event
func (r *GormWebhookRepository) SaveEvent(ctx context.Context, event *integration.WebhookEvent) error {
	model := models.WebhookEventModelFromDomain(event)
	return r.db.WithContext(ctx).Save(model).Error
}

func (r *GormWebhookRepository) toDomain(m *models.WebhookModel) (*integration.Webhook, error) {
	secret, err := r.cipher.Decrypt(m.Secret)
	if err != nil {
		return nil, err
	}
	m.Secret = secret
	return m.ToDomain(), nil
}
