package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/infrastructure/persistence/models"
)

func newStoredIntegration(t *testing.T, repo *GormIntegrationRepository, orgID uuid.UUID, provider integration.ProviderCode) *integration.Integration {
	t.Helper()
	integ, err := integration.NewIntegration(orgID, provider, "test account", "client-id", "client-secret")
	require.NoError(t, err)
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	integ.Credentials.AccessToken = "access-token"
	integ.Credentials.RefreshToken = "refresh-token"
	integ.Credentials.TokenExpiry = &expiry
	integ.Credentials.Extras = map[string]string{"realm_id": "realm-1"}
	require.NoError(t, repo.Save(context.Background(), integ))
	return integ
}

func TestIntegrationRepositorySaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormIntegrationRepository(db, testCipher(t))
	orgID := uuid.New()

	integ := newStoredIntegration(t, repo, orgID, integration.ProviderQuickBooks)

	found, err := repo.FindByID(context.Background(), integ.ID)
	require.NoError(t, err)
	assert.Equal(t, integ.ID, found.ID)
	assert.Equal(t, integration.ProviderQuickBooks, found.Provider)
	assert.Equal(t, "client-secret", found.Credentials.ClientSecret)
	assert.Equal(t, "access-token", found.Credentials.AccessToken)
	assert.Equal(t, "refresh-token", found.Credentials.RefreshToken)
	assert.Equal(t, "realm-1", found.Credentials.Extras["realm_id"])
	require.NotNil(t, found.Credentials.TokenExpiry)
}

func TestIntegrationRepositoryEncryptsAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormIntegrationRepository(db, testCipher(t))

	integ := newStoredIntegration(t, repo, uuid.New(), integration.ProviderXero)

	var raw models.IntegrationModel
	require.NoError(t, db.First(&raw, "id = ?", integ.ID).Error)
	assert.NotEmpty(t, raw.AccessToken)
	assert.NotEqual(t, "access-token", raw.AccessToken)
	assert.NotEqual(t, "refresh-token", raw.RefreshToken)
	assert.NotEqual(t, "client-secret", raw.ClientSecret)
	// The client id is not a secret and stays readable for diagnostics.
	assert.Equal(t, "client-id", raw.ClientID)
}

func TestIntegrationRepositoryFindByOrgAndProvider(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormIntegrationRepository(db, testCipher(t))
	orgID := uuid.New()

	newStoredIntegration(t, repo, orgID, integration.ProviderQuickBooks)
	newStoredIntegration(t, repo, orgID, integration.ProviderStripe)
	newStoredIntegration(t, repo, uuid.New(), integration.ProviderQuickBooks)

	found, err := repo.FindByOrgAndProvider(context.Background(), orgID, integration.ProviderStripe)
	require.NoError(t, err)
	assert.Equal(t, orgID, found.OrganizationID)

	_, err = repo.FindByOrgAndProvider(context.Background(), orgID, integration.ProviderShopify)
	assert.ErrorIs(t, err, integration.ErrIntegrationNotFound)

	all, err := repo.FindAllByOrg(context.Background(), orgID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestIntegrationRepositoryFindActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormIntegrationRepository(db, testCipher(t))
	ctx := context.Background()

	pending := newStoredIntegration(t, repo, uuid.New(), integration.ProviderQuickBooks)
	active := newStoredIntegration(t, repo, uuid.New(), integration.ProviderXero)
	active.Activate()
	require.NoError(t, repo.Save(ctx, active))

	found, err := repo.FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, active.ID, found[0].ID)
	assert.NotEqual(t, pending.ID, found[0].ID)
}

func TestIntegrationRepositoryDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	cipher := testCipher(t)
	repo := NewGormIntegrationRepository(db, cipher)
	configs := NewGormSyncConfigRepository(db)
	mappings := NewGormFieldMappingRepository(db)
	records := NewGormSyncRecordRepository(db)
	logs := NewGormSyncLogRepository(db)
	webhooks := NewGormWebhookRepository(db, cipher)
	ctx := context.Background()

	integ := newStoredIntegration(t, repo, uuid.New(), integration.ProviderHubSpot)

	cfg, err := integration.NewSyncConfig(integ.ID, "customers", "contacts", integration.DirectionBidirectional, 3600, integration.ConflictLastWriteWins, integration.PriorityRemote)
	require.NoError(t, err)
	require.NoError(t, configs.Save(ctx, cfg))

	mapping, err := integration.NewFieldMapping(cfg.ID, "name", "full_name", integration.TransformDirect, nil, integration.MappingBidirectional, false, nil)
	require.NoError(t, err)
	require.NoError(t, mappings.Save(ctx, mapping))

	record := integration.NewSyncRecord(cfg.ID, "local-1", "remote-1", "hash", integration.RecordSynced)
	require.NoError(t, records.Save(ctx, record))

	log := integration.NewSyncLog(cfg.ID, "customers", cfg.Direction, integration.SyncTypeFull, integration.TriggerManual)
	require.NoError(t, logs.Save(ctx, log))

	hook, err := integration.NewWebhook(integ.ID, "https://app.example.com/hooks", []string{"customers.updated"}, "whsec-1")
	require.NoError(t, err)
	require.NoError(t, webhooks.Save(ctx, hook))

	require.NoError(t, repo.Delete(ctx, integ.ID))

	_, err = repo.FindByID(ctx, integ.ID)
	assert.ErrorIs(t, err, integration.ErrIntegrationNotFound)
	_, err = configs.FindByID(ctx, cfg.ID)
	assert.ErrorIs(t, err, integration.ErrSyncConfigNotFound)
	_, err = mappings.FindByID(ctx, mapping.ID)
	assert.ErrorIs(t, err, integration.ErrFieldMappingNotFound)
	_, err = records.FindByID(ctx, record.ID)
	assert.ErrorIs(t, err, integration.ErrSyncRecordNotFound)
	_, err = logs.FindByID(ctx, log.ID)
	assert.ErrorIs(t, err, integration.ErrSyncLogNotFound)
	_, err = webhooks.FindByID(ctx, hook.ID)
	assert.ErrorIs(t, err, integration.ErrWebhookNotFound)
}

func TestIntegrationRepositoryDeleteMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormIntegrationRepository(db, testCipher(t))

	err := repo.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, integration.ErrIntegrationNotFound)
}
