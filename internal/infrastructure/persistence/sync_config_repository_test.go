package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

func newStoredSyncConfig(t *testing.T, repo *GormSyncConfigRepository, integrationID uuid.UUID, entityType string) *integration.SyncConfig {
	t.Helper()
	cfg, err := integration.NewSyncConfig(integrationID, entityType, "remote_"+entityType, integration.DirectionBidirectional, 3600, integration.ConflictLastWriteWins, integration.PriorityRemote)
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), cfg))
	return cfg
}

func TestSyncConfigRepositoryFindByIntegrationAndEntity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncConfigRepository(db)
	integrationID := uuid.New()
	ctx := context.Background()

	newStoredSyncConfig(t, repo, integrationID, "customers")
	newStoredSyncConfig(t, repo, integrationID, "invoices")

	found, err := repo.FindByIntegrationAndEntity(ctx, integrationID, "customers")
	require.NoError(t, err)
	assert.Equal(t, "customers", found.EntityType)
	assert.Equal(t, "remote_customers", found.RemoteEntity)

	_, err = repo.FindByIntegrationAndEntity(ctx, integrationID, "payments")
	assert.ErrorIs(t, err, integration.ErrSyncConfigNotFound)

	all, err := repo.FindByIntegration(ctx, integrationID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "customers", all[0].EntityType)
	assert.Equal(t, "invoices", all[1].EntityType)
}

func TestSyncConfigRepositoryFindEnabled(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncConfigRepository(db)
	ctx := context.Background()

	enabled := newStoredSyncConfig(t, repo, uuid.New(), "customers")

	disabled := newStoredSyncConfig(t, repo, uuid.New(), "invoices")
	disabled.Enabled = false
	require.NoError(t, repo.Save(ctx, disabled))

	found, err := repo.FindEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, enabled.ID, found[0].ID)
}

func TestSyncConfigRepositoryPersistsWatermark(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncConfigRepository(db)
	ctx := context.Background()

	cfg := newStoredSyncConfig(t, repo, uuid.New(), "customers")
	watermark := time.Now().Truncate(time.Second)
	cfg.AdvanceWatermark(watermark)
	require.NoError(t, repo.Save(ctx, cfg))

	found, err := repo.FindByID(ctx, cfg.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastSyncAt)
	assert.WithinDuration(t, watermark, *found.LastSyncAt, time.Second)
}

func TestSyncConfigRepositoryDeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncConfigRepository(db)
	mappings := NewGormFieldMappingRepository(db)
	records := NewGormSyncRecordRepository(db)
	ctx := context.Background()

	cfg := newStoredSyncConfig(t, repo, uuid.New(), "customers")

	mapping, err := integration.NewFieldMapping(cfg.ID, "email", "email", integration.TransformDirect, nil, integration.MappingBidirectional, false, nil)
	require.NoError(t, err)
	require.NoError(t, mappings.Save(ctx, mapping))

	record := integration.NewSyncRecord(cfg.ID, "local-1", "remote-1", "hash", integration.RecordSynced)
	require.NoError(t, records.Save(ctx, record))

	require.NoError(t, repo.Delete(ctx, cfg.ID))

	_, err = repo.FindByID(ctx, cfg.ID)
	assert.ErrorIs(t, err, integration.ErrSyncConfigNotFound)
	_, err = mappings.FindByID(ctx, mapping.ID)
	assert.ErrorIs(t, err, integration.ErrFieldMappingNotFound)
	_, err = records.FindByID(ctx, record.ID)
	assert.ErrorIs(t, err, integration.ErrSyncRecordNotFound)
}
