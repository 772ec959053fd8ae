package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

func TestSyncRecordRepositoryLinkLookups(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncRecordRepository(db)
	configID := uuid.New()
	ctx := context.Background()

	record := integration.NewSyncRecord(configID, "local-1", "remote-1", "hash-1", integration.RecordSynced)
	require.NoError(t, repo.Save(ctx, record))

	byRemote, err := repo.FindByRemoteID(ctx, configID, "remote-1")
	require.NoError(t, err)
	assert.Equal(t, record.ID, byRemote.ID)
	assert.Equal(t, "hash-1", byRemote.RemoteHash)

	byLocal, err := repo.FindByLocalID(ctx, configID, "local-1")
	require.NoError(t, err)
	assert.Equal(t, record.ID, byLocal.ID)

	// Lookups are scoped to the config.
	_, err = repo.FindByRemoteID(ctx, uuid.New(), "remote-1")
	assert.ErrorIs(t, err, integration.ErrSyncRecordNotFound)
}

func TestSyncRecordRepositoryFindByStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncRecordRepository(db)
	configID := uuid.New()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, integration.NewSyncRecord(configID, "local-b", "remote-b", "h", integration.RecordConflict)))
	require.NoError(t, repo.Save(ctx, integration.NewSyncRecord(configID, "local-a", "remote-a", "h", integration.RecordConflict)))
	require.NoError(t, repo.Save(ctx, integration.NewSyncRecord(configID, "local-c", "remote-c", "h", integration.RecordSynced)))

	conflicts, err := repo.FindByStatus(ctx, configID, integration.RecordConflict)
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, "local-a", conflicts[0].LocalID)
	assert.Equal(t, "local-b", conflicts[1].LocalID)
}

func TestSyncRecordRepositoryUpdatesInPlace(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormSyncRecordRepository(db)
	configID := uuid.New()
	ctx := context.Background()

	record := integration.NewSyncRecord(configID, "local-1", "remote-1", "hash-1", integration.RecordPendingOutbound)
	require.NoError(t, repo.Save(ctx, record))

	record.RemoteHash = "hash-2"
	record.Status = integration.RecordSynced
	require.NoError(t, repo.Save(ctx, record))

	found, err := repo.FindByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "hash-2", found.RemoteHash)
	assert.Equal(t, integration.RecordSynced, found.Status)
}
