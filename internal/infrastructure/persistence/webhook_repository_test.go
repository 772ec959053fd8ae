package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/infrastructure/persistence/models"
)

func TestWebhookRepositorySaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormWebhookRepository(db, testCipher(t))
	integrationID := uuid.New()
	ctx := context.Background()

	hook, err := integration.NewWebhook(integrationID, "https://app.example.com/hooks/1", []string{"customers.updated", "invoices.created"}, "whsec-1")
	require.NoError(t, err)
	hook.RemoteID = "we_1"
	require.NoError(t, repo.Save(ctx, hook))

	found, err := repo.FindByID(ctx, hook.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/hooks/1", found.URL)
	assert.Equal(t, []string{"customers.updated", "invoices.created"}, found.EventTypes)
	assert.Equal(t, "whsec-1", found.Secret)
	assert.Equal(t, "we_1", found.RemoteID)
	assert.True(t, found.Enabled)
}

func TestWebhookRepositoryEncryptsSecret(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormWebhookRepository(db, testCipher(t))

	hook, err := integration.NewWebhook(uuid.New(), "https://app.example.com/hooks/1", nil, "whsec-1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), hook))

	var raw models.WebhookModel
	require.NoError(t, db.First(&raw, "id = ?", hook.ID).Error)
	assert.NotEmpty(t, raw.Secret)
	assert.NotEqual(t, "whsec-1", raw.Secret)
}

func TestWebhookRepositoryFindByIntegration(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormWebhookRepository(db, testCipher(t))
	integrationID := uuid.New()
	ctx := context.Background()

	first, err := integration.NewWebhook(integrationID, "https://app.example.com/hooks/1", nil, "s1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, first))
	second, err := integration.NewWebhook(integrationID, "https://app.example.com/hooks/2", nil, "s2")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, second))
	foreign, err := integration.NewWebhook(uuid.New(), "https://app.example.com/hooks/3", nil, "s3")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, foreign))

	hooks, err := repo.FindByIntegration(ctx, integrationID)
	require.NoError(t, err)
	require.Len(t, hooks, 2)
	assert.Equal(t, "s1", hooks[0].Secret)
	assert.Equal(t, "s2", hooks[1].Secret)
}

func TestWebhookRepositoryDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormWebhookRepository(db, testCipher(t))
	ctx := context.Background()

	hook, err := integration.NewWebhook(uuid.New(), "https://app.example.com/hooks/1", nil, "s1")
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, hook))

	require.NoError(t, repo.Delete(ctx, hook.ID))
	_, err = repo.FindByID(ctx, hook.ID)
	assert.ErrorIs(t, err, integration.ErrWebhookNotFound)

	err = repo.Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, integration.ErrWebhookNotFound)
}

func TestWebhookRepositorySaveEvent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormWebhookRepository(db, testCipher(t))
	integrationID := uuid.New()

	event := integration.NewWebhookEvent(integrationID, "customers.updated", []byte(`{"id": "cus_1"}`))
	require.NoError(t, repo.SaveEvent(context.Background(), event))

	var raw models.WebhookEventModel
	require.NoError(t, db.First(&raw, "id = ?", event.ID).Error)
	assert.Equal(t, integrationID, raw.IntegrationID)
	assert.Equal(t, "customers.updated", raw.EventType)
	assert.JSONEq(t, `{"id": "cus_1"}`, string(raw.Payload))
	assert.False(t, raw.Processed)
}
