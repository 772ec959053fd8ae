package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ledgercrm/backend/internal/infrastructure/persistence/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.IntegrationModel{},
		&models.SyncConfigModel{},
		&models.FieldMappingModel{},
		&models.SyncRecordModel{},
		&models.SyncLogModel{},
		&models.WebhookModel{},
		&models.WebhookEventModel{},
		&models.LocalRecordModel{},
	)
	require.NoError(t, err)
	return db
}

func testCipher(t *testing.T) *TokenCipher {
	t.Helper()
	key := make([]byte, 32)
	copy(key, "0123456789abcdef0123456789abcdef")
	cipher, err := NewTokenCipher(key)
	require.NoError(t, err)
	return cipher
}
