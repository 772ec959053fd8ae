package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ledgercrm/backend/internal/infrastructure/scheduler"
	"github.com/ledgercrm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJobHistory struct {
	records  []scheduler.JobRecord
	gotLimit int
}

func (s *stubJobHistory) GetJobHistory(limit int) []scheduler.JobRecord {
	s.gotLimit = limit
	return s.records
}

func TestNewSystemHandler(t *testing.T) {
	h := NewSystemHandler()
	assert.NotNil(t, h)
	assert.False(t, h.startTime.IsZero())
}

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewSystemHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/system/info", nil)

	h.GetSystemInfo(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "LedgerCRM Backend API", data["name"])
	assert.Equal(t, "1.0.0", data["version"])
	assert.NotEmpty(t, data["go_version"])
	assert.NotEmpty(t, data["uptime"])
}

func TestSystemHandler_ListSyncJobs(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("returns recorded jobs", func(t *testing.T) {
		source := &stubJobHistory{records: []scheduler.JobRecord{{
			SyncConfigID:  uuid.New(),
			IntegrationID: uuid.New(),
			EntityType:    "customers",
			Status:        "COMPLETED",
			Processed:     4,
		}}}
		h := NewSystemHandler()
		h.SetJobHistorySource(source)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request, _ = http.NewRequest(http.MethodGet, "/system/sync-jobs?limit=5", nil)

		h.ListSyncJobs(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 5, source.gotLimit)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)

		data := resp.Data.([]interface{})
		require.Len(t, data, 1)
		job := data[0].(map[string]interface{})
		assert.Equal(t, "customers", job["entity_type"])
		assert.Equal(t, "COMPLETED", job["status"])
	})

	t.Run("empty when scheduler disabled", func(t *testing.T) {
		h := NewSystemHandler()

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request, _ = http.NewRequest(http.MethodGet, "/system/sync-jobs", nil)

		h.ListSyncJobs(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.Success)
		data := resp.Data.([]interface{})
		assert.Empty(t, data)
	})

	t.Run("rejects invalid limit", func(t *testing.T) {
		h := NewSystemHandler()

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request, _ = http.NewRequest(http.MethodGet, "/system/sync-jobs?limit=0", nil)

		h.ListSyncJobs(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSystemHandler_Ping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	h := NewSystemHandler()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/system/ping", nil)

	h.Ping(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Data)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "pong", data["message"])
	assert.NotEmpty(t, data["timestamp"])

	// Verify timestamp is valid RFC3339
	timestamp := data["timestamp"].(string)
	_, err = time.Parse(time.RFC3339, timestamp)
	assert.NoError(t, err)
}
