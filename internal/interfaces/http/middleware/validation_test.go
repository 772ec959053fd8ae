package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ledgercrm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	require.True(t, ok)
	assert.NotNil(t, v)
}

func TestHandleValidationError(t *testing.T) {
	SetupValidator()

	// Mirrors the webhook registration request shape
	type registerWebhook struct {
		URL        string   `json:"url" binding:"required,url"`
		EventTypes []string `json:"event_types" binding:"required,min=1"`
	}

	router := gin.New()
	router.POST("/api/v1/integrations/:id/webhooks", func(c *gin.Context) {
		var req registerWebhook
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true})
	})

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/api/v1/integrations/abc/webhooks", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("reports every failed field by JSON name", func(t *testing.T) {
		w := send(`{"url": "not-a-url", "event_types": []}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		assert.Equal(t, "Request validation failed", resp.Error.Message)
		require.Len(t, resp.Error.Details, 2)

		fields := []string{resp.Error.Details[0].Field, resp.Error.Details[1].Field}
		assert.Contains(t, fields, "url")
		assert.Contains(t, fields, "event_types")
	})

	t.Run("valid payload passes binding", func(t *testing.T) {
		w := send(`{"url": "https://app.ledgercrm.io/hooks/stripe", "event_types": ["customer.updated"]}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestValidationMessage(t *testing.T) {
	type syncConfigInput struct {
		Direction    string `validate:"required,oneof=INBOUND OUTBOUND BIDIRECTIONAL"`
		CallbackURL  string `validate:"url"`
		EntityType   string `validate:"min=2,max=64"`
		SyncInterval int    `validate:"min=60"`
	}

	v := validator.New()
	err := v.Struct(syncConfigInput{
		Direction:    "SIDEWAYS",
		CallbackURL:  "not-a-url",
		EntityType:   "x",
		SyncInterval: 5,
	})
	require.Error(t, err)

	messages := map[string]string{}
	for _, e := range err.(validator.ValidationErrors) {
		messages[e.StructField()] = validationMessage(e)
	}

	assert.Equal(t, "Must be one of: INBOUND OUTBOUND BIDIRECTIONAL", messages["Direction"])
	assert.Equal(t, "Invalid URL format", messages["CallbackURL"])
	assert.Equal(t, "Must be at least 2 characters", messages["EntityType"])
	assert.Equal(t, "Must be at least 60", messages["SyncInterval"])

	t.Run("required", func(t *testing.T) {
		err := v.Struct(syncConfigInput{CallbackURL: "https://x.example", EntityType: "ok", SyncInterval: 60})
		require.Error(t, err)
		for _, e := range err.(validator.ValidationErrors) {
			assert.Equal(t, "This field is required", validationMessage(e))
		}
	})

	t.Run("unmapped tag falls back", func(t *testing.T) {
		type odd struct {
			N string `validate:"alpha"`
		}
		err := v.Struct(odd{N: "123"})
		require.Error(t, err)
		for _, e := range err.(validator.ValidationErrors) {
			assert.Equal(t, "Invalid value", validationMessage(e))
		}
	})
}
