package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/infrastructure/cache"
)

func newWebhookTestContext(integrationID, eventType, eventID, signature string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/webhooks/"+integrationID, bytes.NewReader(body))
	if eventType != "" {
		c.Request.Header.Set("X-Event-Type", eventType)
	}
	if eventID != "" {
		c.Request.Header.Set("X-Event-ID", eventID)
	}
	if signature != "" {
		c.Request.Header.Set("X-Signature", signature)
	}
	c.Params = gin.Params{{Key: "id", Value: integrationID}}
	return c, w
}

func TestWebhookHandler_Receive(t *testing.T) {
	logger := zap.NewNop()

	t.Run("accepts valid event", func(t *testing.T) {
		var gotEventType string
		var gotPayload []byte
		stub := &stubIntegrationService{
			processWebhookFn: func(ctx context.Context, integrationID uuid.UUID, eventType string, payload []byte, signature string) error {
				gotEventType = eventType
				gotPayload = payload
				return nil
			},
		}
		h := NewWebhookHandler(stub, cache.NewInMemoryEventDeduper(), 0, logger)

		c, w := newWebhookTestContext(uuid.New().String(), "customers.updated", "evt_1", "sig", []byte(`{"id":"cus_1"}`))
		h.Receive(c)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "customers.updated", gotEventType)
		assert.JSONEq(t, `{"id":"cus_1"}`, string(gotPayload))
	})

	t.Run("duplicate event ID is acknowledged without processing", func(t *testing.T) {
		calls := 0
		stub := &stubIntegrationService{
			processWebhookFn: func(ctx context.Context, integrationID uuid.UUID, eventType string, payload []byte, signature string) error {
				calls++
				return nil
			},
		}
		h := NewWebhookHandler(stub, cache.NewInMemoryEventDeduper(), 0, logger)
		integrationID := uuid.New().String()

		c1, w1 := newWebhookTestContext(integrationID, "customers.updated", "evt_dup", "sig", []byte(`{}`))
		h.Receive(c1)
		c2, w2 := newWebhookTestContext(integrationID, "customers.updated", "evt_dup", "sig", []byte(`{}`))
		h.Receive(c2)

		assert.Equal(t, http.StatusAccepted, w1.Code)
		assert.Equal(t, http.StatusAccepted, w2.Code)
		assert.Equal(t, 1, calls)
		assert.Contains(t, w2.Body.String(), "duplicate")
	})

	t.Run("invalid signature maps to 401", func(t *testing.T) {
		stub := &stubIntegrationService{
			processWebhookFn: func(ctx context.Context, integrationID uuid.UUID, eventType string, payload []byte, signature string) error {
				return integration.ErrInvalidWebhookSignature
			},
		}
		h := NewWebhookHandler(stub, cache.NewInMemoryEventDeduper(), 0, logger)

		c, w := newWebhookTestContext(uuid.New().String(), "customers.updated", "", "bad-sig", []byte(`{}`))
		h.Receive(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("unknown integration maps to 404", func(t *testing.T) {
		stub := &stubIntegrationService{
			processWebhookFn: func(ctx context.Context, integrationID uuid.UUID, eventType string, payload []byte, signature string) error {
				return integration.ErrIntegrationNotFound
			},
		}
		h := NewWebhookHandler(stub, cache.NewInMemoryEventDeduper(), 0, logger)

		c, w := newWebhookTestContext(uuid.New().String(), "customers.updated", "", "sig", []byte(`{}`))
		h.Receive(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("requires event type header", func(t *testing.T) {
		h := NewWebhookHandler(&stubIntegrationService{}, cache.NewInMemoryEventDeduper(), 0, logger)

		c, w := newWebhookTestContext(uuid.New().String(), "", "", "sig", []byte(`{}`))
		h.Receive(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects malformed integration ID", func(t *testing.T) {
		h := NewWebhookHandler(&stubIntegrationService{}, cache.NewInMemoryEventDeduper(), 0, logger)

		c, w := newWebhookTestContext("not-a-uuid", "customers.updated", "", "sig", []byte(`{}`))
		h.Receive(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
