package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ledgercrm/backend/internal/domain/integration"
	"github.com/ledgercrm/backend/internal/interfaces/http/dto"
)

// defaultEventDedupTTL bounds how long processed event IDs are remembered.
// Providers retry for at most a day, so anything older is a fresh event.
const defaultEventDedupTTL = 24 * time.Hour

// maxWebhookBody caps inbound payloads; provider events are small JSON documents.
const maxWebhookBody = 1 << 20

// WebhookHandler receives provider event callbacks on the public,
// unauthenticated surface. Signature verification stands in for auth.
type WebhookHandler struct {
	BaseHandler
	service  IntegrationService
	deduper  integration.EventDeduper
	dedupTTL time.Duration
	logger   *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler. A non-positive dedupTTL
// falls back to the default retention window.
func NewWebhookHandler(service IntegrationService, deduper integration.EventDeduper, dedupTTL time.Duration, logger *zap.Logger) *WebhookHandler {
	if dedupTTL <= 0 {
		dedupTTL = defaultEventDedupTTL
	}
	return &WebhookHandler{
		service:  service,
		deduper:  deduper,
		dedupTTL: dedupTTL,
		logger:   logger,
	}
}

// Receive godoc
//
//	@Summary		Receive a provider event
//	@Description	Verifies the signature, deduplicates by event ID, and applies the change
//	@Tags			webhooks
//	@Accept			json
//	@Produce		json
//	@Param			id				path		string	true	"Integration ID"	format(uuid)
//	@Param			X-Event-Type	header		string	true	"Provider event type"
//	@Param			X-Event-ID		header		string	false	"Provider event ID for deduplication"
//	@Param			X-Signature		header		string	true	"Payload signature"
//	@Success		202				{object}	APIResponse[dto.MessageResponse]
//	@Failure		401				{object}	ErrorResponse
//	@Router			/webhooks/{id} [post]
func (h *WebhookHandler) Receive(c *gin.Context) {
	integrationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid integration ID format")
		return
	}

	eventType := c.GetHeader("X-Event-Type")
	if eventType == "" {
		h.BadRequest(c, "X-Event-Type header is required")
		return
	}
	signature := c.GetHeader("X-Signature")

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	// Duplicate deliveries are acknowledged without reprocessing so the
	// provider stops retrying.
	if eventID := c.GetHeader("X-Event-ID"); eventID != "" {
		first, err := h.deduper.MarkProcessed(c.Request.Context(), eventID, h.dedupTTL)
		if err != nil {
			h.logger.Warn("event dedup check failed, processing anyway",
				zap.String("event_id", eventID),
				zap.Error(err))
		} else if !first {
			c.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.MessageResponse{Message: "duplicate event ignored"}))
			return
		}
	}

	if err := h.service.ProcessWebhook(c.Request.Context(), integrationID, eventType, payload, signature); err != nil {
		h.logger.Warn("webhook processing failed",
			zap.String("integration_id", integrationID.String()),
			zap.String("event_type", eventType),
			zap.Error(err))
		h.handleWebhookError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(dto.MessageResponse{Message: "event accepted"}))
}

// handleWebhookError keeps the public surface terse: signature failures get
// 401, unknown integrations 404, everything else a generic 502 so provider
// retry loops back off without leaking internals.
func (h *WebhookHandler) handleWebhookError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, integration.ErrInvalidWebhookSignature):
		h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "invalid webhook signature")
	case errors.Is(err, integration.ErrIntegrationNotFound), errors.Is(err, integration.ErrNotFound):
		h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, "integration not found")
	default:
		h.Error(c, http.StatusBadGateway, dto.ErrCodeProviderUnavailable, "event processing failed")
	}
}
