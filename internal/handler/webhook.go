package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dispatch/internal/service"
	"dispatch/internal/stripe"
)

// WebhookHandler handles inbound payment-provider webhooks. Signature
// verification happens in the edge layer before requests reach this
// service; payloads here are already authenticated.
type WebhookHandler struct {
	reconciliation *service.ReconciliationService
	log            zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(reconciliation *service.ReconciliationService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		reconciliation: reconciliation,
		log:            logger,
	}
}

// HandleStripe handles POST /v1/webhooks/stripe.
//
// Responds 200 for processed, ignored and unresolvable events alike; only
// a failed reconciliation transaction returns 500 so Stripe redelivers.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	var event stripe.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid event payload"})
		return
	}

	if err := h.reconciliation.HandleEvent(c.Request.Context(), &event); err != nil {
		h.log.Error().Err(err).
			Str("event_id", event.ID).
			Str("type", event.Type).
			Msg("webhook reconciliation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "reconciliation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
