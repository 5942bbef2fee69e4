package handlers

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/advmx/rally-backend/internal/helpers"
	"github.com/advmx/rally-backend/internal/stripeapi"
)

// maxWebhookBody caps the raw payload read off the wire.
const maxWebhookBody = 64 * 1024

// PlatformWebhook receives events for payments into the platform's own
// Stripe account.
func (h *Handler) PlatformWebhook(c *gin.Context) {
	h.handleWebhook(c, h.stripeCfg.PlatformWebhookSecret)
}

// ConnectedWebhook receives events for payments routed to connected
// merchant accounts. Same reconciliation, different signing secret.
func (h *Handler) ConnectedWebhook(c *gin.Context) {
	h.handleWebhook(c, h.stripeCfg.ConnectedWebhookSecret)
}

func (h *Handler) handleWebhook(c *gin.Context, secret string) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Failed to read request body.")
		return
	}

	// Nothing is parsed or touched before the signature checks out.
	header := c.GetHeader("Stripe-Signature")
	if err := stripeapi.VerifySignature(payload, header, secret, time.Now()); err != nil {
		h.logger.Warn("webhook signature rejected", zap.Error(err))
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid webhook signature.")
		return
	}

	event, err := stripeapi.ParseEvent(payload)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Malformed webhook payload.")
		return
	}

	if err := h.reconciler.HandleEvent(c.Request.Context(), event); err != nil {
		// Non-2xx makes the provider redeliver. Covers the race where
		// the webhook lands before the session id is persisted.
		h.logger.Error("webhook reconciliation failed",
			zap.String("event_type", event.Type),
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to process event.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
