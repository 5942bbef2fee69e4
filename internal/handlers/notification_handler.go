package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/advmx/rally-backend/internal/helpers"
	"github.com/advmx/rally-backend/internal/models"
	"github.com/advmx/rally-backend/internal/notify"
	"github.com/advmx/rally-backend/internal/repository"
)

type ResendConfirmationRequest struct {
	RegistrationID uuid.UUID `json:"registration_id" binding:"required"`
}

// ResendConfirmation re-sends the payment confirmation email. Unlike
// the webhook path this one is synchronous so the caller learns
// whether delivery failed.
func (h *Handler) ResendConfirmation(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	var req ResendConfirmationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	registration, err := h.registrations.FindByID(c.Request.Context(), req.RegistrationID)
	if err != nil {
		if err == repository.ErrNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Registration not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load registration.")
		return
	}

	if registration.ProfileID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to resend this confirmation.")
		return
	}

	if registration.PaymentStatus != models.PaymentStatusPaid || registration.ParticipantNumber == nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Registration has no confirmed payment.")
		return
	}

	to := registration.NotificationEmail
	if to == "" {
		to = registration.Profile.Email
	}

	data := notify.ConfirmationData{
		ParticipantNumber: fmt.Sprintf("%03d", *registration.ParticipantNumber),
		RouteTitle:        registration.Route.Title,
		FullName:          registration.FullName,
	}
	if err := h.mailer.SendConfirmation(c.Request.Context(), to, data); err != nil {
		h.logger.Error("confirmation resend failed",
			zap.String("registration_id", registration.ID.String()),
			zap.Error(err),
		)
		helpers.RespondWithError(c, http.StatusBadGateway, "Failed to send confirmation email.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Confirmation email sent."})
}
