package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/advmx/rally-backend/internal/helpers"
	"github.com/advmx/rally-backend/internal/models"
	"github.com/advmx/rally-backend/internal/repository"
)

func credentialSignature(registrationID, routeID, profileID uuid.UUID, secret string) string {
	data := fmt.Sprintf("%s:%s:%s", registrationID.String(), routeID.String(), profileID.String())
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

func credentialPayload(registration *models.Registration, secret string) string {
	signature := credentialSignature(registration.ID, registration.RouteID, registration.ProfileID, secret)
	return fmt.Sprintf("registration:%s;route:%s;number:%03d;signature:%s",
		registration.ID.String(),
		registration.RouteID.String(),
		derefNumber(registration.ParticipantNumber),
		signature,
	)
}

func derefNumber(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}

// GetCredential renders the participant credential as a QR PNG. Only
// the owning profile may fetch it, and only once the payment cleared.
func (h *Handler) GetCredential(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	registrationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid registration ID.")
		return
	}

	registration, err := h.registrations.FindByID(c.Request.Context(), registrationID)
	if err != nil {
		if err == repository.ErrNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Registration not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to load registration.")
		return
	}

	if registration.ProfileID != userID {
		helpers.RespondWithError(c, http.StatusForbidden, "You don't have permission to fetch this credential.")
		return
	}

	if registration.PaymentStatus != models.PaymentStatusPaid {
		helpers.RespondWithError(c, http.StatusForbidden, "Registration is not paid.")
		return
	}

	qrImage, err := qrcode.Encode(credentialPayload(registration, h.jwtSecret), qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}
