package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/advmx/rally-backend/internal/helpers"
	"github.com/advmx/rally-backend/internal/stats"
)

func (h *Handler) GetRegistrationStats(c *gin.Context) {
	registrationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid registration ID.")
		return
	}

	result, err := h.stats.UserStats(c.Request.Context(), registrationID)
	if err != nil {
		if errors.Is(err, stats.ErrRegistrationNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Registration not found.")
			return
		}
		h.logger.Error("stats retrieval failed", zap.Error(err))
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve stats.")
		return
	}

	c.JSON(http.StatusOK, result)
}
