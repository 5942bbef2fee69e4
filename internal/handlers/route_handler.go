package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/advmx/rally-backend/internal/helpers"
	"github.com/advmx/rally-backend/internal/models"
)

func (h *Handler) ListRoutes(c *gin.Context) {
	query := h.db.Model(&models.Route{}).Where("active = ?", true)
	if c.Query("rally") == "true" {
		query = query.Where("rally = ?", true)
	}

	var routes []models.Route
	if err := query.Order("pinned DESC, start_timestamp ASC").Find(&routes).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving routes.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"routes": routes})
}

func (h *Handler) GetRoute(c *gin.Context) {
	routeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid route ID.")
		return
	}

	var route models.Route
	err = h.db.Preload("Checkpoints", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc")
	}).First(&route, "id = ?", routeID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Route not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving route.")
		return
	}

	c.JSON(http.StatusOK, route)
}
