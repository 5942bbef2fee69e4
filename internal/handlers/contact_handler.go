package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/advmx/rally-backend/internal/helpers"
	"github.com/advmx/rally-backend/internal/models"
)

type ContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required"`
	Type    string `json:"type"`
}

func (h *Handler) CreateContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	if req.Type == "" {
		req.Type = "general"
	}

	contact := models.Contact{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
		Type:    req.Type,
	}

	if err := h.db.Create(&contact).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to save contact message.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Contact message received.",
		"contact_id": contact.ID,
	})
}
