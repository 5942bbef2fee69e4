package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/advmx/rally-backend/internal/helpers"
	"github.com/advmx/rally-backend/internal/models"
)

type CouponRequest struct {
	Code               string    `json:"code" binding:"required"`
	DiscountPercentage int       `json:"discount_percentage" binding:"required,min=1,max=100"`
	MaxUses            int       `json:"max_uses" binding:"required,min=1"`
	ExpiresAt          time.Time `json:"expires_at" binding:"required"`
}

func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	var existing models.Coupon
	if result := h.db.Where("code = ?", req.Code).First(&existing); result.Error == nil {
		helpers.RespondWithError(c, http.StatusConflict, "Coupon code already exists.")
		return
	}

	coupon := models.Coupon{
		Code:               req.Code,
		DiscountPercentage: req.DiscountPercentage,
		MaxUses:            req.MaxUses,
		ExpiresAt:          req.ExpiresAt,
	}

	if err := h.db.Create(&coupon).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create coupon.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Coupon created successfully.",
		"coupon_id": coupon.ID,
	})
}

func (h *Handler) ListCoupons(c *gin.Context) {
	page := c.DefaultQuery("page", "1")
	limit := c.DefaultQuery("limit", "10")

	pageNum, err := helpers.StringToInt(page)
	if err != nil || pageNum < 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid page number.")
		return
	}

	limitNum, err := helpers.StringToInt(limit)
	if err != nil || limitNum < 1 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return
	}

	query := h.db.Model(&models.Coupon{})
	var totalCount int64
	query.Count(&totalCount)

	var coupons []models.Coupon
	offset := (pageNum - 1) * limitNum
	err = query.Offset(offset).Limit(limitNum).Order("created_at DESC").Find(&coupons).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving coupons.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"coupons":     coupons,
		"total":       totalCount,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (totalCount + int64(limitNum) - 1) / int64(limitNum),
	})
}
