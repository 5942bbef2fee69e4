package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/advmx/rally-backend/internal/helpers"
	"github.com/advmx/rally-backend/internal/payments"
	"github.com/advmx/rally-backend/internal/pricing"
	"github.com/advmx/rally-backend/internal/repository"
	"github.com/advmx/rally-backend/internal/stripeapi"
)

// Error codes the registration frontend branches on.
const (
	codeNotMinimumAmount = "NOT_MINIMUM_AMOUNT"
	codeCouponExpired    = "COUPON_EXPIRED_OR_MAXIMUM_USES_REACHED"
	codeInvalidCoupon    = "INVALID_COUPON_CODE"
	codeLinkGenerated    = "STRIPE_PAYMENT_LINK_GENERATED_SUCESSFULLY"
)

const alreadyPaidMessage = "Su pago ya fue hecho anteriormente, por favor verifica tu correo con la confirmación."

// GenerateCheckout issues a payment link for a registration. The
// coupon code rides in as a query parameter so the link can be shared
// without a body.
func (h *Handler) GenerateCheckout(c *gin.Context) {
	registrationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid registration ID.")
		return
	}
	couponCode := c.Query("coupon_code")

	result, err := h.checkout.GenerateCheckout(c.Request.Context(), registrationID, couponCode)
	if err != nil {
		h.respondCheckoutError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     codeLinkGenerated,
		"payment_url": result.Session.URL,
		"session_id":  result.Session.ID,
		"breakdown": gin.H{
			"total":        result.Breakdown.GrossAmount,
			"fee":          result.Breakdown.ProcessorFee.Add(result.Breakdown.PlatformFee),
			"merchant_net": result.Breakdown.MerchantNet,
		},
	})
}

func (h *Handler) respondCheckoutError(c *gin.Context, err error) {
	var apiErr *stripeapi.APIError
	switch {
	case errors.Is(err, repository.ErrNotFound):
		helpers.RespondWithError(c, http.StatusNotFound, "Registration not found.")
	case errors.Is(err, payments.ErrAlreadyPaid):
		helpers.RespondWithError(c, http.StatusBadRequest, alreadyPaidMessage)
	case errors.Is(err, pricing.ErrBelowMinimum):
		helpers.RespondWithCode(c, http.StatusBadRequest, codeNotMinimumAmount, "Amount is below the minimum chargeable amount.")
	case errors.Is(err, repository.ErrCouponExpired), errors.Is(err, repository.ErrCouponExhausted):
		helpers.RespondWithCode(c, http.StatusBadRequest, codeCouponExpired, "Coupon has expired or reached its maximum uses.")
	case errors.Is(err, repository.ErrCouponInvalid):
		helpers.RespondWithCode(c, http.StatusBadRequest, codeInvalidCoupon, "Coupon code does not exist.")
	case errors.As(err, &apiErr):
		h.logger.Error("payment provider rejected checkout", zap.Int("status", apiErr.Status), zap.String("message", apiErr.Message))
		helpers.RespondWithError(c, http.StatusBadGateway, "Payment provider rejected the request.")
	default:
		h.logger.Error("checkout generation failed", zap.Error(err))
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate payment link.")
	}
}
