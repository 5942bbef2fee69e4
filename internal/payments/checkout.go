// Package payments holds the checkout issuing flow and the webhook
// reconciler. Both work against the repository interfaces and an
// injected provider client so the flows can run against fakes.
package payments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/advmx/rally-backend/internal/models"
	"github.com/advmx/rally-backend/internal/pricing"
	"github.com/advmx/rally-backend/internal/repository"
	"github.com/advmx/rally-backend/internal/stripeapi"
)

var ErrAlreadyPaid = errors.New("registration is already paid")

// CheckoutProvider is the slice of the Stripe client the service needs.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, params stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error)
}

type CheckoutConfig struct {
	SuccessURL string
	CancelURL  string
}

type CheckoutService struct {
	registrations repository.Registrations
	coupons       repository.Coupons
	incomes       repository.Incomes
	provider      CheckoutProvider
	pricingCfg    pricing.Config
	cfg           CheckoutConfig
	logger        *zap.Logger
}

func NewCheckoutService(
	registrations repository.Registrations,
	coupons repository.Coupons,
	incomes repository.Incomes,
	provider CheckoutProvider,
	pricingCfg pricing.Config,
	cfg CheckoutConfig,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		registrations: registrations,
		coupons:       coupons,
		incomes:       incomes,
		provider:      provider,
		pricingCfg:    pricingCfg,
		cfg:           cfg,
		logger:        logger,
	}
}

type CheckoutResult struct {
	Session   *stripeapi.CheckoutSession
	Breakdown pricing.Breakdown
}

// GenerateCheckout prices the registration, creates the provider
// session and persists the session reference. The coupon use counter
// is consumed up front and handed back if anything after it fails, so
// a failed checkout never burns quota.
func (s *CheckoutService) GenerateCheckout(ctx context.Context, registrationID uuid.UUID, couponCode string) (*CheckoutResult, error) {
	registration, err := s.registrations.FindByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	if registration.PaymentStatus == models.PaymentStatusPaid {
		return nil, ErrAlreadyPaid
	}

	category, err := pricing.ParseCategory(registration.Category)
	if err != nil {
		return nil, err
	}

	discountPct := decimalZero
	if couponCode != "" {
		coupon, err := s.coupons.Redeem(ctx, couponCode, time.Now())
		if err != nil {
			return nil, err
		}
		discountPct = intToDecimal(coupon.DiscountPercentage)
	}

	route := registration.Route
	breakdown, err := pricing.Compute(pricing.RateSheet{
		Single:           route.Amount,
		Team:             route.TeamPrice,
		Couple:           route.CouplePrice,
		ReferrerDiscount: route.ReferrerDiscountPct,
	}, category, discountPct, s.pricingCfg)
	if err != nil {
		s.releaseCoupon(ctx, couponCode)
		return nil, err
	}

	customer := route.Customer
	session, err := s.provider.CreateCheckoutSession(ctx, stripeapi.CheckoutSessionParams{
		AmountMinor:         toMinorUnits(breakdown.GrossAmount),
		Currency:            customer.Currency,
		ProductName:         strings.ToUpper(route.Title),
		ReceiptEmail:        registration.Profile.Email,
		ClientReferenceID:   registration.ID.String(),
		SuccessURL:          s.cfg.SuccessURL,
		CancelURL:           s.cfg.CancelURL,
		ConnectedAccountID:  customer.StripeAccountID,
		ApplicationFeeMinor: toMinorUnits(breakdown.ProcessorFee.Add(breakdown.PlatformFee)),
		IdempotencyKey:      registration.ID.String(),
	})
	if err != nil {
		s.releaseCoupon(ctx, couponCode)
		return nil, err
	}

	if err := s.registrations.AttachCheckoutSession(ctx, registration.ID, session.ID, registration.Profile.Email, couponCode); err != nil {
		// The session exists on the provider side and the webhook can
		// still match through client_reference_id, but the caller never
		// gets the payment URL, so the coupon use goes back too.
		s.releaseCoupon(ctx, couponCode)
		s.logger.Error("failed to persist checkout session",
			zap.String("registration_id", registration.ID.String()),
			zap.String("session_id", session.ID),
			zap.Error(err))
		return nil, err
	}

	income := &models.Income{
		CustomerID:       route.CustomerID,
		RegistrationID:   &registration.ID,
		Email:            registration.Profile.Email,
		Amount:           breakdown.AmountBeforeFees,
		Fee:              breakdown.ProcessorFee.Add(breakdown.PlatformFee),
		Total:            breakdown.GrossAmount,
		ToBeTransferred:  breakdown.MerchantNet,
		Status:           models.PaymentStatusUnpaid,
		StripeCheckoutID: session.ID,
	}
	if err := s.incomes.Create(ctx, income); err != nil {
		s.logger.Error("failed to record income row",
			zap.String("registration_id", registration.ID.String()),
			zap.Error(err))
	}

	s.logger.Info("checkout session created",
		zap.String("registration_id", registration.ID.String()),
		zap.String("session_id", session.ID),
		zap.String("gross", breakdown.GrossAmount.String()))

	return &CheckoutResult{Session: session, Breakdown: breakdown}, nil
}

func (s *CheckoutService) releaseCoupon(ctx context.Context, couponCode string) {
	if couponCode == "" {
		return
	}
	if err := s.coupons.Release(ctx, couponCode); err != nil {
		s.logger.Error("failed to release coupon after checkout failure",
			zap.String("coupon_code", couponCode),
			zap.Error(err))
	}
}
