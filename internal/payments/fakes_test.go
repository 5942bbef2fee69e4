package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/advmx/rally-backend/internal/models"
	"github.com/advmx/rally-backend/internal/notify"
	"github.com/advmx/rally-backend/internal/repository"
	"github.com/advmx/rally-backend/internal/stripeapi"
)

type fakeRegistrations struct {
	byID      map[uuid.UUID]*models.Registration
	attachErr error
}

func newFakeRegistrations(registrations ...*models.Registration) *fakeRegistrations {
	byID := map[uuid.UUID]*models.Registration{}
	for _, registration := range registrations {
		byID[registration.ID] = registration
	}
	return &fakeRegistrations{byID: byID}
}

func (f *fakeRegistrations) FindByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	registration, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *registration
	return &copied, nil
}

func (f *fakeRegistrations) FindByPaymentIntent(ctx context.Context, paymentIntent string) (*models.Registration, error) {
	for _, registration := range f.byID {
		if registration.PaymentIntentID == paymentIntent {
			copied := *registration
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRegistrations) AttachCheckoutSession(ctx context.Context, id uuid.UUID, sessionID, email, couponCode string) error {
	if f.attachErr != nil {
		return f.attachErr
	}
	registration, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	registration.CheckoutSessionID = sessionID
	registration.NotificationEmail = email
	registration.CouponCode = couponCode
	return nil
}

func (f *fakeRegistrations) RecordPendingPayment(ctx context.Context, id uuid.UUID, sessionID, paymentIntent string) error {
	registration, ok := f.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	registration.CheckoutSessionID = sessionID
	registration.PaymentStatus = models.PaymentStatusUnpaid
	registration.PaymentIntentID = paymentIntent
	return nil
}

func (f *fakeRegistrations) ApplyPaidPayment(ctx context.Context, id uuid.UUID, sessionID, paymentIntent, status string) (int, bool, error) {
	registration, ok := f.byID[id]
	if !ok {
		return 0, false, repository.ErrNotFound
	}
	if registration.ParticipantNumber != nil {
		return *registration.ParticipantNumber, true, nil
	}

	max := 0
	for _, other := range f.byID {
		if other.RouteID == registration.RouteID && other.ParticipantNumber != nil && *other.ParticipantNumber > max {
			max = *other.ParticipantNumber
		}
	}
	number := max + 1
	registration.ParticipantNumber = &number
	registration.CheckoutSessionID = sessionID
	registration.PaymentStatus = status
	registration.PaymentIntentID = paymentIntent
	return number, false, nil
}

func (f *fakeRegistrations) MarkRefunded(ctx context.Context, paymentIntent string) (bool, error) {
	for _, registration := range f.byID {
		if registration.PaymentIntentID == paymentIntent {
			registration.PaymentStatus = models.PaymentStatusRefunded
			registration.ParticipantNumber = nil
			return true, nil
		}
	}
	return false, nil
}

type fakeCoupons struct {
	coupons  map[string]*models.Coupon
	redeems  int
	releases int
}

func newFakeCoupons(coupons ...*models.Coupon) *fakeCoupons {
	byCode := map[string]*models.Coupon{}
	for _, coupon := range coupons {
		byCode[coupon.Code] = coupon
	}
	return &fakeCoupons{coupons: byCode}
}

func (f *fakeCoupons) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	coupon, ok := f.coupons[code]
	if !ok {
		return nil, repository.ErrCouponInvalid
	}
	return coupon, nil
}

func (f *fakeCoupons) Redeem(ctx context.Context, code string, now time.Time) (*models.Coupon, error) {
	coupon, ok := f.coupons[code]
	if !ok {
		return nil, repository.ErrCouponInvalid
	}
	if !now.Before(coupon.ExpiresAt) {
		return nil, repository.ErrCouponExpired
	}
	if coupon.CurrentUses >= coupon.MaxUses {
		return nil, repository.ErrCouponExhausted
	}
	coupon.CurrentUses++
	f.redeems++
	return coupon, nil
}

func (f *fakeCoupons) Release(ctx context.Context, code string) error {
	if coupon, ok := f.coupons[code]; ok && coupon.CurrentUses > 0 {
		coupon.CurrentUses--
	}
	f.releases++
	return nil
}

type fakeIncomes struct {
	rows      []*models.Income
	createErr error
}

func (f *fakeIncomes) Create(ctx context.Context, income *models.Income) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.rows = append(f.rows, income)
	return nil
}

func (f *fakeIncomes) MarkPaid(ctx context.Context, checkoutSessionID string, paidAt time.Time) error {
	for _, row := range f.rows {
		if row.StripeCheckoutID == checkoutSessionID {
			row.Status = models.PaymentStatusPaid
			row.PaidAt = &paidAt
		}
	}
	return nil
}

type sentMail struct {
	to   string
	data notify.ConfirmationData
}

type fakeMailer struct {
	sent []sentMail
	fail bool
}

func (f *fakeMailer) SendConfirmation(ctx context.Context, to string, data notify.ConfirmationData) error {
	if f.fail {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, sentMail{to: to, data: data})
	return nil
}

type fakeProvider struct {
	calls   []stripeapi.CheckoutSessionParams
	session *stripeapi.CheckoutSession
	err     error
}

func (f *fakeProvider) CreateCheckoutSession(ctx context.Context, params stripeapi.CheckoutSessionParams) (*stripeapi.CheckoutSession, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	if f.session != nil {
		return f.session, nil
	}
	return &stripeapi.CheckoutSession{
		ID:            "cs_fake",
		URL:           "https://checkout.stripe.com/pay/cs_fake",
		PaymentStatus: "unpaid",
	}, nil
}
