package repository

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/advmx/rally-backend/internal/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Profile{}, &models.Customer{}, &models.Route{},
		&models.Registration{}, &models.Coupon{}, &models.Income{},
	))
	return db
}

func seedRoute(t *testing.T, db *gorm.DB) *models.Route {
	t.Helper()
	customer := models.Customer{Name: "ADV NL", Currency: "mxn"}
	require.NoError(t, db.Create(&customer).Error)

	route := models.Route{
		CustomerID: customer.ID,
		Title:      "Gran Rally del Norte",
		Amount:     decimal.NewFromInt(1000),
		Rally:      true,
	}
	require.NoError(t, db.Create(&route).Error)
	return &route
}

func seedRegistration(t *testing.T, db *gorm.DB, route *models.Route) *models.Registration {
	t.Helper()
	profile := models.Profile{Name: "Rider", Email: uuid.NewString() + "@example.com", Password: "x"}
	require.NoError(t, db.Create(&profile).Error)

	registration := models.Registration{
		ProfileID: profile.ID,
		RouteID:   route.ID,
		FullName:  "Rider Uno",
	}
	require.NoError(t, db.Create(&registration).Error)
	return &registration
}

func TestApplyPaidPaymentAssignsConsecutiveNumbers(t *testing.T) {
	db := setupDB(t)
	repo := NewRegistrations(db)
	ctx := context.Background()

	route := seedRoute(t, db)
	first := seedRegistration(t, db, route)
	second := seedRegistration(t, db, route)

	number, already, err := repo.ApplyPaidPayment(ctx, first.ID, "cs_1", "pi_1", models.PaymentStatusPaid)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, 1, number)

	number, already, err = repo.ApplyPaidPayment(ctx, second.ID, "cs_2", "pi_2", models.PaymentStatusPaid)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, 2, number)

	var persisted models.Registration
	require.NoError(t, db.First(&persisted, "id = ?", second.ID).Error)
	require.NotNil(t, persisted.ParticipantNumber)
	assert.Equal(t, 2, *persisted.ParticipantNumber)
	assert.Equal(t, models.PaymentStatusPaid, persisted.PaymentStatus)
	assert.Equal(t, "pi_2", persisted.PaymentIntentID)
}

func TestApplyPaidPaymentReplayIsNoop(t *testing.T) {
	db := setupDB(t)
	repo := NewRegistrations(db)
	ctx := context.Background()

	route := seedRoute(t, db)
	registration := seedRegistration(t, db, route)

	number, already, err := repo.ApplyPaidPayment(ctx, registration.ID, "cs_1", "pi_1", models.PaymentStatusPaid)
	require.NoError(t, err)
	require.False(t, already)
	require.Equal(t, 1, number)

	// Stripe redelivers; the number must not move.
	number, already, err = repo.ApplyPaidPayment(ctx, registration.ID, "cs_1", "pi_1", models.PaymentStatusPaid)
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, 1, number)

	var count int64
	db.Model(&models.Registration{}).
		Where("route_id = ? AND participant_number IS NOT NULL", route.ID).
		Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestApplyPaidPaymentUnknownRegistration(t *testing.T) {
	db := setupDB(t)
	repo := NewRegistrations(db)

	_, _, err := repo.ApplyPaidPayment(context.Background(), uuid.New(), "cs", "pi", models.PaymentStatusPaid)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordPendingPayment(t *testing.T) {
	db := setupDB(t)
	repo := NewRegistrations(db)
	ctx := context.Background()

	route := seedRoute(t, db)
	registration := seedRegistration(t, db, route)

	require.NoError(t, repo.RecordPendingPayment(ctx, registration.ID, "cs_1", "pi_1"))

	var persisted models.Registration
	require.NoError(t, db.First(&persisted, "id = ?", registration.ID).Error)
	assert.Equal(t, models.PaymentStatusUnpaid, persisted.PaymentStatus)
	assert.Equal(t, "cs_1", persisted.CheckoutSessionID)
	assert.Equal(t, "pi_1", persisted.PaymentIntentID)
	assert.Nil(t, persisted.ParticipantNumber)
}

func TestMarkRefunded(t *testing.T) {
	db := setupDB(t)
	repo := NewRegistrations(db)
	ctx := context.Background()

	route := seedRoute(t, db)
	registration := seedRegistration(t, db, route)

	_, _, err := repo.ApplyPaidPayment(ctx, registration.ID, "cs_1", "pi_1", models.PaymentStatusPaid)
	require.NoError(t, err)

	found, err := repo.MarkRefunded(ctx, "pi_1")
	require.NoError(t, err)
	assert.True(t, found)

	var persisted models.Registration
	require.NoError(t, db.First(&persisted, "id = ?", registration.ID).Error)
	assert.Equal(t, models.PaymentStatusRefunded, persisted.PaymentStatus)
	assert.Nil(t, persisted.ParticipantNumber)

	found, err = repo.MarkRefunded(ctx, "pi_unknown")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAttachCheckoutSession(t *testing.T) {
	db := setupDB(t)
	repo := NewRegistrations(db)
	ctx := context.Background()

	route := seedRoute(t, db)
	registration := seedRegistration(t, db, route)

	require.NoError(t, repo.AttachCheckoutSession(ctx, registration.ID, "cs_9", "rider@example.com", "RALLY20"))

	var persisted models.Registration
	require.NoError(t, db.First(&persisted, "id = ?", registration.ID).Error)
	assert.Equal(t, "cs_9", persisted.CheckoutSessionID)
	assert.Equal(t, "rider@example.com", persisted.NotificationEmail)
	assert.Equal(t, "RALLY20", persisted.CouponCode)

	assert.ErrorIs(t, repo.AttachCheckoutSession(ctx, uuid.New(), "cs", "a@b.c", ""), ErrNotFound)
}

func TestCouponRedeemBoundaries(t *testing.T) {
	db := setupDB(t)
	repo := NewCoupons(db)
	ctx := context.Background()
	now := time.Now()

	coupon := models.Coupon{
		Code:               "RALLY20",
		DiscountPercentage: 20,
		MaxUses:            4,
		CurrentUses:        3,
		ExpiresAt:          now.Add(24 * time.Hour),
	}
	require.NoError(t, db.Create(&coupon).Error)

	// One use left: redeem succeeds and hits the cap.
	redeemed, err := repo.Redeem(ctx, "RALLY20", now)
	require.NoError(t, err)
	assert.Equal(t, 4, redeemed.CurrentUses)

	_, err = repo.Redeem(ctx, "RALLY20", now)
	assert.ErrorIs(t, err, ErrCouponExhausted)

	_, err = repo.Redeem(ctx, "NOPE", now)
	assert.ErrorIs(t, err, ErrCouponInvalid)

	expired := models.Coupon{
		Code:               "LATE",
		DiscountPercentage: 10,
		MaxUses:            10,
		ExpiresAt:          now.Add(-time.Hour),
	}
	require.NoError(t, db.Create(&expired).Error)
	_, err = repo.Redeem(ctx, "LATE", now)
	assert.ErrorIs(t, err, ErrCouponExpired)
}

func TestCouponRelease(t *testing.T) {
	db := setupDB(t)
	repo := NewCoupons(db)
	ctx := context.Background()
	now := time.Now()

	coupon := models.Coupon{
		Code:               "BACKOUT",
		DiscountPercentage: 15,
		MaxUses:            2,
		ExpiresAt:          now.Add(time.Hour),
	}
	require.NoError(t, db.Create(&coupon).Error)

	_, err := repo.Redeem(ctx, "BACKOUT", now)
	require.NoError(t, err)

	require.NoError(t, repo.Release(ctx, "BACKOUT"))

	persisted, err := repo.FindByCode(ctx, "BACKOUT")
	require.NoError(t, err)
	assert.Equal(t, 0, persisted.CurrentUses)

	// Releasing at zero must not go negative.
	require.NoError(t, repo.Release(ctx, "BACKOUT"))
	persisted, err = repo.FindByCode(ctx, "BACKOUT")
	require.NoError(t, err)
	assert.Equal(t, 0, persisted.CurrentUses)
}

func TestIncomeLifecycle(t *testing.T) {
	db := setupDB(t)
	repo := NewIncomes(db)
	ctx := context.Background()

	route := seedRoute(t, db)
	registration := seedRegistration(t, db, route)

	income := models.Income{
		CustomerID:       route.CustomerID,
		RegistrationID:   &registration.ID,
		Email:            "rider@example.com",
		Amount:           decimal.RequireFromString("929.66"),
		Fee:              decimal.RequireFromString("69.94"),
		Total:            decimal.NewFromInt(1000),
		ToBeTransferred:  decimal.RequireFromString("896.19"),
		StripeCheckoutID: "cs_1",
	}
	require.NoError(t, repo.Create(ctx, &income))

	paidAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.MarkPaid(ctx, "cs_1", paidAt))

	var persisted models.Income
	require.NoError(t, db.First(&persisted, "stripe_checkout_id = ?", "cs_1").Error)
	assert.Equal(t, models.PaymentStatusPaid, persisted.Status)
	require.NotNil(t, persisted.PaidAt)
}
