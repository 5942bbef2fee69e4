package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/advmx/rally-backend/config"
	"github.com/advmx/rally-backend/internal/models"
	"github.com/advmx/rally-backend/internal/notify"
	"github.com/advmx/rally-backend/internal/payments"
	"github.com/advmx/rally-backend/internal/repository"
)

const testWebhookSecret = "whsec_handler_test"

type noopMailer struct{}

func (noopMailer) SendConfirmation(ctx context.Context, to string, data notify.ConfirmationData) error {
	return nil
}

func openHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.Customer{},
		&models.Route{},
		&models.Registration{},
		&models.Income{},
		&models.Contact{},
	))
	return db
}

func newWebhookRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registrations := repository.NewRegistrations(db)
	incomes := repository.NewIncomes(db)
	reconciler := payments.NewReconciler(registrations, incomes, noopMailer{}, zap.NewNop())

	h := New(Deps{
		DB:            db,
		Registrations: registrations,
		Reconciler:    reconciler,
		StripeConfig: &config.StripeConfig{
			PlatformWebhookSecret:  testWebhookSecret,
			ConnectedWebhookSecret: "whsec_connected",
		},
		Logger: zap.NewNop(),
	})

	r := gin.New()
	r.POST("/v1/webhooks/stripe/platform", h.PlatformWebhook)
	return r
}

func seedPaidCheckout(t *testing.T, db *gorm.DB) *models.Registration {
	t.Helper()
	profile := models.Profile{Name: "Test Rider", Email: "rider@example.com", Password: "x"}
	require.NoError(t, db.Create(&profile).Error)
	customer := models.Customer{Name: "Organizer"}
	require.NoError(t, db.Create(&customer).Error)
	route := models.Route{CustomerID: customer.ID, Title: "Ruta Norte", Amount: decimal.NewFromInt(1000)}
	require.NoError(t, db.Create(&route).Error)
	registration := models.Registration{
		ProfileID:         profile.ID,
		RouteID:           route.ID,
		FullName:          "Test Rider",
		CheckoutSessionID: "cs_test_1",
	}
	require.NoError(t, db.Create(&registration).Error)
	return &registration
}

func signPayload(payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func paidEventPayload(registrationID uuid.UUID) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"client_reference_id": "%s",
			"payment_status": "paid",
			"payment_intent": "pi_1"
		}}
	}`, registrationID))
}

func TestPlatformWebhookPaid(t *testing.T) {
	db := openHandlerDB(t)
	registration := seedPaidCheckout(t, db)
	router := newWebhookRouter(t, db)

	payload := paidEventPayload(registration.ID)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe/platform", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, time.Now()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success": true}`, w.Body.String())

	var updated models.Registration
	require.NoError(t, db.First(&updated, "id = ?", registration.ID).Error)
	assert.Equal(t, models.PaymentStatusPaid, updated.PaymentStatus)
	require.NotNil(t, updated.ParticipantNumber)
	assert.Equal(t, 1, *updated.ParticipantNumber)
}

func TestPlatformWebhookBadSignature(t *testing.T) {
	db := openHandlerDB(t)
	registration := seedPaidCheckout(t, db)
	router := newWebhookRouter(t, db)

	payload := paidEventPayload(registration.ID)
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe/platform", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=12345,v1=deadbeef")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Rejection must leave the registration untouched.
	var updated models.Registration
	require.NoError(t, db.First(&updated, "id = ?", registration.ID).Error)
	assert.Equal(t, models.PaymentStatusUnpaid, updated.PaymentStatus)
	assert.Nil(t, updated.ParticipantNumber)
}

func TestPlatformWebhookUnknownRegistration(t *testing.T) {
	db := openHandlerDB(t)
	router := newWebhookRouter(t, db)

	payload := paidEventPayload(uuid.New())
	req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/stripe/platform", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, time.Now()))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	// Non-2xx so the provider redelivers once the session is persisted.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
