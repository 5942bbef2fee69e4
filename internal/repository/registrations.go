// Package repository is the data-access layer for the payment
// workflow. The reconciler and the checkout service only see these
// interfaces, which keeps the state-machine logic testable without a
// live database.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/advmx/rally-backend/internal/models"
)

var ErrNotFound = errors.New("record not found")

type Registrations interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	FindByPaymentIntent(ctx context.Context, paymentIntent string) (*models.Registration, error)
	// AttachCheckoutSession persists the freshly created session
	// against the registration, together with the notification email
	// and the coupon code used.
	AttachCheckoutSession(ctx context.Context, id uuid.UUID, sessionID, email, couponCode string) error
	// RecordPendingPayment stores the session and intent ids for an
	// event whose payment_status is still unpaid. No participant
	// number is assigned.
	RecordPendingPayment(ctx context.Context, id uuid.UUID, sessionID, paymentIntent string) error
	// ApplyPaidPayment assigns the next participant number for the
	// registration's route and persists the paid state, all in one
	// transaction serialized on the route row. A replay against a
	// registration that already holds a number is a no-op and comes
	// back with alreadyApplied set.
	ApplyPaidPayment(ctx context.Context, id uuid.UUID, sessionID, paymentIntent, status string) (number int, alreadyApplied bool, err error)
	// MarkRefunded flips the registration matched by payment intent to
	// refunded and clears its participant number. found is false when
	// no registration matches.
	MarkRefunded(ctx context.Context, paymentIntent string) (found bool, err error)
}

type registrationRepository struct {
	db *gorm.DB
}

func NewRegistrations(db *gorm.DB) Registrations {
	return &registrationRepository{db: db}
}

func (r *registrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	var registration models.Registration
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Route").
		Preload("Route.Customer").
		First(&registration, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &registration, nil
}

func (r *registrationRepository) FindByPaymentIntent(ctx context.Context, paymentIntent string) (*models.Registration, error) {
	var registration models.Registration
	err := r.db.WithContext(ctx).
		First(&registration, "payment_intent_id = ?", paymentIntent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &registration, nil
}

func (r *registrationRepository) AttachCheckoutSession(ctx context.Context, id uuid.UUID, sessionID, email, couponCode string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"checkout_session_id": sessionID,
			"notification_email":  email,
			"coupon_code":         couponCode,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *registrationRepository) RecordPendingPayment(ctx context.Context, id uuid.UUID, sessionID, paymentIntent string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"checkout_session_id": sessionID,
			"payment_status":      models.PaymentStatusUnpaid,
			"payment_intent_id":   paymentIntent,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *registrationRepository) ApplyPaidPayment(ctx context.Context, id uuid.UUID, sessionID, paymentIntent, status string) (int, bool, error) {
	var number int
	var alreadyApplied bool

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var registration models.Registration
		if err := lockForUpdate(tx).First(&registration, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if registration.ParticipantNumber != nil {
			number = *registration.ParticipantNumber
			alreadyApplied = true
			return nil
		}

		// Serialize number assignment per route, not per registration:
		// two concurrent paid webhooks for different riders on the
		// same route must not read the same max.
		var route models.Route
		if err := lockForUpdate(tx).First(&route, "id = ?", registration.RouteID).Error; err != nil {
			return err
		}

		var current int
		err := tx.Model(&models.Registration{}).
			Where("route_id = ?", registration.RouteID).
			Select("COALESCE(MAX(participant_number), 0)").
			Scan(&current).Error
		if err != nil {
			return err
		}
		number = current + 1

		return tx.Model(&models.Registration{}).
			Where("id = ?", registration.ID).
			Updates(map[string]interface{}{
				"checkout_session_id": sessionID,
				"payment_status":      status,
				"payment_intent_id":   paymentIntent,
				"participant_number":  number,
			}).Error
	})
	if err != nil {
		return 0, false, err
	}
	return number, alreadyApplied, nil
}

func (r *registrationRepository) MarkRefunded(ctx context.Context, paymentIntent string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("payment_intent_id = ?", paymentIntent).
		Updates(map[string]interface{}{
			"payment_status":     models.PaymentStatusRefunded,
			"participant_number": nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// lockForUpdate takes a row lock where the dialect supports it. SQLite
// (used by the test suite) serializes writers on its own and rejects
// FOR UPDATE syntax.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
