package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/advmx/rally-backend/internal/models"
	"github.com/advmx/rally-backend/internal/notify"
	"github.com/advmx/rally-backend/internal/repository"
	"github.com/advmx/rally-backend/internal/stripeapi"
)

// Reconciler drives the payment-status state machine from verified
// provider events: unpaid -> paid -> refunded. One instance serves
// both webhook topologies; only the signing secret differs upstream.
type Reconciler struct {
	registrations repository.Registrations
	incomes       repository.Incomes
	mailer        notify.Mailer
	logger        *zap.Logger
}

func NewReconciler(
	registrations repository.Registrations,
	incomes repository.Incomes,
	mailer notify.Mailer,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		registrations: registrations,
		incomes:       incomes,
		mailer:        mailer,
		logger:        logger,
	}
}

// HandleEvent applies one event. A nil return acknowledges the
// delivery; an error tells the webhook endpoint to answer non-2xx so
// the provider redelivers.
func (r *Reconciler) HandleEvent(ctx context.Context, event *stripeapi.Event) error {
	switch event.Type {
	case stripeapi.EventCheckoutCompleted, stripeapi.EventAsyncPaymentSucceeded:
		return r.handleCheckoutResult(ctx, event)
	case stripeapi.EventChargeRefunded:
		return r.handleRefund(ctx, event)
	default:
		r.logger.Debug("ignoring webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type))
		return nil
	}
}

func (r *Reconciler) handleCheckoutResult(ctx context.Context, event *stripeapi.Event) error {
	registrationID, err := uuid.Parse(event.ClientReferenceID)
	if err != nil {
		return fmt.Errorf("event %s carries no usable client reference: %w", event.ID, err)
	}

	r.logger.Info("validating external payment",
		zap.String("event_id", event.ID),
		zap.String("session_id", event.SessionID),
		zap.String("registration_id", registrationID.String()),
		zap.String("payment_status", event.PaymentStatus),
		zap.String("payment_intent", event.PaymentIntent))

	// An unpaid session (e.g. OXXO voucher not yet settled) only pins
	// the session and intent ids. The number waits for real money.
	if event.PaymentStatus == models.PaymentStatusUnpaid {
		return r.registrations.RecordPendingPayment(ctx, registrationID, event.SessionID, event.PaymentIntent)
	}

	number, alreadyApplied, err := r.registrations.ApplyPaidPayment(
		ctx, registrationID, event.SessionID, event.PaymentIntent, event.PaymentStatus)
	if err != nil {
		return err
	}

	if alreadyApplied {
		r.logger.Info("paid event already applied, skipping",
			zap.String("event_id", event.ID),
			zap.String("registration_id", registrationID.String()),
			zap.Int("participant_number", number))
		return nil
	}

	if err := r.incomes.MarkPaid(ctx, event.SessionID, time.Now().UTC()); err != nil {
		r.logger.Error("failed to stamp income as paid",
			zap.String("session_id", event.SessionID),
			zap.Error(err))
	}

	r.sendConfirmation(ctx, registrationID, number)
	return nil
}

func (r *Reconciler) handleRefund(ctx context.Context, event *stripeapi.Event) error {
	if !event.Refunded {
		r.logger.Info("refund event without refunded flag, no action",
			zap.String("event_id", event.ID))
		return nil
	}

	r.logger.Info("processing charge refund",
		zap.String("event_id", event.ID),
		zap.String("charge_id", event.SessionID),
		zap.String("payment_intent", event.PaymentIntent))

	found, err := r.registrations.MarkRefunded(ctx, event.PaymentIntent)
	if err != nil {
		return err
	}
	if !found {
		r.logger.Warn("refund did not match any registration",
			zap.String("payment_intent", event.PaymentIntent))
	}
	return nil
}

// sendConfirmation is fire-and-forget: the webhook must still ack even
// when mail delivery fails, otherwise the provider keeps redelivering
// an event that was applied.
func (r *Reconciler) sendConfirmation(ctx context.Context, registrationID uuid.UUID, number int) {
	registration, err := r.registrations.FindByID(ctx, registrationID)
	if err != nil {
		r.logger.Error("failed to load registration for confirmation mail",
			zap.String("registration_id", registrationID.String()),
			zap.Error(err))
		return
	}

	to := registration.NotificationEmail
	if to == "" {
		to = registration.Profile.Email
	}

	err = r.mailer.SendConfirmation(ctx, to, notify.ConfirmationData{
		ParticipantNumber: fmt.Sprintf("%03d", number),
		RouteTitle:        registration.Route.Title,
		FullName:          registration.FullName,
	})
	if err != nil {
		r.logger.Error("failed to send confirmation email",
			zap.String("registration_id", registrationID.String()),
			zap.String("to", to),
			zap.Error(err))
		return
	}

	r.logger.Info("confirmation email sent",
		zap.String("registration_id", registrationID.String()),
		zap.Int("participant_number", number))
}
