package stripeapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	EventCheckoutCompleted     = "checkout.session.completed"
	EventAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
	EventChargeRefunded        = "charge.refunded"
)

// DefaultTolerance bounds how stale a signed timestamp may be before
// the event is rejected.
const DefaultTolerance = 5 * time.Minute

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
)

// VerifySignature checks a Stripe-Signature header against the shared
// endpoint secret. The header carries a timestamp and one or more v1
// signatures; the signed payload is "<timestamp>.<body>".
func VerifySignature(payload []byte, header, secret string, now time.Time) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return ErrInvalidSignature
	}

	issued, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}
	age := now.Sub(time.Unix(issued, 0))
	if age > DefaultTolerance || age < -DefaultTolerance {
		return ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return ErrInvalidSignature
}

func parseSignatureHeader(header string) (string, []string, error) {
	var timestamp string
	signatures := []string{}
	for _, part := range strings.Split(header, ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("malformed signature header")
	}
	return timestamp, signatures, nil
}

// Event is the slice of a Stripe event the reconciler cares about.
// SessionID is the checkout session id for checkout.* events and the
// charge id for charge.refunded.
type Event struct {
	ID                string
	Type              string
	SessionID         string
	ClientReferenceID string
	PaymentStatus     string
	PaymentIntent     string
	Refunded          bool
}

type eventEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
			PaymentStatus     string `json:"payment_status"`
			PaymentIntent     string `json:"payment_intent"`
			Refunded          bool   `json:"refunded"`
		} `json:"object"`
	} `json:"data"`
}

func ParseEvent(payload []byte) (*Event, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, ErrInvalidPayload
	}
	if strings.TrimSpace(envelope.ID) == "" {
		return nil, ErrInvalidPayload
	}

	return &Event{
		ID:                envelope.ID,
		Type:              strings.TrimSpace(envelope.Type),
		SessionID:         envelope.Data.Object.ID,
		ClientReferenceID: envelope.Data.Object.ClientReferenceID,
		PaymentStatus:     envelope.Data.Object.PaymentStatus,
		PaymentIntent:     envelope.Data.Object.PaymentIntent,
		Refunded:          envelope.Data.Object.Refunded,
	}, nil
}
