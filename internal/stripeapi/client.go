// Package stripeapi talks to the Stripe HTTP API directly: checkout
// session creation on the way out, signature verification and event
// decoding on the way back in.
package stripeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com"

var ErrMissingAPIKey = errors.New("stripe api key is not configured")

// APIError is a non-2xx answer from Stripe.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: %s (status %d)", e.Message, e.Status)
}

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

// WithBaseURL points the client at a different host. Tests use this to
// run against a local fake.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = strings.TrimRight(base, "/")
	return c
}

type CheckoutSessionParams struct {
	AmountMinor       int64
	Currency          string
	ProductName       string
	ReceiptEmail      string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	// ConnectedAccountID charges directly on that connected account via
	// the Stripe-Account header; ApplicationFeeMinor is the platform cut
	// kept back.
	ConnectedAccountID  string
	ApplicationFeeMinor int64
	IdempotencyKey      string
}

type CheckoutSession struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
	PaymentStatus string `json:"payment_status"`
}

type stripeErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionParams) (*CheckoutSession, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	values := url.Values{}
	values.Set("mode", "payment")
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(params.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.AmountMinor, 10))
	values.Set("line_items[0][price_data][product_data][name]", params.ProductName)
	values.Set("payment_intent_data[receipt_email]", params.ReceiptEmail)
	values.Set("success_url", params.SuccessURL)
	values.Set("cancel_url", params.CancelURL)
	values.Set("client_reference_id", params.ClientReferenceID)
	values.Set("invoice_creation[enabled]", "true")
	if params.ConnectedAccountID != "" && params.ApplicationFeeMinor > 0 {
		values.Set("payment_intent_data[application_fee_amount]", strconv.FormatInt(params.ApplicationFeeMinor, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if params.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", params.IdempotencyKey)
	}
	if params.ConnectedAccountID != "" {
		req.Header.Set("Stripe-Account", params.ConnectedAccountID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		message := "stripe request failed"
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err == nil {
			if trimmed := strings.TrimSpace(stripeErr.Error.Message); trimmed != "" {
				message = trimmed
			}
		}
		return nil, &APIError{Status: resp.StatusCode, Message: message}
	}

	var session CheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, &APIError{Status: resp.StatusCode, Message: "response missing session id"}
	}
	return &session, nil
}
