// Package gateway is the payment-gateway adapter consumed by the
// reconciliation engine. The engine trusts the verdicts returned here.
package gateway

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
)

const (
	StatusCaptured   = "captured"
	StatusAuthorized = "authorized"
	StatusFailed     = "failed"

	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
	EventOrderPaid       = "order.paid"
)

type OrderRequest struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Order struct {
	ID       string          `json:"id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Status   string          `json:"status"`
}

type PaymentDetails struct {
	ID      string          `json:"id"`
	OrderID string          `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
	Status  string          `json:"status"`
	Method  string          `json:"method"`
	Raw     json.RawMessage `json:"-"`
}

// WebhookEvent is a signature-verified gateway notification.
type WebhookEvent struct {
	Event     string
	OrderID   string
	PaymentID string
	Amount    decimal.Decimal
	Status    string
	Method    string
	ErrorDesc string
	Raw       json.RawMessage
}

// Client is implemented by concrete gateways. Transport failures and
// timeouts are reported as models.ErrGatewayUnavailable.
type Client interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	VerifySignature(orderID, paymentID, signature string) bool
	FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error)
	// ParseWebhook fails closed: an invalid signature yields no event.
	ParseWebhook(rawPayload []byte, signatureHeader string) (*WebhookEvent, error)
}
