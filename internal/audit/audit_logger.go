package audit

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	EventInitiated        = "PAYMENT_INITIATED"
	EventSettled          = "PAYMENT_SETTLED"
	EventFailed           = "PAYMENT_FAILED"
	EventAttemptFailed    = "PAYMENT_ATTEMPT_FAILED"
	EventCancelled        = "PAYMENT_CANCELLED"
	EventExpired          = "PAYMENT_EXPIRED"
	EventWebhookDiscarded = "WEBHOOK_DISCARDED"
	EventError            = "ERROR"
)

type AuditEvent struct {
	Timestamp     time.Time       `json:"timestamp"`
	EventType     string          `json:"event_type"`
	PaymentNumber string          `json:"payment_number"`
	LoanID        string          `json:"loan_id"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	Actor         string          `json:"actor"`
	Details       any             `json:"details,omitempty"`
}

type AuditLogger struct {
	logger *logrus.Logger
}

func NewAuditLogger(logger *logrus.Logger) *AuditLogger {
	return &AuditLogger{logger: logger}
}

func (a *AuditLogger) LogPayment(eventType, paymentNumber, loanID string, amount decimal.Decimal, status, actor string, details any) {
	a.log(AuditEvent{
		Timestamp:     time.Now(),
		EventType:     eventType,
		PaymentNumber: paymentNumber,
		LoanID:        loanID,
		Amount:        amount,
		Status:        status,
		Actor:         actor,
		Details:       details,
	})
}

func (a *AuditLogger) LogError(paymentNumber, loanID string, err error) {
	a.log(AuditEvent{
		Timestamp:     time.Now(),
		EventType:     EventError,
		PaymentNumber: paymentNumber,
		LoanID:        loanID,
		Status:        "FAILED",
		Details:       map[string]string{"error": err.Error()},
	})
}

func (a *AuditLogger) log(event AuditEvent) {
	a.logger.WithFields(logrus.Fields{
		"audit":          true,
		"event_type":     event.EventType,
		"payment_number": event.PaymentNumber,
		"loan_id":        event.LoanID,
		"amount":         event.Amount.String(),
		"status":         event.Status,
		"actor":          event.Actor,
		"details":        event.Details,
		"event_time":     event.Timestamp.UTC().Format(time.RFC3339Nano),
	}).Info("AUDIT")
}
