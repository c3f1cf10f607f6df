package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goldline/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const SettlementQueueKey = "settlement_queue"

// SettlementEvent is emitted once per committed payment.
type SettlementEvent struct {
	PaymentID      string               `json:"payment_id"`
	PaymentNumber  string               `json:"payment_number"`
	LoanID         string               `json:"loan_id"`
	Amount         decimal.Decimal      `json:"amount"`
	Method         models.PaymentMethod `json:"method"`
	Allocation     models.Allocation    `json:"allocation"`
	NewOutstanding decimal.Decimal      `json:"new_outstanding"`
	ReceiptNumber  string               `json:"receipt_number,omitempty"`
	SettledAt      time.Time            `json:"settled_at"`
}

// NewSettlementEvent builds the event for a COMPLETED payment.
func NewSettlementEvent(p *models.PaymentRecord) SettlementEvent {
	ev := SettlementEvent{
		PaymentID:     p.ID,
		PaymentNumber: p.PaymentNumber,
		LoanID:        p.LoanID,
		Amount:        p.Amount,
		Method:        p.Method,
	}
	if p.Allocation != nil {
		ev.Allocation = *p.Allocation
	}
	if p.OutstandingAfter != nil {
		ev.NewOutstanding = *p.OutstandingAfter
	}
	if p.ReceiptNumber != nil {
		ev.ReceiptNumber = *p.ReceiptNumber
	}
	if p.SettledAt != nil {
		ev.SettledAt = *p.SettledAt
	}
	return ev
}

// SettlementSink receives settlement events after the ledger commit.
// Publish errors never reverse a commit.
type SettlementSink interface {
	Publish(ctx context.Context, event SettlementEvent) error
}

// RedisSettlementQueue appends events to a Redis list consumed by the
// notification and document workers.
type RedisSettlementQueue struct {
	redis *redis.Client
	key   string
}

func NewRedisSettlementQueue(client *redis.Client) *RedisSettlementQueue {
	return &RedisSettlementQueue{redis: client, key: SettlementQueueKey}
}

func (q *RedisSettlementQueue) Publish(ctx context.Context, event SettlementEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.redis.RPush(ctx, q.key, string(data)).Err()
}

// LogSink writes events to the process logger.
type LogSink struct {
	logger *logrus.Logger
}

func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(_ context.Context, event SettlementEvent) error {
	s.logger.WithFields(logrus.Fields{
		"payment_number":  event.PaymentNumber,
		"loan_id":         event.LoanID,
		"amount":          event.Amount.String(),
		"method":          event.Method,
		"new_outstanding": event.NewOutstanding.String(),
	}).Info("payment settled")
	return nil
}

// MultiSink publishes to every sink and joins their errors.
type MultiSink []SettlementSink

func (m MultiSink) Publish(ctx context.Context, event SettlementEvent) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
