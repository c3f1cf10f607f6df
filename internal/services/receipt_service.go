package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goldline/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/skip2/go-qrcode"
)

const receiptCacheTTL = 24 * time.Hour

// ReceiptPayload is the content encoded in a receipt QR code.
type ReceiptPayload struct {
	ReceiptNumber string          `json:"receipt"`
	PaymentNumber string          `json:"payment"`
	LoanID        string          `json:"loan"`
	Amount        decimal.Decimal `json:"amount"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	SettledAt     time.Time       `json:"settled_at"`
}

// ReceiptService renders QR receipts for settled payments. Rendered images
// are cached in Redis when a client is configured.
type ReceiptService struct {
	payments *PaymentRecordStore
	redis    *redis.Client
	logger   *logrus.Logger
}

func NewReceiptService(payments *PaymentRecordStore, redis *redis.Client, logger *logrus.Logger) *ReceiptService {
	return &ReceiptService{
		payments: payments,
		redis:    redis,
		logger:   logger,
	}
}

// ReceiptQR returns a PNG QR code for a COMPLETED payment.
func (s *ReceiptService) ReceiptQR(ctx context.Context, idOrNumber string, size int) ([]byte, error) {
	p, err := s.payments.Lookup(ctx, idOrNumber)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentCompleted || p.ReceiptNumber == nil {
		return nil, fmt.Errorf("payment %s is %s: %w", p.PaymentNumber, p.Status, models.ErrPaymentNotSettled)
	}
	if size <= 0 {
		size = 256
	}

	key := fmt.Sprintf("receipt_qr:%s:%d", *p.ReceiptNumber, size)
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, key).Bytes()
		if err == nil {
			return cached, nil
		}
		if err != redis.Nil {
			s.logger.WithError(err).WithField("receipt_number", *p.ReceiptNumber).Warn("receipt cache read failed")
		}
	}

	payload, err := json.Marshal(receiptPayload(p))
	if err != nil {
		return nil, err
	}

	qr, err := qrcode.New(string(payload), qrcode.Medium)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(size)); err != nil {
		return nil, err
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, key, buf.Bytes(), receiptCacheTTL).Err(); err != nil {
			s.logger.WithError(err).WithField("receipt_number", *p.ReceiptNumber).Warn("receipt cache write failed")
		}
	}
	return buf.Bytes(), nil
}

func receiptPayload(p *models.PaymentRecord) ReceiptPayload {
	r := ReceiptPayload{
		ReceiptNumber: *p.ReceiptNumber,
		PaymentNumber: p.PaymentNumber,
		LoanID:        p.LoanID,
		Amount:        p.Amount,
	}
	if p.OutstandingAfter != nil {
		r.Outstanding = *p.OutstandingAfter
	}
	if p.SettledAt != nil {
		r.SettledAt = *p.SettledAt
	}
	return r
}
