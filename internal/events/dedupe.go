package events

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// WebhookDeduper drops gateway webhook re-deliveries before they reach the
// store. It is a fast path only: the payment's terminal status stays
// authoritative, so a Redis outage lets everything through.
type WebhookDeduper struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewWebhookDeduper(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *WebhookDeduper {
	return &WebhookDeduper{redis: client, ttl: ttl, logger: logger}
}

func webhookKey(event, paymentID string) string {
	return fmt.Sprintf("gateway_webhook:%s:%s", event, paymentID)
}

// FirstDelivery reports whether this (event, paymentID) pair has not been
// seen within the TTL.
func (d *WebhookDeduper) FirstDelivery(ctx context.Context, event, paymentID string) bool {
	if d == nil || d.redis == nil || paymentID == "" {
		return true
	}
	ok, err := d.redis.SetNX(ctx, webhookKey(event, paymentID), 1, d.ttl).Result()
	if err != nil {
		d.logger.WithError(err).WithField("gateway_payment_id", paymentID).Warn("webhook dedupe unavailable")
		return true
	}
	return ok
}

// Forget clears the marker so a delivery that failed to process can be retried.
func (d *WebhookDeduper) Forget(ctx context.Context, event, paymentID string) {
	if d == nil || d.redis == nil || paymentID == "" {
		return
	}
	if err := d.redis.Del(ctx, webhookKey(event, paymentID)).Err(); err != nil {
		d.logger.WithError(err).WithField("gateway_payment_id", paymentID).Warn("failed to clear webhook marker")
	}
}
