package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goldline/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var minorUnits = decimal.NewFromInt(100)

type RazorpayConfig struct {
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Timeout       time.Duration
}

// LoadRazorpayConfig reads gateway.* keys from viper.
func LoadRazorpayConfig() RazorpayConfig {
	viper.SetDefault("gateway.base_url", "https://api.razorpay.com")
	viper.SetDefault("gateway.timeout", 10*time.Second)

	return RazorpayConfig{
		BaseURL:       viper.GetString("gateway.base_url"),
		KeyID:         viper.GetString("gateway.key_id"),
		KeySecret:     viper.GetString("gateway.key_secret"),
		WebhookSecret: viper.GetString("gateway.webhook_secret"),
		Timeout:       viper.GetDuration("gateway.timeout"),
	}
}

// RazorpayClient talks to the Razorpay orders and payments API.
type RazorpayClient struct {
	cfg    RazorpayConfig
	http   *http.Client
	logger *logrus.Logger
}

func NewRazorpayClient(cfg RazorpayConfig, logger *logrus.Logger) *RazorpayClient {
	return &RazorpayClient{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	body, err := json.Marshal(map[string]any{
		"amount":   toMinor(req.Amount),
		"currency": req.Currency,
		"receipt":  req.Receipt,
		"notes":    req.Notes,
	})
	if err != nil {
		return nil, err
	}

	var resp struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Status   string `json:"status"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/v1/orders", body, &resp); err != nil {
		return nil, err
	}

	return &Order{
		ID:       resp.ID,
		Amount:   fromMinor(resp.Amount),
		Currency: resp.Currency,
		Status:   resp.Status,
	}, nil
}

func (c *RazorpayClient) VerifySignature(orderID, paymentID, signature string) bool {
	return validHMAC([]byte(orderID+"|"+paymentID), c.cfg.KeySecret, signature)
}

func (c *RazorpayClient) FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error) {
	var resp razorpayPayment
	raw, err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &resp)
	if err != nil {
		return nil, err
	}
	details := resp.details()
	details.Raw = raw
	return &details, nil
}

func (c *RazorpayClient) ParseWebhook(rawPayload []byte, signatureHeader string) (*WebhookEvent, error) {
	if signatureHeader == "" || !validHMAC(rawPayload, c.cfg.WebhookSecret, signatureHeader) {
		return nil, models.ErrSignatureInvalid
	}

	var envelope struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity razorpayPayment `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(rawPayload, &envelope); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}

	entity := envelope.Payload.Payment.Entity
	return &WebhookEvent{
		Event:     envelope.Event,
		OrderID:   entity.OrderID,
		PaymentID: entity.ID,
		Amount:    fromMinor(entity.Amount),
		Status:    entity.Status,
		Method:    entity.Method,
		ErrorDesc: entity.ErrorDescription,
		Raw:       json.RawMessage(rawPayload),
	}, nil
}

type razorpayPayment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	ErrorDescription string `json:"error_description"`
}

func (p razorpayPayment) details() PaymentDetails {
	return PaymentDetails{
		ID:      p.ID,
		OrderID: p.OrderID,
		Amount:  fromMinor(p.Amount),
		Status:  p.Status,
		Method:  p.Method,
	}
}

func (c *RazorpayClient) do(ctx context.Context, method, path string, body []byte, out any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{"method": method, "path": path}).WithError(err).Warn("gateway request failed")
		return nil, fmt.Errorf("%s %s: %v: %w", method, path, err, models.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", path, err, models.ErrGatewayUnavailable)
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		c.logger.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode}).Warn("gateway returned retryable status")
		return nil, fmt.Errorf("gateway returned status %d: %w", resp.StatusCode, models.ErrGatewayUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{"path": path, "status": resp.StatusCode}).Error("gateway rejected request")
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(raw))
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	return raw, nil
}

func validHMAC(data []byte, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(data, secret)), []byte(signature))
}

// Sign returns the hex HMAC-SHA256 the gateway attaches to data.
func Sign(data []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func toMinor(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnits).Round(0).IntPart()
}

func fromMinor(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
