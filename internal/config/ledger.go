package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const DefaultCurrency = "INR"

type LedgerConfig struct {
	MaxCommitRetries   int
	BillingCycleMonths int
	PendingExpiry      time.Duration
	AmountTolerance    decimal.Decimal
	SettlementTimeout  time.Duration
	WebhookDedupeTTL   time.Duration
	PaymentPrefix      string
	ReceiptPrefix      string
	Currency           string
}

func LoadLedgerConfig() *LedgerConfig {
	return &LedgerConfig{
		MaxCommitRetries:   getEnvAsInt("LEDGER_MAX_COMMIT_RETRIES", 3),
		BillingCycleMonths: getEnvAsInt("LEDGER_BILLING_CYCLE_MONTHS", 1),
		PendingExpiry:      getEnvAsDuration("LEDGER_PENDING_EXPIRY", 30*time.Minute),
		AmountTolerance:    getEnvAsDecimal("LEDGER_AMOUNT_TOLERANCE", decimal.RequireFromString("0.01")),
		SettlementTimeout:  getEnvAsDuration("LEDGER_SETTLEMENT_TIMEOUT", 5*time.Second),
		WebhookDedupeTTL:   getEnvAsDuration("LEDGER_WEBHOOK_DEDUPE_TTL", 24*time.Hour),
		PaymentPrefix:      getEnv("LEDGER_PAYMENT_PREFIX", "PAY"),
		ReceiptPrefix:      getEnv("LEDGER_RECEIPT_PREFIX", "RCP"),
		Currency:           GatewayCurrency(),
	}
}

// GatewayCurrency is the single currency orders are raised in, read from
// gateway.currency (GATEWAY_CURRENCY).
func GatewayCurrency() string {
	if c := strings.ToUpper(strings.TrimSpace(viper.GetString("gateway.currency"))); c != "" {
		return c
	}
	return DefaultCurrency
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if val := os.Getenv(key); val != "" {
		if d, err := decimal.NewFromString(val); err == nil {
			return d
		}
	}
	return defaultVal
}
