package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestInitViper(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("PORT", "9090")
	t.Setenv("GATEWAY_KEY_ID", "rzp_test_123")
	t.Setenv("GATEWAY_CURRENCY", "usd")
	t.Setenv("DATABASE_STATEMENT_TIMEOUT", "3s")

	InitViper()

	assert.Equal(t, "9090", viper.GetString("server.port"))
	assert.Equal(t, "rzp_test_123", viper.GetString("gateway.key_id"))
	assert.Equal(t, 5*time.Minute, viper.GetDuration("ledger.sweep_interval"))
	assert.Equal(t, "info", viper.GetString("log.level"))
	assert.Equal(t, 3*time.Second, viper.GetDuration("database.statement_timeout"))

	assert.Equal(t, "USD", GatewayCurrency())
	assert.Equal(t, "USD", LoadLedgerConfig().Currency)
}

func TestGatewayCurrency_Default(t *testing.T) {
	t.Cleanup(viper.Reset)
	assert.Equal(t, DefaultCurrency, GatewayCurrency())

	viper.Set("gateway.currency", " inr ")
	assert.Equal(t, "INR", GatewayCurrency())
}
