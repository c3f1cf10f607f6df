package audit

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
)

func TestAuditLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	a := NewAuditLogger(logger)

	t.Run("payment event", func(t *testing.T) {
		a.LogPayment(EventSettled, "PAY-1", "loan-1", decimal.NewFromInt(5000), "COMPLETED", "agent-7", nil)

		entry := hook.LastEntry()
		assert.Equal(t, "AUDIT", entry.Message)
		assert.Equal(t, EventSettled, entry.Data["event_type"])
		assert.Equal(t, "5000", entry.Data["amount"])
		assert.Equal(t, "agent-7", entry.Data["actor"])
	})

	t.Run("error event", func(t *testing.T) {
		a.LogError("PAY-2", "loan-1", errors.New("store unavailable"))

		entry := hook.LastEntry()
		assert.Equal(t, EventError, entry.Data["event_type"])
		assert.Equal(t, map[string]string{"error": "store unavailable"}, entry.Data["details"])
	})
}
