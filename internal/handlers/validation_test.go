package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationHelper_Money(t *testing.T) {
	type request struct {
		Amount decimal.Decimal `validate:"required,money"`
	}
	vh := NewValidationHelper()

	tests := []struct {
		amount string
		valid  bool
	}{
		{"0.01", true},
		{"5000", true},
		{"5000.50", true},
		{"5000.500", true},
		{"0", false},
		{"-1", false},
		{"0.001", false},
		{"12.345", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := vh.ValidateStruct(&request{Amount: decimal.RequireFromString(tt.amount)})
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("plain error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		SendErrorResponse(rec, "payment not found", http.StatusNotFound, nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error":"payment not found"}`, rec.Body.String())
	})

	t.Run("validation details", func(t *testing.T) {
		type request struct {
			Method string `validate:"required,oneof=UPI CARD"`
		}
		err := NewValidationHelper().ValidateStruct(&request{Method: "CASH"})
		require.Error(t, err)

		rec := httptest.NewRecorder()
		SendErrorResponse(rec, "Validation failed", http.StatusBadRequest, err)

		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Validation failed", body.Error)
		assert.Equal(t, "Field Validation Failed on 'oneof' tag", body.Details["Method"])
	})
}
