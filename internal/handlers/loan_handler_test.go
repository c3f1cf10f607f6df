package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/goldline/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLoanHandler_Balance(t *testing.T) {
	engine := new(MockEngine)
	router := newTestRouter(engine, new(MockReceipts))

	loan := &models.LoanBalance{
		LoanID:               "loan-1",
		LoanNumber:           "GL-0001",
		OutstandingPrincipal: decimal.NewFromInt(37000),
		AccruedInterest:      decimal.Zero,
		Status:               models.LoanActive,
		Version:              2,
	}
	loan.Recompute()
	engine.On("LoanBalance", mock.Anything, "loan-1").Return(loan, nil).Once()
	engine.On("LoanBalance", mock.Anything, "loan-404").Return(nil, fmt.Errorf("loan loan-404: %w", models.ErrLoanNotFound)).Once()

	rec := doRequest(router, http.MethodGet, "/api/v1/loans/loan-1/balance", "", &customer)
	require.Equal(t, http.StatusOK, rec.Code)
	var body models.LoanBalance
	decodeBody(t, rec, &body)
	assert.True(t, body.TotalOutstanding.Equal(decimal.NewFromInt(37000)))
	assert.Equal(t, 2, body.Version)

	rec = doRequest(router, http.MethodGet, "/api/v1/loans/loan-404/balance", "", &customer)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoanHandler_Payments(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantStatus int
	}{
		{"default page", "", defaultPaymentPageSize, http.StatusOK},
		{"explicit limit", "?limit=5", 5, http.StatusOK},
		{"limit is capped", "?limit=5000", maxPaymentPageSize, http.StatusOK},
		{"non numeric", "?limit=abc", 0, http.StatusBadRequest},
		{"zero", "?limit=0", 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(MockEngine)
			router := newTestRouter(engine, new(MockReceipts))
			if tt.wantStatus == http.StatusOK {
				engine.On("ListPayments", mock.Anything, "loan-1", tt.wantLimit).
					Return([]*models.PaymentRecord{pendingRecord(models.PaymentCompleted)}, nil).Once()
			}

			rec := doRequest(router, http.MethodGet, "/api/v1/loans/loan-1/payments"+tt.query, "", &customer)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				var body struct {
					Payments []models.PaymentRecord `json:"payments"`
					Count    int                    `json:"count"`
				}
				decodeBody(t, rec, &body)
				assert.Equal(t, 1, body.Count)
				assert.Len(t, body.Payments, 1)
			}
			engine.AssertExpectations(t)
		})
	}
}

func TestLoanHandler_Ledger(t *testing.T) {
	engine := new(MockEngine)
	router := newTestRouter(engine, new(MockReceipts))

	engine.On("LedgerEntries", mock.Anything, "loan-1").Return([]*models.LedgerEntry{{
		ID:                1,
		LoanID:            "loan-1",
		PaymentID:         "pay-1",
		InterestPaid:      decimal.NewFromInt(2000),
		PrincipalPaid:     decimal.NewFromInt(3000),
		PenaltyPaid:       decimal.Zero,
		OutstandingBefore: decimal.NewFromInt(42000),
		OutstandingAfter:  decimal.NewFromInt(37000),
		LoanVersion:       2,
	}}, nil).Once()

	rec := doRequest(router, http.MethodGet, "/api/v1/loans/loan-1/ledger", "", &customer)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Entries []models.LedgerEntry `json:"entries"`
	}
	decodeBody(t, rec, &body)
	require.Len(t, body.Entries, 1)
	assert.True(t, body.Entries[0].OutstandingAfter.Equal(decimal.NewFromInt(37000)))
}
