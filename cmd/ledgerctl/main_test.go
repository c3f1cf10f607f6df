package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/goldline/backend/internal/models"
	"github.com/goldline/backend/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOps struct {
	sweptWith time.Duration
	closed    bool
}

func (f *fakeOps) FailExpiredPending(_ context.Context, olderThan time.Duration) (*services.SweepResult, error) {
	f.sweptWith = olderThan
	return &services.SweepResult{Scanned: 4, Expired: 3, Skipped: 1}, nil
}

func (f *fakeOps) LoanBalance(_ context.Context, loanID string) (*models.LoanBalance, error) {
	if loanID != "loan-1" {
		return nil, fmt.Errorf("loan %s: %w", loanID, models.ErrLoanNotFound)
	}
	return &models.LoanBalance{
		LoanID:               "loan-1",
		LoanNumber:           "GL-0001",
		OutstandingPrincipal: decimal.NewFromInt(40000),
		AccruedInterest:      decimal.NewFromInt(2000),
		TotalOutstanding:     decimal.NewFromInt(42000),
		Status:               models.LoanActive,
	}, nil
}

func (f *fakeOps) GetPayment(_ context.Context, idOrNumber string) (*models.PaymentRecord, error) {
	return &models.PaymentRecord{ID: "pay-1", PaymentNumber: idOrNumber, Status: models.PaymentCompleted}, nil
}

func run(t *testing.T, ops *fakeOps, args ...string) (string, error) {
	t.Helper()
	open := func() (ledgerOps, func(), error) {
		return ops, func() { ops.closed = true }, nil
	}
	cmd := newRootCmd(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSweepPending(t *testing.T) {
	ops := &fakeOps{}
	out, err := run(t, ops, "sweep-pending", "--older-than", "45m")
	require.NoError(t, err)

	assert.Equal(t, 45*time.Minute, ops.sweptWith)
	assert.True(t, ops.closed)

	var result services.SweepResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 3, result.Expired)
	assert.Equal(t, 1, result.Skipped)
}

func TestSweepPending_DefaultsToConfiguredExpiry(t *testing.T) {
	ops := &fakeOps{}
	_, err := run(t, ops, "sweep-pending")
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), ops.sweptWith)
}

func TestSweepPending_RejectsNegative(t *testing.T) {
	ops := &fakeOps{}
	_, err := run(t, ops, "sweep-pending", "--older-than=-5m")
	assert.Error(t, err)
	assert.False(t, ops.closed)
}

func TestLoanBalance(t *testing.T) {
	out, err := run(t, &fakeOps{}, "loan-balance", "loan-1")
	require.NoError(t, err)

	var loan models.LoanBalance
	require.NoError(t, json.Unmarshal([]byte(out), &loan))
	assert.Equal(t, "GL-0001", loan.LoanNumber)
	assert.True(t, loan.TotalOutstanding.Equal(decimal.NewFromInt(42000)))

	_, err = run(t, &fakeOps{}, "loan-balance", "loan-404")
	assert.ErrorIs(t, err, models.ErrLoanNotFound)

	_, err = run(t, &fakeOps{}, "loan-balance")
	assert.Error(t, err)
}

func TestPayment(t *testing.T) {
	out, err := run(t, &fakeOps{}, "payment", "PAY-20261019-AB12CD")
	require.NoError(t, err)
	assert.Contains(t, out, `"payment_number": "PAY-20261019-AB12CD"`)
}
