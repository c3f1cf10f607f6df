package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/goldline/backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore() *MemoryStore {
	s := NewMemoryStore()
	s.PutLoan(models.LoanBalance{
		LoanID:               "loan-1",
		LoanNumber:           "GL-0001",
		OutstandingPrincipal: decimal.NewFromInt(40000),
		AccruedInterest:      decimal.NewFromInt(2000),
		Status:               models.LoanActive,
		Version:              1,
	})
	return s
}

func pendingPayment(id, ref string) *models.PaymentRecord {
	now := time.Now()
	p := &models.PaymentRecord{
		ID:                 id,
		PaymentNumber:      "PAY-" + id,
		LoanID:             "loan-1",
		Amount:             decimal.NewFromInt(5000),
		Method:             models.MethodUPI,
		Purpose:            models.PurposeEMI,
		Status:             models.PaymentPending,
		VerificationStatus: models.VerificationPending,
		CreatedAt:          now,
		StatusChangedAt:    now,
	}
	if ref != "" {
		p.GatewayRef = &ref
	}
	return p
}

func TestMemoryStore_PutLoanRecomputesTotal(t *testing.T) {
	s := seededStore()
	loan, err := s.GetLoan(context.Background(), "loan-1")
	require.NoError(t, err)
	assert.True(t, loan.TotalOutstanding.Equal(decimal.NewFromInt(42000)))
}

func TestMemoryStore_UniqueGatewayRef(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		return tx.CreatePayment(ctx, pendingPayment("p1", "T1"))
	}))

	err := s.WithTx(ctx, func(tx Tx) error {
		return tx.CreatePayment(ctx, pendingPayment("p2", "T1"))
	})
	assert.ErrorIs(t, err, models.ErrDuplicateTransactionRef)

	_, err = s.GetPayment(ctx, "p2")
	assert.ErrorIs(t, err, models.ErrPaymentNotFound)

	found, err := s.FindByTransactionRef(ctx, "T1")
	require.NoError(t, err)
	assert.Equal(t, "p1", found.ID)

	err = s.WithTx(ctx, func(tx Tx) error {
		if err := tx.CreatePayment(ctx, pendingPayment("p3", "")); err != nil {
			return err
		}
		return tx.SetTransactionRef(ctx, "p3", "T1")
	})
	assert.ErrorIs(t, err, models.ErrDuplicateTransactionRef)
}

func TestMemoryStore_WithTxDiscardsOnError(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx Tx) error {
		loan, err := tx.GetLoan(ctx, "loan-1")
		if err != nil {
			return err
		}
		loan.OutstandingPrincipal = decimal.Zero
		loan.Recompute()
		if err := tx.UpdateLoanBalance(ctx, loan, loan.Version); err != nil {
			return err
		}
		if err := tx.CreatePayment(ctx, pendingPayment("p1", "T1")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	loan, err := s.GetLoan(ctx, "loan-1")
	require.NoError(t, err)
	assert.True(t, loan.OutstandingPrincipal.Equal(decimal.NewFromInt(40000)))
	assert.Equal(t, 1, loan.Version)

	_, err = s.FindByTransactionRef(ctx, "T1")
	assert.ErrorIs(t, err, models.ErrPaymentNotFound)
}

func TestMemoryStore_VersionCheck(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	stale, err := s.GetLoan(ctx, "loan-1")
	require.NoError(t, err)

	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		fresh, err := tx.GetLoan(ctx, "loan-1")
		if err != nil {
			return err
		}
		fresh.AccruedInterest = decimal.Zero
		fresh.Recompute()
		return tx.UpdateLoanBalance(ctx, fresh, fresh.Version)
	}))

	err = s.WithTx(ctx, func(tx Tx) error {
		stale.OutstandingPrincipal = decimal.NewFromInt(1)
		return tx.UpdateLoanBalance(ctx, stale, stale.Version)
	})
	assert.ErrorIs(t, err, models.ErrConcurrencyConflict)

	loan, _ := s.GetLoan(ctx, "loan-1")
	assert.Equal(t, 2, loan.Version)
	assert.True(t, loan.TotalOutstanding.Equal(decimal.NewFromInt(40000)))
}

func TestMemoryStore_TransitionOnlyFromPending(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		return tx.CreatePayment(ctx, pendingPayment("p1", "T1"))
	}))

	var first, second bool
	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		var err error
		first, err = tx.TransitionPayment(ctx, "p1", models.PaymentCompleted, models.TransitionFields{At: time.Now()})
		if err != nil {
			return err
		}
		second, err = tx.TransitionPayment(ctx, "p1", models.PaymentFailed, models.TransitionFields{At: time.Now()})
		return err
	}))
	assert.True(t, first)
	assert.False(t, second)

	p, _ := s.GetPayment(ctx, "p1")
	assert.Equal(t, models.PaymentCompleted, p.Status)
	assert.NotNil(t, p.SettledAt)
}

func TestMemoryStore_SetGatewayResponse(t *testing.T) {
	s := seededStore()
	ctx := context.Background()
	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		return tx.CreatePayment(ctx, pendingPayment("p1", "T1"))
	}))

	declined := json.RawMessage(`{"event":"payment.failed"}`)
	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		return tx.SetGatewayResponse(ctx, "p1", declined)
	}))
	p, _ := s.GetPayment(ctx, "p1")
	assert.Equal(t, models.PaymentPending, p.Status)
	assert.JSONEq(t, string(declined), string(p.GatewayResponse))

	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		_, err := tx.TransitionPayment(ctx, "p1", models.PaymentFailed, models.TransitionFields{At: time.Now()})
		return err
	}))
	err := s.WithTx(ctx, func(tx Tx) error {
		return tx.SetGatewayResponse(ctx, "p1", json.RawMessage(`{}`))
	})
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	err = s.WithTx(ctx, func(tx Tx) error {
		return tx.SetGatewayResponse(ctx, "missing", declined)
	})
	assert.ErrorIs(t, err, models.ErrPaymentNotFound)
}

func TestMemoryStore_ListPendingOlderThan(t *testing.T) {
	s := seededStore()
	ctx := context.Background()

	old := pendingPayment("old", "")
	old.CreatedAt = time.Now().Add(-2 * time.Hour)
	fresh := pendingPayment("fresh", "")

	require.NoError(t, s.WithTx(ctx, func(tx Tx) error {
		if err := tx.CreatePayment(ctx, old); err != nil {
			return err
		}
		return tx.CreatePayment(ctx, fresh)
	}))

	expired, err := s.ListPendingOlderThan(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "old", expired[0].ID)

	all, err := s.ListPaymentsForLoan(ctx, "loan-1", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, "fresh", all[0].ID)
}
