package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/goldline/backend/internal/models"
	"github.com/goldline/backend/internal/repository"
)

// PaymentRecordStore wraps the payment rows of a Store with the lifecycle
// rules: records are created once, move out of PENDING exactly once, and
// every move leaves a status history row.
type PaymentRecordStore struct {
	store repository.Reader
}

func NewPaymentRecordStore(store repository.Reader) *PaymentRecordStore {
	return &PaymentRecordStore{store: store}
}

// Create inserts p and its opening history row. A gateway reference already
// held by another record fails with ErrDuplicateTransactionRef.
func (s *PaymentRecordStore) Create(ctx context.Context, tx repository.Tx, p *models.PaymentRecord, actor string) error {
	if err := tx.CreatePayment(ctx, p); err != nil {
		return err
	}
	return tx.AppendStatusChange(ctx, &models.StatusChange{
		PaymentID: p.ID,
		To:        p.Status,
		Reason:    "created",
		Actor:     actor,
		CreatedAt: p.CreatedAt,
	})
}

func (s *PaymentRecordStore) Get(ctx context.Context, paymentID string) (*models.PaymentRecord, error) {
	return s.store.GetPayment(ctx, paymentID)
}

// Lookup resolves either an internal id or a payment number.
func (s *PaymentRecordStore) Lookup(ctx context.Context, idOrNumber string) (*models.PaymentRecord, error) {
	p, err := s.store.GetPayment(ctx, idOrNumber)
	if errors.Is(err, models.ErrPaymentNotFound) {
		return s.store.GetPaymentByNumber(ctx, idOrNumber)
	}
	return p, err
}

func (s *PaymentRecordStore) FindByTransactionRef(ctx context.Context, ref string) (*models.PaymentRecord, error) {
	return s.store.FindByTransactionRef(ctx, ref)
}

// Transition moves a PENDING record to `to`. It returns the record as it
// stands afterwards and whether this call changed it. A record already in
// `to` is left alone; one in a different terminal status is an
// ErrInvalidTransition.
func (s *PaymentRecordStore) Transition(ctx context.Context, tx repository.Tx, paymentID string, to models.PaymentStatus, fields models.TransitionFields, reason, actor string) (*models.PaymentRecord, bool, error) {
	if !to.IsTerminal() {
		return nil, false, fmt.Errorf("transition %s to %s: %w", paymentID, to, models.ErrInvalidTransition)
	}

	applied, err := tx.TransitionPayment(ctx, paymentID, to, fields)
	if err != nil {
		return nil, false, err
	}

	current, err := tx.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, false, err
	}

	if !applied {
		if current.Status == to {
			return current, false, nil
		}
		return current, false, fmt.Errorf("payment %s is %s, cannot move to %s: %w",
			current.PaymentNumber, current.Status, to, models.ErrInvalidTransition)
	}

	err = tx.AppendStatusChange(ctx, &models.StatusChange{
		PaymentID: paymentID,
		From:      models.PaymentPending,
		To:        to,
		Reason:    reason,
		Actor:     actor,
		CreatedAt: fields.At,
	})
	if err != nil {
		return nil, false, err
	}
	return current, true, nil
}

// RecordFailedAttempt keeps a declined gateway attempt on a PENDING payment:
// the payload replaces the stored gateway response and a PENDING to PENDING
// history row carries the reason. The status does not change.
func (s *PaymentRecordStore) RecordFailedAttempt(ctx context.Context, tx repository.Tx, paymentID string, response json.RawMessage, reason, actor string, at time.Time) (*models.PaymentRecord, error) {
	if err := tx.SetGatewayResponse(ctx, paymentID, response); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			current, gerr := tx.GetPayment(ctx, paymentID)
			if gerr != nil {
				return nil, gerr
			}
			return current, fmt.Errorf("payment %s is %s: %w", current.PaymentNumber, current.Status, err)
		}
		return nil, err
	}

	err := tx.AppendStatusChange(ctx, &models.StatusChange{
		PaymentID: paymentID,
		From:      models.PaymentPending,
		To:        models.PaymentPending,
		Reason:    reason,
		Actor:     actor,
		CreatedAt: at,
	})
	if err != nil {
		return nil, err
	}
	return tx.GetPayment(ctx, paymentID)
}

func (s *PaymentRecordStore) ListForLoan(ctx context.Context, loanID string, limit int) ([]*models.PaymentRecord, error) {
	if _, err := s.store.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	return s.store.ListPaymentsForLoan(ctx, loanID, limit)
}

// ListStalePending returns PENDING records created before cutoff, oldest first.
func (s *PaymentRecordStore) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*models.PaymentRecord, error) {
	return s.store.ListPendingOlderThan(ctx, cutoff, limit)
}
