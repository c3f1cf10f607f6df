// Package repository is the persistence port of the payment ledger. The
// reconciliation engine receives a Store at construction and never touches a
// database handle directly.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/goldline/backend/internal/models"
)

// Reader exposes the read-only queries used outside a unit of work.
type Reader interface {
	GetLoan(ctx context.Context, loanID string) (*models.LoanBalance, error)
	GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error)
	GetPaymentByNumber(ctx context.Context, paymentNumber string) (*models.PaymentRecord, error)
	FindByTransactionRef(ctx context.Context, ref string) (*models.PaymentRecord, error)
	ListPaymentsForLoan(ctx context.Context, loanID string, limit int) ([]*models.PaymentRecord, error)
	ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*models.PaymentRecord, error)
	ListLedgerEntries(ctx context.Context, loanID string) ([]*models.LedgerEntry, error)
}

// Store is a Reader that can also run a unit of work atomically.
type Store interface {
	Reader
	// WithTx runs fn in one atomic unit. Any error returned by fn discards
	// every write made through tx.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the write side, valid only inside WithTx.
type Tx interface {
	GetLoan(ctx context.Context, loanID string) (*models.LoanBalance, error)
	GetPayment(ctx context.Context, paymentID string) (*models.PaymentRecord, error)

	// CreatePayment inserts p. A second record holding the same gateway
	// reference yields models.ErrDuplicateTransactionRef.
	CreatePayment(ctx context.Context, p *models.PaymentRecord) error
	SetTransactionRef(ctx context.Context, paymentID, ref string) error
	// SetGatewayResponse stores the latest gateway payload on a PENDING
	// payment, otherwise models.ErrInvalidTransition.
	SetGatewayResponse(ctx context.Context, paymentID string, response json.RawMessage) error

	// TransitionPayment moves a PENDING payment to status to. It reports false
	// without error when the record is no longer PENDING.
	TransitionPayment(ctx context.Context, paymentID string, to models.PaymentStatus, fields models.TransitionFields) (bool, error)

	// UpdateLoanBalance writes loan only if the stored version still equals
	// expectedVersion, otherwise models.ErrConcurrencyConflict. On success
	// loan.Version is advanced.
	UpdateLoanBalance(ctx context.Context, loan *models.LoanBalance, expectedVersion int) error

	AppendLedgerEntry(ctx context.Context, entry *models.LedgerEntry) error
	AppendStatusChange(ctx context.Context, change *models.StatusChange) error
}
