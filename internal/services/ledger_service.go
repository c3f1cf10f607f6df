package services

import (
	"context"
	"fmt"
	"time"

	"github.com/goldline/backend/internal/models"
	"github.com/goldline/backend/internal/repository"
	"github.com/shopspring/decimal"
)

// LoanLedger owns loan balance mutations. Every write goes through a
// version-checked update so concurrent payments on one loan serialize.
type LoanLedger struct {
	store              repository.Reader
	billingCycleMonths int
}

func NewLoanLedger(store repository.Reader, billingCycleMonths int) *LoanLedger {
	if billingCycleMonths <= 0 {
		billingCycleMonths = 1
	}
	return &LoanLedger{store: store, billingCycleMonths: billingCycleMonths}
}

func (l *LoanLedger) Snapshot(ctx context.Context, loanID string) (*models.LoanBalance, error) {
	return l.store.GetLoan(ctx, loanID)
}

// Entries returns the committed ledger rows for a loan, oldest first.
func (l *LoanLedger) Entries(ctx context.Context, loanID string) ([]*models.LedgerEntry, error) {
	if _, err := l.store.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	return l.store.ListLedgerEntries(ctx, loanID)
}

// AllocationFor runs the waterfall against loan. Loans that no longer accept
// debits book the whole amount as penalty and keep their balances.
func (l *LoanLedger) AllocationFor(loan *models.LoanBalance, amount decimal.Decimal) (models.Allocation, error) {
	if !loan.Status.AcceptsPayments() {
		if !amount.IsPositive() {
			return models.Allocation{}, fmt.Errorf("allocate %s: %w", amount, models.ErrInvalidAmount)
		}
		return models.Allocation{Interest: decimal.Zero, Principal: decimal.Zero, Penalty: amount}, nil
	}
	return Allocate(amount, loan.AccruedInterest, loan.OutstandingPrincipal)
}

// Debit returns the balance that results from applying alloc to loan. It does
// not write anything.
func (l *LoanLedger) Debit(loan models.LoanBalance, alloc models.Allocation, purpose models.PaymentPurpose, at time.Time) models.LoanBalance {
	next := loan
	next.UpdatedAt = at
	paidAt := at
	next.LastPaymentDate = &paidAt

	if !loan.Status.AcceptsPayments() {
		return next
	}

	next.AccruedInterest = nonNegative(loan.AccruedInterest.Sub(alloc.Interest))
	next.OutstandingPrincipal = nonNegative(loan.OutstandingPrincipal.Sub(alloc.Principal))
	next.Recompute()

	if next.OutstandingPrincipal.IsZero() {
		next.Status = models.LoanClosed
		next.NextDueDate = nil
		return next
	}

	if purpose == models.PurposeEMI && alloc.Principal.IsPositive() {
		base := at
		if loan.NextDueDate != nil {
			base = *loan.NextDueDate
		}
		due := base.AddDate(0, l.billingCycleMonths, 0)
		next.NextDueDate = &due
	}
	return next
}

// ApplyPayment writes after over before with a version check and appends the
// ledger entry for paymentID. ErrConcurrencyConflict means before was stale
// and the caller must start again from a fresh snapshot.
func (l *LoanLedger) ApplyPayment(ctx context.Context, tx repository.Tx, before, after *models.LoanBalance, paymentID string, alloc models.Allocation) (*models.LedgerEntry, error) {
	if err := tx.UpdateLoanBalance(ctx, after, before.Version); err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		LoanID:            before.LoanID,
		PaymentID:         paymentID,
		InterestPaid:      alloc.Interest,
		PrincipalPaid:     alloc.Principal,
		PenaltyPaid:       alloc.Penalty,
		OutstandingBefore: before.TotalOutstanding,
		OutstandingAfter:  after.TotalOutstanding,
		LoanVersion:       after.Version,
		CreatedAt:         after.UpdatedAt,
	}
	if err := tx.AppendLedgerEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("append ledger entry: %w", err)
	}
	return entry, nil
}
