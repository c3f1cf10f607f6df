package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanActive     LoanStatus = "ACTIVE"
	LoanClosed     LoanStatus = "CLOSED"
	LoanDefaulted  LoanStatus = "DEFAULTED"
	LoanForeclosed LoanStatus = "FORECLOSED"
)

// AcceptsPayments reports whether new debit allocations may be applied.
// Collections against defaulted loans are still allowed.
func (s LoanStatus) AcceptsPayments() bool {
	return s == LoanActive || s == LoanDefaulted
}

// LoanBalance is the part of a loan the payment ledger owns.
type LoanBalance struct {
	LoanID               string          `json:"loan_id" db:"id"`
	LoanNumber           string          `json:"loan_number" db:"loan_number"`
	OutstandingPrincipal decimal.Decimal `json:"outstanding_principal" db:"outstanding_principal"`
	AccruedInterest      decimal.Decimal `json:"accrued_interest" db:"accrued_interest"`
	TotalOutstanding     decimal.Decimal `json:"total_outstanding" db:"total_outstanding"`
	Status               LoanStatus      `json:"status" db:"status"`
	LastPaymentDate      *time.Time      `json:"last_payment_date,omitempty" db:"last_payment_date"`
	NextDueDate          *time.Time      `json:"next_due_date,omitempty" db:"next_due_date"`
	Version              int             `json:"version" db:"version"` // for optimistic locking
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// Recompute derives TotalOutstanding from its two components.
func (l *LoanBalance) Recompute() {
	l.TotalOutstanding = l.OutstandingPrincipal.Add(l.AccruedInterest)
}

// LedgerEntry is one append-only row per committed payment.
type LedgerEntry struct {
	ID                int             `json:"id" db:"id"`
	LoanID            string          `json:"loan_id" db:"loan_id"`
	PaymentID         string          `json:"payment_id" db:"payment_id"`
	InterestPaid      decimal.Decimal `json:"interest_paid" db:"interest_paid"`
	PrincipalPaid     decimal.Decimal `json:"principal_paid" db:"principal_paid"`
	PenaltyPaid       decimal.Decimal `json:"penalty_paid" db:"penalty_paid"`
	OutstandingBefore decimal.Decimal `json:"outstanding_before" db:"outstanding_before"`
	OutstandingAfter  decimal.Decimal `json:"outstanding_after" db:"outstanding_after"`
	LoanVersion       int             `json:"loan_version" db:"loan_version"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}
