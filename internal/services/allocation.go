package services

import (
	"fmt"

	"github.com/goldline/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Allocate splits amount across the loan's dues: interest first, then
// principal, and whatever is left over is booked as penalty.
func Allocate(amount, accruedInterest, outstandingPrincipal decimal.Decimal) (models.Allocation, error) {
	if !amount.IsPositive() {
		return models.Allocation{}, fmt.Errorf("allocate %s: %w", amount, models.ErrInvalidAmount)
	}

	interest := decimal.Min(amount, nonNegative(accruedInterest))
	remainder := amount.Sub(interest)

	principal := decimal.Min(remainder, nonNegative(outstandingPrincipal))
	remainder = remainder.Sub(principal)

	return models.Allocation{
		Interest:  interest,
		Principal: principal,
		Penalty:   remainder,
	}, nil
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
