package models

import "errors"

var (
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidMethod           = errors.New("payment method not supported for this flow")
	ErrLoanNotFound            = errors.New("loan not found")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrLoanNotActive           = errors.New("loan is not accepting payments")
	ErrDuplicateTransactionRef = errors.New("duplicate gateway transaction reference")
	ErrGatewayUnavailable      = errors.New("payment gateway unavailable")
	ErrSignatureInvalid        = errors.New("gateway signature invalid")
	ErrAmountMismatch          = errors.New("captured amount does not match payment")
	ErrNotCaptured             = errors.New("gateway payment not captured")
	ErrInvalidTransition       = errors.New("invalid payment status transition")
	ErrConcurrencyConflict     = errors.New("loan balance was modified concurrently")
	ErrPaymentNotSettled       = errors.New("payment is not settled")
)

// IsVerificationFailure reports whether err is a terminal gateway verdict
// that moves a payment to FAILED.
func IsVerificationFailure(err error) bool {
	return errors.Is(err, ErrSignatureInvalid) ||
		errors.Is(err, ErrAmountMismatch) ||
		errors.Is(err, ErrNotCaptured)
}
