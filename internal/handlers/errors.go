package handlers

import (
	"errors"
	"net/http"

	"github.com/goldline/backend/internal/config"
	"github.com/goldline/backend/internal/models"
)

// PaymentErrorResponse is returned when an operation failed but the payment
// record it touched is still meaningful to the caller.
type PaymentErrorResponse struct {
	Error   string                `json:"error"`
	Payment *models.PaymentRecord `json:"payment,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrInvalidAmount), errors.Is(err, models.ErrInvalidMethod):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrLoanNotFound), errors.Is(err, models.ErrPaymentNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrLoanNotActive),
		errors.Is(err, models.ErrDuplicateTransactionRef),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrConcurrencyConflict),
		errors.Is(err, models.ErrPaymentNotSettled):
		return http.StatusConflict
	case models.IsVerificationFailure(err):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// writeServiceError maps an engine error to a status code. Internal errors are
// logged and answered with a generic message.
func writeServiceError(w http.ResponseWriter, funcName string, err error, payment *models.PaymentRecord) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		config.LogError(config.GetLogger(), "handlers", funcName, "unexpected service error", nil, err)
		message = "Internal server error"
	}

	if payment == nil {
		SendErrorResponse(w, message, status, nil)
		return
	}
	writeJSON(w, status, PaymentErrorResponse{Error: message, Payment: payment})
}
