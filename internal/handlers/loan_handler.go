package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultPaymentPageSize = 50
	maxPaymentPageSize     = 200
)

type LoanHandler struct {
	engine PaymentEngine
}

func NewLoanHandler(engine PaymentEngine) *LoanHandler {
	return &LoanHandler{engine: engine}
}

// Balance returns the loan's current outstanding amounts
// @Summary Loan balance
// @Description Current outstanding principal, accrued interest and total outstanding
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param loanId path string true "Loan ID"
// @Success 200 {object} models.LoanBalance
// @Failure 404 {object} ErrorResponse
// @Router /loans/{loanId}/balance [get]
func (h *LoanHandler) Balance(w http.ResponseWriter, r *http.Request) {
	loan, err := h.engine.LoanBalance(r.Context(), chi.URLParam(r, "loanId"))
	if err != nil {
		writeServiceError(w, "Balance", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// Payments lists payments recorded against a loan, newest first
// @Summary List loan payments
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param loanId path string true "Loan ID"
// @Param limit query int false "Page size (max 200)"
// @Success 200 {object} object{payments=[]models.PaymentRecord,count=int}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /loans/{loanId}/payments [get]
func (h *LoanHandler) Payments(w http.ResponseWriter, r *http.Request) {
	limit := defaultPaymentPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			SendErrorResponse(w, "limit must be a positive integer", http.StatusBadRequest, nil)
			return
		}
		limit = min(parsed, maxPaymentPageSize)
	}

	payments, err := h.engine.ListPayments(r.Context(), chi.URLParam(r, "loanId"), limit)
	if err != nil {
		writeServiceError(w, "Payments", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"payments": payments,
		"count":    len(payments),
	})
}

// Ledger returns the loan's ledger entries in commit order
// @Summary Loan ledger
// @Tags Loans
// @Produce json
// @Security BearerAuth
// @Param loanId path string true "Loan ID"
// @Success 200 {object} object{entries=[]models.LedgerEntry}
// @Failure 404 {object} ErrorResponse
// @Router /loans/{loanId}/ledger [get]
func (h *LoanHandler) Ledger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.engine.LedgerEntries(r.Context(), chi.URLParam(r, "loanId"))
	if err != nil {
		writeServiceError(w, "Ledger", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
