package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goldline/backend/internal/middleware"
	"github.com/goldline/backend/internal/models"
	"github.com/goldline/backend/internal/services"
	"github.com/shopspring/decimal"
)

// PaymentEngine is the reconciliation surface the HTTP layer drives.
type PaymentEngine interface {
	InitiateOnline(ctx context.Context, req services.InitiateRequest) (*services.InitiateResult, error)
	RetryOrder(ctx context.Context, paymentID string) (*services.InitiateResult, error)
	ConfirmOnline(ctx context.Context, paymentID string, v services.Verification, actor models.Actor) (*models.PaymentRecord, error)
	RecordOffline(ctx context.Context, req services.OfflineRequest) (*models.PaymentRecord, error)
	Cancel(ctx context.Context, paymentID string, actor models.Actor) (*models.PaymentRecord, error)
	FailExpiredPending(ctx context.Context, olderThan time.Duration) (*services.SweepResult, error)
	HandleWebhook(ctx context.Context, raw []byte, signature string) services.WebhookResult
	GetPayment(ctx context.Context, idOrNumber string) (*models.PaymentRecord, error)
	LoanBalance(ctx context.Context, loanID string) (*models.LoanBalance, error)
	ListPayments(ctx context.Context, loanID string, limit int) ([]*models.PaymentRecord, error)
	LedgerEntries(ctx context.Context, loanID string) ([]*models.LedgerEntry, error)
}

type ReceiptRenderer interface {
	ReceiptQR(ctx context.Context, idOrNumber string, size int) ([]byte, error)
}

// InitiateOnlineRequest starts a gateway checkout for a loan repayment.
type InitiateOnlineRequest struct {
	Amount  decimal.Decimal `json:"amount" validate:"required,money"`
	Method  string          `json:"method" validate:"required,oneof=UPI CARD NET_BANKING WALLET"`
	Purpose string          `json:"purpose" validate:"omitempty,oneof=EMI PART_PAYMENT CLOSURE"`
}

// ConfirmRequest is the checkout callback the client relays from the gateway.
type ConfirmRequest struct {
	OrderID          string `json:"order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required,hexadecimal"`
}

// OfflinePaymentRequest records cash or instrument collected in the field.
type OfflinePaymentRequest struct {
	Amount        decimal.Decimal  `json:"amount" validate:"required,money"`
	Method        string           `json:"method" validate:"required,oneof=CASH CHEQUE BANK_TRANSFER UPI CARD"`
	Purpose       string           `json:"purpose" validate:"omitempty,oneof=EMI PART_PAYMENT CLOSURE"`
	CollectorID   string           `json:"collector_id" validate:"omitempty,max=64"`
	Location      *models.Location `json:"location" validate:"omitempty"`
	ProofRefs     []string         `json:"proof_refs" validate:"max=10,dive,required,max=512"`
	ReferenceNote string           `json:"reference_note" validate:"max=500"`
}

// ExpireRequest overrides the configured pending expiry for one sweep.
type ExpireRequest struct {
	OlderThan string `json:"older_than" validate:"omitempty"`
}

type PaymentHandler struct {
	engine    PaymentEngine
	receipts  ReceiptRenderer
	validator *ValidationHelper
}

func NewPaymentHandler(engine PaymentEngine, receipts ReceiptRenderer) *PaymentHandler {
	return &PaymentHandler{
		engine:    engine,
		receipts:  receipts,
		validator: NewValidationHelper(),
	}
}

// InitiateOnline creates a PENDING payment and its gateway order
// @Summary Initiate online payment
// @Description Create a pending loan payment and a gateway order the client completes checkout against
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param loanId path string true "Loan ID"
// @Param request body InitiateOnlineRequest true "Payment request"
// @Success 201 {object} services.InitiateResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 503 {object} PaymentErrorResponse
// @Router /loans/{loanId}/payments/online [post]
func (h *PaymentHandler) InitiateOnline(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req InitiateOnlineRequest
	if !h.decode(w, r, &req) {
		return
	}

	result, err := h.engine.InitiateOnline(r.Context(), services.InitiateRequest{
		LoanID:  chi.URLParam(r, "loanId"),
		Amount:  req.Amount,
		Method:  models.PaymentMethod(req.Method),
		Purpose: models.PaymentPurpose(req.Purpose),
		Actor:   actor,
	})
	if err != nil {
		var payment *models.PaymentRecord
		if result != nil {
			payment = result.Payment
		}
		writeServiceError(w, "InitiateOnline", err, payment)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// RetryOrder requests a gateway order again for a pending payment
// @Summary Retry gateway order
// @Description Request a gateway order for a pending payment whose first order attempt failed
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID"
// @Success 200 {object} services.InitiateResult
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} PaymentErrorResponse
// @Failure 503 {object} PaymentErrorResponse
// @Router /payments/{paymentId}/order [post]
func (h *PaymentHandler) RetryOrder(w http.ResponseWriter, r *http.Request) {
	result, err := h.engine.RetryOrder(r.Context(), chi.URLParam(r, "paymentId"))
	if err != nil {
		var payment *models.PaymentRecord
		if result != nil {
			payment = result.Payment
		}
		writeServiceError(w, "RetryOrder", err, payment)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// Confirm verifies a checkout callback and settles the payment
// @Summary Confirm online payment
// @Description Verify the gateway signature and capture, then settle the payment against the loan
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID"
// @Param request body ConfirmRequest true "Checkout callback"
// @Success 200 {object} models.PaymentRecord
// @Failure 400 {object} ErrorResponse
// @Failure 402 {object} PaymentErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} PaymentErrorResponse
// @Router /payments/{paymentId}/confirm [post]
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req ConfirmRequest
	if !h.decode(w, r, &req) {
		return
	}

	payment, err := h.engine.ConfirmOnline(r.Context(), chi.URLParam(r, "paymentId"), services.Verification{
		OrderID:   req.OrderID,
		PaymentID: req.GatewayPaymentID,
		Signature: req.Signature,
	}, actor)
	if err != nil {
		writeServiceError(w, "Confirm", err, payment)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// Cancel abandons a pending payment
// @Summary Cancel payment
// @Description Cancel a pending online payment. Settled payments cannot be cancelled.
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID"
// @Success 200 {object} models.PaymentRecord
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} PaymentErrorResponse
// @Router /payments/{paymentId}/cancel [post]
func (h *PaymentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	payment, err := h.engine.Cancel(r.Context(), chi.URLParam(r, "paymentId"), actor)
	if err != nil {
		writeServiceError(w, "Cancel", err, payment)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// RecordOffline books a field collection
// @Summary Record offline payment
// @Description Record a cash or instrument collection. The payment is settled immediately.
// @Tags Payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param loanId path string true "Loan ID"
// @Param request body OfflinePaymentRequest true "Collection details"
// @Success 201 {object} models.PaymentRecord
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /loans/{loanId}/payments/offline [post]
func (h *PaymentHandler) RecordOffline(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	if !actor.CanCollect() {
		SendErrorResponse(w, "Forbidden", http.StatusForbidden, nil)
		return
	}

	var req OfflinePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	payment, err := h.engine.RecordOffline(r.Context(), services.OfflineRequest{
		LoanID:  chi.URLParam(r, "loanId"),
		Amount:  req.Amount,
		Method:  models.PaymentMethod(req.Method),
		Purpose: models.PaymentPurpose(req.Purpose),
		Actor:   actor,
		Proof: models.CollectionProof{
			CollectorID:   req.CollectorID,
			Location:      req.Location,
			ProofRefs:     req.ProofRefs,
			ReferenceNote: req.ReferenceNote,
		},
	})
	if err != nil {
		writeServiceError(w, "RecordOffline", err, nil)
		return
	}
	writeJSON(w, http.StatusCreated, payment)
}

// GetPayment returns one payment
// @Summary Get payment
// @Description Look up a payment by internal ID or payment number
// @Tags Payments
// @Produce json
// @Security BearerAuth
// @Param paymentId path string true "Payment ID or number"
// @Success 200 {object} models.PaymentRecord
// @Failure 404 {object} ErrorResponse
// @Router /payments/{paymentId} [get]
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	payment, err := h.engine.GetPayment(r.Context(), chi.URLParam(r, "paymentId"))
	if err != nil {
		writeServiceError(w, "GetPayment", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// ReceiptQR renders the receipt of a settled payment
// @Summary Receipt QR code
// @Description PNG QR code encoding the receipt of a completed payment
// @Tags Payments
// @Produce png
// @Security BearerAuth
// @Param paymentId path string true "Payment ID or number"
// @Param size query int false "Image size in pixels"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /payments/{paymentId}/receipt/qr [get]
func (h *PaymentHandler) ReceiptQR(w http.ResponseWriter, r *http.Request) {
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 64 || parsed > 1024 {
			SendErrorResponse(w, "size must be between 64 and 1024", http.StatusBadRequest, nil)
			return
		}
		size = parsed
	}

	png, err := h.receipts.ReceiptQR(r.Context(), chi.URLParam(r, "paymentId"), size)
	if err != nil {
		writeServiceError(w, "ReceiptQR", err, nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// ExpirePending fails stale pending payments
// @Summary Expire pending payments
// @Description Move pending payments older than the cutoff to FAILED
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ExpireRequest false "Override expiry, e.g. 45m"
// @Success 200 {object} services.SweepResult
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/payments/expire [post]
func (h *PaymentHandler) ExpirePending(w http.ResponseWriter, r *http.Request) {
	var req ExpireRequest
	if r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}

	var olderThan time.Duration
	if req.OlderThan != "" {
		d, err := time.ParseDuration(req.OlderThan)
		if err != nil || d <= 0 {
			SendErrorResponse(w, "older_than must be a positive duration", http.StatusBadRequest, nil)
			return
		}
		olderThan = d
	}

	result, err := h.engine.FailExpiredPending(r.Context(), olderThan)
	if err != nil {
		writeServiceError(w, "ExpirePending", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *PaymentHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	return decodeAndValidate(w, r, h.validator, dst)
}

// decodeAndValidate reads exactly one JSON object into dst and validates it.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *ValidationHelper, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	if err := v.ValidateStruct(dst); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}
