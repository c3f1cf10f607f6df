package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goldline/backend/internal/middleware"
	"github.com/goldline/backend/internal/models"
	"github.com/goldline/backend/internal/services"
	"github.com/stretchr/testify/mock"
)

type MockEngine struct {
	mock.Mock
}

func (m *MockEngine) InitiateOnline(ctx context.Context, req services.InitiateRequest) (*services.InitiateResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*services.InitiateResult)
	return result, args.Error(1)
}

func (m *MockEngine) RetryOrder(ctx context.Context, paymentID string) (*services.InitiateResult, error) {
	args := m.Called(ctx, paymentID)
	result, _ := args.Get(0).(*services.InitiateResult)
	return result, args.Error(1)
}

func (m *MockEngine) ConfirmOnline(ctx context.Context, paymentID string, v services.Verification, actor models.Actor) (*models.PaymentRecord, error) {
	args := m.Called(ctx, paymentID, v, actor)
	p, _ := args.Get(0).(*models.PaymentRecord)
	return p, args.Error(1)
}

func (m *MockEngine) RecordOffline(ctx context.Context, req services.OfflineRequest) (*models.PaymentRecord, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*models.PaymentRecord)
	return p, args.Error(1)
}

func (m *MockEngine) Cancel(ctx context.Context, paymentID string, actor models.Actor) (*models.PaymentRecord, error) {
	args := m.Called(ctx, paymentID, actor)
	p, _ := args.Get(0).(*models.PaymentRecord)
	return p, args.Error(1)
}

func (m *MockEngine) FailExpiredPending(ctx context.Context, olderThan time.Duration) (*services.SweepResult, error) {
	args := m.Called(ctx, olderThan)
	result, _ := args.Get(0).(*services.SweepResult)
	return result, args.Error(1)
}

func (m *MockEngine) HandleWebhook(ctx context.Context, raw []byte, signature string) services.WebhookResult {
	args := m.Called(ctx, raw, signature)
	return args.Get(0).(services.WebhookResult)
}

func (m *MockEngine) GetPayment(ctx context.Context, idOrNumber string) (*models.PaymentRecord, error) {
	args := m.Called(ctx, idOrNumber)
	p, _ := args.Get(0).(*models.PaymentRecord)
	return p, args.Error(1)
}

func (m *MockEngine) LoanBalance(ctx context.Context, loanID string) (*models.LoanBalance, error) {
	args := m.Called(ctx, loanID)
	loan, _ := args.Get(0).(*models.LoanBalance)
	return loan, args.Error(1)
}

func (m *MockEngine) ListPayments(ctx context.Context, loanID string, limit int) ([]*models.PaymentRecord, error) {
	args := m.Called(ctx, loanID, limit)
	payments, _ := args.Get(0).([]*models.PaymentRecord)
	return payments, args.Error(1)
}

func (m *MockEngine) LedgerEntries(ctx context.Context, loanID string) ([]*models.LedgerEntry, error) {
	args := m.Called(ctx, loanID)
	entries, _ := args.Get(0).([]*models.LedgerEntry)
	return entries, args.Error(1)
}

type MockReceipts struct {
	mock.Mock
}

func (m *MockReceipts) ReceiptQR(ctx context.Context, idOrNumber string, size int) ([]byte, error) {
	args := m.Called(ctx, idOrNumber, size)
	png, _ := args.Get(0).([]byte)
	return png, args.Error(1)
}

// headerAuth trusts X-Actor-ID and X-Actor-Role so tests can pick the caller.
func headerAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Actor-ID")
		if id == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		actor := models.Actor{ID: id, Role: r.Header.Get("X-Actor-Role")}
		next.ServeHTTP(w, r.WithContext(middleware.WithActor(r.Context(), actor)))
	})
}

func newTestRouter(engine *MockEngine, receipts *MockReceipts) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/v1", APIRoutes(
		NewPaymentHandler(engine, receipts),
		NewLoanHandler(engine),
		NewWebhookHandler(engine),
		headerAuth,
	))
	return r
}
