package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goldline/backend/internal/middleware"
	"github.com/goldline/backend/internal/models"
)

// APIRoutes mounts the /api/v1 surface. auth authenticates the caller and
// puts its actor on the request context.
func APIRoutes(payments *PaymentHandler, loans *LoanHandler, webhooks *WebhookHandler, auth func(http.Handler) http.Handler) func(chi.Router) {
	return func(r chi.Router) {
		// Public endpoints (gateway authenticates with its signature)
		r.Post("/webhooks/gateway", webhooks.Gateway)

		// Protected endpoints (auth required)
		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Get("/loans/{loanId}/balance", loans.Balance)
			r.Get("/loans/{loanId}/payments", loans.Payments)
			r.Get("/loans/{loanId}/ledger", loans.Ledger)
			r.Post("/loans/{loanId}/payments/online", payments.InitiateOnline)

			r.Get("/payments/{paymentId}", payments.GetPayment)
			r.Post("/payments/{paymentId}/order", payments.RetryOrder)
			r.Post("/payments/{paymentId}/confirm", payments.Confirm)
			r.Post("/payments/{paymentId}/cancel", payments.Cancel)
			r.Get("/payments/{paymentId}/receipt/qr", payments.ReceiptQR)

			r.With(middleware.RequireRoles(models.RoleCollectionAgent, models.RoleBranchManager, models.RoleAdmin)).
				Post("/loans/{loanId}/payments/offline", payments.RecordOffline)

			r.With(middleware.RequireRoles(models.RoleAdmin)).
				Post("/admin/payments/expire", payments.ExpirePending)
		})
	}
}
