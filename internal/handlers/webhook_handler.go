package handlers

import (
	"io"
	"net/http"

	"github.com/goldline/backend/internal/config"
)

// SignatureHeader carries the gateway's HMAC of the raw webhook body.
const SignatureHeader = "X-Razorpay-Signature"

type WebhookHandler struct {
	engine PaymentEngine
}

func NewWebhookHandler(engine PaymentEngine) *WebhookHandler {
	return &WebhookHandler{engine: engine}
}

// Gateway receives payment gateway notifications
// @Summary Gateway webhook
// @Description Signed payment notifications. Every delivery is acknowledged with 200 so the gateway stops retrying; the outcome is reported in the body.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param X-Razorpay-Signature header string true "HMAC-SHA256 of the body"
// @Success 200 {object} object{outcome=string}
// @Router /webhooks/gateway [post]
func (h *WebhookHandler) Gateway(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1_048_576))
	if err != nil {
		config.LogError(config.GetLogger(), "handlers", "Gateway", "reading webhook body", nil, err)
		writeJSON(w, http.StatusOK, map[string]string{"outcome": "rejected"})
		return
	}

	result := h.engine.HandleWebhook(r.Context(), raw, r.Header.Get(SignatureHeader))
	writeJSON(w, http.StatusOK, result)
}
