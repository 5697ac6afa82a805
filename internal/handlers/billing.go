package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"

	"newsletterai-backend/internal/middleware"
	"newsletterai-backend/internal/services"
)

type billingService interface {
	CreateCheckoutSession(ctx context.Context, userID uuid.UUID, planTier string) (string, error)
	VerifyWebhook(payload []byte, sigHeader string) (stripe.Event, error)
	HandleEvent(ctx context.Context, event stripe.Event) error
}

type BillingHandler struct {
	billing billingService
}

func NewBillingHandler(billing billingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

func (h *BillingHandler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		PlanTier string `json:"planTier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	url, err := h.billing.CreateCheckoutSession(r.Context(), userID, req.PlanTier)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}

// Webhook receives Stripe events. No JWT here; the signature header
// is the authentication.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	const maxBodyBytes = int64(65536)
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid payload", r))
		return
	}

	event, err := h.billing.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if _, ok := err.(*services.UnauthorizedError); ok {
			writeJSON(w, http.StatusBadRequest, errorResp("SIGNATURE_INVALID", "Signature verification failed", r))
			return
		}
		handleServiceError(w, r, err)
		return
	}

	if err := h.billing.HandleEvent(r.Context(), event); err != nil {
		log.Printf("stripe event %s failed: %v", event.Type, err)
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
