package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/attaleem/api/internal/payments"
	"github.com/attaleem/api/internal/platform/httpx"
	"github.com/attaleem/api/internal/services"
)

// WebhookHandlers receives gateway server-to-server callbacks. IPN payloads
// are forgeable, so every success claim is re-validated with the gateway
// before it reaches the checkout service.
type WebhookHandlers struct {
	checkout services.CheckoutService
	verifier PaymentVerifier
	logger   func(ctx context.Context, event string, fields map[string]any)
}

// NewWebhookHandlers constructs webhook handlers over the checkout service.
func NewWebhookHandlers(checkout services.CheckoutService, verifier PaymentVerifier, logger func(ctx context.Context, event string, fields map[string]any)) *WebhookHandlers {
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &WebhookHandlers{
		checkout: checkout,
		verifier: verifier,
		logger:   logger,
	}
}

// Routes wires the /webhooks endpoints onto the provided router.
func (h *WebhookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/sslcommerz", h.sslcommerzIPN)
}

// sslcommerzIPN handles the SSLCommerz instant payment notification. The
// gateway retries on any non-200 response, so applied and duplicate outcomes
// both acknowledge with 200; only infrastructure failures surface an error.
func (h *WebhookHandlers) sslcommerzIPN(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.checkout == nil || h.verifier == nil {
		httpx.WriteError(ctx, w, httpx.NewError("webhook_unavailable", "payment webhook unavailable", http.StatusServiceUnavailable))
		return
	}

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid form payload", http.StatusBadRequest))
		return
	}

	// Sessions are created with tran_id set to the order id.
	orderID := strings.TrimSpace(r.PostFormValue("tran_id"))
	status := strings.TrimSpace(r.PostFormValue("status"))
	validationID := strings.TrimSpace(r.PostFormValue("val_id"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "tran_id is required", http.StatusBadRequest))
		return
	}

	signal := services.PaymentSignal{OrderID: orderID}
	if claimsSuccess(status) && validationID != "" {
		// The verification is bound to the order named by the notification;
		// a val_id answering for some other transaction comes back invalid.
		result, err := h.verifier.Verify(ctx, walletMethod(r.PostFormValue("card_type")), payments.VerifyRequest{
			ValidationID: validationID,
			OrderID:      orderID,
		})
		if err != nil {
			h.logger(ctx, "webhooks.sslcommerz.verify_failed", map[string]any{
				"orderId": orderID,
				"error":   err.Error(),
			})
			httpx.WriteError(ctx, w, httpx.NewError("payment_verification_failed", "could not verify payment with the gateway", http.StatusBadGateway))
			return
		}
		signal.Valid = result.Valid
		signal.TransactionID = result.TransactionID
		signal.VerifiedOrderID = result.OrderID
		signal.VerifiedAmount = result.Amount
	}

	outcome, err := h.checkout.CompletePayment(ctx, signal)
	if err != nil {
		// A repeated notification for an already-settled order is expected;
		// acknowledging it stops the gateway's retry loop.
		if errors.Is(err, services.ErrOrderInvalidState) || errors.Is(err, services.ErrCheckoutWrongStage) {
			h.logger(ctx, "webhooks.sslcommerz.duplicate", map[string]any{"orderId": orderID})
			writeJSONResponse(w, http.StatusOK, map[string]any{"status": "acknowledged"})
			return
		}
		// A mismatched verification will never settle this order no matter
		// how often the gateway retries, so acknowledge and record the
		// rejection instead of surfacing an error.
		if errors.Is(err, services.ErrOrderPaymentMismatch) {
			h.logger(ctx, "webhooks.sslcommerz.rejected", map[string]any{"orderId": orderID, "error": err.Error()})
			writeJSONResponse(w, http.StatusOK, map[string]any{"status": "rejected"})
			return
		}
		h.logger(ctx, "webhooks.sslcommerz.apply_failed", map[string]any{
			"orderId": orderID,
			"error":   err.Error(),
		})
		writeCheckoutError(ctx, w, err)
		return
	}

	h.logger(ctx, "webhooks.sslcommerz.applied", map[string]any{
		"orderId": outcome.OrderID,
		"stage":   string(outcome.Stage),
		"valid":   signal.Valid,
	})
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"status": "applied",
		"stage":  string(outcome.Stage),
	})
}

// walletMethod extracts the wallet name from SSLCommerz card_type values such
// as "BKASH-BKash". Unknown values fall through to the manager's default route.
func walletMethod(cardType string) string {
	cardType = strings.ToLower(strings.TrimSpace(cardType))
	if idx := strings.Index(cardType, "-"); idx > 0 {
		return cardType[:idx]
	}
	return cardType
}
