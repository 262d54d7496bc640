package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/attaleem/api/internal/payments"
	"github.com/attaleem/api/internal/platform/auth"
	"github.com/attaleem/api/internal/platform/httpx"
	"github.com/attaleem/api/internal/services"

	domain "github.com/attaleem/api/internal/domain"
)

const maxCheckoutBodySize = 8 * 1024

// PaymentVerifier validates one gateway completion callback server-to-server.
type PaymentVerifier interface {
	Verify(ctx context.Context, method string, req payments.VerifyRequest) (payments.VerificationResult, error)
}

// CheckoutHandlers drives the checkout flow for the authenticated user.
type CheckoutHandlers struct {
	authn    *auth.Authenticator
	checkout services.CheckoutService
	verifier PaymentVerifier
}

// NewCheckoutHandlers constructs checkout handlers guarded by Firebase authentication.
func NewCheckoutHandlers(authn *auth.Authenticator, checkout services.CheckoutService, verifier PaymentVerifier) *CheckoutHandlers {
	return &CheckoutHandlers{
		authn:    authn,
		checkout: checkout,
		verifier: verifier,
	}
}

// Routes registers checkout endpoints under the provided router.
func (h *CheckoutHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/details", h.submitDetails)
	r.Post("/payment", h.selectPayment)
	r.Post("/confirm", h.confirmPayment)
	r.Delete("/", h.abandon)
}

type checkoutDetailsRequest struct {
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

func (h *CheckoutHandlers) submitDetails(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req checkoutDetailsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	state, err := h.checkout.SubmitDetails(ctx, services.SubmitDetailsCommand{
		UserID:  identity.UID,
		Address: req.Address,
		Phone:   req.Phone,
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, checkoutStateResponse{Checkout: buildCheckoutPayload(state)})
}

type checkoutPaymentRequest struct {
	Method string `json:"method"`
}

type checkoutRedirectResponse struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
	Provider    string `json:"provider"`
	Amount      int64  `json:"amount"`
}

func (h *CheckoutHandlers) selectPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req checkoutPaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	redirect, err := h.checkout.SelectPayment(ctx, services.SelectPaymentCommand{
		Actor:  actorFromIdentity(identity),
		UserID: identity.UID,
		Method: req.Method,
	})
	if err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, checkoutRedirectResponse{
		OrderID:     redirect.OrderID,
		OrderNumber: redirect.OrderNumber,
		SessionID:   redirect.SessionID,
		RedirectURL: redirect.RedirectURL,
		Provider:    redirect.Provider,
		Amount:      redirect.Amount,
	})
}

type checkoutConfirmRequest struct {
	OrderID      string `json:"order_id"`
	SessionID    string `json:"session_id"`
	Method       string `json:"method"`
	ValidationID string `json:"val_id"`
	Status       string `json:"status"`
}

type checkoutConfirmResponse struct {
	Stage   string `json:"stage"`
	OrderID string `json:"order_id,omitempty"`
}

// confirmPayment handles the client's return from the gateway page. The
// gateway verdict in the request body is forgeable, so the outcome only counts
// after the server-to-server validation call.
func (h *CheckoutHandlers) confirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCheckoutBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req checkoutConfirmRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	signal := services.PaymentSignal{
		UserID:    identity.UID,
		SessionID: strings.TrimSpace(req.SessionID),
		OrderID:   strings.TrimSpace(req.OrderID),
	}

	if claimsSuccess(req.Status) {
		validationID := strings.TrimSpace(req.ValidationID)
		if validationID == "" {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "val_id is required for a successful payment", http.StatusBadRequest))
			return
		}
		if h.verifier == nil {
			httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "payment verification unavailable", http.StatusServiceUnavailable))
			return
		}
		result, err := h.verifier.Verify(ctx, strings.TrimSpace(req.Method), payments.VerifyRequest{
			SessionID:    signal.SessionID,
			ValidationID: validationID,
			OrderID:      signal.OrderID,
		})
		if err != nil {
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
		writeCheckoutError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, checkoutConfirmResponse{
		Stage:   string(outcome.Stage),
		OrderID: outcome.OrderID,
	})
}

func (h *CheckoutHandlers) abandon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	if err := h.checkout.Abandon(ctx, identity.UID); err != nil {
		writeCheckoutError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CheckoutHandlers) requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	if h.checkout == nil {
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

func claimsSuccess(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "VALID", "VALIDATED", "SUCCESS":
		return true
	default:
		return false
	}
}

type checkoutStateResponse struct {
	Checkout checkoutPayload `json:"checkout"`
}

type checkoutPayload struct {
	Stage         string `json:"stage"`
	Address       string `json:"address,omitempty"`
	Phone         string `json:"phone,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	OrderID       string `json:"order_id,omitempty"`
	SessionID     string `json:"session_id,omitempty"`
	UpdatedAt     string `json:"updated_at,omitempty"`
}

func buildCheckoutPayload(state domain.CheckoutState) checkoutPayload {
	return checkoutPayload{
		Stage:         string(state.Stage),
		Address:       state.Delivery.Address,
		Phone:         state.Delivery.Phone,
		PaymentMethod: state.PaymentMethod,
		OrderID:       state.OrderID,
		SessionID:     state.SessionID,
		UpdatedAt:     formatTime(state.UpdatedAt),
	}
}

func writeCheckoutError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", validation.Message, http.StatusBadRequest).
			WithDetails(map[string]any{"field": validation.Field}))
	case errors.Is(err, services.ErrCheckoutInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCheckoutEmptyCart):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart is empty", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutWrongStage):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_wrong_stage", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutNoSession):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_no_session", "no payment session for this checkout", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutSessionMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_session_mismatch", "signal references another payment session", http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutUnsupportedMethod):
		httpx.WriteError(ctx, w, httpx.NewError("unsupported_payment_method", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("cart_conflict", "cart has been modified; refresh and retry", http.StatusConflict))
	case errors.Is(err, services.ErrOrderPaymentMismatch):
		httpx.WriteError(ctx, w, httpx.NewError("payment_verification_mismatch", "verified payment does not match this order", http.StatusConflict))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrCheckoutUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("checkout_unavailable", "checkout service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("checkout_error", "failed to process checkout request", http.StatusInternalServerError))
	}
}
