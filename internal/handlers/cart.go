package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/attaleem/api/internal/platform/auth"
	"github.com/attaleem/api/internal/platform/httpx"
	"github.com/attaleem/api/internal/services"
)

const maxCartBodySize = 8 * 1024

// CartHandlers exposes authenticated cart endpoints for the current user.
type CartHandlers struct {
	authn *auth.Authenticator
	carts services.CartService
}

// NewCartHandlers constructs handlers enforcing Firebase authentication before
// invoking the cart service.
func NewCartHandlers(authn *auth.Authenticator, carts services.CartService) *CartHandlers {
	return &CartHandlers{
		authn: authn,
		carts: carts,
	}
}

// Routes wires the /cart endpoints onto the provided router.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.viewCart)
	r.Delete("/", h.clearCart)
	r.Post("/items", h.addItem)
	r.Post("/items/{bookID}/increment", h.incrementItem)
	r.Post("/items/{bookID}/decrement", h.decrementItem)
	r.Post("/items/{bookID}/remove", h.confirmRemoveItem)
	r.Delete("/items/{bookID}", h.removeItem)
}

func (h *CartHandlers) viewCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	view, err := h.carts.View(ctx, identity.UID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartResponse(view))
}

func (h *CartHandlers) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	if err := h.carts.Clear(ctx, identity.UID); err != nil {
		writeCartError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addCartItemRequest struct {
	BookID string `json:"book_id"`
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCartBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req addCartItemRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}
	bookID := strings.TrimSpace(req.BookID)
	if bookID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "book_id is required", http.StatusBadRequest))
		return
	}

	view, err := h.carts.Add(ctx, identity.UID, bookID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartResponse(view))
}

func (h *CartHandlers) incrementItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, h.carts.Increment)
}

func (h *CartHandlers) decrementItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, h.carts.Decrement)
}

func (h *CartHandlers) confirmRemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, h.carts.ConfirmRemove)
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	h.mutateLine(w, r, h.carts.RemoveAll)
}

func (h *CartHandlers) mutateLine(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID, bookID string) (services.CartView, error)) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	bookID := strings.TrimSpace(chi.URLParam(r, "bookID"))
	if bookID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "book id is required", http.StatusBadRequest))
		return
	}

	view, err := fn(ctx, identity.UID, bookID)
	if err != nil {
		writeCartError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildCartResponse(view))
}

func (h *CartHandlers) requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	if h.carts == nil {
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

type cartResponse struct {
	Cart cartPayload `json:"cart"`
}

type cartPayload struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Lines      []cartLinePayload `json:"lines"`
	LinesCount int               `json:"lines_count"`
	NonEmpty   bool              `json:"non_empty"`
	Quote      cartQuotePayload  `json:"quote"`
	Checkout   *checkoutPayload  `json:"checkout,omitempty"`
	UpdatedAt  string            `json:"updated_at,omitempty"`
}

type cartLinePayload struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	LineTotal int64  `json:"line_total"`
	AddedAt   string `json:"added_at,omitempty"`
}

type cartQuotePayload struct {
	Subtotal   int64 `json:"subtotal"`
	Charged    int64 `json:"charged"`
	Savings    int64 `json:"savings"`
	FullBundle bool  `json:"full_bundle"`
}

func buildCartResponse(view services.CartView) cartResponse {
	cart := view.Cart
	payload := cartPayload{
		ID:         cart.ID,
		UserID:     cart.UserID,
		Lines:      make([]cartLinePayload, 0, len(cart.Lines)),
		LinesCount: len(cart.Lines),
		NonEmpty:   view.NonEmpty,
		Quote: cartQuotePayload{
			Subtotal:   view.Quote.Subtotal,
			Charged:    view.Quote.Charged,
			Savings:    view.Quote.Savings,
			FullBundle: view.Quote.FullBundle,
		},
		UpdatedAt: formatTime(cart.UpdatedAt),
	}
	for _, line := range cart.Lines {
		payload.Lines = append(payload.Lines, cartLinePayload{
			BookID:    line.BookID,
			Title:     line.Title,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			LineTotal: line.UnitPrice * int64(line.Quantity),
			AddedAt:   formatTime(line.AddedAt),
		})
	}
	if cart.Checkout != nil {
		checkout := buildCheckoutPayload(*cart.Checkout)
		payload.Checkout = &checkout
	}
	return cartResponse{Cart: payload}
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func writeCartError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrCartInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCartLineNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("cart_line_not_found", "book has no line in the cart", http.StatusNotFound))
	case errors.Is(err, services.ErrCartConfirmRemoval):
		httpx.WriteError(ctx, w, httpx.NewError("removal_confirmation_required", "removing the last copy requires confirmation", http.StatusConflict))
	case errors.Is(err, services.ErrCartBookUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("book_unavailable", "book is not available for purchase", http.StatusConflict))
	case errors.Is(err, services.ErrCartConflict):
		httpx.WriteError(ctx, w, httpx.NewError("cart_conflict", "cart has been modified; refresh and retry", http.StatusConflict))
	case errors.Is(err, services.ErrCartUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("cart_unavailable", "cart service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("cart_error", "failed to process cart request", http.StatusInternalServerError))
	}
}
