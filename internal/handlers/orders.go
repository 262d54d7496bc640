package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/attaleem/api/internal/platform/auth"
	"github.com/attaleem/api/internal/platform/httpx"
	"github.com/attaleem/api/internal/services"

	domain "github.com/attaleem/api/internal/domain"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

// OrderHandlers exposes the authenticated order history for the current user.
type OrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewOrderHandlers constructs handlers enforcing Firebase authentication before
// invoking the order service.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *OrderHandlers {
	return &OrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	page, err := parseListPagination(r, defaultOrderPageSize, maxOrderPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	query, err := parseOrderListQuery(r, page)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}
	// Non-admin listings are always scoped to the caller by the service; the
	// explicit filter keeps the intent visible.
	query.UserID = identity.UID

	result, err := h.orders.List(ctx, actorFromIdentity(identity), query)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderListResponse(result))
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	if orderID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "order id is required", http.StatusBadRequest))
		return
	}

	order, err := h.orders.Get(ctx, actorFromIdentity(identity), orderID)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return nil, false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, false
	}
	return identity, true
}

type orderListResponse struct {
	Orders        []orderPayload `json:"orders"`
	NextPageToken string         `json:"next_page_token,omitempty"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type orderPayload struct {
	ID              string                 `json:"id"`
	OrderNumber     string                 `json:"order_number"`
	UserID          string                 `json:"user_id"`
	BuyerName       string                 `json:"buyer_name,omitempty"`
	BuyerEmail      string                 `json:"buyer_email,omitempty"`
	Items           []orderItemPayload     `json:"items"`
	DeliveryAddress string                 `json:"delivery_address,omitempty"`
	DeliveryPhone   string                 `json:"delivery_phone,omitempty"`
	PaymentMethod   string                 `json:"payment_method,omitempty"`
	Currency        string                 `json:"currency"`
	Amount          int64                  `json:"amount"`
	BundlePrice     *int64                 `json:"bundle_price,omitempty"`
	Status          string                 `json:"status"`
	PaymentStatus   string                 `json:"payment_status"`
	TransactionID   string                 `json:"transaction_id,omitempty"`
	Tracking        []orderTrackingPayload `json:"tracking"`
	CreatedAt       string                 `json:"created_at,omitempty"`
	UpdatedAt       string                 `json:"updated_at,omitempty"`
	PaidAt          string                 `json:"paid_at,omitempty"`
}

type orderItemPayload struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Total     int64  `json:"total"`
}

type orderTrackingPayload struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func buildOrderListResponse(page domain.CursorPage[domain.Order]) orderListResponse {
	payload := orderListResponse{
		Orders:        make([]orderPayload, 0, len(page.Items)),
		NextPageToken: page.NextPageToken,
	}
	for _, order := range page.Items {
		payload.Orders = append(payload.Orders, buildOrderPayload(order))
	}
	return payload
}

func buildOrderPayload(order domain.Order) orderPayload {
	payload := orderPayload{
		ID:              order.ID,
		OrderNumber:     order.OrderNumber,
		UserID:          order.UserID,
		BuyerName:       order.BuyerName,
		BuyerEmail:      order.BuyerEmail,
		Items:           make([]orderItemPayload, 0, len(order.Items)),
		DeliveryAddress: order.DeliveryAddress,
		DeliveryPhone:   order.DeliveryPhone,
		PaymentMethod:   order.PaymentMethod,
		Currency:        order.Currency,
		Amount:          order.Amount,
		BundlePrice:     order.BundlePrice,
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		TransactionID:   order.TransactionID,
		Tracking:        make([]orderTrackingPayload, 0, len(order.Tracking)),
		CreatedAt:       formatTime(order.CreatedAt),
		UpdatedAt:       formatTime(order.UpdatedAt),
		PaidAt:          formatTimePointer(order.PaidAt),
	}
	for _, item := range order.Items {
		payload.Items = append(payload.Items, orderItemPayload{
			BookID:    item.BookID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		})
	}
	for _, entry := range order.Tracking {
		payload.Tracking = append(payload.Tracking, orderTrackingPayload{
			Status:    string(entry.Status),
			Message:   entry.Message,
			Timestamp: formatTime(entry.Timestamp),
		})
	}
	return payload
}

func writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", validation.Message, http.StatusBadRequest).
			WithDetails(map[string]any{"field": validation.Field}))
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "insufficient permissions for order", http.StatusForbidden))
	case errors.Is(err, services.ErrOrderInvalidState):
		httpx.WriteError(ctx, w, httpx.NewError("order_invalid_state", err.Error(), http.StatusConflict))
	case errors.Is(err, services.ErrOrderConflict):
		httpx.WriteError(ctx, w, httpx.NewError("order_conflict", "order was modified concurrently; retry", http.StatusConflict))
	case errors.Is(err, services.ErrOrderConfirmationRequired):
		httpx.WriteError(ctx, w, httpx.NewError("confirmation_required", "explicit confirmation is required", http.StatusConflict))
	case errors.Is(err, services.ErrOrderUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("order_unavailable", "order service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_error", "failed to process order request", http.StatusInternalServerError))
	}
}
