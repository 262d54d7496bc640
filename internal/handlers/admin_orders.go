package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/attaleem/api/internal/platform/auth"
	"github.com/attaleem/api/internal/platform/httpx"
	"github.com/attaleem/api/internal/services"

	domain "github.com/attaleem/api/internal/domain"
)

const maxAdminOrderBodySize = 64 * 1024

// AdminOrderHandlers exposes the admin order console: listing across all
// users, state transitions, payment corrections, bulk actions and deletion.
type AdminOrderHandlers struct {
	authn  *auth.Authenticator
	orders services.OrderService
}

// NewAdminOrderHandlers constructs admin order handlers guarded by the admin role.
func NewAdminOrderHandlers(authn *auth.Authenticator, orders services.OrderService) *AdminOrderHandlers {
	return &AdminOrderHandlers{
		authn:  authn,
		orders: orders,
	}
}

// Routes wires the /admin/orders endpoints onto the provided router.
func (h *AdminOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/orders", func(group chi.Router) {
		if h.authn != nil {
			group.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
		}
		group.Get("/", h.listOrders)
		group.Post("/bulk", h.bulkOrders)
		group.Get("/{orderID}", h.getOrder)
		group.Post("/{orderID}/transition", h.transitionOrder)
		group.Post("/{orderID}/payment", h.recordPayment)
		group.Delete("/{orderID}", h.deleteOrder)
	})
}

func (h *AdminOrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
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
	query.UserID = strings.TrimSpace(r.URL.Query().Get("userId"))

	result, err := h.orders.List(ctx, actorFromIdentity(identity), query)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, buildOrderListResponse(result))
}

func (h *AdminOrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
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

type transitionOrderRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *AdminOrderHandlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	body, err := readLimitedBody(r, maxAdminOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req transitionOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	target, err := parseOrderStatus(req.Status)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	order, err := h.orders.Transition(ctx, services.TransitionOrderCommand{
		Actor:   actorFromIdentity(identity),
		OrderID: orderID,
		Target:  target,
		Message: strings.TrimSpace(req.Message),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type recordPaymentRequest struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Message       string `json:"message"`
}

func (h *AdminOrderHandlers) recordPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	body, err := readLimitedBody(r, maxAdminOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req recordPaymentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	target, err := parsePaymentStatus(req.Status)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	order, err := h.orders.RecordPayment(ctx, services.RecordPaymentCommand{
		OrderID:       orderID,
		TransactionID: strings.TrimSpace(req.TransactionID),
		Target:        target,
		Message:       strings.TrimSpace(req.Message),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

type bulkOrderRequest struct {
	OrderIDs []string `json:"order_ids"`
	Action   string   `json:"action"`
	Message  string   `json:"message"`
}

type bulkOrderResponse struct {
	Applied []string             `json:"applied"`
	Failed  []bulkFailurePayload `json:"failed"`
}

type bulkFailurePayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

func (h *AdminOrderHandlers) bulkOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxAdminOrderBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req bulkOrderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	result, err := h.orders.Bulk(ctx, services.BulkOrderCommand{
		Actor:    actorFromIdentity(identity),
		OrderIDs: req.OrderIDs,
		Action:   services.BulkAction(strings.TrimSpace(req.Action)),
		Message:  strings.TrimSpace(req.Message),
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}

	payload := bulkOrderResponse{
		Applied: result.Applied,
		Failed:  make([]bulkFailurePayload, 0, len(result.Failed)),
	}
	if payload.Applied == nil {
		payload.Applied = []string{}
	}
	for _, failure := range result.Failed {
		payload.Failed = append(payload.Failed, bulkFailurePayload{
			OrderID: failure.OrderID,
			Reason:  failure.Reason,
		})
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *AdminOrderHandlers) deleteOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := h.requireIdentity(ctx, w)
	if !ok {
		return
	}

	orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
	confirmed := strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("confirm")), "true")

	err := h.orders.Delete(ctx, services.DeleteOrderCommand{
		Actor:     actorFromIdentity(identity),
		OrderID:   orderID,
		Confirmed: confirmed,
	})
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminOrderHandlers) requireIdentity(ctx context.Context, w http.ResponseWriter) (*auth.Identity, bool) {
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

// parseOrderListQuery reads the shared order listing filters from the query
// string: comma-separated status and paymentStatus lists plus an inclusive
// RFC3339 created-at window.
func parseOrderListQuery(r *http.Request, page domain.Pagination) (services.OrderListQuery, error) {
	query := services.OrderListQuery{Pagination: page}
	values := r.URL.Query()

	for _, raw := range splitCommaList(values.Get("status")) {
		status, err := parseOrderStatus(raw)
		if err != nil {
			return services.OrderListQuery{}, err
		}
		query.Status = append(query.Status, status)
	}
	for _, raw := range splitCommaList(values.Get("paymentStatus")) {
		status, err := parsePaymentStatus(raw)
		if err != nil {
			return services.OrderListQuery{}, err
		}
		query.PaymentStatus = append(query.PaymentStatus, status)
	}

	if raw := strings.TrimSpace(values.Get("from")); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return services.OrderListQuery{}, fmt.Errorf("from must be an RFC3339 timestamp")
		}
		query.DateRange.From = &from
	}
	if raw := strings.TrimSpace(values.Get("to")); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return services.OrderListQuery{}, fmt.Errorf("to must be an RFC3339 timestamp")
		}
		query.DateRange.To = &to
	}

	return query, nil
}

func splitCommaList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseOrderStatus(raw string) (domain.OrderStatus, error) {
	status := domain.OrderStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case domain.OrderStatusPending, domain.OrderStatusProcessing, domain.OrderStatusDelivery,
		domain.OrderStatusDelivered, domain.OrderStatusCompleted, domain.OrderStatusCancelled,
		domain.OrderStatusFailed:
		return status, nil
	default:
		return "", fmt.Errorf("unknown order status %q", raw)
	}
}

func parsePaymentStatus(raw string) (domain.PaymentStatus, error) {
	status := domain.PaymentStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case domain.PaymentUnpaid, domain.PaymentPaid, domain.PaymentFailed, domain.PaymentRefunded:
		return status, nil
	default:
		return "", fmt.Errorf("unknown payment status %q", raw)
	}
}
