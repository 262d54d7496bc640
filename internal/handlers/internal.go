package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/attaleem/api/internal/platform/httpx"
	"github.com/attaleem/api/internal/services"
)

// InternalHandlers serves scheduler-triggered maintenance jobs. The caller is
// authenticated by OIDC middleware applied to the /internal group, not here.
type InternalHandlers struct {
	orders     services.OrderService
	pendingTTL time.Duration
	batchSize  int
}

// NewInternalHandlers constructs internal job handlers with sweep defaults.
func NewInternalHandlers(orders services.OrderService, pendingTTL time.Duration, batchSize int) *InternalHandlers {
	if pendingTTL <= 0 {
		pendingTTL = 48 * time.Hour
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &InternalHandlers{
		orders:     orders,
		pendingTTL: pendingTTL,
		batchSize:  batchSize,
	}
}

// Routes wires the /internal endpoints onto the provided router.
func (h *InternalHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/jobs/sweep-stale-orders", h.sweepStaleOrders)
}

func (h *InternalHandlers) sweepStaleOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_unavailable", "order service unavailable", http.StatusServiceUnavailable))
		return
	}

	retired, err := h.orders.SweepStalePending(ctx, h.pendingTTL, h.batchSize)
	if err != nil {
		writeOrderError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{"retired": retired})
}
