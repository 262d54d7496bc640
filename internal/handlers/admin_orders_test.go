package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/attaleem/api/internal/platform/auth"
	"github.com/attaleem/api/internal/services"

	domain "github.com/attaleem/api/internal/domain"
)

func newAdminOrderRouter(orders services.OrderService) chi.Router {
	handlers := NewAdminOrderHandlers(nil, orders)
	r := chi.NewRouter()
	r.Route("/admin", handlers.Routes)
	return r
}

func TestAdminOrderHandlersListFiltersByUser(t *testing.T) {
	orders := &stubOrderService{
		page: domain.CursorPage[domain.Order]{Items: []domain.Order{testOrder()}},
	}
	router := newAdminOrderRouter(orders)

	req := withTestIdentity(httptest.NewRequest(http.MethodGet, "/admin/orders/?userId=user-7&paymentStatus=unpaid", nil), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if orders.lastQuery.UserID != "user-7" {
		t.Fatalf("expected userId filter user-7, got %q", orders.lastQuery.UserID)
	}
	if len(orders.lastQuery.PaymentStatus) != 1 || orders.lastQuery.PaymentStatus[0] != domain.PaymentUnpaid {
		t.Fatalf("unexpected payment filter %v", orders.lastQuery.PaymentStatus)
	}
	if !orders.lastActor.Admin {
		t.Fatalf("expected admin actor, got %#v", orders.lastActor)
	}
}

func TestAdminOrderHandlersTransition(t *testing.T) {
	order := testOrder()
	order.Status = domain.OrderStatusProcessing
	router := newAdminOrderRouter(&stubOrderService{order: order})

	body := strings.NewReader(`{"status":"processing","message":"payment confirmed by phone"}`)
	req := withTestIdentity(httptest.NewRequest(http.MethodPost, "/admin/orders/order_1/transition", body), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Order.Status != string(domain.OrderStatusProcessing) {
		t.Fatalf("expected processing, got %s", resp.Order.Status)
	}
}

func TestAdminOrderHandlersTransitionRejectsUnknownStatus(t *testing.T) {
	router := newAdminOrderRouter(&stubOrderService{})

	body := strings.NewReader(`{"status":"shipped"}`)
	req := withTestIdentity(httptest.NewRequest(http.MethodPost, "/admin/orders/order_1/transition", body), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestAdminOrderHandlersTransitionInvalidState(t *testing.T) {
	router := newAdminOrderRouter(&stubOrderService{err: services.ErrOrderInvalidState})

	body := strings.NewReader(`{"status":"completed"}`)
	req := withTestIdentity(httptest.NewRequest(http.MethodPost, "/admin/orders/order_1/transition", body), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
}

func TestAdminOrderHandlersRecordPayment(t *testing.T) {
	order := testOrder()
	order.PaymentStatus = domain.PaymentPaid
	router := newAdminOrderRouter(&stubOrderService{order: order})

	body := strings.NewReader(`{"status":"paid","transaction_id":"TXN900","message":"bank transfer received"}`)
	req := withTestIdentity(httptest.NewRequest(http.MethodPost, "/admin/orders/order_1/payment", body), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp orderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Order.PaymentStatus != string(domain.PaymentPaid) {
		t.Fatalf("expected paid, got %s", resp.Order.PaymentStatus)
	}
}

func TestAdminOrderHandlersBulkPartialFailure(t *testing.T) {
	orders := &stubOrderService{
		bulk: services.BulkOrderResult{
			Applied: []string{"order_1"},
			Failed:  []services.BulkFailure{{OrderID: "order_2", Reason: "order not found"}},
		},
	}
	router := newAdminOrderRouter(orders)

	body := strings.NewReader(`{"order_ids":["order_1","order_2"],"action":"mark-processing"}`)
	req := withTestIdentity(httptest.NewRequest(http.MethodPost, "/admin/orders/bulk", body), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp bulkOrderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Applied) != 1 || resp.Applied[0] != "order_1" {
		t.Fatalf("unexpected applied %v", resp.Applied)
	}
	if len(resp.Failed) != 1 || resp.Failed[0].OrderID != "order_2" {
		t.Fatalf("unexpected failed %v", resp.Failed)
	}
}

func TestAdminOrderHandlersDeletePassesConfirmFlag(t *testing.T) {
	orders := &stubOrderService{}
	router := newAdminOrderRouter(orders)

	req := withTestIdentity(httptest.NewRequest(http.MethodDelete, "/admin/orders/order_1?confirm=true", nil), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if !orders.lastDelete.Confirmed || orders.lastDelete.OrderID != "order_1" {
		t.Fatalf("unexpected delete command %#v", orders.lastDelete)
	}
}

func TestAdminOrderHandlersDeleteRequiresConfirmation(t *testing.T) {
	orders := &stubOrderService{err: services.ErrOrderConfirmationRequired}
	router := newAdminOrderRouter(orders)

	req := withTestIdentity(httptest.NewRequest(http.MethodDelete, "/admin/orders/order_1", nil), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	if orders.lastDelete.Confirmed {
		t.Fatalf("confirm flag must default to false")
	}
}
