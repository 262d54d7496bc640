package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/attaleem/api/internal/services"

	domain "github.com/attaleem/api/internal/domain"
)

func newCartRouter(carts services.CartService) chi.Router {
	handlers := NewCartHandlers(nil, carts)
	r := chi.NewRouter()
	r.Route("/cart", handlers.Routes)
	return r
}

func testCartView() services.CartView {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return services.CartView{
		Cart: domain.Cart{
			ID:     "user-1",
			UserID: "user-1",
			Lines: []domain.CartLine{
				{BookID: "book_1", Title: "Tafsir Vol 1", UnitPrice: 450, Quantity: 2, AddedAt: now},
			},
			UpdatedAt: now,
		},
		Quote:    domain.BundleQuote{Subtotal: 900, Charged: 900},
		NonEmpty: true,
	}
}

func TestCartHandlersViewRequiresAuth(t *testing.T) {
	router := newCartRouter(&stubCartService{view: testCartView()})

	req := httptest.NewRequest(http.MethodGet, "/cart/", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestCartHandlersView(t *testing.T) {
	router := newCartRouter(&stubCartService{view: testCartView()})

	req := withTestIdentity(httptest.NewRequest(http.MethodGet, "/cart/", nil), "user-1")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body cartResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Cart.UserID != "user-1" {
		t.Fatalf("expected user-1, got %s", body.Cart.UserID)
	}
	if len(body.Cart.Lines) != 1 || body.Cart.Lines[0].LineTotal != 900 {
		t.Fatalf("unexpected lines %#v", body.Cart.Lines)
	}
	if body.Cart.Quote.Charged != 900 {
		t.Fatalf("expected charged 900, got %d", body.Cart.Quote.Charged)
	}
}

func TestCartHandlersAddValidatesBody(t *testing.T) {
	router := newCartRouter(&stubCartService{view: testCartView()})

	req := withTestIdentity(httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"book_id":""}`)), "user-1")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestCartHandlersAdd(t *testing.T) {
	router := newCartRouter(&stubCartService{view: testCartView()})

	req := withTestIdentity(httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"book_id":"book_1"}`)), "user-1")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestCartHandlersDecrementRequiresConfirmation(t *testing.T) {
	router := newCartRouter(&stubCartService{err: services.ErrCartConfirmRemoval})

	req := withTestIdentity(httptest.NewRequest(http.MethodPost, "/cart/items/book_1/decrement", nil), "user-1")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["error"] != "removal_confirmation_required" {
		t.Fatalf("expected removal_confirmation_required, got %v", body["error"])
	}
}

func TestCartHandlersLineNotFound(t *testing.T) {
	router := newCartRouter(&stubCartService{err: services.ErrCartLineNotFound})

	req := withTestIdentity(httptest.NewRequest(http.MethodPost, "/cart/items/book_9/increment", nil), "user-1")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestCartHandlersClear(t *testing.T) {
	router := newCartRouter(&stubCartService{})

	req := withTestIdentity(httptest.NewRequest(http.MethodDelete, "/cart/", nil), "user-1")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
}
