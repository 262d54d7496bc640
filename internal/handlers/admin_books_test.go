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
)

func newAdminBookRouter(catalog *stubCatalogService) chi.Router {
	handlers := NewAdminBookHandlers(nil, catalog)
	r := chi.NewRouter()
	r.Route("/admin", handlers.Routes)
	return r
}

func TestAdminBookHandlersListIncludesUnpublished(t *testing.T) {
	catalog := &stubCatalogService{page: services.BookPage{TotalCount: 3}}
	router := newAdminBookRouter(catalog)

	req := withTestIdentity(httptest.NewRequest(http.MethodGet, "/admin/books/", nil), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !catalog.lastQuery.IncludeUnpublished {
		t.Fatalf("admin listing must include unpublished titles")
	}
}

func TestAdminBookHandlersCreate(t *testing.T) {
	router := newAdminBookRouter(&stubCatalogService{})

	body := strings.NewReader(`{"title":"Seerah Notes","author":"Author","price":500,"published":false}`)
	req := withTestIdentity(httptest.NewRequest(http.MethodPost, "/admin/books/", body), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp bookResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Book.ID == "" || resp.Book.Title != "Seerah Notes" {
		t.Fatalf("unexpected book %#v", resp.Book)
	}
}

func TestAdminBookHandlersUpdate(t *testing.T) {
	router := newAdminBookRouter(&stubCatalogService{})

	body := strings.NewReader(`{"title":"Seerah Notes","author":"Author","price":550,"published":true}`)
	req := withTestIdentity(httptest.NewRequest(http.MethodPut, "/admin/books/book_1", body), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp bookResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Book.ID != "book_1" || !resp.Book.Published {
		t.Fatalf("unexpected book %#v", resp.Book)
	}
}

func TestAdminBookHandlersCreateValidation(t *testing.T) {
	router := newAdminBookRouter(&stubCatalogService{
		err: &services.ValidationError{Field: "price", Message: "price must be positive"},
	})

	body := strings.NewReader(`{"title":"Seerah Notes","author":"Author","price":-5}`)
	req := withTestIdentity(httptest.NewRequest(http.MethodPost, "/admin/books/", body), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp["field"] != "price" {
		t.Fatalf("expected price field detail, got %v", resp["field"])
	}
}

func TestAdminBookHandlersDelete(t *testing.T) {
	router := newAdminBookRouter(&stubCatalogService{})

	req := withTestIdentity(httptest.NewRequest(http.MethodDelete, "/admin/books/book_1", nil), "admin-1", auth.RoleAdmin)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
}
