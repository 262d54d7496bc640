package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/attaleem/api/internal/services"

	domain "github.com/attaleem/api/internal/domain"
)

func newBookRouter(catalog *stubCatalogService) chi.Router {
	handlers := NewBookHandlers(catalog)
	r := chi.NewRouter()
	r.Route("/books", handlers.Routes)
	return r
}

func TestBookHandlersList(t *testing.T) {
	created := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	catalog := &stubCatalogService{
		page: services.BookPage{
			Items: []domain.Book{
				{ID: "book_1", Title: "Riyadh as-Salihin", Author: "Imam an-Nawawi", Price: 650, Published: true, CreatedAt: created},
				{ID: "book_2", Title: "Tafsir Vol 1", Author: "Ibn Kathir", Price: 450, Published: true, CreatedAt: created},
			},
			NextPageToken: "next",
			TotalCount:    12,
		},
	}
	router := newBookRouter(catalog)

	req := httptest.NewRequest(http.MethodGet, "/books/?q=tafsir&category=tafsir&pageSize=2", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var body bookListResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(body.Books) != 2 {
		t.Fatalf("expected 2 books, got %d", len(body.Books))
	}
	if body.NextPageToken != "next" {
		t.Fatalf("expected token next, got %s", body.NextPageToken)
	}
	if body.TotalCount != 12 {
		t.Fatalf("expected total 12, got %d", body.TotalCount)
	}

	if catalog.lastQuery.Search != "tafsir" {
		t.Fatalf("expected search tafsir, got %s", catalog.lastQuery.Search)
	}
	if catalog.lastQuery.IncludeUnpublished {
		t.Fatalf("public listing must not include unpublished titles")
	}
	if catalog.lastQuery.Pagination.PageSize != 2 {
		t.Fatalf("expected page size 2, got %d", catalog.lastQuery.Pagination.PageSize)
	}
}

func TestBookHandlersListRejectsBadPageSize(t *testing.T) {
	router := newBookRouter(&stubCatalogService{})

	req := httptest.NewRequest(http.MethodGet, "/books/?pageSize=abc", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestBookHandlersGet(t *testing.T) {
	catalog := &stubCatalogService{
		book: domain.Book{ID: "book_1", Title: "Riyadh as-Salihin", Price: 650, Published: true},
	}
	router := newBookRouter(catalog)

	req := httptest.NewRequest(http.MethodGet, "/books/book_1", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var body bookResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body.Book.ID != "book_1" || body.Book.Price != 650 {
		t.Fatalf("unexpected book payload %#v", body.Book)
	}
}

func TestBookHandlersGetNotFound(t *testing.T) {
	router := newBookRouter(&stubCatalogService{err: services.ErrCatalogNotFound})

	req := httptest.NewRequest(http.MethodGet, "/books/missing", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["error"] != "book_not_found" {
		t.Fatalf("expected book_not_found, got %v", body["error"])
	}
}
