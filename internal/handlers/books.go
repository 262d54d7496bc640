package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/attaleem/api/internal/platform/httpx"
	"github.com/attaleem/api/internal/services"

	domain "github.com/attaleem/api/internal/domain"
)

const (
	defaultBookPageSize = 20
	maxBookPageSize     = 100
)

// BookHandlers exposes the public catalog endpoints. Listing only ever shows
// published titles; unpublished drafts are an admin concern.
type BookHandlers struct {
	catalog services.CatalogService
}

// NewBookHandlers constructs handlers over the catalog service.
func NewBookHandlers(catalog services.CatalogService) *BookHandlers {
	return &BookHandlers{catalog: catalog}
}

// Routes wires the /books endpoints onto the provided router.
func (h *BookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/", h.listBooks)
	r.Get("/{bookID}", h.getBook)
}

func (h *BookHandlers) listBooks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	page, err := parseListPagination(r, defaultBookPageSize, maxBookPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	query := services.ListBooksQuery{
		Search:     strings.TrimSpace(r.URL.Query().Get("q")),
		Category:   strings.TrimSpace(r.URL.Query().Get("category")),
		Pagination: page,
	}

	result, err := h.catalog.ListBooks(ctx, query)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	payload := bookListResponse{
		Books:         make([]bookPayload, 0, len(result.Items)),
		NextPageToken: result.NextPageToken,
		TotalCount:    result.TotalCount,
	}
	for _, book := range result.Items {
		payload.Books = append(payload.Books, buildBookPayload(book))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *BookHandlers) getBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return
	}

	bookID := strings.TrimSpace(chi.URLParam(r, "bookID"))
	if bookID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "book id is required", http.StatusBadRequest))
		return
	}

	book, err := h.catalog.GetBook(ctx, bookID)
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, bookResponse{Book: buildBookPayload(book)})
}

type bookListResponse struct {
	Books         []bookPayload `json:"books"`
	NextPageToken string        `json:"next_page_token,omitempty"`
	TotalCount    int64         `json:"total_count"`
}

type bookResponse struct {
	Book bookPayload `json:"book"`
}

type bookPayload struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description,omitempty"`
	Price       int64    `json:"price"`
	CoverPath   string   `json:"cover_path,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Published   bool     `json:"published"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

func buildBookPayload(book domain.Book) bookPayload {
	return bookPayload{
		ID:          book.ID,
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
		Price:       book.Price,
		CoverPath:   book.CoverPath,
		Categories:  book.Categories,
		Published:   book.Published,
		CreatedAt:   formatTime(book.CreatedAt),
		UpdatedAt:   formatTime(book.UpdatedAt),
	}
}

func writeCatalogError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	var validation *services.ValidationError
	switch {
	case errors.As(err, &validation):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", validation.Message, http.StatusBadRequest).
			WithDetails(map[string]any{"field": validation.Field}))
	case errors.Is(err, services.ErrCatalogInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrCatalogNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("book_not_found", "book not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCatalogForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "insufficient permissions", http.StatusForbidden))
	case errors.Is(err, services.ErrCatalogUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("catalog_error", "failed to process catalog request", http.StatusInternalServerError))
	}
}
