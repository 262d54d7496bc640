package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/attaleem/api/internal/platform/auth"
	"github.com/attaleem/api/internal/platform/httpx"
	"github.com/attaleem/api/internal/services"

	domain "github.com/attaleem/api/internal/domain"
)

const maxAdminBookBodySize = 64 * 1024

// AdminBookHandlers exposes the admin catalog console: drafts are listed
// alongside published titles, and all mutations flow through here.
type AdminBookHandlers struct {
	authn   *auth.Authenticator
	catalog services.CatalogService
}

// NewAdminBookHandlers constructs admin catalog handlers guarded by the admin role.
func NewAdminBookHandlers(authn *auth.Authenticator, catalog services.CatalogService) *AdminBookHandlers {
	return &AdminBookHandlers{
		authn:   authn,
		catalog: catalog,
	}
}

// Routes wires the /admin/books endpoints onto the provided router.
func (h *AdminBookHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/books", func(group chi.Router) {
		if h.authn != nil {
			group.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin))
		}
		group.Get("/", h.listBooks)
		group.Post("/", h.createBook)
		group.Put("/{bookID}", h.updateBook)
		group.Delete("/{bookID}", h.deleteBook)
	})
}

func (h *AdminBookHandlers) listBooks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}

	page, err := parseListPagination(r, defaultBookPageSize, maxBookPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	result, err := h.catalog.ListBooks(ctx, services.ListBooksQuery{
		Search:             strings.TrimSpace(r.URL.Query().Get("q")),
		Category:           strings.TrimSpace(r.URL.Query().Get("category")),
		IncludeUnpublished: true,
		Pagination:         page,
	})
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

type upsertBookRequest struct {
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	Price       int64    `json:"price"`
	CoverPath   string   `json:"cover_path"`
	Categories  []string `json:"categories"`
	Published   bool     `json:"published"`
}

func (h *AdminBookHandlers) createBook(w http.ResponseWriter, r *http.Request) {
	h.upsertBook(w, r, "")
}

func (h *AdminBookHandlers) updateBook(w http.ResponseWriter, r *http.Request) {
	bookID := strings.TrimSpace(chi.URLParam(r, "bookID"))
	if bookID == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "book id is required", http.StatusBadRequest))
		return
	}
	h.upsertBook(w, r, bookID)
}

func (h *AdminBookHandlers) upsertBook(w http.ResponseWriter, r *http.Request, bookID string) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	body, err := readLimitedBody(r, maxAdminBookBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req upsertBookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	book, err := h.catalog.UpsertBook(ctx, services.UpsertBookCommand{
		Actor: actorFromIdentity(identity),
		Book: domain.Book{
			ID:          bookID,
			Title:       req.Title,
			Author:      req.Author,
			Description: strings.TrimSpace(req.Description),
			Price:       req.Price,
			CoverPath:   strings.TrimSpace(req.CoverPath),
			Categories:  req.Categories,
			Published:   req.Published,
		},
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}

	status := http.StatusOK
	if bookID == "" {
		status = http.StatusCreated
	}
	writeJSONResponse(w, status, bookResponse{Book: buildBookPayload(book)})
}

func (h *AdminBookHandlers) deleteBook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if !h.ready(ctx, w) {
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	err := h.catalog.DeleteBook(ctx, services.DeleteBookCommand{
		Actor:  actorFromIdentity(identity),
		BookID: strings.TrimSpace(chi.URLParam(r, "bookID")),
	})
	if err != nil {
		writeCatalogError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminBookHandlers) ready(ctx context.Context, w http.ResponseWriter) bool {
	if h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "catalog service unavailable", http.StatusServiceUnavailable))
		return false
	}
	return true
}
