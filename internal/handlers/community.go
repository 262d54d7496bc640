package handlers

import (
	"context"
	"encoding/json"
	"errors"
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

const (
	maxCommunityBodySize     = 64 * 1024
	defaultCommunityPageSize = 20
	maxCommunityPageSize     = 100

	defaultSubmitLimit  = 10
	defaultSubmitWindow = time.Hour
)

// CommunityHandlers exposes the peripheral content boards: institutions,
// videos, questions, masalah, events and reviews. Reads are public; writes
// require authentication, and moderation is enforced by the service.
type CommunityHandlers struct {
	authn      *auth.Authenticator
	content    services.ContentService
	engagement services.EngagementService
	limiter    rateLimiter
}

// CommunityOption customises CommunityHandlers construction.
type CommunityOption func(*CommunityHandlers)

// WithSubmitRateLimiter overrides the per-user submission limiter.
func WithSubmitRateLimiter(limiter rateLimiter) CommunityOption {
	return func(h *CommunityHandlers) {
		h.limiter = limiter
	}
}

// NewCommunityHandlers constructs handlers over the content and engagement services.
func NewCommunityHandlers(authn *auth.Authenticator, content services.ContentService, engagement services.EngagementService, opts ...CommunityOption) *CommunityHandlers {
	h := &CommunityHandlers{
		authn:      authn,
		content:    content,
		engagement: engagement,
		limiter:    newWindowRateLimiter(defaultSubmitLimit, defaultSubmitWindow, time.Now),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes wires the /community endpoints onto the provided router.
func (h *CommunityHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/{kind}", func(group chi.Router) {
		group.Get("/", h.listEntries)
		group.Get("/{entryID}", h.getEntry)

		group.Group(func(authed chi.Router) {
			if h.authn != nil {
				authed.Use(h.authn.RequireFirebaseAuth())
			}
			authed.Post("/", h.submitEntry)
			authed.Delete("/{entryID}", h.deleteEntry)
			authed.Post("/{entryID}/engagements/{field}", h.toggleEngagement)
			authed.Post("/{entryID}/moderate", h.moderateEntry)
			authed.Post("/{entryID}/answer", h.answerQuestion)
		})
	})
}

// AdminRoutes wires the moderation queue listing under the admin group. The
// public listing never exposes pending or rejected entries, so moderators and
// admins get a separate authenticated view.
func (h *CommunityHandlers) AdminRoutes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/community/{kind}", func(group chi.Router) {
		if h.authn != nil {
			group.Use(h.authn.RequireFirebaseAuth(auth.RoleAdmin, auth.RoleModerator))
		}
		group.Get("/", h.listEntries)
	})
}

func (h *CommunityHandlers) listEntries(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		httpx.WriteError(ctx, w, httpx.NewError("content_unavailable", "content service unavailable", http.StatusServiceUnavailable))
		return
	}

	kind, err := parseCommunityKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	page, err := parseListPagination(r, defaultCommunityPageSize, maxCommunityPageSize)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	query := services.ListEntriesQuery{
		Kind:       kind,
		OwnerID:    strings.TrimSpace(r.URL.Query().Get("ownerId")),
		Search:     strings.TrimSpace(r.URL.Query().Get("q")),
		Pagination: page,
	}
	// Anonymous readers carry a zero actor and only ever see approved content.
	if identity, ok := auth.IdentityFromContext(ctx); ok && identity != nil {
		query.Actor = actorFromIdentity(identity)
	}
	for _, raw := range splitCommaList(r.URL.Query().Get("status")) {
		status, err := parseModerationStatus(raw)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		query.Status = append(query.Status, status)
	}

	result, err := h.content.List(ctx, query)
	if err != nil {
		writeContentError(ctx, w, err)
		return
	}

	payload := communityListResponse{
		Entries:       make([]communityEntryPayload, 0, len(result.Items)),
		NextPageToken: result.NextPageToken,
	}
	for _, entry := range result.Items {
		payload.Entries = append(payload.Entries, buildCommunityEntryPayload(entry))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

func (h *CommunityHandlers) getEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.content == nil {
		httpx.WriteError(ctx, w, httpx.NewError("content_unavailable", "content service unavailable", http.StatusServiceUnavailable))
		return
	}

	kind, err := parseCommunityKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	entry, err := h.content.Get(ctx, kind, strings.TrimSpace(chi.URLParam(r, "entryID")))
	if err != nil {
		writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, communityEntryResponse{Entry: buildCommunityEntryPayload(entry)})
}

type submitEntryRequest struct {
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Fields map[string]any `json:"fields"`
}

func (h *CommunityHandlers) submitEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, kind, ok := h.requireAuthedKind(ctx, w, r)
	if !ok {
		return
	}

	if h.limiter != nil && !h.limiter.Allow(identity.UID) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many submissions; try again later", http.StatusTooManyRequests))
		return
	}

	body, err := readLimitedBody(r, maxCommunityBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req submitEntryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	entry, err := h.content.Submit(ctx, services.SubmitEntryCommand{
		Actor:  actorFromIdentity(identity),
		Kind:   kind,
		Title:  req.Title,
		Body:   req.Body,
		Fields: req.Fields,
	})
	if err != nil {
		writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, communityEntryResponse{Entry: buildCommunityEntryPayload(entry)})
}

func (h *CommunityHandlers) deleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, kind, ok := h.requireAuthedKind(ctx, w, r)
	if !ok {
		return
	}

	err := h.content.Delete(ctx, services.DeleteEntryCommand{
		Actor:   actorFromIdentity(identity),
		Kind:    kind,
		EntryID: strings.TrimSpace(chi.URLParam(r, "entryID")),
	})
	if err != nil {
		writeContentError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type toggleEngagementResponse struct {
	Member bool `json:"member"`
	Count  int  `json:"count"`
}

func (h *CommunityHandlers) toggleEngagement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, kind, ok := h.requireAuthedKind(ctx, w, r)
	if !ok {
		return
	}
	if h.engagement == nil {
		httpx.WriteError(ctx, w, httpx.NewError("content_unavailable", "engagement service unavailable", http.StatusServiceUnavailable))
		return
	}

	result, err := h.engagement.Toggle(ctx, services.ToggleEngagementCommand{
		Actor:   actorFromIdentity(identity),
		Kind:    kind,
		EntryID: strings.TrimSpace(chi.URLParam(r, "entryID")),
		Field:   domain.EngagementKind(strings.ToLower(strings.TrimSpace(chi.URLParam(r, "field")))),
	})
	if err != nil {
		writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, toggleEngagementResponse{Member: result.Member, Count: result.Count})
}

type moderateEntryRequest struct {
	Status string `json:"status"`
}

func (h *CommunityHandlers) moderateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, kind, ok := h.requireAuthedKind(ctx, w, r)
	if !ok {
		return
	}

	body, err := readLimitedBody(r, maxCommunityBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req moderateEntryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	status, err := parseModerationStatus(req.Status)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	entry, err := h.content.Moderate(ctx, services.ModerateEntryCommand{
		Actor:   actorFromIdentity(identity),
		Kind:    kind,
		EntryID: strings.TrimSpace(chi.URLParam(r, "entryID")),
		Status:  status,
	})
	if err != nil {
		writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, communityEntryResponse{Entry: buildCommunityEntryPayload(entry)})
}

type answerQuestionRequest struct {
	Answer string `json:"answer"`
}

func (h *CommunityHandlers) answerQuestion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, kind, ok := h.requireAuthedKind(ctx, w, r)
	if !ok {
		return
	}
	if kind != domain.KindQuestion {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "only questions can be answered", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxCommunityBodySize)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req answerQuestionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	entry, err := h.content.Answer(ctx, services.AnswerQuestionCommand{
		Actor:   actorFromIdentity(identity),
		EntryID: strings.TrimSpace(chi.URLParam(r, "entryID")),
		Answer:  req.Answer,
	})
	if err != nil {
		writeContentError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, communityEntryResponse{Entry: buildCommunityEntryPayload(entry)})
}

func (h *CommunityHandlers) requireAuthedKind(ctx context.Context, w http.ResponseWriter, r *http.Request) (*auth.Identity, domain.CommunityKind, bool) {
	if h.content == nil {
		httpx.WriteError(ctx, w, httpx.NewError("content_unavailable", "content service unavailable", http.StatusServiceUnavailable))
		return nil, "", false
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return nil, "", false
	}
	kind, err := parseCommunityKind(chi.URLParam(r, "kind"))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return nil, "", false
	}
	return identity, kind, true
}

type communityListResponse struct {
	Entries       []communityEntryPayload `json:"entries"`
	NextPageToken string                  `json:"next_page_token,omitempty"`
}

type communityEntryResponse struct {
	Entry communityEntryPayload `json:"entry"`
}

type communityEntryPayload struct {
	ID         string         `json:"id"`
	Kind       string         `json:"kind"`
	OwnerID    string         `json:"owner_id"`
	OwnerName  string         `json:"owner_name,omitempty"`
	Title      string         `json:"title"`
	Body       string         `json:"body,omitempty"`
	Answer     string         `json:"answer,omitempty"`
	Status     string         `json:"status"`
	Fields     map[string]any `json:"fields,omitempty"`
	Likes      int            `json:"likes"`
	Bookmarks  int            `json:"bookmarks"`
	Votes      int            `json:"votes"`
	Answered   bool           `json:"answered"`
	AnsweredAt string         `json:"answered_at,omitempty"`
	CreatedAt  string         `json:"created_at,omitempty"`
	UpdatedAt  string         `json:"updated_at,omitempty"`
}

// buildCommunityEntryPayload exposes engagement counts only; the member id
// sets stay server-side.
func buildCommunityEntryPayload(entry domain.CommunityEntry) communityEntryPayload {
	return communityEntryPayload{
		ID:         entry.ID,
		Kind:       string(entry.Kind),
		OwnerID:    entry.OwnerID,
		OwnerName:  entry.OwnerName,
		Title:      entry.Title,
		Body:       entry.Body,
		Answer:     entry.Answer,
		Status:     string(entry.Status),
		Fields:     entry.Fields,
		Likes:      len(entry.Likes),
		Bookmarks:  len(entry.Bookmarks),
		Votes:      len(entry.Votes),
		Answered:   entry.Answered,
		AnsweredAt: formatTimePointer(entry.AnsweredAt),
		CreatedAt:  formatTime(entry.CreatedAt),
		UpdatedAt:  formatTime(entry.UpdatedAt),
	}
}

func parseCommunityKind(raw string) (domain.CommunityKind, error) {
	kind := domain.CommunityKind(strings.ToLower(strings.TrimSpace(raw)))
	switch kind {
	case domain.KindInstitution, domain.KindVideo, domain.KindQuestion,
		domain.KindMasalah, domain.KindEvent, domain.KindReview:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown community kind %q", raw)
	}
}

func parseModerationStatus(raw string) (domain.ModerationStatus, error) {
	status := domain.ModerationStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case domain.ModerationPending, domain.ModerationApproved, domain.ModerationRejected:
		return status, nil
	default:
		return "", fmt.Errorf("unknown moderation status %q", raw)
	}
}

func writeContentError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, services.ErrContentInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrContentNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("entry_not_found", "entry not found", http.StatusNotFound))
	case errors.Is(err, services.ErrContentForbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", "insufficient permissions for entry", http.StatusForbidden))
	case errors.Is(err, services.ErrContentUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("content_unavailable", "content service unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("content_error", "failed to process content request", http.StatusInternalServerError))
	}
}
