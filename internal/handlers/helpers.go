package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/attaleem/api/internal/platform/auth"
	"github.com/attaleem/api/internal/platform/pagination"
	"github.com/attaleem/api/internal/services"

	domain "github.com/attaleem/api/internal/domain"
)

const defaultMaxBodySize = 64 * 1024

var (
	errBodyTooLarge = errors.New("request body too large")
	errEmptyBody    = errors.New("request body is required")
)

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	if limit <= 0 {
		limit = defaultMaxBodySize
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePointer(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// actorFromIdentity projects the verified identity into the explicit actor
// passed to services. The display name comes from the token's name claim when
// present.
func actorFromIdentity(identity *auth.Identity) services.Actor {
	if identity == nil {
		return services.Actor{}
	}
	actor := services.Actor{
		ID:        strings.TrimSpace(identity.UID),
		Email:     strings.TrimSpace(identity.Email),
		Admin:     identity.HasRole(auth.RoleAdmin),
		Moderator: identity.HasRole(auth.RoleModerator),
	}
	if token := identity.Token(); token != nil {
		if name, ok := token.Claims["name"].(string); ok {
			actor.Name = strings.TrimSpace(name)
		}
	}
	return actor
}

// parseListPagination validates pageSize and the opaque cursor token through
// the shared pagination rules; a malformed token is rejected here instead of
// surfacing as a repository error.
func parseListPagination(r *http.Request, defaultSize, maxSize int) (domain.Pagination, error) {
	params, err := pagination.Parse(r.URL.Query(), pagination.Options{
		DefaultPageSize: defaultSize,
		MaxPageSize:     maxSize,
	})
	if err != nil {
		return domain.Pagination{}, err
	}
	return domain.Pagination{PageSize: params.PageSize, PageToken: params.PageToken}, nil
}
