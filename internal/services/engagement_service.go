package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/attaleem/api/internal/domain"
	"github.com/attaleem/api/internal/repositories"
)

// EngagementServiceDeps wires the dependencies required by the engagement service.
type EngagementServiceDeps struct {
	Entries repositories.CommunityRepository
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type engagementService struct {
	entries repositories.CommunityRepository
	logger  func(context.Context, string, map[string]any)
}

// NewEngagementService constructs an EngagementService validating required dependencies.
func NewEngagementService(deps EngagementServiceDeps) (EngagementService, error) {
	if deps.Entries == nil {
		return nil, errors.New("engagement service: community repository is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &engagementService{entries: deps.Entries, logger: logger}, nil
}

// Toggle flips the actor's membership in one engagement set. The same call
// adds on absence and removes on presence, so repeated taps converge instead
// of double-counting.
func (s *engagementService) Toggle(ctx context.Context, cmd ToggleEngagementCommand) (ToggleResult, error) {
	if strings.TrimSpace(cmd.Actor.ID) == "" {
		return ToggleResult{}, fmt.Errorf("%w: actor is required", ErrContentInvalidInput)
	}
	entryID := strings.TrimSpace(cmd.EntryID)
	if entryID == "" {
		return ToggleResult{}, fmt.Errorf("%w: entry id is required", ErrContentInvalidInput)
	}
	switch cmd.Field {
	case domain.EngagementLikes, domain.EngagementBookmarks, domain.EngagementVotes:
	default:
		return ToggleResult{}, fmt.Errorf("%w: unknown engagement %q", ErrContentInvalidInput, cmd.Field)
	}

	member, count, err := s.entries.ToggleEngagement(ctx, cmd.Kind, entryID, cmd.Field, cmd.Actor.ID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return ToggleResult{}, fmt.Errorf("%w: %v", ErrContentNotFound, err)
		}
		return ToggleResult{}, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}

	s.logger(ctx, "content.engagement.toggled", map[string]any{
		"kind":    string(cmd.Kind),
		"entryId": entryID,
		"field":   string(cmd.Field),
		"member":  member,
	})
	return ToggleResult{Member: member, Count: count}, nil
}
