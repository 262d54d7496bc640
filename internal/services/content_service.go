package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/oklog/ulid/v2"

	domain "github.com/attaleem/api/internal/domain"
	"github.com/attaleem/api/internal/repositories"
)

var (
	// ErrContentInvalidInput signals the caller provided invalid data.
	ErrContentInvalidInput = errors.New("content: invalid input")
	// ErrContentNotFound indicates the entry could not be located.
	ErrContentNotFound = errors.New("content: not found")
	// ErrContentForbidden indicates the actor may not act on the entry.
	ErrContentForbidden = errors.New("content: forbidden")
	// ErrContentUnavailable indicates the content store is unreachable.
	ErrContentUnavailable = errors.New("content: unavailable")
)

var contentIDPrefixes = map[domain.CommunityKind]string{
	domain.KindInstitution: "inst_",
	domain.KindVideo:       "vid_",
	domain.KindQuestion:    "qna_",
	domain.KindMasalah:     "msl_",
	domain.KindEvent:       "evt_",
	domain.KindReview:      "rev_",
}

// ContentServiceDeps wires the dependencies required by the content service.
type ContentServiceDeps struct {
	Entries     repositories.CommunityRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type contentService struct {
	entries  repositories.CommunityRepository
	clock    func() time.Time
	newID    func() string
	logger   func(context.Context, string, map[string]any)
	titles   *bluemonday.Policy
	richText *bluemonday.Policy
}

// NewContentService constructs a ContentService validating required dependencies.
func NewContentService(deps ContentServiceDeps) (ContentService, error) {
	if deps.Entries == nil {
		return nil, errors.New("content service: community repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &contentService{
		entries:  deps.Entries,
		clock:    func() time.Time { return clock().UTC() },
		newID:    idGen,
		logger:   logger,
		titles:   bluemonday.StrictPolicy(),
		richText: bluemonday.UGCPolicy(),
	}, nil
}

// Submit creates a community entry in pending state. All text fields are
// sanitised before they are stored.
func (s *contentService) Submit(ctx context.Context, cmd SubmitEntryCommand) (domain.CommunityEntry, error) {
	prefix, ok := contentIDPrefixes[cmd.Kind]
	if !ok {
		return domain.CommunityEntry{}, fmt.Errorf("%w: unknown kind %q", ErrContentInvalidInput, cmd.Kind)
	}
	if strings.TrimSpace(cmd.Actor.ID) == "" {
		return domain.CommunityEntry{}, fmt.Errorf("%w: actor is required", ErrContentInvalidInput)
	}

	title := strings.TrimSpace(s.titles.Sanitize(cmd.Title))
	if title == "" {
		return domain.CommunityEntry{}, fmt.Errorf("%w: title is required", ErrContentInvalidInput)
	}
	body := strings.TrimSpace(s.richText.Sanitize(cmd.Body))

	now := s.clock()
	entry := domain.CommunityEntry{
		ID:        prefix + s.newID(),
		Kind:      cmd.Kind,
		OwnerID:   cmd.Actor.ID,
		OwnerName: strings.TrimSpace(cmd.Actor.Name),
		Title:     title,
		Body:      body,
		Status:    domain.ModerationPending,
		Fields:    cmd.Fields,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.entries.Insert(ctx, entry); err != nil {
		return domain.CommunityEntry{}, s.mapRepositoryError(err)
	}
	s.logger(ctx, "content.submitted", map[string]any{
		"kind":    string(cmd.Kind),
		"entryId": entry.ID,
		"owner":   entry.OwnerID,
	})
	return entry, nil
}

func (s *contentService) Get(ctx context.Context, kind domain.CommunityKind, entryID string) (domain.CommunityEntry, error) {
	entryID = strings.TrimSpace(entryID)
	if entryID == "" {
		return domain.CommunityEntry{}, fmt.Errorf("%w: entry id is required", ErrContentInvalidInput)
	}
	entry, err := s.entries.FindByID(ctx, kind, entryID)
	if err != nil {
		return domain.CommunityEntry{}, s.mapRepositoryError(err)
	}
	return entry, nil
}

// List returns community entries. Callers without moderation rights see
// approved content, plus their own submissions in any state when filtering by
// their own id.
func (s *contentService) List(ctx context.Context, query ListEntriesQuery) (domain.CursorPage[domain.CommunityEntry], error) {
	filter := repositories.CommunityListFilter{
		Kind:       query.Kind,
		OwnerID:    strings.TrimSpace(query.OwnerID),
		Status:     query.Status,
		Search:     strings.TrimSpace(query.Search),
		Pagination: query.Pagination,
	}
	if !canModerate(query.Actor) {
		ownOnly := filter.OwnerID != "" && filter.OwnerID == query.Actor.ID
		if !ownOnly {
			filter.Status = []domain.ModerationStatus{domain.ModerationApproved}
		}
	}
	page, err := s.entries.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[domain.CommunityEntry]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *contentService) Moderate(ctx context.Context, cmd ModerateEntryCommand) (domain.CommunityEntry, error) {
	if !canModerate(cmd.Actor) {
		return domain.CommunityEntry{}, ErrContentForbidden
	}
	if cmd.Status != domain.ModerationApproved && cmd.Status != domain.ModerationRejected {
		return domain.CommunityEntry{}, fmt.Errorf("%w: decision must be approved or rejected", ErrContentInvalidInput)
	}

	entry, err := s.entries.FindByID(ctx, cmd.Kind, strings.TrimSpace(cmd.EntryID))
	if err != nil {
		return domain.CommunityEntry{}, s.mapRepositoryError(err)
	}

	entry.Status = cmd.Status
	entry.UpdatedAt = s.clock()
	if err := s.entries.Update(ctx, entry); err != nil {
		return domain.CommunityEntry{}, s.mapRepositoryError(err)
	}
	s.logger(ctx, "content.moderated", map[string]any{
		"kind":    string(cmd.Kind),
		"entryId": entry.ID,
		"status":  string(cmd.Status),
		"actor":   cmd.Actor.ID,
	})
	return entry, nil
}

// Answer records an official answer on a question and publishes it.
func (s *contentService) Answer(ctx context.Context, cmd AnswerQuestionCommand) (domain.CommunityEntry, error) {
	if !canModerate(cmd.Actor) {
		return domain.CommunityEntry{}, ErrContentForbidden
	}
	answer := strings.TrimSpace(s.richText.Sanitize(cmd.Answer))
	if answer == "" {
		return domain.CommunityEntry{}, fmt.Errorf("%w: answer is required", ErrContentInvalidInput)
	}

	entry, err := s.entries.FindByID(ctx, domain.KindQuestion, strings.TrimSpace(cmd.EntryID))
	if err != nil {
		return domain.CommunityEntry{}, s.mapRepositoryError(err)
	}

	now := s.clock()
	entry.Answer = answer
	entry.Answered = true
	entry.AnsweredAt = &now
	entry.Status = domain.ModerationApproved
	entry.UpdatedAt = now
	if err := s.entries.Update(ctx, entry); err != nil {
		return domain.CommunityEntry{}, s.mapRepositoryError(err)
	}
	s.logger(ctx, "content.answered", map[string]any{
		"entryId": entry.ID,
		"actor":   cmd.Actor.ID,
	})
	return entry, nil
}

// Delete removes an entry. Owners may delete their own submissions; admins
// may delete any.
func (s *contentService) Delete(ctx context.Context, cmd DeleteEntryCommand) error {
	entryID := strings.TrimSpace(cmd.EntryID)
	if entryID == "" {
		return fmt.Errorf("%w: entry id is required", ErrContentInvalidInput)
	}

	entry, err := s.entries.FindByID(ctx, cmd.Kind, entryID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	if !cmd.Actor.Admin && entry.OwnerID != cmd.Actor.ID {
		return ErrContentForbidden
	}

	if err := s.entries.Delete(ctx, cmd.Kind, entryID); err != nil {
		return s.mapRepositoryError(err)
	}
	s.logger(ctx, "content.deleted", map[string]any{
		"kind":    string(cmd.Kind),
		"entryId": entryID,
		"actor":   cmd.Actor.ID,
	})
	return nil
}

// canModerate reports whether the actor may review submissions and publish
// answers. Admins moderate implicitly; deletion of arbitrary entries stays
// admin-only.
func canModerate(actor Actor) bool {
	return actor.Admin || actor.Moderator
}

func (s *contentService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrContentNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrContentUnavailable, err)
		}
	}
	return err
}
