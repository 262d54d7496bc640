package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/attaleem/api/internal/domain"
	"github.com/attaleem/api/internal/repositories"
)

func newContentServiceForTest(t *testing.T, entries *stubCommunityRepository, now time.Time) ContentService {
	t.Helper()
	service, err := NewContentService(ContentServiceDeps{
		Entries:     entries,
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "01TESTULID" },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing content service: %v", err)
	}
	return service
}

func TestContentServiceSubmitSanitisesAndPends(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	var inserted domain.CommunityEntry
	entries := &stubCommunityRepository{
		insertFunc: func(ctx context.Context, entry domain.CommunityEntry) error {
			inserted = entry
			return nil
		},
	}

	service := newContentServiceForTest(t, entries, now)
	entry, err := service.Submit(context.Background(), SubmitEntryCommand{
		Actor: Actor{ID: "user-1", Name: "Karim"},
		Kind:  domain.KindQuestion,
		Title: "Ruling on <b>fasting</b>",
		Body:  `Is it allowed?<script>alert("x")</script>`,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.Status != domain.ModerationPending {
		t.Fatalf("expected pending status, got %s", entry.Status)
	}
	if !strings.HasPrefix(entry.ID, "qna_") {
		t.Fatalf("expected qna_ prefix, got %q", entry.ID)
	}
	if strings.Contains(entry.Title, "<") {
		t.Fatalf("expected markup stripped from title, got %q", entry.Title)
	}
	if strings.Contains(entry.Body, "script") {
		t.Fatalf("expected script stripped from body, got %q", entry.Body)
	}
	if inserted.OwnerID != "user-1" {
		t.Fatalf("expected owner recorded, got %q", inserted.OwnerID)
	}
}

func TestContentServiceSubmitUnknownKind(t *testing.T) {
	service := newContentServiceForTest(t, &stubCommunityRepository{}, time.Now())
	_, err := service.Submit(context.Background(), SubmitEntryCommand{
		Actor: Actor{ID: "user-1"},
		Kind:  domain.CommunityKind("podcasts"),
		Title: "A title",
	})
	if !errors.Is(err, ErrContentInvalidInput) {
		t.Fatalf("expected ErrContentInvalidInput, got %v", err)
	}
}

func TestContentServiceListForcesApprovedForPublic(t *testing.T) {
	var captured repositories.CommunityListFilter
	entries := &stubCommunityRepository{
		listFunc: func(ctx context.Context, filter repositories.CommunityListFilter) (domain.CursorPage[domain.CommunityEntry], error) {
			captured = filter
			return domain.CursorPage[domain.CommunityEntry]{}, nil
		},
	}
	service := newContentServiceForTest(t, entries, time.Now())

	_, err := service.List(context.Background(), ListEntriesQuery{
		Actor:  Actor{ID: "user-1"},
		Kind:   domain.KindVideo,
		Status: []domain.ModerationStatus{domain.ModerationPending},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captured.Status) != 1 || captured.Status[0] != domain.ModerationApproved {
		t.Fatalf("expected status forced to approved, got %+v", captured.Status)
	}
}

func TestContentServiceListOwnSubmissionsKeepsStatuses(t *testing.T) {
	var captured repositories.CommunityListFilter
	entries := &stubCommunityRepository{
		listFunc: func(ctx context.Context, filter repositories.CommunityListFilter) (domain.CursorPage[domain.CommunityEntry], error) {
			captured = filter
			return domain.CursorPage[domain.CommunityEntry]{}, nil
		},
	}
	service := newContentServiceForTest(t, entries, time.Now())

	_, err := service.List(context.Background(), ListEntriesQuery{
		Actor:   Actor{ID: "user-1"},
		Kind:    domain.KindQuestion,
		OwnerID: "user-1",
		Status:  []domain.ModerationStatus{domain.ModerationPending},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(captured.Status) != 1 || captured.Status[0] != domain.ModerationPending {
		t.Fatalf("expected own-submission statuses preserved, got %+v", captured.Status)
	}
}

func TestContentServiceModerateRequiresAdmin(t *testing.T) {
	service := newContentServiceForTest(t, &stubCommunityRepository{}, time.Now())
	_, err := service.Moderate(context.Background(), ModerateEntryCommand{
		Actor:   Actor{ID: "user-1"},
		Kind:    domain.KindQuestion,
		EntryID: "qna_1",
		Status:  domain.ModerationApproved,
	})
	if !errors.Is(err, ErrContentForbidden) {
		t.Fatalf("expected ErrContentForbidden, got %v", err)
	}
}

func TestContentServiceModerateApproves(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	var updated domain.CommunityEntry
	entries := &stubCommunityRepository{
		findFunc: func(ctx context.Context, kind domain.CommunityKind, entryID string) (domain.CommunityEntry, error) {
			return domain.CommunityEntry{ID: entryID, Kind: kind, Status: domain.ModerationPending}, nil
		},
		updateFunc: func(ctx context.Context, entry domain.CommunityEntry) error {
			updated = entry
			return nil
		},
	}
	service := newContentServiceForTest(t, entries, now)

	entry, err := service.Moderate(context.Background(), ModerateEntryCommand{
		Actor:   Actor{ID: "admin-1", Admin: true},
		Kind:    domain.KindReview,
		EntryID: "rev_1",
		Status:  domain.ModerationApproved,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Status != domain.ModerationApproved {
		t.Fatalf("expected approved, got %s", entry.Status)
	}
	if updated.Status != domain.ModerationApproved {
		t.Fatalf("expected persisted approval")
	}
}

func TestContentServiceModerateAllowsModerator(t *testing.T) {
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	entries := &stubCommunityRepository{
		findFunc: func(ctx context.Context, kind domain.CommunityKind, entryID string) (domain.CommunityEntry, error) {
			return domain.CommunityEntry{ID: entryID, Kind: kind, Status: domain.ModerationPending}, nil
		},
		updateFunc: func(ctx context.Context, entry domain.CommunityEntry) error {
			return nil
		},
	}
	service := newContentServiceForTest(t, entries, now)

	entry, err := service.Moderate(context.Background(), ModerateEntryCommand{
		Actor:   Actor{ID: "mod-1", Moderator: true},
		Kind:    domain.KindReview,
		EntryID: "rev_2",
		Status:  domain.ModerationRejected,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Status != domain.ModerationRejected {
		t.Fatalf("expected rejected, got %s", entry.Status)
	}
}

func TestContentServiceAnswerPublishesQuestion(t *testing.T) {
	now := time.Date(2025, 6, 3, 11, 0, 0, 0, time.UTC)
	entries := &stubCommunityRepository{
		findFunc: func(ctx context.Context, kind domain.CommunityKind, entryID string) (domain.CommunityEntry, error) {
			if kind != domain.KindQuestion {
				t.Fatalf("expected questions kind, got %s", kind)
			}
			return domain.CommunityEntry{ID: entryID, Kind: kind, Status: domain.ModerationPending}, nil
		},
	}
	service := newContentServiceForTest(t, entries, now)

	entry, err := service.Answer(context.Background(), AnswerQuestionCommand{
		Actor:   Actor{ID: "admin-1", Admin: true},
		EntryID: "qna_1",
		Answer:  "Yes, with conditions.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !entry.Answered || entry.AnsweredAt == nil {
		t.Fatalf("expected answered markers set")
	}
	if entry.Status != domain.ModerationApproved {
		t.Fatalf("expected answered question approved, got %s", entry.Status)
	}
}

func TestContentServiceDeleteOwnerOrAdmin(t *testing.T) {
	entries := &stubCommunityRepository{
		findFunc: func(ctx context.Context, kind domain.CommunityKind, entryID string) (domain.CommunityEntry, error) {
			return domain.CommunityEntry{ID: entryID, Kind: kind, OwnerID: "user-1"}, nil
		},
	}
	service := newContentServiceForTest(t, entries, time.Now())

	if err := service.Delete(context.Background(), DeleteEntryCommand{
		Actor:   Actor{ID: "user-2"},
		Kind:    domain.KindQuestion,
		EntryID: "qna_1",
	}); !errors.Is(err, ErrContentForbidden) {
		t.Fatalf("expected ErrContentForbidden for a stranger, got %v", err)
	}

	if err := service.Delete(context.Background(), DeleteEntryCommand{
		Actor:   Actor{ID: "user-1"},
		Kind:    domain.KindQuestion,
		EntryID: "qna_1",
	}); err != nil {
		t.Fatalf("expected owner delete to succeed, got %v", err)
	}
}
