package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/attaleem/api/internal/domain"
)

func newEngagementServiceForTest(t *testing.T, entries *stubCommunityRepository) EngagementService {
	t.Helper()
	service, err := NewEngagementService(EngagementServiceDeps{Entries: entries})
	if err != nil {
		t.Fatalf("unexpected error constructing engagement service: %v", err)
	}
	return service
}

func TestEngagementToggleAddsAndReports(t *testing.T) {
	entries := &stubCommunityRepository{
		toggleFunc: func(ctx context.Context, kind domain.CommunityKind, entryID string, field domain.EngagementKind, userID string) (bool, int, error) {
			if kind != domain.KindVideo || entryID != "vid_1" || field != domain.EngagementLikes || userID != "user-1" {
				t.Fatalf("unexpected toggle args %s %s %s %s", kind, entryID, field, userID)
			}
			return true, 3, nil
		},
	}
	service := newEngagementServiceForTest(t, entries)

	result, err := service.Toggle(context.Background(), ToggleEngagementCommand{
		Actor:   Actor{ID: "user-1"},
		Kind:    domain.KindVideo,
		EntryID: "vid_1",
		Field:   domain.EngagementLikes,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Member || result.Count != 3 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestEngagementToggleUnknownField(t *testing.T) {
	service := newEngagementServiceForTest(t, &stubCommunityRepository{})
	_, err := service.Toggle(context.Background(), ToggleEngagementCommand{
		Actor:   Actor{ID: "user-1"},
		Kind:    domain.KindVideo,
		EntryID: "vid_1",
		Field:   domain.EngagementKind("shares"),
	})
	if !errors.Is(err, ErrContentInvalidInput) {
		t.Fatalf("expected ErrContentInvalidInput, got %v", err)
	}
}

func TestEngagementToggleEntryNotFound(t *testing.T) {
	entries := &stubCommunityRepository{
		toggleFunc: func(ctx context.Context, kind domain.CommunityKind, entryID string, field domain.EngagementKind, userID string) (bool, int, error) {
			return false, 0, &repositoryErrorStub{notFound: true}
		},
	}
	service := newEngagementServiceForTest(t, entries)

	_, err := service.Toggle(context.Background(), ToggleEngagementCommand{
		Actor:   Actor{ID: "user-1"},
		Kind:    domain.KindMasalah,
		EntryID: "msl_missing",
		Field:   domain.EngagementBookmarks,
	})
	if !errors.Is(err, ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}
}
