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

func newCatalogServiceForTest(t *testing.T, books *stubBookRepository, now time.Time) CatalogService {
	t.Helper()
	service, err := NewCatalogService(CatalogServiceDeps{
		Books:       books,
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "01TESTULID" },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}
	return service
}

func TestCatalogServiceListIncludesPublishedTotal(t *testing.T) {
	now := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	books := &stubBookRepository{
		listFunc: func(ctx context.Context, filter repositories.BookListFilter) (domain.CursorPage[domain.Book], error) {
			if !filter.PublishedOnly {
				t.Fatalf("expected published-only listing by default")
			}
			return domain.CursorPage[domain.Book]{
				Items:         []domain.Book{publishedBook("book-a", 300)},
				NextPageToken: "next-1",
			}, nil
		},
		countPublishedFunc: func(ctx context.Context) (int64, error) { return 5, nil },
	}

	service := newCatalogServiceForTest(t, books, now)
	page, err := service.ListBooks(context.Background(), ListBooksQuery{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(page.Items))
	}
	if page.TotalCount != 5 {
		t.Fatalf("expected total 5, got %d", page.TotalCount)
	}
	if page.NextPageToken != "next-1" {
		t.Fatalf("expected next token, got %q", page.NextPageToken)
	}
}

func TestCatalogServiceUpsertRequiresAdmin(t *testing.T) {
	service := newCatalogServiceForTest(t, &stubBookRepository{}, time.Now())
	_, err := service.UpsertBook(context.Background(), UpsertBookCommand{
		Actor: Actor{ID: "user-1"},
		Book:  domain.Book{Title: "New Book", Price: 300},
	})
	if !errors.Is(err, ErrCatalogForbidden) {
		t.Fatalf("expected ErrCatalogForbidden, got %v", err)
	}
}

func TestCatalogServiceUpsertCreatesBook(t *testing.T) {
	now := time.Date(2025, 2, 2, 10, 0, 0, 0, time.UTC)
	var inserted domain.Book
	books := &stubBookRepository{
		insertFunc: func(ctx context.Context, book domain.Book) error {
			inserted = book
			return nil
		},
	}

	service := newCatalogServiceForTest(t, books, now)
	book, err := service.UpsertBook(context.Background(), UpsertBookCommand{
		Actor: Actor{ID: "admin-1", Admin: true},
		Book:  domain.Book{Title: "  Tafsir Primer  ", Author: "Author", Price: 450, Published: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasPrefix(book.ID, "book_") {
		t.Fatalf("expected book_ id prefix, got %q", book.ID)
	}
	if book.Title != "Tafsir Primer" {
		t.Fatalf("expected trimmed title, got %q", book.Title)
	}
	if !book.CreatedAt.Equal(now) || !book.UpdatedAt.Equal(now) {
		t.Fatalf("expected timestamps set to now")
	}
	if inserted.ID != book.ID {
		t.Fatalf("expected book persisted")
	}
}

func TestCatalogServiceUpsertUpdatePreservesCreatedAt(t *testing.T) {
	now := time.Date(2025, 2, 3, 11, 0, 0, 0, time.UTC)
	created := now.Add(-48 * time.Hour)
	books := &stubBookRepository{
		findFunc: func(ctx context.Context, bookID string) (domain.Book, error) {
			return domain.Book{ID: bookID, Title: "Old", Price: 300, CreatedAt: created}, nil
		},
	}

	service := newCatalogServiceForTest(t, books, now)
	book, err := service.UpsertBook(context.Background(), UpsertBookCommand{
		Actor: Actor{ID: "admin-1", Admin: true},
		Book:  domain.Book{ID: "book_1", Title: "New Title", Price: 350},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !book.CreatedAt.Equal(created) {
		t.Fatalf("expected CreatedAt preserved, got %v", book.CreatedAt)
	}
	if !book.UpdatedAt.Equal(now) {
		t.Fatalf("expected UpdatedAt advanced, got %v", book.UpdatedAt)
	}
}

func TestCatalogServiceUpsertRejectsEmptyTitle(t *testing.T) {
	service := newCatalogServiceForTest(t, &stubBookRepository{}, time.Now())
	_, err := service.UpsertBook(context.Background(), UpsertBookCommand{
		Actor: Actor{ID: "admin-1", Admin: true},
		Book:  domain.Book{Title: "   ", Price: 300},
	})
	if !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput, got %v", err)
	}
}

func TestCatalogServiceGetBookNotFound(t *testing.T) {
	books := &stubBookRepository{
		findFunc: func(ctx context.Context, bookID string) (domain.Book, error) {
			return domain.Book{}, &repositoryErrorStub{notFound: true}
		},
	}
	service := newCatalogServiceForTest(t, books, time.Now())

	_, err := service.GetBook(context.Background(), "book_missing")
	if !errors.Is(err, ErrCatalogNotFound) {
		t.Fatalf("expected ErrCatalogNotFound, got %v", err)
	}
}

func TestCatalogServiceDeleteRequiresAdmin(t *testing.T) {
	service := newCatalogServiceForTest(t, &stubBookRepository{}, time.Now())
	err := service.DeleteBook(context.Background(), DeleteBookCommand{
		Actor:  Actor{ID: "user-1"},
		BookID: "book_1",
	})
	if !errors.Is(err, ErrCatalogForbidden) {
		t.Fatalf("expected ErrCatalogForbidden, got %v", err)
	}
}
