package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/attaleem/api/internal/domain"
	"github.com/attaleem/api/internal/repositories"
)

const bookIDPrefix = "book_"

var (
	// ErrCatalogInvalidInput signals the caller provided invalid data.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the book could not be located.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogForbidden indicates the actor may not administer the catalog.
	ErrCatalogForbidden = errors.New("catalog: forbidden")
	// ErrCatalogUnavailable indicates the catalog store is unreachable.
	ErrCatalogUnavailable = errors.New("catalog: unavailable")
)

// CatalogServiceDeps wires the dependencies required by the catalog service.
type CatalogServiceDeps struct {
	Books       repositories.BookRepository
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type catalogService struct {
	books  repositories.BookRepository
	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewCatalogService constructs a CatalogService validating required dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Books == nil {
		return nil, errors.New("catalog service: book repository is required")
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

	return &catalogService{
		books:  deps.Books,
		clock:  func() time.Time { return clock().UTC() },
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *catalogService) ListBooks(ctx context.Context, query ListBooksQuery) (BookPage, error) {
	filter := repositories.BookListFilter{
		Search:        strings.TrimSpace(query.Search),
		Category:      strings.TrimSpace(query.Category),
		PublishedOnly: !query.IncludeUnpublished,
		Pagination:    query.Pagination,
	}

	page, err := s.books.List(ctx, filter)
	if err != nil {
		return BookPage{}, s.mapRepositoryError(err)
	}

	total, err := s.books.CountPublished(ctx)
	if err != nil {
		return BookPage{}, s.mapRepositoryError(err)
	}

	return BookPage{
		Items:         page.Items,
		NextPageToken: page.NextPageToken,
		TotalCount:    total,
	}, nil
}

func (s *catalogService) GetBook(ctx context.Context, bookID string) (domain.Book, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return domain.Book{}, fmt.Errorf("%w: book id is required", ErrCatalogInvalidInput)
	}
	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		return domain.Book{}, s.mapRepositoryError(err)
	}
	return book, nil
}

func (s *catalogService) CountPublished(ctx context.Context) (int64, error) {
	count, err := s.books.CountPublished(ctx)
	if err != nil {
		return 0, s.mapRepositoryError(err)
	}
	return count, nil
}

func (s *catalogService) UpsertBook(ctx context.Context, cmd UpsertBookCommand) (domain.Book, error) {
	if !cmd.Actor.Admin {
		return domain.Book{}, ErrCatalogForbidden
	}

	book := cmd.Book
	book.Title = strings.TrimSpace(book.Title)
	book.Author = strings.TrimSpace(book.Author)
	if book.Title == "" {
		return domain.Book{}, fmt.Errorf("%w: title is required", ErrCatalogInvalidInput)
	}
	if book.Price < 0 {
		return domain.Book{}, fmt.Errorf("%w: price must not be negative", ErrCatalogInvalidInput)
	}

	now := s.clock()
	book.UpdatedAt = now

	if strings.TrimSpace(book.ID) == "" {
		book.ID = bookIDPrefix + s.newID()
		book.CreatedAt = now
		if err := s.books.Insert(ctx, book); err != nil {
			return domain.Book{}, s.mapRepositoryError(err)
		}
		s.logger(ctx, "catalog.book.created", map[string]any{"bookId": book.ID, "actor": cmd.Actor.ID})
		return book, nil
	}

	existing, err := s.books.FindByID(ctx, book.ID)
	if err != nil {
		return domain.Book{}, s.mapRepositoryError(err)
	}
	book.CreatedAt = existing.CreatedAt

	if err := s.books.Update(ctx, book); err != nil {
		return domain.Book{}, s.mapRepositoryError(err)
	}
	s.logger(ctx, "catalog.book.updated", map[string]any{"bookId": book.ID, "actor": cmd.Actor.ID})
	return book, nil
}

func (s *catalogService) DeleteBook(ctx context.Context, cmd DeleteBookCommand) error {
	if !cmd.Actor.Admin {
		return ErrCatalogForbidden
	}
	bookID := strings.TrimSpace(cmd.BookID)
	if bookID == "" {
		return fmt.Errorf("%w: book id is required", ErrCatalogInvalidInput)
	}
	if err := s.books.Delete(ctx, bookID); err != nil {
		return s.mapRepositoryError(err)
	}
	s.logger(ctx, "catalog.book.deleted", map[string]any{"bookId": bookID, "actor": cmd.Actor.ID})
	return nil
}

func (s *catalogService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCatalogNotFound, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
	}
	return err
}
