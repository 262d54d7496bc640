package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"

	domain "github.com/attaleem/api/internal/domain"
	pfirestore "github.com/attaleem/api/internal/platform/firestore"
	"github.com/attaleem/api/internal/platform/pagination"
	"github.com/attaleem/api/internal/repositories"
)

const booksCollection = "books"

type bookDocument struct {
	Title       string    `firestore:"title"`
	Author      string    `firestore:"author"`
	Description string    `firestore:"description"`
	Price       int64     `firestore:"price"`
	CoverPath   string    `firestore:"coverPath"`
	Categories  []string  `firestore:"categories"`
	Published   bool      `firestore:"published"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

// BookRepository persists catalog books in Firestore.
type BookRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[bookDocument]
}

// NewBookRepository constructs a Firestore-backed book repository.
func NewBookRepository(provider *pfirestore.Provider) (*BookRepository, error) {
	if provider == nil {
		return nil, errors.New("book repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[bookDocument](provider, booksCollection, nil, nil)
	return &BookRepository{provider: provider, base: base}, nil
}

// Insert stores a new book document. The ID must be unique.
func (r *BookRepository) Insert(ctx context.Context, book domain.Book) error {
	if r == nil || r.base == nil {
		return errors.New("book repository not initialised")
	}
	bookID := strings.TrimSpace(book.ID)
	if bookID == "" {
		return errors.New("book repository: book id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, bookID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeBookDocument(book)); err != nil {
		return pfirestore.WrapError("books.insert", err)
	}
	return nil
}

// Update replaces the persisted book state with the provided snapshot.
func (r *BookRepository) Update(ctx context.Context, book domain.Book) error {
	if r == nil || r.base == nil {
		return errors.New("book repository not initialised")
	}
	bookID := strings.TrimSpace(book.ID)
	if bookID == "" {
		return errors.New("book repository: book id is required")
	}
	if _, err := r.base.Set(ctx, bookID, encodeBookDocument(book)); err != nil {
		return err
	}
	return nil
}

// Delete removes the book document.
func (r *BookRepository) Delete(ctx context.Context, bookID string) error {
	if r == nil || r.base == nil {
		return errors.New("book repository not initialised")
	}
	docRef, err := r.base.DocumentRef(ctx, strings.TrimSpace(bookID))
	if err != nil {
		return err
	}
	if _, err := docRef.Delete(ctx, firestore.Exists); err != nil {
		return pfirestore.WrapError("books.delete", err)
	}
	return nil
}

// FindByID fetches a single book.
func (r *BookRepository) FindByID(ctx context.Context, bookID string) (domain.Book, error) {
	if r == nil || r.base == nil {
		return domain.Book{}, errors.New("book repository not initialised")
	}
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return domain.Book{}, errors.New("book repository: book id is required")
	}
	doc, err := r.base.Get(ctx, bookID)
	if err != nil {
		return domain.Book{}, err
	}
	return decodeBookDocument(bookID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// List returns catalog books ordered by creation time, newest first.
func (r *BookRepository) List(ctx context.Context, filter repositories.BookListFilter) (domain.CursorPage[domain.Book], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Book]{}, errors.New("book repository not initialised")
	}

	limit := filter.Pagination.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(filter.Pagination.PageToken); token != "" {
		tokenTime, tokenID, err := decodeListToken(token)
		if err != nil {
			return domain.CursorPage[domain.Book]{}, fmt.Errorf("book repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	category := strings.TrimSpace(filter.Category)
	search := strings.ToLower(strings.TrimSpace(filter.Search))

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if filter.PublishedOnly {
			q = q.Where("published", "==", true)
		}
		if category != "" {
			q = q.Where("categories", "array-contains", category)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		// Search narrows in memory, so fetch without a limit when searching.
		if fetchLimit > 0 && search == "" {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Book]{}, err
	}

	if search != "" {
		// Firestore has no substring queries; the catalog is small enough to
		// filter here.
		filtered := docs[:0]
		for _, doc := range docs {
			if strings.Contains(strings.ToLower(doc.Data.Title), search) ||
				strings.Contains(strings.ToLower(doc.Data.Author), search) {
				filtered = append(filtered, doc)
			}
		}
		docs = filtered
		if fetchLimit > 0 && len(docs) > fetchLimit {
			docs = docs[:fetchLimit]
		}
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.CreatedAt
		if tokenTime.IsZero() {
			tokenTime = last.CreateTime
		}
		nextToken = encodeListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.Book, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeBookDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}
	return domain.CursorPage[domain.Book]{Items: items, NextPageToken: nextToken}, nil
}

// CountPublished returns the number of published books via a server-side
// aggregation. Bundle eligibility depends on this count being exact.
func (r *BookRepository) CountPublished(ctx context.Context) (int64, error) {
	if r == nil || r.provider == nil {
		return 0, errors.New("book repository not initialised")
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return 0, err
	}

	query := client.Collection(booksCollection).Where("published", "==", true)
	results, err := query.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, pfirestore.WrapError("books.count_published", err)
	}
	value, ok := results["total"]
	if !ok {
		return 0, errors.New("book repository: aggregation returned no count")
	}
	count, ok := value.(*firestorepb.Value)
	if !ok {
		return 0, fmt.Errorf("book repository: unexpected aggregation type %T", value)
	}
	return count.GetIntegerValue(), nil
}

func encodeBookDocument(book domain.Book) bookDocument {
	return bookDocument{
		Title:       strings.TrimSpace(book.Title),
		Author:      strings.TrimSpace(book.Author),
		Description: strings.TrimSpace(book.Description),
		Price:       book.Price,
		CoverPath:   strings.TrimSpace(book.CoverPath),
		Categories:  normaliseStrings(book.Categories),
		Published:   book.Published,
		CreatedAt:   book.CreatedAt.UTC(),
		UpdatedAt:   book.UpdatedAt.UTC(),
	}
}

func decodeBookDocument(id string, doc bookDocument, createdAt, updatedAt time.Time) domain.Book {
	return domain.Book{
		ID:          strings.TrimSpace(id),
		Title:       strings.TrimSpace(doc.Title),
		Author:      strings.TrimSpace(doc.Author),
		Description: strings.TrimSpace(doc.Description),
		Price:       doc.Price,
		CoverPath:   strings.TrimSpace(doc.CoverPath),
		Categories:  normaliseStrings(doc.Categories),
		Published:   doc.Published,
		CreatedAt:   chooseTime(doc.CreatedAt, createdAt),
		UpdatedAt:   chooseTime(doc.UpdatedAt, updatedAt),
	}
}

func normaliseStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	return out
}

func chooseTime(primary time.Time, fallback time.Time) time.Time {
	if !primary.IsZero() {
		return primary.UTC()
	}
	if !fallback.IsZero() {
		return fallback.UTC()
	}
	return time.Time{}
}

// encodeListToken packs the list cursor (createdAt, document id) into the
// shared opaque token format. All Firestore list repositories page with the
// same createdAt-then-id ordering, so they share this pair of helpers.
func encodeListToken(ts time.Time, docID string) string {
	token, err := pagination.EncodeToken(pagination.Cursor{
		StartAfter: []any{ts.UTC().Format(time.RFC3339Nano), docID},
	})
	if err != nil {
		return ""
	}
	return token
}

func decodeListToken(token string) (time.Time, string, error) {
	cursor, err := pagination.DecodeToken(token)
	if err != nil {
		return time.Time{}, "", err
	}
	if len(cursor.StartAfter) != 2 {
		return time.Time{}, "", fmt.Errorf("%w: unexpected cursor shape", pagination.ErrInvalidPageToken)
	}
	rawTime, timeOK := cursor.StartAfter[0].(string)
	docID, idOK := cursor.StartAfter[1].(string)
	if !timeOK || !idOK || docID == "" {
		return time.Time{}, "", fmt.Errorf("%w: unexpected cursor values", pagination.ErrInvalidPageToken)
	}
	ts, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("%w: %v", pagination.ErrInvalidPageToken, err)
	}
	return ts, docID, nil
}
