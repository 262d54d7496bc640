package repositories

import (
	"context"
	"time"

	domain "github.com/attaleem/api/internal/domain"
)

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UnitOfWork allows grouping repository operations in a transactional boundary when supported.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// BookRepository persists catalog books and answers listing/count queries.
type BookRepository interface {
	Insert(ctx context.Context, book domain.Book) error
	Update(ctx context.Context, book domain.Book) error
	Delete(ctx context.Context, bookID string) error
	FindByID(ctx context.Context, bookID string) (domain.Book, error)
	List(ctx context.Context, filter BookListFilter) (domain.CursorPage[domain.Book], error)
	// CountPublished returns the authoritative size of the published catalog.
	// Bundle eligibility is evaluated against this, never against a page.
	CountPublished(ctx context.Context) (int64, error)
}

// BookListFilter narrows catalog listings.
type BookListFilter struct {
	Search        string
	Category      string
	PublishedOnly bool
	Pagination    domain.Pagination
}

// CartRepository owns session-scoped cart persistence. Carts are volatile and
// expire on their own; Save enforces optimistic concurrency when an expected
// UpdatedAt is supplied.
type CartRepository interface {
	Get(ctx context.Context, userID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart, expectedUpdatedAt *time.Time) (domain.Cart, error)
	Delete(ctx context.Context, userID string) error
}

// OrderRepository persists order records and query helpers for users and admins.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
	// Delete removes the record entirely. Irreversible; only the admin delete
	// path calls it.
	Delete(ctx context.Context, orderID string) error
	// ListStalePending returns pending+unpaid orders created before cutoff,
	// feeding the expiry sweep.
	ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error)
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	UserID        string
	Status        []domain.OrderStatus
	PaymentStatus []domain.PaymentStatus
	DateRange     domain.RangeQuery[time.Time]
	Pagination    domain.Pagination
}

// CommunityRepository stores peripheral content entries (institutions,
// videos, questions, masalah, events, reviews) sharing one record shape.
type CommunityRepository interface {
	Insert(ctx context.Context, entry domain.CommunityEntry) error
	Update(ctx context.Context, entry domain.CommunityEntry) error
	Delete(ctx context.Context, kind domain.CommunityKind, entryID string) error
	FindByID(ctx context.Context, kind domain.CommunityKind, entryID string) (domain.CommunityEntry, error)
	List(ctx context.Context, filter CommunityListFilter) (domain.CursorPage[domain.CommunityEntry], error)
	// ToggleEngagement atomically flips userID's membership in the named set
	// and reports the resulting membership plus set size.
	ToggleEngagement(ctx context.Context, kind domain.CommunityKind, entryID string, field domain.EngagementKind, userID string) (bool, int, error)
}

// CommunityListFilter narrows community content listings.
type CommunityListFilter struct {
	Kind       domain.CommunityKind
	OwnerID    string
	Status     []domain.ModerationStatus
	Search     string
	Pagination domain.Pagination
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
