package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/attaleem/api/internal/domain"
	"github.com/attaleem/api/internal/repositories"
)

var (
	// ErrCartInvalidInput signals the caller provided invalid data.
	ErrCartInvalidInput = errors.New("cart: invalid input")
	// ErrCartLineNotFound indicates the book has no line in the cart.
	ErrCartLineNotFound = errors.New("cart: line not found")
	// ErrCartConfirmRemoval indicates the decrement would empty the line and
	// the caller must confirm removal explicitly.
	ErrCartConfirmRemoval = errors.New("cart: removal confirmation required")
	// ErrCartBookUnavailable indicates the book is missing or unpublished.
	ErrCartBookUnavailable = errors.New("cart: book unavailable")
	// ErrCartConflict indicates a concurrent modification raced this one.
	ErrCartConflict = errors.New("cart: conflict")
	// ErrCartUnavailable indicates the cart store is unreachable.
	ErrCartUnavailable = errors.New("cart: unavailable")
)

// CartServiceDeps wires the dependencies required by the cart service.
type CartServiceDeps struct {
	Carts repositories.CartRepository
	Books repositories.BookRepository
	// BundlePrice is the flat price charged for a full-catalog cart.
	BundlePrice int64
	Clock       func() time.Time
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type cartService struct {
	carts       repositories.CartRepository
	books       repositories.BookRepository
	bundlePrice int64
	clock       func() time.Time
	logger      func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService validating required dependencies.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Carts == nil {
		return nil, errors.New("cart service: cart repository is required")
	}
	if deps.Books == nil {
		return nil, errors.New("cart service: book repository is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &cartService{
		carts:       deps.Carts,
		books:       deps.Books,
		bundlePrice: deps.BundlePrice,
		clock:       func() time.Time { return clock().UTC() },
		logger:      logger,
	}, nil
}

func (s *cartService) View(ctx context.Context, userID string) (CartView, error) {
	cart, _, err := s.loadCart(ctx, userID)
	if err != nil {
		return CartView{}, err
	}
	return s.view(ctx, cart)
}

func (s *cartService) Add(ctx context.Context, userID string, bookID string) (CartView, error) {
	bookID = strings.TrimSpace(bookID)
	if bookID == "" {
		return CartView{}, fmt.Errorf("%w: book id is required", ErrCartInvalidInput)
	}

	book, err := s.books.FindByID(ctx, bookID)
	if err != nil {
		return CartView{}, s.translateBookError(err)
	}
	if !book.Published {
		return CartView{}, fmt.Errorf("%w: %s is not published", ErrCartBookUnavailable, bookID)
	}

	return s.mutate(ctx, userID, func(cart *domain.Cart, now time.Time) error {
		if idx := cart.LineFor(bookID); idx >= 0 {
			// Re-adding moves the line to the end without touching quantity.
			line := cart.Lines[idx]
			cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
			cart.Lines = append(cart.Lines, line)
			return nil
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			BookID:    book.ID,
			Title:     book.Title,
			UnitPrice: book.Price,
			Quantity:  1,
			AddedAt:   now,
		})
		return nil
	})
}

func (s *cartService) Increment(ctx context.Context, userID string, bookID string) (CartView, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart, _ time.Time) error {
		idx := cart.LineFor(strings.TrimSpace(bookID))
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrCartLineNotFound, bookID)
		}
		cart.Lines[idx].Quantity++
		return nil
	})
}

func (s *cartService) Decrement(ctx context.Context, userID string, bookID string) (CartView, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart, _ time.Time) error {
		idx := cart.LineFor(strings.TrimSpace(bookID))
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrCartLineNotFound, bookID)
		}
		if cart.Lines[idx].Quantity <= 1 {
			return fmt.Errorf("%w: %s", ErrCartConfirmRemoval, bookID)
		}
		cart.Lines[idx].Quantity--
		return nil
	})
}

func (s *cartService) ConfirmRemove(ctx context.Context, userID string, bookID string) (CartView, error) {
	return s.removeLine(ctx, userID, bookID)
}

func (s *cartService) RemoveAll(ctx context.Context, userID string, bookID string) (CartView, error) {
	return s.removeLine(ctx, userID, bookID)
}

func (s *cartService) Clear(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	if err := s.carts.Delete(ctx, userID); err != nil {
		return s.translateCartError(err)
	}
	s.logger(ctx, "cart.cleared", map[string]any{"userId": userID})
	return nil
}

func (s *cartService) removeLine(ctx context.Context, userID string, bookID string) (CartView, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart, _ time.Time) error {
		idx := cart.LineFor(strings.TrimSpace(bookID))
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrCartLineNotFound, bookID)
		}
		cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
		return nil
	})
}

func (s *cartService) mutate(ctx context.Context, userID string, fn func(cart *domain.Cart, now time.Time) error) (CartView, error) {
	cart, existed, err := s.loadCart(ctx, userID)
	if err != nil {
		return CartView{}, err
	}

	now := s.clock()
	if err := fn(&cart, now); err != nil {
		return CartView{}, err
	}

	var expected *time.Time
	if existed {
		updated := cart.UpdatedAt
		expected = &updated
	}
	cart.UpdatedAt = now

	if len(cart.Lines) == 0 && cart.Checkout == nil {
		// A cart drained of lines vanishes; the empty view closes any open
		// cart affordance downstream.
		if err := s.carts.Delete(ctx, cart.UserID); err != nil {
			return CartView{}, s.translateCartError(err)
		}
		return s.view(ctx, domain.Cart{ID: cart.ID, UserID: cart.UserID})
	}

	saved, err := s.carts.Save(ctx, cart, expected)
	if err != nil {
		return CartView{}, s.translateCartError(err)
	}
	return s.view(ctx, saved)
}

func (s *cartService) loadCart(ctx context.Context, userID string) (domain.Cart, bool, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, false, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			now := s.clock()
			return domain.Cart{ID: userID, UserID: userID, CreatedAt: now, UpdatedAt: now}, false, nil
		}
		return domain.Cart{}, false, s.translateCartError(err)
	}
	if cart.ID == "" {
		cart.ID = userID
	}
	return cart, true, nil
}

func (s *cartService) view(ctx context.Context, cart domain.Cart) (CartView, error) {
	catalogCount, err := s.books.CountPublished(ctx)
	if err != nil {
		return CartView{}, s.translateBookError(err)
	}
	return CartView{
		Cart:     cart,
		Quote:    domain.QuoteCart(cart.Lines, int(catalogCount), s.bundlePrice),
		NonEmpty: cart.NonEmpty(),
	}, nil
}

func (s *cartService) translateCartError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCartConflict, err)
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCartLineNotFound, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
}

func (s *cartService) translateBookError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return fmt.Errorf("%w: %v", ErrCartBookUnavailable, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrCartUnavailable, err)
}
