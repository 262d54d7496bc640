package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/attaleem/api/internal/domain"
	"github.com/attaleem/api/internal/repositories"
)

type stubBookRepository struct {
	insertFunc         func(ctx context.Context, book domain.Book) error
	updateFunc         func(ctx context.Context, book domain.Book) error
	deleteFunc         func(ctx context.Context, bookID string) error
	findFunc           func(ctx context.Context, bookID string) (domain.Book, error)
	listFunc           func(ctx context.Context, filter repositories.BookListFilter) (domain.CursorPage[domain.Book], error)
	countPublishedFunc func(ctx context.Context) (int64, error)
}

func (s *stubBookRepository) Insert(ctx context.Context, book domain.Book) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, book)
	}
	return nil
}

func (s *stubBookRepository) Update(ctx context.Context, book domain.Book) error {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, book)
	}
	return nil
}

func (s *stubBookRepository) Delete(ctx context.Context, bookID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, bookID)
	}
	return nil
}

func (s *stubBookRepository) FindByID(ctx context.Context, bookID string) (domain.Book, error) {
	if s.findFunc != nil {
		return s.findFunc(ctx, bookID)
	}
	return domain.Book{}, errors.New("not implemented")
}

func (s *stubBookRepository) List(ctx context.Context, filter repositories.BookListFilter) (domain.CursorPage[domain.Book], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[domain.Book]{}, nil
}

func (s *stubBookRepository) CountPublished(ctx context.Context) (int64, error) {
	if s.countPublishedFunc != nil {
		return s.countPublishedFunc(ctx)
	}
	return 0, nil
}

type stubCartRepository struct {
	getFunc    func(ctx context.Context, userID string) (domain.Cart, error)
	saveFunc   func(ctx context.Context, cart domain.Cart, expected *time.Time) (domain.Cart, error)
	deleteFunc func(ctx context.Context, userID string) error
}

func (s *stubCartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, userID)
	}
	return domain.Cart{}, &repositoryErrorStub{notFound: true}
}

func (s *stubCartRepository) Save(ctx context.Context, cart domain.Cart, expected *time.Time) (domain.Cart, error) {
	if s.saveFunc != nil {
		return s.saveFunc(ctx, cart, expected)
	}
	return cart, nil
}

func (s *stubCartRepository) Delete(ctx context.Context, userID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, userID)
	}
	return nil
}

type stubOrderRepository struct {
	insertFunc    func(ctx context.Context, order domain.Order) error
	updateFunc    func(ctx context.Context, order domain.Order) error
	findFunc      func(ctx context.Context, orderID string) (domain.Order, error)
	listFunc      func(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error)
	deleteFunc    func(ctx context.Context, orderID string) error
	listStaleFunc func(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error)
}

func (s *stubOrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, order)
	}
	return nil
}

func (s *stubOrderRepository) Update(ctx context.Context, order domain.Order) error {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, order)
	}
	return nil
}

func (s *stubOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFunc != nil {
		return s.findFunc(ctx, orderID)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[domain.Order]{}, nil
}

func (s *stubOrderRepository) Delete(ctx context.Context, orderID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, orderID)
	}
	return nil
}

func (s *stubOrderRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	if s.listStaleFunc != nil {
		return s.listStaleFunc(ctx, cutoff, limit)
	}
	return nil, nil
}

type stubCommunityRepository struct {
	insertFunc func(ctx context.Context, entry domain.CommunityEntry) error
	updateFunc func(ctx context.Context, entry domain.CommunityEntry) error
	deleteFunc func(ctx context.Context, kind domain.CommunityKind, entryID string) error
	findFunc   func(ctx context.Context, kind domain.CommunityKind, entryID string) (domain.CommunityEntry, error)
	listFunc   func(ctx context.Context, filter repositories.CommunityListFilter) (domain.CursorPage[domain.CommunityEntry], error)
	toggleFunc func(ctx context.Context, kind domain.CommunityKind, entryID string, field domain.EngagementKind, userID string) (bool, int, error)
}

func (s *stubCommunityRepository) Insert(ctx context.Context, entry domain.CommunityEntry) error {
	if s.insertFunc != nil {
		return s.insertFunc(ctx, entry)
	}
	return nil
}

func (s *stubCommunityRepository) Update(ctx context.Context, entry domain.CommunityEntry) error {
	if s.updateFunc != nil {
		return s.updateFunc(ctx, entry)
	}
	return nil
}

func (s *stubCommunityRepository) Delete(ctx context.Context, kind domain.CommunityKind, entryID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, kind, entryID)
	}
	return nil
}

func (s *stubCommunityRepository) FindByID(ctx context.Context, kind domain.CommunityKind, entryID string) (domain.CommunityEntry, error) {
	if s.findFunc != nil {
		return s.findFunc(ctx, kind, entryID)
	}
	return domain.CommunityEntry{}, errors.New("not implemented")
}

func (s *stubCommunityRepository) List(ctx context.Context, filter repositories.CommunityListFilter) (domain.CursorPage[domain.CommunityEntry], error) {
	if s.listFunc != nil {
		return s.listFunc(ctx, filter)
	}
	return domain.CursorPage[domain.CommunityEntry]{}, nil
}

func (s *stubCommunityRepository) ToggleEngagement(ctx context.Context, kind domain.CommunityKind, entryID string, field domain.EngagementKind, userID string) (bool, int, error) {
	if s.toggleFunc != nil {
		return s.toggleFunc(ctx, kind, entryID, field, userID)
	}
	return false, 0, errors.New("not implemented")
}

type stubCounterRepository struct {
	nextFunc func(ctx context.Context, counterID string, step int64) (int64, error)
}

func (s *stubCounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	if s.nextFunc != nil {
		return s.nextFunc(ctx, counterID, step)
	}
	return 1, nil
}

type stubOrderEventPublisher struct {
	publishFunc func(ctx context.Context, event OrderEvent) error
	events      []OrderEvent
}

func (s *stubOrderEventPublisher) PublishOrderEvent(ctx context.Context, event OrderEvent) error {
	s.events = append(s.events, event)
	if s.publishFunc != nil {
		return s.publishFunc(ctx, event)
	}
	return nil
}

type stubMailPublisher struct {
	publishFunc func(ctx context.Context, msg MailMessage) (string, error)
	messages    []MailMessage
}

func (s *stubMailPublisher) PublishMail(ctx context.Context, msg MailMessage) (string, error) {
	s.messages = append(s.messages, msg)
	if s.publishFunc != nil {
		return s.publishFunc(ctx, msg)
	}
	return "msg-1", nil
}

type stubPaymentGateway struct {
	createFunc func(ctx context.Context, req PaymentSessionRequest) (PaymentSession, error)
	methods    []string
}

func (s *stubPaymentGateway) CreateSession(ctx context.Context, req PaymentSessionRequest) (PaymentSession, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, req)
	}
	return PaymentSession{SessionID: "sess-1", RedirectURL: "https://pay.example/sess-1", Provider: "sslcommerz"}, nil
}

func (s *stubPaymentGateway) SupportedMethods() []string {
	if s.methods != nil {
		return s.methods
	}
	return []string{"bkash", "nagad", "rocket", "card"}
}

type stubOrderService struct {
	createFunc        func(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	recordPaymentFunc func(ctx context.Context, cmd RecordPaymentCommand) (domain.Order, error)
	recordFailureFunc func(ctx context.Context, orderID string, message string) (domain.Order, error)
}

func (s *stubOrderService) Create(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	if s.createFunc != nil {
		return s.createFunc(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) Get(ctx context.Context, actor Actor, orderID string) (domain.Order, error) {
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) List(ctx context.Context, actor Actor, query OrderListQuery) (domain.CursorPage[domain.Order], error) {
	return domain.CursorPage[domain.Order]{}, errors.New("not implemented")
}

func (s *stubOrderService) Transition(ctx context.Context, cmd TransitionOrderCommand) (domain.Order, error) {
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (domain.Order, error) {
	if s.recordPaymentFunc != nil {
		return s.recordPaymentFunc(ctx, cmd)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) RecordPaymentFailure(ctx context.Context, orderID string, message string) (domain.Order, error) {
	if s.recordFailureFunc != nil {
		return s.recordFailureFunc(ctx, orderID, message)
	}
	return domain.Order{}, errors.New("not implemented")
}

func (s *stubOrderService) Bulk(ctx context.Context, cmd BulkOrderCommand) (BulkOrderResult, error) {
	return BulkOrderResult{}, errors.New("not implemented")
}

func (s *stubOrderService) Delete(ctx context.Context, cmd DeleteOrderCommand) error {
	return errors.New("not implemented")
}

func (s *stubOrderService) SweepStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	return 0, errors.New("not implemented")
}

type repositoryErrorStub struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repositoryErrorStub) Error() string {
	return "repository error"
}

func (e *repositoryErrorStub) IsNotFound() bool {
	return e.notFound
}

func (e *repositoryErrorStub) IsConflict() bool {
	return e.conflict
}

func (e *repositoryErrorStub) IsUnavailable() bool {
	return e.unavailable
}
