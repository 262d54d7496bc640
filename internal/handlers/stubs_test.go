package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/attaleem/api/internal/payments"
	"github.com/attaleem/api/internal/platform/auth"
	"github.com/attaleem/api/internal/services"

	domain "github.com/attaleem/api/internal/domain"
)

type stubCatalogService struct {
	page      services.BookPage
	book      domain.Book
	count     int64
	err       error
	lastQuery services.ListBooksQuery
}

func (s *stubCatalogService) ListBooks(_ context.Context, query services.ListBooksQuery) (services.BookPage, error) {
	s.lastQuery = query
	return s.page, s.err
}

func (s *stubCatalogService) GetBook(context.Context, string) (domain.Book, error) {
	return s.book, s.err
}

func (s *stubCatalogService) CountPublished(context.Context) (int64, error) {
	return s.count, s.err
}

func (s *stubCatalogService) UpsertBook(_ context.Context, cmd services.UpsertBookCommand) (domain.Book, error) {
	if s.err != nil {
		return domain.Book{}, s.err
	}
	book := cmd.Book
	if book.ID == "" {
		book.ID = "book_new"
	}
	return book, nil
}

func (s *stubCatalogService) DeleteBook(context.Context, services.DeleteBookCommand) error {
	return s.err
}

type stubCartService struct {
	view services.CartView
	err  error
}

func (s *stubCartService) View(context.Context, string) (services.CartView, error) {
	return s.view, s.err
}

func (s *stubCartService) Add(context.Context, string, string) (services.CartView, error) {
	return s.view, s.err
}

func (s *stubCartService) Increment(context.Context, string, string) (services.CartView, error) {
	return s.view, s.err
}

func (s *stubCartService) Decrement(context.Context, string, string) (services.CartView, error) {
	return s.view, s.err
}

func (s *stubCartService) ConfirmRemove(context.Context, string, string) (services.CartView, error) {
	return s.view, s.err
}

func (s *stubCartService) RemoveAll(context.Context, string, string) (services.CartView, error) {
	return s.view, s.err
}

func (s *stubCartService) Clear(context.Context, string) error {
	return s.err
}

type stubCheckoutService struct {
	state      domain.CheckoutState
	redirect   services.CheckoutRedirect
	result     services.CheckoutResult
	err        error
	lastSignal services.PaymentSignal
}

func (s *stubCheckoutService) SubmitDetails(context.Context, services.SubmitDetailsCommand) (domain.CheckoutState, error) {
	return s.state, s.err
}

func (s *stubCheckoutService) SelectPayment(context.Context, services.SelectPaymentCommand) (services.CheckoutRedirect, error) {
	return s.redirect, s.err
}

func (s *stubCheckoutService) CompletePayment(_ context.Context, signal services.PaymentSignal) (services.CheckoutResult, error) {
	s.lastSignal = signal
	return s.result, s.err
}

func (s *stubCheckoutService) Abandon(context.Context, string) error {
	return s.err
}

type stubOrderService struct {
	order      domain.Order
	page       domain.CursorPage[domain.Order]
	bulk       services.BulkOrderResult
	swept      int
	err        error
	lastActor  services.Actor
	lastQuery  services.OrderListQuery
	lastDelete services.DeleteOrderCommand
}

func (s *stubOrderService) Create(context.Context, services.CreateOrderCommand) (domain.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) Get(_ context.Context, actor services.Actor, _ string) (domain.Order, error) {
	s.lastActor = actor
	return s.order, s.err
}

func (s *stubOrderService) List(_ context.Context, actor services.Actor, query services.OrderListQuery) (domain.CursorPage[domain.Order], error) {
	s.lastActor = actor
	s.lastQuery = query
	return s.page, s.err
}

func (s *stubOrderService) Transition(context.Context, services.TransitionOrderCommand) (domain.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) RecordPayment(context.Context, services.RecordPaymentCommand) (domain.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) RecordPaymentFailure(context.Context, string, string) (domain.Order, error) {
	return s.order, s.err
}

func (s *stubOrderService) Bulk(context.Context, services.BulkOrderCommand) (services.BulkOrderResult, error) {
	return s.bulk, s.err
}

func (s *stubOrderService) Delete(_ context.Context, cmd services.DeleteOrderCommand) error {
	s.lastDelete = cmd
	return s.err
}

func (s *stubOrderService) SweepStalePending(context.Context, time.Duration, int) (int, error) {
	return s.swept, s.err
}

type stubContentService struct {
	entry     domain.CommunityEntry
	page      domain.CursorPage[domain.CommunityEntry]
	err       error
	lastQuery services.ListEntriesQuery
}

func (s *stubContentService) Submit(context.Context, services.SubmitEntryCommand) (domain.CommunityEntry, error) {
	return s.entry, s.err
}

func (s *stubContentService) Get(context.Context, domain.CommunityKind, string) (domain.CommunityEntry, error) {
	return s.entry, s.err
}

func (s *stubContentService) List(_ context.Context, query services.ListEntriesQuery) (domain.CursorPage[domain.CommunityEntry], error) {
	s.lastQuery = query
	return s.page, s.err
}

func (s *stubContentService) Moderate(context.Context, services.ModerateEntryCommand) (domain.CommunityEntry, error) {
	return s.entry, s.err
}

func (s *stubContentService) Answer(context.Context, services.AnswerQuestionCommand) (domain.CommunityEntry, error) {
	return s.entry, s.err
}

func (s *stubContentService) Delete(context.Context, services.DeleteEntryCommand) error {
	return s.err
}

type stubEngagementService struct {
	result  services.ToggleResult
	err     error
	lastCmd services.ToggleEngagementCommand
}

func (s *stubEngagementService) Toggle(_ context.Context, cmd services.ToggleEngagementCommand) (services.ToggleResult, error) {
	s.lastCmd = cmd
	return s.result, s.err
}

type stubVerifier struct {
	result     payments.VerificationResult
	err        error
	lastMethod string
	lastReq    payments.VerifyRequest
}

func (s *stubVerifier) Verify(_ context.Context, method string, req payments.VerifyRequest) (payments.VerificationResult, error) {
	s.lastMethod = method
	s.lastReq = req
	return s.result, s.err
}

type stubSystemService struct {
	report domain.SystemHealthReport
	err    error
}

func (s *stubSystemService) Health(context.Context) (domain.SystemHealthReport, error) {
	return s.report, s.err
}

func withTestIdentity(r *http.Request, uid string, roles ...string) *http.Request {
	identity := &auth.Identity{UID: uid, Email: uid + "@example.com", Roles: roles}
	if len(roles) == 0 {
		identity.Roles = []string{auth.RoleUser}
	}
	return r.WithContext(auth.WithIdentity(r.Context(), identity))
}
