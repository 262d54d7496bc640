package services

import (
	"context"
	"fmt"
	"time"

	domain "github.com/attaleem/api/internal/domain"
)

// Actor identifies the caller of an operation. Handlers resolve it from the
// verified identity token and pass it explicitly; services never read
// identity from ambient state.
type Actor struct {
	ID        string
	Name      string
	Email     string
	Admin     bool
	Moderator bool
}

// ValidationError reports a field-scoped input failure. The operation makes
// no network or persistence call when one is returned.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

// BookPage packages a catalog listing with the authoritative total count.
type BookPage struct {
	Items         []domain.Book
	NextPageToken string
	TotalCount    int64
}

// ListBooksQuery narrows a catalog listing.
type ListBooksQuery struct {
	Search             string
	Category           string
	IncludeUnpublished bool
	Pagination         domain.Pagination
}

// UpsertBookCommand creates or updates a catalog book. Admin only.
type UpsertBookCommand struct {
	Actor Actor
	Book  domain.Book
}

// DeleteBookCommand removes a catalog book. Admin only.
type DeleteBookCommand struct {
	Actor  Actor
	BookID string
}

// CatalogService reads and administers the published book catalog.
type CatalogService interface {
	ListBooks(ctx context.Context, query ListBooksQuery) (BookPage, error)
	GetBook(ctx context.Context, bookID string) (domain.Book, error)
	CountPublished(ctx context.Context) (int64, error)
	UpsertBook(ctx context.Context, cmd UpsertBookCommand) (domain.Book, error)
	DeleteBook(ctx context.Context, cmd DeleteBookCommand) error
}

// CartView is the priced projection returned after every cart mutation.
type CartView struct {
	Cart     domain.Cart
	Quote    domain.BundleQuote
	NonEmpty bool
}

// CartService maintains the session-scoped cart and reprices it on every
// mutation.
type CartService interface {
	View(ctx context.Context, userID string) (CartView, error)
	Add(ctx context.Context, userID string, bookID string) (CartView, error)
	Increment(ctx context.Context, userID string, bookID string) (CartView, error)
	// Decrement lowers the quantity; dropping below one returns
	// ErrCartConfirmRemoval without mutating, and the caller completes the
	// removal with ConfirmRemove.
	Decrement(ctx context.Context, userID string, bookID string) (CartView, error)
	ConfirmRemove(ctx context.Context, userID string, bookID string) (CartView, error)
	RemoveAll(ctx context.Context, userID string, bookID string) (CartView, error)
	Clear(ctx context.Context, userID string) error
}

// SubmitDetailsCommand carries delivery fields for validation.
type SubmitDetailsCommand struct {
	UserID  string
	Address string
	Phone   string
}

// SelectPaymentCommand advances checkout past payment-method selection.
// Selecting a method is not a passive choice: it creates the order and the
// gateway session.
type SelectPaymentCommand struct {
	Actor  Actor
	UserID string
	Method string
}

// CheckoutRedirect points the client at the hosted payment session.
type CheckoutRedirect struct {
	OrderID     string
	OrderNumber string
	SessionID   string
	RedirectURL string
	Provider    string
	Amount      int64
}

// PaymentSignal is one completion message from the payment channel, either
// the gateway IPN webhook or the client confirm call. The handler validates
// the transport-level origin before building one.
type PaymentSignal struct {
	UserID        string
	SessionID     string
	OrderID       string
	TransactionID string
	Valid         bool
	// VerifiedOrderID and VerifiedAmount echo what the provider actually
	// settled. The service rejects signals whose verified values disagree
	// with the order being completed.
	VerifiedOrderID string
	VerifiedAmount  int64
}

// CheckoutResult reports the stage reached after processing a signal.
type CheckoutResult struct {
	Stage   domain.CheckoutStage
	OrderID string
}

// CheckoutService drives the multi-step checkout flow:
// collecting_details -> selecting_payment -> awaiting_payment ->
// completed | failed.
type CheckoutService interface {
	SubmitDetails(ctx context.Context, cmd SubmitDetailsCommand) (domain.CheckoutState, error)
	SelectPayment(ctx context.Context, cmd SelectPaymentCommand) (CheckoutRedirect, error)
	CompletePayment(ctx context.Context, signal PaymentSignal) (CheckoutResult, error)
	// Abandon discards local checkout state. Before order creation this
	// leaves no server-side trace; afterwards the pending order remains
	// until the expiry sweep or an admin cancels it.
	Abandon(ctx context.Context, userID string) error
}

// OrderItemInput names a purchased book by id and quantity only. Unit prices
// are resolved server-side so clients cannot tamper with amounts.
type OrderItemInput struct {
	BookID   string
	Quantity int
}

// CreateOrderCommand creates an order in pending/unpaid state.
type CreateOrderCommand struct {
	Actor           Actor
	UserID          string
	BuyerName       string
	BuyerEmail      string
	Items           []OrderItemInput
	DeliveryAddress string
	DeliveryPhone   string
	PaymentMethod   string
	// ApplyBundle requests the flat bundle price. The service re-verifies
	// eligibility against the catalog; an ineligible order is charged
	// regular prices.
	ApplyBundle bool
}

// OrderListQuery narrows order listings. Non-admin actors only ever see
// their own orders regardless of the UserID filter.
type OrderListQuery struct {
	UserID        string
	Status        []domain.OrderStatus
	PaymentStatus []domain.PaymentStatus
	DateRange     domain.RangeQuery[time.Time]
	Pagination    domain.Pagination
}

// TransitionOrderCommand moves an order along the fulfilment axis.
type TransitionOrderCommand struct {
	Actor   Actor
	OrderID string
	Target  domain.OrderStatus
	Message string
}

// RecordPaymentCommand applies a verified payment outcome to an order.
// Amount, when non-zero, is the gateway-settled amount; marking an order paid
// for a different amount is rejected with ErrOrderPaymentMismatch.
type RecordPaymentCommand struct {
	OrderID       string
	TransactionID string
	Target        domain.PaymentStatus
	Amount        int64
	Message       string
}

// BulkAction names one admin bulk operation.
type BulkAction string

const (
	// BulkMarkProcessing moves orders to processing.
	BulkMarkProcessing BulkAction = "mark-processing"
	// BulkMarkDelivery moves orders to delivery.
	BulkMarkDelivery BulkAction = "mark-delivery"
	// BulkMarkCompleted moves orders to completed.
	BulkMarkCompleted BulkAction = "mark-completed"
	// BulkMarkPaid records a manual paid payment status.
	BulkMarkPaid BulkAction = "mark-paid"
	// BulkMarkCancelled cancels orders.
	BulkMarkCancelled BulkAction = "mark-cancelled"
	// BulkDelete hard-deletes orders.
	BulkDelete BulkAction = "delete"
)

// BulkOrderCommand applies one action to a set of order ids.
type BulkOrderCommand struct {
	Actor    Actor
	OrderIDs []string
	Action   BulkAction
	Message  string
}

// BulkFailure reports one order id the bulk action could not process.
type BulkFailure struct {
	OrderID string
	Reason  string
}

// BulkOrderResult reports per-id outcomes; partial success is allowed and
// failures are never silently dropped.
type BulkOrderResult struct {
	Applied []string
	Failed  []BulkFailure
}

// DeleteOrderCommand hard-deletes a single order. Irreversible; requires the
// caller to set Confirmed explicitly.
type DeleteOrderCommand struct {
	Actor     Actor
	OrderID   string
	Confirmed bool
}

// OrderService owns the order lifecycle: creation, the status state machine,
// payment-status transitions, bulk admin actions, deletion, and the stale
// pending-order sweep.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error)
	Get(ctx context.Context, actor Actor, orderID string) (domain.Order, error)
	List(ctx context.Context, actor Actor, query OrderListQuery) (domain.CursorPage[domain.Order], error)
	Transition(ctx context.Context, cmd TransitionOrderCommand) (domain.Order, error)
	RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (domain.Order, error)
	// RecordPaymentFailure notes a failed payment attempt in the order
	// tracking without moving the payment status; the order stays payable.
	RecordPaymentFailure(ctx context.Context, orderID string, message string) (domain.Order, error)
	Bulk(ctx context.Context, cmd BulkOrderCommand) (BulkOrderResult, error)
	Delete(ctx context.Context, cmd DeleteOrderCommand) error
	SweepStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// OrderEvent captures metadata for emitted order domain events.
type OrderEvent struct {
	Type           string
	OrderID        string
	OrderNumber    string
	PreviousStatus domain.OrderStatus
	CurrentStatus  domain.OrderStatus
	PaymentStatus  domain.PaymentStatus
	ActorID        string
	OccurredAt     time.Time
	Metadata       map[string]any
}

// OrderEventPublisher publishes order domain events for downstream consumers.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// MailMessage is one transactional email handed to the external sender.
type MailMessage struct {
	To       string
	Subject  string
	Template string
	Data     map[string]any
}

// MailPublisher enqueues mail for the external transactional sender.
type MailPublisher interface {
	PublishMail(ctx context.Context, msg MailMessage) (string, error)
}

// ToggleEngagementCommand flips the actor's membership in one engagement set.
type ToggleEngagementCommand struct {
	Actor   Actor
	Kind    domain.CommunityKind
	EntryID string
	Field   domain.EngagementKind
}

// ToggleResult reports the state after the toggle.
type ToggleResult struct {
	Member bool
	Count  int
}

// EngagementService is the reusable set-toggle used by likes, bookmarks and
// votes across all community entities.
type EngagementService interface {
	Toggle(ctx context.Context, cmd ToggleEngagementCommand) (ToggleResult, error)
}

// SubmitEntryCommand creates a community submission in pending state.
type SubmitEntryCommand struct {
	Actor  Actor
	Kind   domain.CommunityKind
	Title  string
	Body   string
	Fields map[string]any
}

// ListEntriesQuery narrows community listings.
type ListEntriesQuery struct {
	Actor      Actor
	Kind       domain.CommunityKind
	OwnerID    string
	Status     []domain.ModerationStatus
	Search     string
	Pagination domain.Pagination
}

// ModerateEntryCommand applies an admin moderation decision.
type ModerateEntryCommand struct {
	Actor   Actor
	Kind    domain.CommunityKind
	EntryID string
	Status  domain.ModerationStatus
}

// AnswerQuestionCommand records an answer on a question entry. Admin only.
type AnswerQuestionCommand struct {
	Actor   Actor
	EntryID string
	Answer  string
}

// DeleteEntryCommand removes a submission; owners may delete their own,
// admins may delete any.
type DeleteEntryCommand struct {
	Actor   Actor
	Kind    domain.CommunityKind
	EntryID string
}

// ContentService manages peripheral community content: institutions, videos,
// questions, masalah, events and reviews.
type ContentService interface {
	Submit(ctx context.Context, cmd SubmitEntryCommand) (domain.CommunityEntry, error)
	Get(ctx context.Context, kind domain.CommunityKind, entryID string) (domain.CommunityEntry, error)
	List(ctx context.Context, query ListEntriesQuery) (domain.CursorPage[domain.CommunityEntry], error)
	Moderate(ctx context.Context, cmd ModerateEntryCommand) (domain.CommunityEntry, error)
	Answer(ctx context.Context, cmd AnswerQuestionCommand) (domain.CommunityEntry, error)
	Delete(ctx context.Context, cmd DeleteEntryCommand) error
}

// SystemService reports aggregate service health.
type SystemService interface {
	Health(ctx context.Context) (domain.SystemHealthReport, error)
}
