package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// Book is a published title sold through the bookstore.
type Book struct {
	ID          string
	Title       string
	Author      string
	Description string
	Price       int64
	CoverPath   string
	Categories  []string
	Published   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CartLine stores a single book entry within a cart. Quantity is always >= 1
// for a persisted line; at most one line exists per book id.
type CartLine struct {
	BookID    string
	Title     string
	UnitPrice int64
	Quantity  int
	AddedAt   time.Time
}

// CheckoutStage enumerates the steps of the checkout flow.
type CheckoutStage string

const (
	// StageCollectingDetails indicates delivery details are still being captured.
	StageCollectingDetails CheckoutStage = "collecting_details"
	// StageSelectingPayment indicates delivery details validated and a payment method is awaited.
	StageSelectingPayment CheckoutStage = "selecting_payment"
	// StageAwaitingPayment indicates a gateway session exists and the completion signal is awaited.
	StageAwaitingPayment CheckoutStage = "awaiting_payment"
	// StageCompleted indicates payment was verified and the order moved to processing.
	StageCompleted CheckoutStage = "completed"
	// StageFailed indicates the payment attempt failed; the user may retry from details entry.
	StageFailed CheckoutStage = "failed"
)

// DeliveryDetails captures validated delivery fields collected during checkout.
type DeliveryDetails struct {
	Address string
	Phone   string
}

// CheckoutState tracks the in-flight checkout attempt attached to a cart.
type CheckoutState struct {
	Stage         CheckoutStage
	Delivery      DeliveryDetails
	PaymentMethod string
	OrderID       string
	SessionID     string
	TransactionID string
	UpdatedAt     time.Time
}

// Cart aggregates the session-scoped shopping cart state for a user.
// Line order is first-add order; re-adding a removed book appends it again.
type Cart struct {
	ID        string
	UserID    string
	Lines     []CartLine
	Checkout  *CheckoutState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Subtotal sums unit price times quantity across all lines.
func (c Cart) Subtotal() int64 {
	var total int64
	for _, line := range c.Lines {
		if line.Quantity <= 0 || line.UnitPrice < 0 {
			continue
		}
		total += line.UnitPrice * int64(line.Quantity)
	}
	return total
}

// NonEmpty reports whether the cart holds at least one line. Downstream views
// subscribe to this signal to open or close cart affordances.
func (c Cart) NonEmpty() bool {
	return len(c.Lines) > 0
}

// LineFor returns the index of the line holding bookID, or -1.
func (c Cart) LineFor(bookID string) int {
	for i, line := range c.Lines {
		if line.BookID == bookID {
			return i
		}
	}
	return -1
}

// OrderStatus enumerates valid fulfilment states for orders.
type OrderStatus string

const (
	// OrderStatusPending indicates the order awaits payment completion.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusProcessing indicates payment succeeded and fulfilment has started.
	OrderStatusProcessing OrderStatus = "processing"
	// OrderStatusDelivery indicates the order has been handed to delivery.
	OrderStatusDelivery OrderStatus = "delivery"
	// OrderStatusDelivered indicates the order reached the customer.
	OrderStatusDelivered OrderStatus = "delivered"
	// OrderStatusCompleted indicates the order is closed out.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled indicates the order was cancelled before completion.
	OrderStatusCancelled OrderStatus = "cancelled"
	// OrderStatusFailed indicates the order failed and will not be fulfilled.
	OrderStatusFailed OrderStatus = "failed"
)

// PaymentStatus is the independent payment axis of an order.
type PaymentStatus string

const (
	// PaymentUnpaid indicates no verified payment exists for the order.
	PaymentUnpaid PaymentStatus = "unpaid"
	// PaymentPaid indicates a gateway-verified payment was recorded.
	PaymentPaid PaymentStatus = "paid"
	// PaymentFailed indicates the last payment attempt failed.
	PaymentFailed PaymentStatus = "failed"
	// PaymentRefunded indicates a previously paid amount was returned.
	PaymentRefunded PaymentStatus = "refunded"
)

// TrackingEntry is one append-only audit record of an order transition.
type TrackingEntry struct {
	Status    OrderStatus
	Message   string
	Timestamp time.Time
}

// OrderItem snapshots a purchased line at order-creation time. Unit prices are
// resolved server-side from the catalog and never recomputed afterwards.
type OrderItem struct {
	BookID    string
	Title     string
	Quantity  int
	UnitPrice int64
	Total     int64
}

// Order is the durable record created by checkout and mutated by admin
// actions and payment callbacks.
type Order struct {
	ID              string
	OrderNumber     string
	UserID          string
	BuyerName       string
	BuyerEmail      string
	Items           []OrderItem
	DeliveryAddress string
	DeliveryPhone   string
	PaymentMethod   string
	Currency        string
	Amount          int64
	BundlePrice     *int64
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	TransactionID   string
	Tracking        []TrackingEntry
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaidAt          *time.Time
}

// ModerationStatus is shared by community submissions awaiting review.
type ModerationStatus string

const (
	// ModerationPending indicates the submission awaits review.
	ModerationPending ModerationStatus = "pending"
	// ModerationApproved indicates the submission is publicly visible.
	ModerationApproved ModerationStatus = "approved"
	// ModerationRejected indicates the submission was rejected and hidden.
	ModerationRejected ModerationStatus = "rejected"
)

// EngagementKind names the user-id sets maintained on community entities.
type EngagementKind string

const (
	// EngagementLikes is the set of users who liked an entity.
	EngagementLikes EngagementKind = "likes"
	// EngagementBookmarks is the set of users who bookmarked an entity.
	EngagementBookmarks EngagementKind = "bookmarks"
	// EngagementVotes is the set of users who voted for an entity.
	EngagementVotes EngagementKind = "votes"
)

// CommunityKind identifies a peripheral content collection.
type CommunityKind string

const (
	// KindInstitution lists madrasas and partner institutions.
	KindInstitution CommunityKind = "institutions"
	// KindVideo lists published lecture videos.
	KindVideo CommunityKind = "videos"
	// KindQuestion lists Q&A board entries.
	KindQuestion CommunityKind = "questions"
	// KindMasalah lists important-rulings knowledge base entries.
	KindMasalah CommunityKind = "masalah"
	// KindEvent lists programmes and events.
	KindEvent CommunityKind = "events"
	// KindReview lists book reviews.
	KindReview CommunityKind = "reviews"
)

// CommunityEntry is the shared shape of peripheral content records: an owner,
// a moderation status, free-form fields, and engagement sets of user ids.
type CommunityEntry struct {
	ID         string
	Kind       CommunityKind
	OwnerID    string
	OwnerName  string
	Title      string
	Body       string
	Answer     string
	Status     ModerationStatus
	Fields     map[string]any
	Likes      []string
	Bookmarks  []string
	Votes      []string
	Answered   bool
	AnsweredAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserProfile is the projection of the identity provider's user record.
type UserProfile struct {
	ID          string
	DisplayName string
	Email       string
	Admin       bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	// HealthStatusOK indicates all dependencies are healthy.
	HealthStatusOK = "ok"
	// HealthStatusDegraded indicates at least one dependency is degraded but service remains running.
	HealthStatusDegraded = "degraded"
	// HealthStatusError indicates the service or a critical dependency is unavailable.
	HealthStatusError = "error"
)

// SystemHealthCheck describes the outcome of an individual dependency probe.
type SystemHealthCheck struct {
	Status    string
	Detail    string
	Error     string
	Latency   time.Duration
	CheckedAt time.Time
}

// SystemHealthReport aggregates dependency status for health endpoints.
type SystemHealthReport struct {
	Status      string
	Checks      map[string]SystemHealthCheck
	Version     string
	Environment string
	Uptime      time.Duration
	GeneratedAt time.Time
}
