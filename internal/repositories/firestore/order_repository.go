package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/attaleem/api/internal/domain"
	pfirestore "github.com/attaleem/api/internal/platform/firestore"
	"github.com/attaleem/api/internal/repositories"
)

const ordersCollection = "orders"

// Firestore caps `in` clauses at ten values.
const maxInClauseValues = 10

type orderItemDocument struct {
	BookID    string `firestore:"bookId"`
	Title     string `firestore:"title"`
	Quantity  int    `firestore:"quantity"`
	UnitPrice int64  `firestore:"unitPrice"`
	Total     int64  `firestore:"total"`
}

type trackingEntryDocument struct {
	Status    string    `firestore:"status"`
	Message   string    `firestore:"message"`
	Timestamp time.Time `firestore:"timestamp"`
}

type orderDocument struct {
	OrderNumber     string                  `firestore:"orderNumber"`
	UserID          string                  `firestore:"userId"`
	BuyerName       string                  `firestore:"buyerName"`
	BuyerEmail      string                  `firestore:"buyerEmail"`
	Items           []orderItemDocument     `firestore:"items"`
	DeliveryAddress string                  `firestore:"deliveryAddress"`
	DeliveryPhone   string                  `firestore:"deliveryPhone"`
	PaymentMethod   string                  `firestore:"paymentMethod"`
	Currency        string                  `firestore:"currency"`
	Amount          int64                   `firestore:"amount"`
	BundlePrice     *int64                  `firestore:"bundlePrice,omitempty"`
	Status          string                  `firestore:"status"`
	PaymentStatus   string                  `firestore:"paymentStatus"`
	TransactionID   string                  `firestore:"transactionId"`
	Tracking        []trackingEntryDocument `firestore:"tracking"`
	CreatedAt       time.Time               `firestore:"createdAt"`
	UpdatedAt       time.Time               `firestore:"updatedAt"`
	PaidAt          *time.Time              `firestore:"paidAt,omitempty"`
}

// OrderRepository persists orders in Firestore.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository: firestore provider is required")
	}
	base := pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection, nil, nil)
	return &OrderRepository{base: base}, nil
}

// Insert stores a new order document.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	if _, err := docRef.Create(ctx, encodeOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

// Update replaces the stored order with the provided snapshot.
func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return errors.New("order repository: order id is required")
	}
	docRef, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return err
	}
	if _, err := docRef.Set(ctx, encodeOrderDocument(order)); err != nil {
		return pfirestore.WrapError("orders.update", err)
	}
	return nil
}

// FindByID fetches a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return decodeOrderDocument(orderID, doc.Data, doc.CreateTime, doc.UpdateTime), nil
}

// Delete removes the order document entirely.
func (r *OrderRepository) Delete(ctx context.Context, orderID string) error {
	if r == nil || r.base == nil {
		return errors.New("order repository not initialised")
	}
	docRef, err := r.base.DocumentRef(ctx, strings.TrimSpace(orderID))
	if err != nil {
		return err
	}
	if _, err := docRef.Delete(ctx, firestore.Exists); err != nil {
		return pfirestore.WrapError("orders.delete", err)
	}
	return nil
}

// List returns orders ordered by creation time, newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.Order]{}, errors.New("order repository not initialised")
	}
	if len(filter.Status) > maxInClauseValues || len(filter.PaymentStatus) > maxInClauseValues {
		return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: at most %d status values supported", maxInClauseValues)
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
			return domain.CursorPage[domain.Order]{}, fmt.Errorf("order repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	userID := strings.TrimSpace(filter.UserID)

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		if userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if len(filter.Status) > 0 {
			q = q.Where("status", "in", orderStatusStrings(filter.Status))
		}
		if len(filter.PaymentStatus) > 0 {
			q = q.Where("paymentStatus", "in", paymentStatusStrings(filter.PaymentStatus))
		}
		if filter.DateRange.From != nil {
			q = q.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			q = q.Where("createdAt", "<=", filter.DateRange.To.UTC())
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
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

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeOrderDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}
	return domain.CursorPage[domain.Order]{Items: items, NextPageToken: nextToken}, nil
}

// ListStalePending returns pending unpaid orders created before cutoff, oldest
// first so the sweep retires the longest-waiting orders first.
func (r *OrderRepository) ListStalePending(ctx context.Context, cutoff time.Time, limit int) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("status", "==", string(domain.OrderStatusPending)).
			Where("paymentStatus", "==", string(domain.PaymentUnpaid)).
			Where("createdAt", "<", cutoff.UTC()).
			OrderBy("createdAt", firestore.Asc)
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q
	})
	if err != nil {
		return nil, err
	}
	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		orders = append(orders, decodeOrderDocument(doc.ID, doc.Data, doc.CreateTime, doc.UpdateTime))
	}
	return orders, nil
}

func encodeOrderDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument{
			BookID:    item.BookID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		})
	}
	tracking := make([]trackingEntryDocument, 0, len(order.Tracking))
	for _, entry := range order.Tracking {
		tracking = append(tracking, trackingEntryDocument{
			Status:    string(entry.Status),
			Message:   entry.Message,
			Timestamp: entry.Timestamp.UTC(),
		})
	}
	return orderDocument{
		OrderNumber:     strings.TrimSpace(order.OrderNumber),
		UserID:          strings.TrimSpace(order.UserID),
		BuyerName:       strings.TrimSpace(order.BuyerName),
		BuyerEmail:      strings.TrimSpace(order.BuyerEmail),
		Items:           items,
		DeliveryAddress: strings.TrimSpace(order.DeliveryAddress),
		DeliveryPhone:   strings.TrimSpace(order.DeliveryPhone),
		PaymentMethod:   strings.TrimSpace(order.PaymentMethod),
		Currency:        strings.TrimSpace(order.Currency),
		Amount:          order.Amount,
		BundlePrice:     cloneInt64Pointer(order.BundlePrice),
		Status:          string(order.Status),
		PaymentStatus:   string(order.PaymentStatus),
		TransactionID:   strings.TrimSpace(order.TransactionID),
		Tracking:        tracking,
		CreatedAt:       order.CreatedAt.UTC(),
		UpdatedAt:       order.UpdatedAt.UTC(),
		PaidAt:          normaliseTimePointer(order.PaidAt),
	}
}

func decodeOrderDocument(id string, doc orderDocument, createdAt, updatedAt time.Time) domain.Order {
	items := make([]domain.OrderItem, 0, len(doc.Items))
	for _, item := range doc.Items {
		items = append(items, domain.OrderItem{
			BookID:    item.BookID,
			Title:     item.Title,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		})
	}
	tracking := make([]domain.TrackingEntry, 0, len(doc.Tracking))
	for _, entry := range doc.Tracking {
		tracking = append(tracking, domain.TrackingEntry{
			Status:    domain.OrderStatus(entry.Status),
			Message:   entry.Message,
			Timestamp: entry.Timestamp.UTC(),
		})
	}
	return domain.Order{
		ID:              strings.TrimSpace(id),
		OrderNumber:     doc.OrderNumber,
		UserID:          doc.UserID,
		BuyerName:       doc.BuyerName,
		BuyerEmail:      doc.BuyerEmail,
		Items:           items,
		DeliveryAddress: doc.DeliveryAddress,
		DeliveryPhone:   doc.DeliveryPhone,
		PaymentMethod:   doc.PaymentMethod,
		Currency:        doc.Currency,
		Amount:          doc.Amount,
		BundlePrice:     cloneInt64Pointer(doc.BundlePrice),
		Status:          domain.OrderStatus(doc.Status),
		PaymentStatus:   domain.PaymentStatus(doc.PaymentStatus),
		TransactionID:   doc.TransactionID,
		Tracking:        tracking,
		CreatedAt:       chooseTime(doc.CreatedAt, createdAt),
		UpdatedAt:       chooseTime(doc.UpdatedAt, updatedAt),
		PaidAt:          normaliseTimePointer(doc.PaidAt),
	}
}

func orderStatusStrings(statuses []domain.OrderStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

func paymentStatusStrings(statuses []domain.PaymentStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

func cloneInt64Pointer(value *int64) *int64 {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func normaliseTimePointer(value *time.Time) *time.Time {
	if value == nil || value.IsZero() {
		return nil
	}
	normalised := value.UTC()
	return &normalised
}
