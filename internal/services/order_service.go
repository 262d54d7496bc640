package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/attaleem/api/internal/domain"
	"github.com/attaleem/api/internal/repositories"
)

const (
	orderEventCreated       = "order.created"
	orderEventStatusChanged = "order.status.changed"
	orderEventPaymentMoved  = "order.payment.changed"
	orderEventExpired       = "order.expired"
	orderEventDeleted       = "order.deleted"

	orderIDPrefix = "ord_"

	mailTemplateOrderConfirmation = "order-confirmation"
	mailTemplateOrderStatus       = "order-status"

	defaultOrderCurrency = "BDT"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderForbidden indicates the actor is not allowed to act on the order.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates optimistic concurrency conflicts or duplicates.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderConfirmationRequired indicates a destructive action lacked explicit confirmation.
	ErrOrderConfirmationRequired = errors.New("order: explicit confirmation required")
	// ErrOrderPaymentMismatch indicates the verified payment answers for a
	// different order or amount than the one being settled.
	ErrOrderPaymentMismatch = errors.New("order: payment does not match order")
	// ErrOrderUnavailable indicates the order store is unreachable.
	ErrOrderUnavailable = errors.New("order: unavailable")
)

// Fulfilment axis. Cancelled and failed are reachable from every
// non-terminal state; completed, cancelled and failed are terminal.
var orderStatusTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusProcessing, domain.OrderStatusCancelled, domain.OrderStatusFailed},
	domain.OrderStatusProcessing: {domain.OrderStatusDelivery, domain.OrderStatusCancelled, domain.OrderStatusFailed},
	domain.OrderStatusDelivery:   {domain.OrderStatusDelivered, domain.OrderStatusCancelled, domain.OrderStatusFailed},
	domain.OrderStatusDelivered:  {domain.OrderStatusCompleted, domain.OrderStatusCancelled, domain.OrderStatusFailed},
}

// Payment axis. An unpaid order stays unpaid through failed attempts and
// remains payable; failed marks a post-settlement problem on a paid order.
// Paid never reverts to unpaid; refunded is the only exit once money has
// been returned.
var paymentStatusTransitions = map[domain.PaymentStatus][]domain.PaymentStatus{
	domain.PaymentUnpaid: {domain.PaymentPaid},
	domain.PaymentFailed: {domain.PaymentPaid},
	domain.PaymentPaid:   {domain.PaymentRefunded, domain.PaymentFailed},
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders   repositories.OrderRepository
	Books    repositories.BookRepository
	Counters repositories.CounterRepository
	// BundlePrice is the flat price charged for a full-catalog order.
	BundlePrice int64
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Mail        MailPublisher
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders      repositories.OrderRepository
	books       repositories.BookRepository
	counters    repositories.CounterRepository
	bundlePrice int64
	clock       func() time.Time
	newID       func() string
	events      OrderEventPublisher
	mail        MailPublisher
	logger      func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Books == nil {
		return nil, errors.New("order service: book repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
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

	return &orderService{
		orders:      deps.Orders,
		books:       deps.Books,
		counters:    deps.Counters,
		bundlePrice: deps.BundlePrice,
		clock:       func() time.Time { return clock().UTC() },
		newID:       idGen,
		events:      deps.Events,
		mail:        deps.Mail,
		logger:      logger,
	}, nil
}

// Create persists a new order in pending/unpaid state. Unit prices are
// resolved from the catalog here; the resulting amount is fixed for the
// lifetime of the order.
func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (domain.Order, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return domain.Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	if len(cmd.Items) == 0 {
		return domain.Order{}, fmt.Errorf("%w: at least one item is required", ErrOrderInvalidInput)
	}
	if strings.TrimSpace(cmd.DeliveryAddress) == "" || strings.TrimSpace(cmd.DeliveryPhone) == "" {
		return domain.Order{}, fmt.Errorf("%w: delivery details are required", ErrOrderInvalidInput)
	}

	items := make([]domain.OrderItem, 0, len(cmd.Items))
	seen := make(map[string]struct{}, len(cmd.Items))
	var subtotal int64
	allSingle := true
	for _, input := range cmd.Items {
		bookID := strings.TrimSpace(input.BookID)
		if bookID == "" || input.Quantity < 1 {
			return domain.Order{}, fmt.Errorf("%w: item requires book id and quantity >= 1", ErrOrderInvalidInput)
		}
		if _, dup := seen[bookID]; dup {
			return domain.Order{}, fmt.Errorf("%w: duplicate item %s", ErrOrderInvalidInput, bookID)
		}
		seen[bookID] = struct{}{}

		book, err := s.books.FindByID(ctx, bookID)
		if err != nil {
			return domain.Order{}, s.mapRepositoryError(err)
		}
		if !book.Published {
			return domain.Order{}, fmt.Errorf("%w: book %s is not available", ErrOrderInvalidInput, bookID)
		}
		if input.Quantity != 1 {
			allSingle = false
		}
		total := book.Price * int64(input.Quantity)
		subtotal += total
		items = append(items, domain.OrderItem{
			BookID:    book.ID,
			Title:     book.Title,
			Quantity:  input.Quantity,
			UnitPrice: book.Price,
			Total:     total,
		})
	}

	amount := subtotal
	var bundlePrice *int64
	if cmd.ApplyBundle && allSingle && s.bundlePrice > 0 {
		// Re-verify eligibility server-side; clients cannot force the flat
		// price onto a partial cart. The flat price only ever lowers the
		// charge.
		catalogCount, err := s.books.CountPublished(ctx)
		if err != nil {
			return domain.Order{}, s.mapRepositoryError(err)
		}
		if int64(len(items)) == catalogCount && subtotal > s.bundlePrice {
			amount = s.bundlePrice
			price := s.bundlePrice
			bundlePrice = &price
		}
	}

	now := s.clock()
	order := domain.Order{
		ID:              orderIDPrefix + s.newID(),
		UserID:          userID,
		BuyerName:       strings.TrimSpace(cmd.BuyerName),
		BuyerEmail:      strings.TrimSpace(cmd.BuyerEmail),
		Items:           items,
		DeliveryAddress: strings.TrimSpace(cmd.DeliveryAddress),
		DeliveryPhone:   strings.TrimSpace(cmd.DeliveryPhone),
		PaymentMethod:   strings.ToLower(strings.TrimSpace(cmd.PaymentMethod)),
		Currency:        defaultOrderCurrency,
		Amount:          amount,
		BundlePrice:     bundlePrice,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   domain.PaymentUnpaid,
		Tracking: []domain.TrackingEntry{{
			Status:    domain.OrderStatusPending,
			Message:   "Order placed",
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	number, err := s.generateOrderNumber(ctx, now)
	if err != nil {
		return domain.Order{}, err
	}
	order.OrderNumber = number

	if err := s.orders.Insert(ctx, order); err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventCreated,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CurrentStatus: order.Status,
		PaymentStatus: order.PaymentStatus,
		ActorID:       cmd.Actor.ID,
		OccurredAt:    now,
	})
	s.sendMail(ctx, order, MailMessage{
		To:       order.BuyerEmail,
		Subject:  fmt.Sprintf("Order %s received", order.OrderNumber),
		Template: mailTemplateOrderConfirmation,
		Data: map[string]any{
			"orderNumber": order.OrderNumber,
			"amount":      order.Amount,
			"currency":    order.Currency,
		},
	})

	return order, nil
}

func (s *orderService) Get(ctx context.Context, actor Actor, orderID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}
	if !actor.Admin && order.UserID != actor.ID {
		return domain.Order{}, ErrOrderForbidden
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, actor Actor, query OrderListQuery) (domain.CursorPage[domain.Order], error) {
	filter := repositories.OrderListFilter{
		UserID:        strings.TrimSpace(query.UserID),
		Status:        query.Status,
		PaymentStatus: query.PaymentStatus,
		DateRange:     query.DateRange,
		Pagination:    query.Pagination,
	}
	if !actor.Admin {
		// Non-admin callers only ever see their own orders.
		filter.UserID = actor.ID
	}
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) Transition(ctx context.Context, cmd TransitionOrderCommand) (domain.Order, error) {
	if !cmd.Actor.Admin {
		return domain.Order{}, ErrOrderForbidden
	}
	return s.transition(ctx, cmd.OrderID, cmd.Target, cmd.Message, cmd.Actor.ID)
}

func (s *orderService) transition(ctx context.Context, orderID string, target domain.OrderStatus, message string, actorID string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if target == "" {
		return domain.Order{}, fmt.Errorf("%w: target status is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	now := s.clock()
	prev := order.Status
	if err := applyStatusTransition(&order, target, message, now); err != nil {
		return domain.Order{}, err
	}

	if err := s.orders.Update(ctx, order); err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:           orderEventStatusChanged,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		PreviousStatus: prev,
		CurrentStatus:  order.Status,
		PaymentStatus:  order.PaymentStatus,
		ActorID:        actorID,
		OccurredAt:     now,
	})
	s.sendMail(ctx, order, MailMessage{
		To:       order.BuyerEmail,
		Subject:  fmt.Sprintf("Order %s is now %s", order.OrderNumber, order.Status),
		Template: mailTemplateOrderStatus,
		Data: map[string]any{
			"orderNumber": order.OrderNumber,
			"status":      string(order.Status),
		},
	})

	return order, nil
}

// RecordPayment applies a verified payment outcome. Only the verification
// path calls this with PaymentPaid; the order must never reach paid without
// a successful gateway validation.
func (s *orderService) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (domain.Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if cmd.Target == "" {
		return domain.Order{}, fmt.Errorf("%w: target payment status is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	if cmd.Target == domain.PaymentPaid && cmd.Amount > 0 && cmd.Amount != order.Amount {
		// The gateway settled a different amount than this order charges.
		// Checked before the idempotency short-circuit so a replay against
		// an already-paid order is still reported as a mismatch.
		return domain.Order{}, fmt.Errorf("%w: settled %d, order charges %d", ErrOrderPaymentMismatch, cmd.Amount, order.Amount)
	}

	if order.PaymentStatus == cmd.Target {
		// Duplicate completion signals are idempotent.
		return order, nil
	}
	if !canMovePayment(order.PaymentStatus, cmd.Target) {
		return domain.Order{}, fmt.Errorf("%w: payment %s -> %s", ErrOrderInvalidState, order.PaymentStatus, cmd.Target)
	}

	now := s.clock()
	order.PaymentStatus = cmd.Target
	order.UpdatedAt = now

	message := strings.TrimSpace(cmd.Message)
	if message == "" {
		message = fmt.Sprintf("Payment %s", cmd.Target)
	}

	if cmd.Target == domain.PaymentPaid {
		order.PaidAt = &now
		if tran := strings.TrimSpace(cmd.TransactionID); tran != "" {
			order.TransactionID = tran
		}
		if order.Status == domain.OrderStatusPending {
			order.Status = domain.OrderStatusProcessing
		}
	}

	// One tracking entry per transition, payment moves included.
	order.Tracking = append(order.Tracking, domain.TrackingEntry{
		Status:    order.Status,
		Message:   message,
		Timestamp: now,
	})

	if err := s.orders.Update(ctx, order); err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventPaymentMoved,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CurrentStatus: order.Status,
		PaymentStatus: order.PaymentStatus,
		OccurredAt:    now,
		Metadata:      map[string]any{"transactionId": order.TransactionID},
	})
	if cmd.Target == domain.PaymentPaid {
		s.sendMail(ctx, order, MailMessage{
			To:       order.BuyerEmail,
			Subject:  fmt.Sprintf("Payment received for order %s", order.OrderNumber),
			Template: mailTemplateOrderStatus,
			Data: map[string]any{
				"orderNumber": order.OrderNumber,
				"status":      string(order.Status),
				"paid":        true,
			},
		})
	}

	return order, nil
}

// RecordPaymentFailure appends a tracking note for a failed payment attempt.
// The payment status is untouched: the order stays unpaid and payable.
func (s *orderService) RecordPaymentFailure(ctx context.Context, orderID string, message string) (domain.Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return domain.Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	now := s.clock()
	if strings.TrimSpace(message) == "" {
		message = "Payment attempt failed"
	}
	order.Tracking = append(order.Tracking, domain.TrackingEntry{
		Status:    order.Status,
		Message:   strings.TrimSpace(message),
		Timestamp: now,
	})
	order.UpdatedAt = now

	if err := s.orders.Update(ctx, order); err != nil {
		return domain.Order{}, s.mapRepositoryError(err)
	}

	s.logger(ctx, "order.payment.attempt_failed", map[string]any{
		"orderId": order.ID,
		"status":  string(order.PaymentStatus),
	})
	return order, nil
}

func (s *orderService) Bulk(ctx context.Context, cmd BulkOrderCommand) (BulkOrderResult, error) {
	if !cmd.Actor.Admin {
		return BulkOrderResult{}, ErrOrderForbidden
	}
	if len(cmd.OrderIDs) == 0 {
		return BulkOrderResult{}, fmt.Errorf("%w: at least one order id is required", ErrOrderInvalidInput)
	}

	var result BulkOrderResult
	for _, orderID := range cmd.OrderIDs {
		orderID = strings.TrimSpace(orderID)
		if orderID == "" {
			continue
		}
		if err := s.applyBulkAction(ctx, cmd, orderID); err != nil {
			result.Failed = append(result.Failed, BulkFailure{OrderID: orderID, Reason: err.Error()})
			continue
		}
		result.Applied = append(result.Applied, orderID)
	}
	return result, nil
}

func (s *orderService) applyBulkAction(ctx context.Context, cmd BulkOrderCommand, orderID string) error {
	switch cmd.Action {
	case BulkMarkProcessing:
		_, err := s.transition(ctx, orderID, domain.OrderStatusProcessing, cmd.Message, cmd.Actor.ID)
		return err
	case BulkMarkDelivery:
		_, err := s.transition(ctx, orderID, domain.OrderStatusDelivery, cmd.Message, cmd.Actor.ID)
		return err
	case BulkMarkCompleted:
		_, err := s.transition(ctx, orderID, domain.OrderStatusCompleted, cmd.Message, cmd.Actor.ID)
		return err
	case BulkMarkCancelled:
		_, err := s.transition(ctx, orderID, domain.OrderStatusCancelled, cmd.Message, cmd.Actor.ID)
		return err
	case BulkMarkPaid:
		_, err := s.RecordPayment(ctx, RecordPaymentCommand{
			OrderID: orderID,
			Target:  domain.PaymentPaid,
			Message: firstNonEmptyString(cmd.Message, "Marked paid by admin"),
		})
		return err
	case BulkDelete:
		return s.Delete(ctx, DeleteOrderCommand{Actor: cmd.Actor, OrderID: orderID, Confirmed: true})
	default:
		return fmt.Errorf("%w: unknown bulk action %q", ErrOrderInvalidInput, cmd.Action)
	}
}

// Delete removes the order record entirely. This is not a status transition
// and cannot be undone.
func (s *orderService) Delete(ctx context.Context, cmd DeleteOrderCommand) error {
	if !cmd.Actor.Admin {
		return ErrOrderForbidden
	}
	if !cmd.Confirmed {
		return ErrOrderConfirmationRequired
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return s.mapRepositoryError(err)
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return s.mapRepositoryError(err)
	}

	s.publishEvent(ctx, OrderEvent{
		Type:          orderEventDeleted,
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CurrentStatus: order.Status,
		PaymentStatus: order.PaymentStatus,
		ActorID:       cmd.Actor.ID,
		OccurredAt:    s.clock(),
	})
	return nil
}

// SweepStalePending cancels pending unpaid orders abandoned mid-checkout.
// Nothing in the storefront flow expires them otherwise.
func (s *orderService) SweepStalePending(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: expiry window must be positive", ErrOrderInvalidInput)
	}
	if limit <= 0 {
		limit = 100
	}

	now := s.clock()
	stale, err := s.orders.ListStalePending(ctx, now.Add(-olderThan), limit)
	if err != nil {
		return 0, s.mapRepositoryError(err)
	}

	swept := 0
	for _, order := range stale {
		if order.Status != domain.OrderStatusPending || order.PaymentStatus != domain.PaymentUnpaid {
			continue
		}
		prev := order.Status
		if err := applyStatusTransition(&order, domain.OrderStatusCancelled, "Expired: payment not completed", now); err != nil {
			continue
		}
		if err := s.orders.Update(ctx, order); err != nil {
			s.logger(ctx, "order.sweep.update_failed", map[string]any{
				"orderId": order.ID,
				"error":   err.Error(),
			})
			continue
		}
		swept++
		s.publishEvent(ctx, OrderEvent{
			Type:           orderEventExpired,
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			PreviousStatus: prev,
			CurrentStatus:  order.Status,
			PaymentStatus:  order.PaymentStatus,
			OccurredAt:     now,
		})
	}
	return swept, nil
}

// applyStatusTransition mutates the order along the fulfilment axis and
// appends exactly one tracking entry. No transition happens without a log
// entry.
func applyStatusTransition(order *domain.Order, target domain.OrderStatus, message string, now time.Time) error {
	current := order.Status
	if current == target {
		return fmt.Errorf("%w: already %s", ErrOrderInvalidState, current)
	}
	allowed, ok := orderStatusTransitions[current]
	if !ok || !slices.Contains(allowed, target) {
		return fmt.Errorf("%w: %s -> %s", ErrOrderInvalidState, current, target)
	}

	order.Status = target
	order.UpdatedAt = now
	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("Status changed to %s", target)
	}
	order.Tracking = append(order.Tracking, domain.TrackingEntry{
		Status:    target,
		Message:   strings.TrimSpace(message),
		Timestamp: now,
	})
	return nil
}

func canMovePayment(current, target domain.PaymentStatus) bool {
	allowed, ok := paymentStatusTransitions[current]
	if !ok {
		return false
	}
	return slices.Contains(allowed, target)
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, "orders", 1)
	if err != nil {
		return "", s.mapRepositoryError(err)
	}
	return fmt.Sprintf("AT-%04d-%06d", now.Year(), seq), nil
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish_failed", map[string]any{
			"type":  event.Type,
			"order": event.OrderID,
			"error": err.Error(),
		})
	}
}

// sendMail dispatches a notification without blocking the order mutation;
// delivery failures are logged, never returned.
func (s *orderService) sendMail(ctx context.Context, order domain.Order, msg MailMessage) {
	if s.mail == nil || strings.TrimSpace(msg.To) == "" {
		return
	}
	if _, err := s.mail.PublishMail(ctx, msg); err != nil {
		s.logger(ctx, "order.mail.publish_failed", map[string]any{
			"order":    order.ID,
			"template": msg.Template,
			"error":    err.Error(),
		})
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
	}
	return err
}

func firstNonEmptyString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
