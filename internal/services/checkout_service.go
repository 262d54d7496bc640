package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	domain "github.com/attaleem/api/internal/domain"
	"github.com/attaleem/api/internal/repositories"
)

const minDeliveryAddressLength = 10

// Bangladeshi mobile numbers: optional 88/+88 country prefix, operator
// prefix 013-019, eight further digits.
var bdPhonePattern = regexp.MustCompile(`^(?:\+88|88)?01[3-9][0-9]{8}$`)

var (
	// ErrCheckoutInvalidInput signals the caller provided invalid data.
	ErrCheckoutInvalidInput = errors.New("checkout: invalid input")
	// ErrCheckoutEmptyCart indicates checkout was attempted on an empty cart.
	ErrCheckoutEmptyCart = errors.New("checkout: cart is empty")
	// ErrCheckoutWrongStage indicates the operation does not apply to the
	// current checkout stage.
	ErrCheckoutWrongStage = errors.New("checkout: wrong stage")
	// ErrCheckoutNoSession indicates no payment session exists for the signal.
	ErrCheckoutNoSession = errors.New("checkout: no payment session")
	// ErrCheckoutSessionMismatch indicates the signal references a session
	// other than the one created for this checkout.
	ErrCheckoutSessionMismatch = errors.New("checkout: session mismatch")
	// ErrCheckoutUnsupportedMethod indicates an unknown payment method.
	ErrCheckoutUnsupportedMethod = errors.New("checkout: unsupported payment method")
	// ErrCheckoutUnavailable indicates a downstream dependency is unreachable.
	ErrCheckoutUnavailable = errors.New("checkout: unavailable")
)

// PaymentSessionRequest asks the gateway for a hosted payment session.
type PaymentSessionRequest struct {
	OrderID       string
	OrderNumber   string
	Amount        int64
	Currency      string
	Method        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// PaymentSession is the gateway's handle for one payment attempt.
type PaymentSession struct {
	SessionID   string
	RedirectURL string
	Provider    string
}

// PaymentGateway creates hosted payment sessions. Signal validation lives with
// the transport that receives the callback, not here.
type PaymentGateway interface {
	CreateSession(ctx context.Context, req PaymentSessionRequest) (PaymentSession, error)
	SupportedMethods() []string
}

// CheckoutServiceDeps wires the dependencies required by the checkout service.
type CheckoutServiceDeps struct {
	Carts   repositories.CartRepository
	Orders  OrderService
	Gateway PaymentGateway
	Clock   func() time.Time
	Logger  func(ctx context.Context, event string, fields map[string]any)
}

type checkoutService struct {
	carts   repositories.CartRepository
	orders  OrderService
	gateway PaymentGateway
	clock   func() time.Time
	logger  func(context.Context, string, map[string]any)
}

// NewCheckoutService constructs a CheckoutService validating required dependencies.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Carts == nil {
		return nil, errors.New("checkout service: cart repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("checkout service: order service is required")
	}
	if deps.Gateway == nil {
		return nil, errors.New("checkout service: payment gateway is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &checkoutService{
		carts:   deps.Carts,
		orders:  deps.Orders,
		gateway: deps.Gateway,
		clock:   func() time.Time { return clock().UTC() },
		logger:  logger,
	}, nil
}

// SubmitDetails validates delivery fields and advances the checkout to
// payment-method selection. Validation failures are field-scoped and cause no
// persistence call beyond the cart itself.
func (s *checkoutService) SubmitDetails(ctx context.Context, cmd SubmitDetailsCommand) (domain.CheckoutState, error) {
	address := strings.TrimSpace(cmd.Address)
	phone := strings.TrimSpace(cmd.Phone)

	if utf8.RuneCountInString(address) < minDeliveryAddressLength {
		return domain.CheckoutState{}, &ValidationError{
			Field:   "address",
			Message: fmt.Sprintf("delivery address must be at least %d characters", minDeliveryAddressLength),
		}
	}
	if !bdPhonePattern.MatchString(phone) {
		return domain.CheckoutState{}, &ValidationError{
			Field:   "phone",
			Message: "phone must be a valid Bangladeshi mobile number",
		}
	}

	cart, err := s.loadCart(ctx, cmd.UserID)
	if err != nil {
		return domain.CheckoutState{}, err
	}
	if !cart.NonEmpty() {
		return domain.CheckoutState{}, ErrCheckoutEmptyCart
	}

	now := s.clock()
	cart.Checkout = &domain.CheckoutState{
		Stage:     domain.StageSelectingPayment,
		Delivery:  domain.DeliveryDetails{Address: address, Phone: phone},
		UpdatedAt: now,
	}
	if _, err := s.saveCart(ctx, cart, now); err != nil {
		return domain.CheckoutState{}, err
	}
	return *cart.Checkout, nil
}

// SelectPayment creates the pending order and a hosted payment session, then
// moves the checkout to awaiting_payment. It is the only path that creates
// orders from the storefront.
func (s *checkoutService) SelectPayment(ctx context.Context, cmd SelectPaymentCommand) (CheckoutRedirect, error) {
	method := strings.ToLower(strings.TrimSpace(cmd.Method))
	if method == "" {
		return CheckoutRedirect{}, fmt.Errorf("%w: payment method is required", ErrCheckoutInvalidInput)
	}
	supported := false
	for _, m := range s.gateway.SupportedMethods() {
		if m == method {
			supported = true
			break
		}
	}
	if !supported {
		return CheckoutRedirect{}, fmt.Errorf("%w: %s", ErrCheckoutUnsupportedMethod, method)
	}

	cart, err := s.loadCart(ctx, cmd.UserID)
	if err != nil {
		return CheckoutRedirect{}, err
	}
	if !cart.NonEmpty() {
		return CheckoutRedirect{}, ErrCheckoutEmptyCart
	}
	checkout := cart.Checkout
	if checkout == nil {
		return CheckoutRedirect{}, fmt.Errorf("%w: delivery details not submitted", ErrCheckoutWrongStage)
	}
	switch checkout.Stage {
	case domain.StageSelectingPayment, domain.StageFailed:
		// Fresh selection, or a retry after a failed attempt.
	default:
		return CheckoutRedirect{}, fmt.Errorf("%w: stage is %s", ErrCheckoutWrongStage, checkout.Stage)
	}

	items := make([]OrderItemInput, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		items = append(items, OrderItemInput{BookID: line.BookID, Quantity: line.Quantity})
	}

	order, err := s.orders.Create(ctx, CreateOrderCommand{
		Actor:           cmd.Actor,
		UserID:          cart.UserID,
		BuyerName:       cmd.Actor.Name,
		BuyerEmail:      cmd.Actor.Email,
		Items:           items,
		DeliveryAddress: checkout.Delivery.Address,
		DeliveryPhone:   checkout.Delivery.Phone,
		PaymentMethod:   method,
		ApplyBundle:     true,
	})
	if err != nil {
		return CheckoutRedirect{}, err
	}

	session, err := s.gateway.CreateSession(ctx, PaymentSessionRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Amount:        order.Amount,
		Currency:      order.Currency,
		Method:        method,
		CustomerName:  order.BuyerName,
		CustomerEmail: order.BuyerEmail,
		CustomerPhone: order.DeliveryPhone,
	})
	if err != nil {
		s.logger(ctx, "checkout.session.create_failed", map[string]any{
			"orderId": order.ID,
			"method":  method,
			"error":   err.Error(),
		})
		return CheckoutRedirect{}, fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
	}

	now := s.clock()
	checkout.Stage = domain.StageAwaitingPayment
	checkout.PaymentMethod = method
	checkout.OrderID = order.ID
	checkout.SessionID = session.SessionID
	checkout.UpdatedAt = now
	if _, err := s.saveCart(ctx, cart, now); err != nil {
		return CheckoutRedirect{}, err
	}

	s.logger(ctx, "checkout.session.created", map[string]any{
		"orderId":  order.ID,
		"method":   method,
		"provider": session.Provider,
	})
	return CheckoutRedirect{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		SessionID:   session.SessionID,
		RedirectURL: session.RedirectURL,
		Provider:    session.Provider,
		Amount:      order.Amount,
	}, nil
}

// CompletePayment reconciles one completion signal. Both the gateway webhook
// and the client confirm call funnel here after provider-side validation; a
// duplicate of an already-applied outcome is a no-op.
func (s *checkoutService) CompletePayment(ctx context.Context, signal PaymentSignal) (CheckoutResult, error) {
	cart, cartErr := s.loadCart(ctx, signal.UserID)
	checkout := cart.Checkout
	if cartErr != nil || checkout == nil || checkout.OrderID == "" {
		// The webhook can outlive the cart (user closed the browser, cart
		// expired, confirm call already cleared it). The order is still the
		// source of truth, so apply the outcome directly when we know which
		// order the signal is for.
		if strings.TrimSpace(signal.OrderID) == "" {
			return CheckoutResult{}, ErrCheckoutNoSession
		}
		return s.applyDetached(ctx, signal)
	}

	if signal.SessionID != "" && signal.SessionID != checkout.SessionID {
		return CheckoutResult{}, ErrCheckoutSessionMismatch
	}
	if signal.OrderID != "" && signal.OrderID != checkout.OrderID {
		return CheckoutResult{}, ErrCheckoutSessionMismatch
	}
	if checkout.Stage != domain.StageAwaitingPayment {
		return CheckoutResult{}, fmt.Errorf("%w: stage is %s", ErrCheckoutWrongStage, checkout.Stage)
	}

	now := s.clock()
	if !signal.Valid {
		// The attempt failed; the order stays unpaid and payable, only the
		// tracking log records it.
		if _, err := s.orders.RecordPaymentFailure(ctx, checkout.OrderID, "Payment verification failed"); err != nil {
			return CheckoutResult{}, err
		}
		checkout.Stage = domain.StageFailed
		checkout.UpdatedAt = now
		if _, err := s.saveCart(ctx, cart, now); err != nil {
			return CheckoutResult{}, err
		}
		return CheckoutResult{Stage: domain.StageFailed, OrderID: checkout.OrderID}, nil
	}

	if signal.VerifiedOrderID != "" && signal.VerifiedOrderID != checkout.OrderID {
		// The provider validated a payment, but for a different order.
		// Never settles this one.
		if _, err := s.orders.RecordPaymentFailure(ctx, checkout.OrderID, "Payment verification answered for a different order"); err != nil {
			return CheckoutResult{}, err
		}
		checkout.Stage = domain.StageFailed
		checkout.UpdatedAt = now
		if _, err := s.saveCart(ctx, cart, now); err != nil {
			return CheckoutResult{}, err
		}
		return CheckoutResult{}, fmt.Errorf("%w: verification answered for %s", ErrOrderPaymentMismatch, signal.VerifiedOrderID)
	}

	if _, err := s.orders.RecordPayment(ctx, RecordPaymentCommand{
		OrderID:       checkout.OrderID,
		TransactionID: signal.TransactionID,
		Target:        domain.PaymentPaid,
		Amount:        signal.VerifiedAmount,
		Message:       "Payment verified",
	}); err != nil {
		if errors.Is(err, ErrOrderPaymentMismatch) {
			checkout.Stage = domain.StageFailed
			checkout.UpdatedAt = now
			if _, saveErr := s.saveCart(ctx, cart, now); saveErr != nil {
				return CheckoutResult{}, saveErr
			}
		}
		return CheckoutResult{}, err
	}

	orderID := checkout.OrderID
	if err := s.carts.Delete(ctx, cart.UserID); err != nil {
		// The payment is recorded; a stale cart is an annoyance, not a failure.
		s.logger(ctx, "checkout.cart.clear_failed", map[string]any{
			"userId": cart.UserID,
			"error":  err.Error(),
		})
	}
	return CheckoutResult{Stage: domain.StageCompleted, OrderID: orderID}, nil
}

// applyDetached records a payment outcome when no cart-side checkout state
// remains for the session.
func (s *checkoutService) applyDetached(ctx context.Context, signal PaymentSignal) (CheckoutResult, error) {
	if !signal.Valid {
		if _, err := s.orders.RecordPaymentFailure(ctx, signal.OrderID, "Payment verification failed"); err != nil {
			return CheckoutResult{}, err
		}
		return CheckoutResult{Stage: domain.StageFailed, OrderID: signal.OrderID}, nil
	}
	if signal.VerifiedOrderID != "" && signal.VerifiedOrderID != signal.OrderID {
		if _, err := s.orders.RecordPaymentFailure(ctx, signal.OrderID, "Payment verification answered for a different order"); err != nil {
			return CheckoutResult{}, err
		}
		return CheckoutResult{}, fmt.Errorf("%w: verification answered for %s", ErrOrderPaymentMismatch, signal.VerifiedOrderID)
	}
	if _, err := s.orders.RecordPayment(ctx, RecordPaymentCommand{
		OrderID:       signal.OrderID,
		TransactionID: signal.TransactionID,
		Target:        domain.PaymentPaid,
		Amount:        signal.VerifiedAmount,
		Message:       "Payment verified",
	}); err != nil {
		return CheckoutResult{}, err
	}
	return CheckoutResult{Stage: domain.StageCompleted, OrderID: signal.OrderID}, nil
}

// Abandon discards checkout state attached to the cart. Before order creation
// this leaves no server trace; a pending order already created stays for the
// expiry sweep or an admin to cancel.
func (s *checkoutService) Abandon(ctx context.Context, userID string) error {
	cart, err := s.loadCart(ctx, userID)
	if err != nil {
		return err
	}
	if cart.Checkout == nil {
		return nil
	}

	cart.Checkout = nil
	now := s.clock()
	if !cart.NonEmpty() {
		if err := s.carts.Delete(ctx, cart.UserID); err != nil {
			return s.translateCartError(err)
		}
		return nil
	}
	if _, err := s.saveCart(ctx, cart, now); err != nil {
		return err
	}
	return nil
}

func (s *checkoutService) loadCart(ctx context.Context, userID string) (domain.Cart, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Cart{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			now := s.clock()
			return domain.Cart{ID: userID, UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
		}
		return domain.Cart{}, s.translateCartError(err)
	}
	return cart, nil
}

func (s *checkoutService) saveCart(ctx context.Context, cart domain.Cart, now time.Time) (domain.Cart, error) {
	cart.UpdatedAt = now
	saved, err := s.carts.Save(ctx, cart, nil)
	if err != nil {
		return domain.Cart{}, s.translateCartError(err)
	}
	return saved, nil
}

func (s *checkoutService) translateCartError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsConflict() {
			return fmt.Errorf("%w: %v", ErrCartConflict, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrCheckoutUnavailable, err)
}
