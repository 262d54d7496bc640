package payments

import (
	"context"
	"errors"

	"github.com/attaleem/api/internal/services"
)

// CheckoutGateway adapts the Manager to the checkout service's gateway
// contract.
type CheckoutGateway struct {
	manager *Manager
}

// NewCheckoutGateway wraps a Manager for use by the checkout flow.
func NewCheckoutGateway(manager *Manager) (*CheckoutGateway, error) {
	if manager == nil {
		return nil, errors.New("payments: manager is required")
	}
	return &CheckoutGateway{manager: manager}, nil
}

// CreateSession creates a hosted payment session for the order.
func (g *CheckoutGateway) CreateSession(ctx context.Context, req services.PaymentSessionRequest) (services.PaymentSession, error) {
	session, err := g.manager.CreateSession(ctx, SessionRequest{
		OrderID:       req.OrderID,
		OrderNumber:   req.OrderNumber,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Method:        req.Method,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		return services.PaymentSession{}, err
	}
	return services.PaymentSession{
		SessionID:   session.ID,
		RedirectURL: session.RedirectURL,
		Provider:    session.Provider,
	}, nil
}

// SupportedMethods lists the payment methods the manager can route.
func (g *CheckoutGateway) SupportedMethods() []string {
	return g.manager.SupportedMethods()
}
