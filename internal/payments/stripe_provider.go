package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeLogger defines the logging contract for Stripe provider operations.
type StripeLogger func(ctx context.Context, event string, fields map[string]any)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripePaymentIntentAPI interface {
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeRefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

type stripeClients struct {
	sessions stripeSessionAPI
	intents  stripePaymentIntentAPI
	refunds  stripeRefundAPI
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey     string
	SuccessURL string
	CancelURL  string
	Backends   *stripe.Backends
	Logger     StripeLogger
	Clock      func() time.Time
	Clients    *stripeClients
}

// StripeProvider implements the Provider interface for card payments using
// Stripe Checkout.
type StripeProvider struct {
	api        stripeClients
	successURL string
	cancelURL  string
	clock      func() time.Time
	logger     StripeLogger
}

// NewStripeProvider constructs a Stripe Provider using the given configuration.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" && cfg.Clients == nil {
		return nil, errors.New("stripe: api key is required")
	}

	var clients stripeClients
	if cfg.Clients != nil {
		clients = *cfg.Clients
	} else {
		sc := client.New(apiKey, cfg.Backends)
		clients = stripeClients{
			sessions: sc.CheckoutSessions,
			intents:  sc.PaymentIntents,
			refunds:  sc.Refunds,
		}
	}
	if clients.sessions == nil || clients.intents == nil || clients.refunds == nil {
		return nil, errors.New("stripe: incomplete client configuration")
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		api:        clients,
		successURL: strings.TrimSpace(cfg.SuccessURL),
		cancelURL:  strings.TrimSpace(cfg.CancelURL),
		clock:      func() time.Time { return clock().UTC() },
		logger:     logger,
	}, nil
}

// CreateSession creates a Stripe Checkout session for the order.
func (p *StripeProvider) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	if p == nil {
		return Session{}, errors.New("stripe: provider is nil")
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(defaultString(req.SuccessURL, p.successURL)),
		CancelURL:  stripe.String(defaultString(req.CancelURL, p.cancelURL)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(defaultString(req.Currency, "bdt"))),
				UnitAmount: stripe.Int64(req.Amount * 100),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(defaultString(req.OrderNumber, "Order")),
				},
			},
		}},
	}
	params.Context = ctx
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}

	metadata := map[string]string{"order_id": req.OrderID}
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	params.Metadata = metadata
	params.PaymentIntentData = &stripe.CheckoutSessionPaymentIntentDataParams{Metadata: metadata}

	session, err := p.api.sessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}

	p.logger(ctx, "payments.stripe.session.created", map[string]any{
		"sessionId": session.ID,
		"orderId":   req.OrderID,
	})

	expiresAt := p.clock().Add(30 * time.Minute)
	if session.ExpiresAt != 0 {
		expiresAt = time.Unix(session.ExpiresAt, 0).UTC()
	}

	return Session{
		ID:          session.ID,
		Provider:    "stripe",
		RedirectURL: session.URL,
		ExpiresAt:   expiresAt,
	}, nil
}

// Verify checks the payment intent behind a completed Checkout session. The
// validation id carries the payment intent id from the callback.
func (p *StripeProvider) Verify(ctx context.Context, req VerifyRequest) (VerificationResult, error) {
	if p == nil {
		return VerificationResult{}, errors.New("stripe: provider is nil")
	}
	intentID := strings.TrimSpace(req.ValidationID)
	if intentID == "" {
		intentID = strings.TrimSpace(req.TransactionID)
	}
	if intentID == "" {
		return VerificationResult{}, errors.New("stripe: payment intent id is required")
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	intent, err := p.api.intents.Get(intentID, params)
	if err != nil {
		return VerificationResult{}, fmt.Errorf("stripe: lookup payment intent: %w", err)
	}

	settledOrderID := ""
	if intent.Metadata != nil {
		settledOrderID = intent.Metadata["order_id"]
	}

	valid := intent.Status == stripe.PaymentIntentStatusSucceeded
	if valid && req.OrderID != "" && settledOrderID != req.OrderID {
		// The intent was created for a different order than the one being settled.
		valid = false
	}
	if valid && req.Amount > 0 && intent.Amount != req.Amount*100 {
		valid = false
	}

	status := StatusFailed
	switch {
	case valid:
		status = StatusSucceeded
	case intent.Status == stripe.PaymentIntentStatusProcessing,
		intent.Status == stripe.PaymentIntentStatusRequiresAction:
		status = StatusPending
	}

	p.logger(ctx, "payments.stripe.validated", map[string]any{
		"paymentIntent": intent.ID,
		"status":        intent.Status,
		"valid":         valid,
	})

	return VerificationResult{
		Valid:         valid,
		Status:        status,
		TransactionID: intent.ID,
		OrderID:       settledOrderID,
		Amount:        intent.Amount / 100,
		Currency:      strings.ToUpper(string(intent.Currency)),
	}, nil
}

// Refund refunds the payment intent behind a transaction.
func (p *StripeProvider) Refund(ctx context.Context, req RefundRequest) (VerificationResult, error) {
	if p == nil {
		return VerificationResult{}, errors.New("stripe: provider is nil")
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.TransactionID),
	}
	params.Context = ctx
	if req.Amount != nil {
		params.Amount = stripe.Int64(*req.Amount * 100)
	}
	if reason := strings.TrimSpace(req.Reason); reason == string(stripe.RefundReasonRequestedByCustomer) ||
		reason == string(stripe.RefundReasonDuplicate) || reason == string(stripe.RefundReasonFraudulent) {
		params.Reason = stripe.String(reason)
	}

	refund, err := p.api.refunds.New(params)
	if err != nil {
		return VerificationResult{}, fmt.Errorf("stripe: refund payment intent: %w", err)
	}

	p.logger(ctx, "payments.stripe.refunded", map[string]any{
		"refundId":      refund.ID,
		"paymentIntent": req.TransactionID,
	})

	return VerificationResult{
		Valid:         refund.Status == stripe.RefundStatusSucceeded || refund.Status == stripe.RefundStatusPending,
		Status:        StatusRefunded,
		TransactionID: req.TransactionID,
		Amount:        refund.Amount / 100,
		Currency:      strings.ToUpper(string(refund.Currency)),
	}, nil
}
