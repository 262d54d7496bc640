package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status enumerates the normalised payment states shared across providers.
type Status string

const (
	// StatusPending indicates the payment is awaiting customer action or gateway confirmation.
	StatusPending Status = "pending"
	// StatusSucceeded indicates the gateway reports the payment as captured.
	StatusSucceeded Status = "succeeded"
	// StatusFailed indicates the gateway reports a failure and no further action is possible.
	StatusFailed Status = "failed"
	// StatusRefunded indicates the payment has been refunded.
	StatusRefunded Status = "refunded"
)

// ErrUnsupportedMethod is returned when no provider serves the requested payment method.
var ErrUnsupportedMethod = errors.New("payments: unsupported payment method")

// SessionRequest captures the payload required to create a hosted payment session.
type SessionRequest struct {
	OrderID        string
	OrderNumber    string
	Amount         int64
	Currency       string
	Method         string
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	SuccessURL     string
	FailURL        string
	CancelURL      string
	IdempotencyKey string
	Metadata       map[string]string
}

// Session represents the gateway session returned to the client.
type Session struct {
	ID          string
	Provider    string
	RedirectURL string
	ExpiresAt   time.Time
	Raw         map[string]any
}

// VerifyRequest asks the provider to validate one completion callback. The
// validation id comes from the callback payload and is only trusted after the
// provider confirms it server-to-server. OrderID and Amount bind the check to
// the order being settled: a validation that answers for a different order or
// a different amount is rejected, not just logged.
type VerifyRequest struct {
	SessionID     string
	ValidationID  string
	TransactionID string
	OrderID       string
	Amount        int64
	Currency      string
}

// VerificationResult is the provider's verdict on a completion callback.
// OrderID and Amount echo what the gateway settled, independent of the
// caller's claim.
type VerificationResult struct {
	Valid         bool
	Status        Status
	TransactionID string
	OrderID       string
	Amount        int64
	Currency      string
	Raw           map[string]any
}

// RefundRequest defines a gateway refund attempt.
type RefundRequest struct {
	SessionID     string
	TransactionID string
	Amount        *int64
	Reason        string
}

// Provider defines the contract for payment gateway adapters.
type Provider interface {
	CreateSession(ctx context.Context, req SessionRequest) (Session, error)
	Verify(ctx context.Context, req VerifyRequest) (VerificationResult, error)
	Refund(ctx context.Context, req RefundRequest) (VerificationResult, error)
}

// Manager routes payment methods to registered providers. Mobile wallet
// methods and card payments are typically served by different gateways.
type Manager struct {
	providers    map[string]Provider
	methodRoutes map[string]string
	defaultKey   string
}

// ManagerOption configures optional behaviour when building a Manager.
type ManagerOption func(*Manager)

// WithDefaultProvider overrides the provider used for methods without an explicit route.
func WithDefaultProvider(provider string) ManagerOption {
	return func(m *Manager) {
		m.defaultKey = strings.ToLower(strings.TrimSpace(provider))
	}
}

// WithMethodRoutes configures static payment-method to provider mappings.
func WithMethodRoutes(routes map[string]string) ManagerOption {
	return func(m *Manager) {
		if len(routes) == 0 {
			return
		}
		if m.methodRoutes == nil {
			m.methodRoutes = make(map[string]string, len(routes))
		}
		for method, provider := range routes {
			m.methodRoutes[strings.ToLower(strings.TrimSpace(method))] = strings.ToLower(strings.TrimSpace(provider))
		}
	}
}

// NewManager constructs a Manager over the supplied providers.
func NewManager(providers map[string]Provider, opts ...ManagerOption) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	copyMap := make(map[string]Provider, len(providers))
	for k, v := range providers {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" || v == nil {
			return nil, fmt.Errorf("payments: invalid provider registration for key %q", k)
		}
		copyMap[key] = v
	}
	m := &Manager{providers: copyMap}
	for _, opt := range opts {
		opt(m)
	}
	if m.defaultKey == "" && len(copyMap) == 1 {
		for key := range copyMap {
			m.defaultKey = key
		}
	}
	return m, nil
}

// SupportedMethods lists the payment methods the manager can route.
func (m *Manager) SupportedMethods() []string {
	if m == nil {
		return nil
	}
	methods := make([]string, 0, len(m.methodRoutes))
	for method, provider := range m.methodRoutes {
		if _, ok := m.providers[provider]; ok {
			methods = append(methods, method)
		}
	}
	return methods
}

func (m *Manager) resolveProvider(method string) (string, Provider, error) {
	if m == nil || len(m.providers) == 0 {
		return "", nil, errors.New("payments: no providers registered")
	}
	method = strings.ToLower(strings.TrimSpace(method))
	if key, ok := m.methodRoutes[method]; ok {
		if p, ok := m.providers[key]; ok {
			return key, p, nil
		}
	}
	if m.defaultKey != "" {
		if p, ok := m.providers[m.defaultKey]; ok {
			return m.defaultKey, p, nil
		}
	}
	return "", nil, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
}

// CreateSession delegates session creation to the provider routed for the method.
func (m *Manager) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	key, provider, err := m.resolveProvider(req.Method)
	if err != nil {
		return Session{}, err
	}
	session, err := provider.CreateSession(ctx, req)
	if err != nil {
		return Session{}, err
	}
	session.Provider = key
	return session, nil
}

// Verify delegates callback validation to the provider routed for the method.
func (m *Manager) Verify(ctx context.Context, method string, req VerifyRequest) (VerificationResult, error) {
	_, provider, err := m.resolveProvider(method)
	if err != nil {
		return VerificationResult{}, err
	}
	return provider.Verify(ctx, req)
}

// Refund delegates a refund to the provider routed for the method.
func (m *Manager) Refund(ctx context.Context, method string, req RefundRequest) (VerificationResult, error) {
	_, provider, err := m.resolveProvider(method)
	if err != nil {
		return VerificationResult{}, err
	}
	return provider.Refund(ctx, req)
}
