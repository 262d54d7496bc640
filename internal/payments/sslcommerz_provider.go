package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	sslcommerzSandboxBase = "https://sandbox.sslcommerz.com"
	sslcommerzLiveBase    = "https://securepay.sslcommerz.com"

	sslcommerzSessionPath  = "/gwprocess/v4/api.php"
	sslcommerzValidatePath = "/validator/api/validationserverAPI.php"
	sslcommerzRefundPath   = "/validator/api/merchantTransIDvalidationAPI.php"
)

// SSLCommerzLogger defines the logging contract for gateway operations.
type SSLCommerzLogger func(ctx context.Context, event string, fields map[string]any)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SSLCommerzConfig configures the SSLCommerzProvider.
type SSLCommerzConfig struct {
	StoreID       string
	StorePassword string
	Sandbox       bool
	SuccessURL    string
	FailURL       string
	CancelURL     string
	HTTPClient    httpDoer
	Logger        SSLCommerzLogger
	Clock         func() time.Time
}

// SSLCommerzProvider implements the Provider interface against the SSLCommerz
// hosted checkout. bKash, Nagad and Rocket all ride on its gateway page.
type SSLCommerzProvider struct {
	storeID    string
	storePass  string
	baseURL    string
	successURL string
	failURL    string
	cancelURL  string
	client     httpDoer
	clock      func() time.Time
	logger     SSLCommerzLogger
}

// NewSSLCommerzProvider constructs an SSLCommerz Provider using the given configuration.
func NewSSLCommerzProvider(cfg SSLCommerzConfig) (*SSLCommerzProvider, error) {
	storeID := strings.TrimSpace(cfg.StoreID)
	storePass := strings.TrimSpace(cfg.StorePassword)
	if storeID == "" || storePass == "" {
		return nil, errors.New("sslcommerz: store credentials are required")
	}

	base := sslcommerzLiveBase
	if cfg.Sandbox {
		base = sslcommerzSandboxBase
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &SSLCommerzProvider{
		storeID:    storeID,
		storePass:  storePass,
		baseURL:    base,
		successURL: strings.TrimSpace(cfg.SuccessURL),
		failURL:    strings.TrimSpace(cfg.FailURL),
		cancelURL:  strings.TrimSpace(cfg.CancelURL),
		client:     client,
		clock:      func() time.Time { return clock().UTC() },
		logger:     logger,
	}, nil
}

type sslcommerzSessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

// CreateSession initiates a hosted checkout session and returns the gateway
// page URL the customer is redirected to.
func (p *SSLCommerzProvider) CreateSession(ctx context.Context, req SessionRequest) (Session, error) {
	if p == nil {
		return Session{}, errors.New("sslcommerz: provider is nil")
	}
	if req.Amount <= 0 {
		return Session{}, errors.New("sslcommerz: amount must be positive")
	}

	form := url.Values{}
	form.Set("store_id", p.storeID)
	form.Set("store_passwd", p.storePass)
	form.Set("total_amount", formatTaka(req.Amount))
	form.Set("currency", defaultString(req.Currency, "BDT"))
	form.Set("tran_id", req.OrderID)
	form.Set("success_url", defaultString(req.SuccessURL, p.successURL))
	form.Set("fail_url", defaultString(req.FailURL, p.failURL))
	form.Set("cancel_url", defaultString(req.CancelURL, p.cancelURL))
	form.Set("cus_name", defaultString(req.CustomerName, "Customer"))
	form.Set("cus_email", defaultString(req.CustomerEmail, "none@example.com"))
	form.Set("cus_phone", req.CustomerPhone)
	form.Set("cus_add1", "N/A")
	form.Set("cus_city", "Dhaka")
	form.Set("cus_country", "Bangladesh")
	form.Set("shipping_method", "NO")
	form.Set("product_name", defaultString(req.OrderNumber, "Order"))
	form.Set("product_category", "books")
	form.Set("product_profile", "physical-goods")
	if method := strings.ToLower(strings.TrimSpace(req.Method)); method != "" && method != "card" {
		// Pin the gateway page to the selected wallet instead of showing all.
		form.Set("multi_card_name", method)
	}
	for k, v := range req.Metadata {
		form.Set("value_"+k, v)
	}

	var resp sslcommerzSessionResponse
	if err := p.postForm(ctx, sslcommerzSessionPath, form, &resp); err != nil {
		return Session{}, fmt.Errorf("sslcommerz: create session: %w", err)
	}
	if !strings.EqualFold(resp.Status, "SUCCESS") || resp.SessionKey == "" {
		return Session{}, fmt.Errorf("sslcommerz: session rejected: %s", defaultString(resp.FailedReason, resp.Status))
	}

	p.logger(ctx, "payments.sslcommerz.session.created", map[string]any{
		"sessionKey": resp.SessionKey,
		"orderId":    req.OrderID,
	})

	return Session{
		ID:          resp.SessionKey,
		Provider:    "sslcommerz",
		RedirectURL: resp.GatewayPageURL,
		ExpiresAt:   p.clock().Add(30 * time.Minute),
		Raw:         map[string]any{"status": resp.Status},
	}, nil
}

type sslcommerzValidationResponse struct {
	Status      string `json:"status"`
	TranID      string `json:"tran_id"`
	ValID       string `json:"val_id"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	BankTranID  string `json:"bank_tran_id"`
	CardType    string `json:"card_type"`
	RiskLevel   string `json:"risk_level"`
	ValidatedOn string `json:"tran_date"`
}

// Verify validates a completion callback against the validator API. Callback
// payloads are forgeable; only this server-to-server check decides validity.
func (p *SSLCommerzProvider) Verify(ctx context.Context, req VerifyRequest) (VerificationResult, error) {
	if p == nil {
		return VerificationResult{}, errors.New("sslcommerz: provider is nil")
	}
	if strings.TrimSpace(req.ValidationID) == "" {
		return VerificationResult{}, errors.New("sslcommerz: validation id is required")
	}

	query := url.Values{}
	query.Set("val_id", req.ValidationID)
	query.Set("store_id", p.storeID)
	query.Set("store_passwd", p.storePass)
	query.Set("format", "json")

	var resp sslcommerzValidationResponse
	if err := p.get(ctx, sslcommerzValidatePath, query, &resp); err != nil {
		return VerificationResult{}, fmt.Errorf("sslcommerz: validate: %w", err)
	}

	var settledAmount int64
	if amount, err := strconv.ParseFloat(strings.TrimSpace(resp.Amount), 64); err == nil {
		settledAmount = int64(amount + 0.5)
	}

	valid := strings.EqualFold(resp.Status, "VALID") || strings.EqualFold(resp.Status, "VALIDATED")
	if valid && req.OrderID != "" && resp.TranID != req.OrderID {
		// The validator answered for a different transaction than the order
		// being settled. Replayed val_ids land here.
		valid = false
	}
	if valid && req.Amount > 0 && settledAmount != req.Amount {
		// A valid transaction for the wrong amount is still a rejection.
		valid = false
	}
	if valid && resp.RiskLevel == "1" {
		valid = false
	}

	status := StatusFailed
	if valid {
		status = StatusSucceeded
	}

	p.logger(ctx, "payments.sslcommerz.validated", map[string]any{
		"valId":   req.ValidationID,
		"tranId":  resp.TranID,
		"orderId": req.OrderID,
		"valid":   valid,
	})

	return VerificationResult{
		Valid:         valid,
		Status:        status,
		TransactionID: defaultString(resp.BankTranID, resp.TranID),
		OrderID:       resp.TranID,
		Amount:        settledAmount,
		Currency:      defaultString(resp.Currency, req.Currency),
		Raw:           map[string]any{"status": resp.Status, "cardType": resp.CardType},
	}, nil
}

// Refund reports the refund state for a transaction. SSLCommerz refunds are
// operated from the merchant panel; this surfaces the resulting state only.
func (p *SSLCommerzProvider) Refund(ctx context.Context, req RefundRequest) (VerificationResult, error) {
	if p == nil {
		return VerificationResult{}, errors.New("sslcommerz: provider is nil")
	}
	query := url.Values{}
	query.Set("tran_id", req.TransactionID)
	query.Set("store_id", p.storeID)
	query.Set("store_passwd", p.storePass)
	query.Set("format", "json")

	var resp sslcommerzValidationResponse
	if err := p.get(ctx, sslcommerzRefundPath, query, &resp); err != nil {
		return VerificationResult{}, fmt.Errorf("sslcommerz: refund lookup: %w", err)
	}

	return VerificationResult{
		Valid:         strings.EqualFold(resp.Status, "refunded"),
		Status:        StatusRefunded,
		TransactionID: resp.TranID,
		Raw:           map[string]any{"status": resp.Status},
	}, nil
}

func (p *SSLCommerzProvider) postForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return p.do(req, out)
}

func (p *SSLCommerzProvider) get(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	return p.do(req, out)
}

func (p *SSLCommerzProvider) do(req *http.Request, out any) error {
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// formatTaka renders an integer taka amount as the decimal string the gateway expects.
func formatTaka(amount int64) string {
	return strconv.FormatInt(amount, 10) + ".00"
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
