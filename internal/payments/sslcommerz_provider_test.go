package payments

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

type stubDoer struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (s *stubDoer) Do(req *http.Request) (*http.Response, error) {
	return s.doFunc(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newSSLCommerzForTest(t *testing.T, doer httpDoer) *SSLCommerzProvider {
	t.Helper()
	provider, err := NewSSLCommerzProvider(SSLCommerzConfig{
		StoreID:       "teststore",
		StorePassword: "testpass",
		Sandbox:       true,
		SuccessURL:    "https://shop.example/pay/success",
		FailURL:       "https://shop.example/pay/fail",
		CancelURL:     "https://shop.example/pay/cancel",
		HTTPClient:    doer,
		Clock:         func() time.Time { return time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing provider: %v", err)
	}
	return provider
}

func TestSSLCommerzCreateSession(t *testing.T) {
	var form string
	doer := &stubDoer{
		doFunc: func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.String(), "sandbox.sslcommerz.com") {
				t.Fatalf("expected sandbox host, got %s", req.URL.String())
			}
			body, _ := io.ReadAll(req.Body)
			form = string(body)
			return jsonResponse(200, `{"status":"SUCCESS","sessionkey":"SK123","GatewayPageURL":"https://sandbox.sslcommerz.com/gw/SK123"}`), nil
		},
	}
	provider := newSSLCommerzForTest(t, doer)

	session, err := provider.CreateSession(context.Background(), SessionRequest{
		OrderID:       "ord_1",
		OrderNumber:   "AT-2025-000001",
		Amount:        1000,
		Currency:      "BDT",
		Method:        "bkash",
		CustomerPhone: "01712345678",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if session.ID != "SK123" {
		t.Fatalf("expected session key SK123, got %q", session.ID)
	}
	if session.RedirectURL == "" {
		t.Fatalf("expected gateway page url")
	}
	if !strings.Contains(form, "total_amount=1000.00") {
		t.Fatalf("expected decimal amount in form, got %s", form)
	}
	if !strings.Contains(form, "tran_id=ord_1") {
		t.Fatalf("expected order id as tran_id, got %s", form)
	}
	if !strings.Contains(form, "multi_card_name=bkash") {
		t.Fatalf("expected wallet pinned on gateway page, got %s", form)
	}
}

func TestSSLCommerzCreateSessionRejected(t *testing.T) {
	doer := &stubDoer{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(200, `{"status":"FAILED","failedreason":"store deactivated"}`), nil
		},
	}
	provider := newSSLCommerzForTest(t, doer)

	_, err := provider.CreateSession(context.Background(), SessionRequest{OrderID: "ord_1", Amount: 500})
	if err == nil || !strings.Contains(err.Error(), "store deactivated") {
		t.Fatalf("expected rejection with reason, got %v", err)
	}
}

func TestSSLCommerzVerifyValid(t *testing.T) {
	doer := &stubDoer{
		doFunc: func(req *http.Request) (*http.Response, error) {
			if !strings.Contains(req.URL.RawQuery, "val_id=VAL-1") {
				t.Fatalf("expected val_id in query, got %s", req.URL.RawQuery)
			}
			return jsonResponse(200, `{"status":"VALID","tran_id":"ord_1","val_id":"VAL-1","amount":"1000.00","currency":"BDT","bank_tran_id":"BANK-9"}`), nil
		},
	}
	provider := newSSLCommerzForTest(t, doer)

	result, err := provider.Verify(context.Background(), VerifyRequest{
		ValidationID: "VAL-1",
		Amount:       1000,
		Currency:     "BDT",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Valid || result.Status != StatusSucceeded {
		t.Fatalf("expected valid result, got %+v", result)
	}
	if result.TransactionID != "BANK-9" {
		t.Fatalf("expected bank transaction id, got %q", result.TransactionID)
	}
	if result.OrderID != "ord_1" || result.Amount != 1000 {
		t.Fatalf("expected settled order and amount echoed, got %+v", result)
	}
}

func TestSSLCommerzVerifyForeignOrderRejected(t *testing.T) {
	// The val_id answers for a different transaction than the one claimed.
	doer := &stubDoer{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(200, `{"status":"VALID","tran_id":"ord_cheap","val_id":"VAL-CHEAP","amount":"100.00","currency":"BDT","bank_tran_id":"BANK-3"}`), nil
		},
	}
	provider := newSSLCommerzForTest(t, doer)

	result, err := provider.Verify(context.Background(), VerifyRequest{
		ValidationID: "VAL-CHEAP",
		OrderID:      "ord_expensive",
		Amount:       2500,
		Currency:     "BDT",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected validation for another order to be rejected")
	}
	if result.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", result.Status)
	}
	if result.OrderID != "ord_cheap" {
		t.Fatalf("expected the settled order reported, got %q", result.OrderID)
	}
}

func TestSSLCommerzVerifyAmountMismatch(t *testing.T) {
	doer := &stubDoer{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(200, `{"status":"VALID","tran_id":"ord_1","amount":"10.00","currency":"BDT"}`), nil
		},
	}
	provider := newSSLCommerzForTest(t, doer)

	result, err := provider.Verify(context.Background(), VerifyRequest{
		ValidationID: "VAL-1",
		Amount:       1000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected amount mismatch to invalidate the payment")
	}
	if result.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", result.Status)
	}
}

func TestSSLCommerzVerifyInvalidStatus(t *testing.T) {
	doer := &stubDoer{
		doFunc: func(req *http.Request) (*http.Response, error) {
			return jsonResponse(200, `{"status":"INVALID_TRANSACTION"}`), nil
		},
	}
	provider := newSSLCommerzForTest(t, doer)

	result, err := provider.Verify(context.Background(), VerifyRequest{ValidationID: "VAL-X", Amount: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Valid {
		t.Fatalf("expected invalid transaction rejected")
	}
}
