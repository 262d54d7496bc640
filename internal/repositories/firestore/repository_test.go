package firestore

import (
	"testing"
	"time"

	domain "github.com/attaleem/api/internal/domain"
)

func TestListTokenRoundTrip(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 30, 45, 123456789, time.UTC)
	token := encodeListToken(ts, "ord_abc")

	decodedTime, decodedID, err := decodeListToken(token)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !decodedTime.Equal(ts) {
		t.Fatalf("expected %v, got %v", ts, decodedTime)
	}
	if decodedID != "ord_abc" {
		t.Fatalf("expected ord_abc, got %q", decodedID)
	}
}

func TestDecodeListTokenRejectsGarbage(t *testing.T) {
	if _, _, err := decodeListToken("not-base64!!"); err == nil {
		t.Fatalf("expected error for invalid token")
	}
	if _, _, err := decodeListToken("bm8tc2VwYXJhdG9y"); err == nil {
		t.Fatalf("expected error for token without cursor payload")
	}
}

func TestOrderDocumentRoundTrip(t *testing.T) {
	paidAt := time.Date(2025, 5, 2, 10, 0, 0, 0, time.UTC)
	bundle := int64(1000)
	order := domain.Order{
		ID:            "ord_1",
		OrderNumber:   "AT-2025-000042",
		UserID:        "user-1",
		Items:         []domain.OrderItem{{BookID: "book_1", Title: "Tafsir", Quantity: 2, UnitPrice: 250, Total: 500}},
		Amount:        1000,
		BundlePrice:   &bundle,
		Status:        domain.OrderStatusProcessing,
		PaymentStatus: domain.PaymentPaid,
		TransactionID: "TXN-1",
		Tracking: []domain.TrackingEntry{
			{Status: domain.OrderStatusPending, Message: "Order placed", Timestamp: paidAt.Add(-time.Hour)},
			{Status: domain.OrderStatusProcessing, Message: "Payment received", Timestamp: paidAt},
		},
		CreatedAt: paidAt.Add(-time.Hour),
		UpdatedAt: paidAt,
		PaidAt:    &paidAt,
	}

	decoded := decodeOrderDocument("ord_1", encodeOrderDocument(order), time.Time{}, time.Time{})

	if decoded.Status != domain.OrderStatusProcessing || decoded.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("unexpected statuses %s/%s", decoded.Status, decoded.PaymentStatus)
	}
	if len(decoded.Tracking) != 2 || decoded.Tracking[1].Message != "Payment received" {
		t.Fatalf("tracking not preserved: %+v", decoded.Tracking)
	}
	if decoded.BundlePrice == nil || *decoded.BundlePrice != 1000 {
		t.Fatalf("bundle price not preserved: %v", decoded.BundlePrice)
	}
	if decoded.PaidAt == nil || !decoded.PaidAt.Equal(paidAt) {
		t.Fatalf("paidAt not preserved: %v", decoded.PaidAt)
	}
	if len(decoded.Items) != 1 || decoded.Items[0].Total != 500 {
		t.Fatalf("items not preserved: %+v", decoded.Items)
	}
}

func TestToggleMembership(t *testing.T) {
	members, added := toggleMembership([]string{"u1", "u2"}, "u3")
	if !added || len(members) != 3 {
		t.Fatalf("expected u3 added, got %v added=%v", members, added)
	}

	members, added = toggleMembership(members, "u2")
	if added || len(members) != 2 {
		t.Fatalf("expected u2 removed, got %v added=%v", members, added)
	}
	for _, m := range members {
		if m == "u2" {
			t.Fatalf("u2 still present in %v", members)
		}
	}
}

func TestNormaliseStringsDeduplicates(t *testing.T) {
	got := normaliseStrings([]string{" tafsir ", "", "tafsir", "aqidah"})
	if len(got) != 2 || got[0] != "tafsir" || got[1] != "aqidah" {
		t.Fatalf("unexpected result %v", got)
	}
}
