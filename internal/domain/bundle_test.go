package domain

import (
	"testing"
	"time"
)

func line(bookID string, price int64, qty int) CartLine {
	return CartLine{BookID: bookID, UnitPrice: price, Quantity: qty, AddedAt: time.Now()}
}

func TestQuoteCartPartialCartChargesSubtotal(t *testing.T) {
	lines := []CartLine{line("book-a", 300, 1)}

	quote := QuoteCart(lines, 5, 1000)

	if quote.FullBundle {
		t.Fatalf("expected partial cart, got full bundle")
	}
	if quote.Charged != 300 {
		t.Fatalf("expected charged 300, got %d", quote.Charged)
	}
	if quote.Savings != 0 {
		t.Fatalf("expected no savings, got %d", quote.Savings)
	}
}

func TestQuoteCartFullBundleAppliesSpecialPrice(t *testing.T) {
	lines := []CartLine{
		line("b1", 300, 1),
		line("b2", 300, 1),
		line("b3", 300, 1),
		line("b4", 300, 1),
		line("b5", 300, 1),
	}

	quote := QuoteCart(lines, 5, 1000)

	if !quote.FullBundle {
		t.Fatalf("expected full bundle")
	}
	if quote.Subtotal != 1500 {
		t.Fatalf("expected subtotal 1500, got %d", quote.Subtotal)
	}
	if quote.Charged != 1000 {
		t.Fatalf("expected charged 1000, got %d", quote.Charged)
	}
	if quote.Savings != 500 {
		t.Fatalf("expected savings 500, got %d", quote.Savings)
	}
}

func TestQuoteCartFullBundleCheaperThanSpecialPrice(t *testing.T) {
	lines := []CartLine{
		line("b1", 100, 1),
		line("b2", 100, 1),
	}

	quote := QuoteCart(lines, 2, 1000)

	if !quote.FullBundle {
		t.Fatalf("expected full bundle")
	}
	if quote.Charged != 200 {
		t.Fatalf("bundle price must not raise the total; got %d", quote.Charged)
	}
	if quote.Savings != 0 {
		t.Fatalf("expected savings clamped to zero, got %d", quote.Savings)
	}
}

func TestQuoteCartIsIdempotent(t *testing.T) {
	lines := []CartLine{
		line("b1", 600, 1),
		line("b2", 600, 1),
	}

	first := QuoteCart(lines, 2, 1000)
	second := QuoteCart(lines, 2, 1000)

	if first != second {
		t.Fatalf("expected identical quotes, got %#v then %#v", first, second)
	}
}

func TestIsFullBundleRejectsDuplicateQuantity(t *testing.T) {
	lines := []CartLine{
		line("b1", 300, 2),
		line("b2", 300, 1),
	}
	if IsFullBundle(lines, 2) {
		t.Fatalf("quantity above one must break bundle eligibility")
	}
}

func TestIsFullBundleRejectsMissingBook(t *testing.T) {
	lines := []CartLine{
		line("b1", 300, 1),
		line("b2", 300, 1),
	}
	if IsFullBundle(lines, 3) {
		t.Fatalf("cart missing a catalog book must not be a full bundle")
	}
}

func TestIsFullBundleRejectsDuplicateBookIDs(t *testing.T) {
	lines := []CartLine{
		line("b1", 300, 1),
		line("b1", 300, 1),
	}
	if IsFullBundle(lines, 2) {
		t.Fatalf("duplicate book ids must not satisfy the catalog set")
	}
}

func TestIsFullBundleEmptyCatalog(t *testing.T) {
	if IsFullBundle(nil, 0) {
		t.Fatalf("empty catalog can never form a bundle")
	}
}

func TestCartSubtotal(t *testing.T) {
	cart := Cart{Lines: []CartLine{
		line("b1", 250, 2),
		line("b2", 400, 1),
	}}
	if got := cart.Subtotal(); got != 900 {
		t.Fatalf("expected subtotal 900, got %d", got)
	}
}

func TestCartNonEmptySignal(t *testing.T) {
	cart := Cart{}
	if cart.NonEmpty() {
		t.Fatalf("empty cart must report non-empty=false")
	}
	cart.Lines = append(cart.Lines, line("b1", 100, 1))
	if !cart.NonEmpty() {
		t.Fatalf("cart with a line must report non-empty=true")
	}
}
