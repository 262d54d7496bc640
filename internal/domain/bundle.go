package domain

// BundleQuote is the priced view of a cart after the bundle rule runs.
type BundleQuote struct {
	Subtotal   int64
	Charged    int64
	Savings    int64
	FullBundle bool
}

// IsFullBundle reports whether the cart covers the complete catalog exactly
// once. catalogCount must be the authoritative number of published books, not
// the size of any paginated page.
func IsFullBundle(lines []CartLine, catalogCount int) bool {
	if catalogCount <= 0 || len(lines) != catalogCount {
		return false
	}
	seen := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity != 1 {
			return false
		}
		if _, dup := seen[line.BookID]; dup {
			return false
		}
		seen[line.BookID] = struct{}{}
	}
	return true
}

// QuoteCart applies the flat bundle price when the cart is a full bundle and
// the summed price exceeds it; otherwise the subtotal is charged as-is. The
// function is pure: calling it twice on the same inputs yields the same quote.
func QuoteCart(lines []CartLine, catalogCount int, specialBundlePrice int64) BundleQuote {
	var subtotal int64
	for _, line := range lines {
		if line.Quantity <= 0 || line.UnitPrice < 0 {
			continue
		}
		subtotal += line.UnitPrice * int64(line.Quantity)
	}

	quote := BundleQuote{
		Subtotal:   subtotal,
		Charged:    subtotal,
		FullBundle: IsFullBundle(lines, catalogCount),
	}

	if quote.FullBundle && specialBundlePrice > 0 && subtotal > specialBundlePrice {
		quote.Charged = specialBundlePrice
	}

	if savings := quote.Subtotal - quote.Charged; savings > 0 {
		quote.Savings = savings
	}
	return quote
}
