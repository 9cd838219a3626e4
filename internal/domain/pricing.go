package domain

// Pricing rules applied when summarizing a cart.
const (
	// FreeShippingThreshold is the subtotal at which shipping becomes free.
	// The boundary is inclusive: a subtotal of exactly 100.00 ships free.
	FreeShippingThreshold = 100.0
	// FlatShippingFee is charged on orders below the threshold.
	FlatShippingFee = 10.0
	// TaxRate is applied to the subtotal.
	TaxRate = 0.08
)

// OrderSummary holds the derived totals for a cart. It is computed on every
// read and never persisted, so price or quantity changes are always reflected.
type OrderSummary struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// Subtotal sums the discounted line totals of the given cart items.
func Subtotal(items []CartItem) float64 {
	var subtotal float64
	for _, item := range items {
		subtotal += item.LineTotal()
	}
	return subtotal
}

// Summarize computes the order summary for the given cart items.
// An empty cart yields an all-zero summary (no shipping fee on nothing).
func Summarize(items []CartItem) OrderSummary {
	subtotal := Subtotal(items)
	if subtotal == 0 {
		return OrderSummary{}
	}

	shipping := FlatShippingFee
	if subtotal >= FreeShippingThreshold {
		shipping = 0
	}
	tax := subtotal * TaxRate

	return OrderSummary{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal + shipping + tax,
	}
}
