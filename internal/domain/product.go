package domain

// Product is the catalog snapshot captured when an item enters the cart or
// wishlist. Field names follow the remote catalog's JSON.
type Product struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	Price              float64  `json:"price"`
	DiscountPercentage float64  `json:"discountPercentage"`
	Rating             float64  `json:"rating,omitempty"`
	Stock              int      `json:"stock"`
	Brand              string   `json:"brand,omitempty"`
	Category           string   `json:"category,omitempty"`
	Thumbnail          string   `json:"thumbnail,omitempty"`
	Images             []string `json:"images,omitempty"`
}

// DiscountedPrice returns the unit price with the discount applied.
// A zero discount yields the list price exactly.
func (p Product) DiscountedPrice() float64 {
	if p.DiscountPercentage == 0 {
		return p.Price
	}
	return p.Price * (1 - p.DiscountPercentage/100)
}

// InStock reports whether at least one unit can be added to a cart.
func (p Product) InStock() bool {
	return p.Stock > 0
}
