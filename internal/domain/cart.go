package domain

import "time"

// CartItem is a single cart line. The ID is synthetic and stable for the
// lifetime of the entry; uniqueness is on the product id, not the item id.
type CartItem struct {
	ID       string  `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// LineTotal returns the discounted price times quantity for this line.
func (i CartItem) LineTotal() float64 {
	return i.Product.DiscountedPrice() * float64(i.Quantity)
}

// WishlistItem is a saved product. At most one entry exists per product id.
type WishlistItem struct {
	ID      string    `json:"id"`
	Product Product   `json:"product"`
	AddedAt time.Time `json:"added_at"`
}
