// Package commerce maintains the per-user cart and wishlist collections.
// Mutations are idempotent where the operation implies it, quantities are
// clamped to stock instead of rejected, and every mutation is written through
// to the persistent store before returning.
package commerce

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/k1shan-k/lsspoing/internal/domain"
	"github.com/k1shan-k/lsspoing/internal/store"
)

// Cart holds the cart lines for one user. Uniqueness is on product id:
// adding a product that is already present merges into the existing line.
type Cart struct {
	mu     sync.Mutex
	store  *store.Store
	logger *slog.Logger
	key    string
	items  []domain.CartItem
}

func cartKey(userID string) string { return "cart:" + userID }

// NewCart creates an empty cart persisted under the given user's key.
func NewCart(st *store.Store, logger *slog.Logger, userID string) *Cart {
	return &Cart{
		store:  st,
		logger: logger,
		key:    cartKey(userID),
	}
}

// Load rehydrates the cart from the store. Absent or malformed data yields
// an empty cart; a corrupt snapshot must never prevent startup.
func (c *Cart) Load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, ok := c.store.Get(ctx, c.key)
	if !ok {
		c.items = nil
		return
	}

	var items []domain.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		c.logger.WarnContext(ctx, "discarding malformed cart snapshot",
			slog.String("key", c.key),
			slog.String("error", err.Error()),
		)
		c.items = nil
		return
	}
	c.items = items
}

// clampQuantity keeps quantity within [1, stock].
func clampQuantity(quantity, stock int) int {
	if quantity < 1 {
		quantity = 1
	}
	if quantity > stock {
		quantity = stock
	}
	return quantity
}

// Add puts quantity units of product in the cart, merging into an existing
// line for the same product. The resulting quantity is clamped to the
// product's stock. Returns the affected line and false only when the product
// has no stock at all.
func (c *Cart) Add(ctx context.Context, product domain.Product, quantity int) (*domain.CartItem, bool) {
	if !product.InStock() {
		return nil, false
	}
	if quantity < 1 {
		quantity = 1
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].Product.ID == product.ID {
			c.items[i].Quantity = clampQuantity(c.items[i].Quantity+quantity, c.items[i].Product.Stock)
			item := c.items[i]
			c.persistLocked(ctx)
			return &item, true
		}
	}

	item := domain.CartItem{
		ID:       uuid.New().String(),
		Product:  product,
		Quantity: clampQuantity(quantity, product.Stock),
	}
	c.items = append(c.items, item)
	c.persistLocked(ctx)
	return &item, true
}

// SetQuantity sets the quantity on the line for productID, clamped to the
// stock captured when the product entered the cart. A quantity below one
// removes the line. Unknown product ids are ignored.
func (c *Cart) SetQuantity(ctx context.Context, productID, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].Product.ID != productID {
			continue
		}
		if quantity < 1 {
			c.items = append(c.items[:i], c.items[i+1:]...)
		} else {
			c.items[i].Quantity = clampQuantity(quantity, c.items[i].Product.Stock)
		}
		c.persistLocked(ctx)
		return
	}
}

// Remove deletes the line for productID. Removing an absent product is a
// no-op.
func (c *Cart) Remove(ctx context.Context, productID int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].Product.ID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.persistLocked(ctx)
			return
		}
	}
}

// Contains reports whether a line exists for productID.
func (c *Cart) Contains(productID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].Product.ID == productID {
			return true
		}
	}
	return false
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	items := make([]domain.CartItem, len(c.items))
	copy(items, c.items)
	return items
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Subtotal returns the sum of all line totals.
func (c *Cart) Subtotal() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Subtotal(c.items)
}

// Summary returns the derived order totals for the current contents.
func (c *Cart) Summary() domain.OrderSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.Summarize(c.items)
}

// Clear empties the cart and removes its persisted snapshot.
func (c *Cart) Clear(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = nil
	c.store.Remove(ctx, c.key)
}

// persistLocked serializes the full collection under the cart key. Storage
// failures are absorbed by the store and must not fail the mutation.
func (c *Cart) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(c.items)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to serialize cart",
			slog.String("key", c.key),
			slog.String("error", err.Error()),
		)
		return
	}
	c.store.Set(ctx, c.key, string(raw))
}
