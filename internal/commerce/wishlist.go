package commerce

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/k1shan-k/lsspoing/internal/domain"
	"github.com/k1shan-k/lsspoing/internal/store"
)

// CartAdder is the destination of a wishlist-to-cart move. *Cart satisfies it.
type CartAdder interface {
	Add(ctx context.Context, product domain.Product, quantity int) (*domain.CartItem, bool)
}

// Wishlist holds one user's saved products. Adds are idempotent on product id.
type Wishlist struct {
	mu     sync.Mutex
	store  *store.Store
	logger *slog.Logger
	key    string
	items  []domain.WishlistItem
}

func wishlistKey(userID string) string { return "wishlist:" + userID }

// NewWishlist creates an empty wishlist persisted under the given user's key.
func NewWishlist(st *store.Store, logger *slog.Logger, userID string) *Wishlist {
	return &Wishlist{
		store:  st,
		logger: logger,
		key:    wishlistKey(userID),
	}
}

// Load rehydrates the wishlist from the store. Absent or malformed data
// yields an empty wishlist.
func (w *Wishlist) Load(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	raw, ok := w.store.Get(ctx, w.key)
	if !ok {
		w.items = nil
		return
	}

	var items []domain.WishlistItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		w.logger.WarnContext(ctx, "discarding malformed wishlist snapshot",
			slog.String("key", w.key),
			slog.String("error", err.Error()),
		)
		w.items = nil
		return
	}
	w.items = items
}

// Add saves a product. Adding a product that is already saved changes
// nothing, not even its saved-at time.
func (w *Wishlist) Add(ctx context.Context, product domain.Product) *domain.WishlistItem {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.items {
		if w.items[i].Product.ID == product.ID {
			item := w.items[i]
			return &item
		}
	}

	item := domain.WishlistItem{
		ID:      uuid.New().String(),
		Product: product,
		AddedAt: time.Now().UTC(),
	}
	w.items = append(w.items, item)
	w.persistLocked(ctx)
	return &item
}

// Remove deletes the entry for productID. Removing an absent product is a
// no-op.
func (w *Wishlist) Remove(ctx context.Context, productID int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.items {
		if w.items[i].Product.ID == productID {
			w.items = append(w.items[:i], w.items[i+1:]...)
			w.persistLocked(ctx)
			return
		}
	}
}

// Contains reports whether productID is saved.
func (w *Wishlist) Contains(productID int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i := range w.items {
		if w.items[i].Product.ID == productID {
			return true
		}
	}
	return false
}

// Items returns a copy of the saved products in insertion order.
func (w *Wishlist) Items() []domain.WishlistItem {
	w.mu.Lock()
	defer w.mu.Unlock()

	items := make([]domain.WishlistItem, len(w.items))
	copy(items, w.items)
	return items
}

// Len returns the number of saved products.
func (w *Wishlist) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.items)
}

// MoveToCart inserts the saved product into the cart and, only if the insert
// succeeded, removes it from the wishlist. A product the cart rejects stays
// on the wishlist. Returns false for unknown product ids and rejected moves.
func (w *Wishlist) MoveToCart(ctx context.Context, cart CartAdder, productID int) bool {
	w.mu.Lock()
	var product *domain.Product
	for i := range w.items {
		if w.items[i].Product.ID == productID {
			p := w.items[i].Product
			product = &p
			break
		}
	}
	w.mu.Unlock()

	if product == nil {
		return false
	}

	// Insert first, remove second: a failed insert must leave the wishlist
	// entry in place.
	if _, ok := cart.Add(ctx, *product, 1); !ok {
		w.logger.WarnContext(ctx, "cart rejected wishlist move, keeping entry",
			slog.Int("product_id", productID),
		)
		return false
	}

	w.Remove(ctx, productID)
	return true
}

// Clear empties the wishlist and removes its persisted snapshot.
func (w *Wishlist) Clear(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.items = nil
	w.store.Remove(ctx, w.key)
}

func (w *Wishlist) persistLocked(ctx context.Context) {
	raw, err := json.Marshal(w.items)
	if err != nil {
		w.logger.WarnContext(ctx, "failed to serialize wishlist",
			slog.String("key", w.key),
			slog.String("error", err.Error()),
		)
		return
	}
	w.store.Set(ctx, w.key, string(raw))
}
