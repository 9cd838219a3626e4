package commerce

import (
	"context"
	"log/slog"
	"sync"

	"github.com/k1shan-k/lsspoing/internal/store"
)

// Engine owns the active user's cart and wishlist. Activate binds the
// collections to a user and rehydrates their persisted state; Deactivate
// drops them from memory when the session ends.
type Engine struct {
	store  *store.Store
	logger *slog.Logger

	mu       sync.Mutex
	userID   string
	cart     *Cart
	wishlist *Wishlist
}

// NewEngine creates an engine with no active user.
func NewEngine(st *store.Store, logger *slog.Logger) *Engine {
	return &Engine{store: st, logger: logger}
}

// Activate binds the engine to userID and rehydrates that user's cart and
// wishlist from the store. Activating the already-active user is a no-op.
func (e *Engine) Activate(ctx context.Context, userID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.userID == userID && e.cart != nil {
		return
	}

	e.userID = userID
	e.cart = NewCart(e.store, e.logger, userID)
	e.wishlist = NewWishlist(e.store, e.logger, userID)
	e.cart.Load(ctx)
	e.wishlist.Load(ctx)

	e.logger.InfoContext(ctx, "commerce state activated",
		slog.String("user_id", userID),
		slog.Int("cart_items", e.cart.Len()),
		slog.Int("wishlist_items", e.wishlist.Len()),
	)
}

// Deactivate drops the active collections from memory. Persisted snapshots
// stay in the store so they survive for the next login.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.userID = ""
	e.cart = nil
	e.wishlist = nil
}

// Cart returns the active cart, or nil when no user is active.
func (e *Engine) Cart() *Cart {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cart
}

// Wishlist returns the active wishlist, or nil when no user is active.
func (e *Engine) Wishlist() *Wishlist {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.wishlist
}

// ActiveUser returns the bound user id, or empty.
func (e *Engine) ActiveUser() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.userID
}
