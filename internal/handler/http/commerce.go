package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/k1shan-k/lsspoing/pkg/errors"
	"github.com/k1shan-k/lsspoing/pkg/httputil"
	"github.com/k1shan-k/lsspoing/pkg/validator"

	"github.com/k1shan-k/lsspoing/internal/commerce"
	"github.com/k1shan-k/lsspoing/internal/domain"
)

// ProductGetter resolves a product id to its current catalog snapshot.
// *catalog.Client satisfies this.
type ProductGetter interface {
	Get(ctx context.Context, id int) (*domain.Product, error)
}

// CommerceHandler handles HTTP requests for the cart and wishlist.
type CommerceHandler struct {
	engine  *commerce.Engine
	catalog ProductGetter
	logger  *slog.Logger
}

// NewCommerceHandler creates a new commerce HTTP handler.
func NewCommerceHandler(engine *commerce.Engine, catalog ProductGetter, logger *slog.Logger) *CommerceHandler {
	return &CommerceHandler{
		engine:  engine,
		catalog: catalog,
		logger:  logger,
	}
}

// AddItemRequest is the JSON request body for adding a product to the cart
// or wishlist.
type AddItemRequest struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
	Quantity  int `json:"quantity" validate:"gte=0"`
}

// UpdateQuantityRequest is the JSON request body for updating a line quantity.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"gte=0"`
}

// CartResponse is the cart contents plus derived totals.
type CartResponse struct {
	Items   []domain.CartItem   `json:"items"`
	Summary domain.OrderSummary `json:"summary"`
}

// WishlistResponse is the saved products.
type WishlistResponse struct {
	Items []domain.WishlistItem `json:"items"`
}

func (h *CommerceHandler) cartResponse(cart *commerce.Cart) CartResponse {
	items := cart.Items()
	if items == nil {
		items = []domain.CartItem{}
	}
	return CartResponse{Items: items, Summary: cart.Summary()}
}

func (h *CommerceHandler) wishlistResponse(wl *commerce.Wishlist) WishlistResponse {
	items := wl.Items()
	if items == nil {
		items = []domain.WishlistItem{}
	}
	return WishlistResponse{Items: items}
}

// activeCart returns the signed-in user's cart. The auth middleware runs
// before these handlers, so a nil cart means the engine was never activated.
func (h *CommerceHandler) activeCart(w http.ResponseWriter, r *http.Request) *commerce.Cart {
	cart := h.engine.Cart()
	if cart == nil {
		httputil.WriteError(w, r, apperrors.TokenExpired(""), h.logger)
	}
	return cart
}

func (h *CommerceHandler) activeWishlist(w http.ResponseWriter, r *http.Request) *commerce.Wishlist {
	wl := h.engine.Wishlist()
	if wl == nil {
		httputil.WriteError(w, r, apperrors.TokenExpired(""), h.logger)
	}
	return wl
}

func productIDParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "productID"))
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidInput("productID must be a positive integer")
	}
	return id, nil
}

// --- Cart handlers ---

// GetCart handles GET /api/v1/cart
func (h *CommerceHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart := h.activeCart(w, r)
	if cart == nil {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.cartResponse(cart)})
}

// GetCartSummary handles GET /api/v1/cart/summary
func (h *CommerceHandler) GetCartSummary(w http.ResponseWriter, r *http.Request) {
	cart := h.activeCart(w, r)
	if cart == nil {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: cart.Summary()})
}

// AddCartItem handles POST /api/v1/cart/items
func (h *CommerceHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	cart := h.activeCart(w, r)
	if cart == nil {
		return
	}

	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if _, ok := cart.Add(r.Context(), *product, req.Quantity); !ok {
		httputil.WriteError(w, r, apperrors.Conflict("product is out of stock"), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.cartResponse(cart)})
}

// UpdateCartItem handles PUT /api/v1/cart/items/{productID}
func (h *CommerceHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	cart := h.activeCart(w, r)
	if cart == nil {
		return
	}

	productID, err := productIDParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart.SetQuantity(r.Context(), productID, req.Quantity)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.cartResponse(cart)})
}

// RemoveCartItem handles DELETE /api/v1/cart/items/{productID}
func (h *CommerceHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	cart := h.activeCart(w, r)
	if cart == nil {
		return
	}

	productID, err := productIDParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart.Remove(r.Context(), productID)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.cartResponse(cart)})
}

// ClearCart handles DELETE /api/v1/cart
func (h *CommerceHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart := h.activeCart(w, r)
	if cart == nil {
		return
	}

	cart.Clear(r.Context())

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.cartResponse(cart)})
}

// --- Wishlist handlers ---

// GetWishlist handles GET /api/v1/wishlist
func (h *CommerceHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	wl := h.activeWishlist(w, r)
	if wl == nil {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.wishlistResponse(wl)})
}

// AddWishlistItem handles POST /api/v1/wishlist/items
func (h *CommerceHandler) AddWishlistItem(w http.ResponseWriter, r *http.Request) {
	wl := h.activeWishlist(w, r)
	if wl == nil {
		return
	}

	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product, err := h.catalog.Get(r.Context(), req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	wl.Add(r.Context(), *product)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.wishlistResponse(wl)})
}

// RemoveWishlistItem handles DELETE /api/v1/wishlist/items/{productID}
func (h *CommerceHandler) RemoveWishlistItem(w http.ResponseWriter, r *http.Request) {
	wl := h.activeWishlist(w, r)
	if wl == nil {
		return
	}

	productID, err := productIDParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	wl.Remove(r.Context(), productID)

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: h.wishlistResponse(wl)})
}

// MoveWishlistItemToCart handles POST /api/v1/wishlist/items/{productID}/move-to-cart
func (h *CommerceHandler) MoveWishlistItemToCart(w http.ResponseWriter, r *http.Request) {
	wl := h.activeWishlist(w, r)
	if wl == nil {
		return
	}
	cart := h.activeCart(w, r)
	if cart == nil {
		return
	}

	productID, err := productIDParam(r)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if !wl.Contains(productID) {
		httputil.WriteError(w, r, apperrors.NotFound("wishlist item", strconv.Itoa(productID)), h.logger)
		return
	}

	if !wl.MoveToCart(r.Context(), cart, productID) {
		httputil.WriteError(w, r, apperrors.Conflict("product is out of stock"), h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"cart":     h.cartResponse(cart),
		"wishlist": h.wishlistResponse(wl),
	}})
}
