package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/k1shan-k/lsspoing/pkg/health"
	"github.com/k1shan-k/lsspoing/pkg/middleware"

	"github.com/k1shan-k/lsspoing/internal/catalog"
	"github.com/k1shan-k/lsspoing/internal/commerce"
	"github.com/k1shan-k/lsspoing/internal/session"
)

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(
	sessions *session.Manager,
	engine *commerce.Engine,
	catalogClient *catalog.Client,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	sessionHandler := NewSessionHandler(sessions, engine, logger)
	catalogHandler := NewCatalogHandler(catalogClient, logger)
	commerceHandler := NewCommerceHandler(engine, catalogClient, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", sessionHandler.Login)
			r.Post("/logout", sessionHandler.Logout)
			r.Post("/refresh", sessionHandler.Refresh)
			r.Get("/session", sessionHandler.GetSession)
			r.Get("/me", sessionHandler.Me)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogHandler.ListProducts)
			r.Get("/search", catalogHandler.SearchProducts)
			r.Get("/categories", catalogHandler.ListCategories)
			r.Get("/category/{category}", catalogHandler.ListByCategory)
			r.Get("/{productID}", catalogHandler.GetProduct)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Use(RequireSession(sessions))

			r.Get("/", commerceHandler.GetCart)
			r.Delete("/", commerceHandler.ClearCart)
			r.Get("/summary", commerceHandler.GetCartSummary)

			r.Post("/items", commerceHandler.AddCartItem)
			r.Put("/items/{productID}", commerceHandler.UpdateCartItem)
			r.Delete("/items/{productID}", commerceHandler.RemoveCartItem)
		})

		r.Route("/wishlist", func(r chi.Router) {
			r.Use(RequireSession(sessions))

			r.Get("/", commerceHandler.GetWishlist)
			r.Post("/items", commerceHandler.AddWishlistItem)
			r.Delete("/items/{productID}", commerceHandler.RemoveWishlistItem)
			r.Post("/items/{productID}/move-to-cart", commerceHandler.MoveWishlistItemToCart)
		})
	})

	return r
}
