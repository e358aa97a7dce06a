package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// RouterConfig holds the tunables of the HTTP surface.
type RouterConfig struct {
	ServiceName    string
	CORS           middleware.CORSConfig
	RateLimitRPS   float64
	RateLimitBurst int
	// CatalogMaxAge is the public cache lifetime of product listings in
	// seconds. Zero disables the header.
	CatalogMaxAge int
}

// NewRouter creates a chi router with all storefront routes registered. ctx
// bounds background work owned by the middleware chain.
func NewRouter(
	ctx context.Context,
	sessions Sessions,
	products ProductLister,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	cartHandler := NewCartHandler(sessions, logger)
	wishlistHandler := NewWishlistHandler(sessions, logger)
	searchHandler := NewSearchHandler(sessions, logger)
	catalogHandler := NewCatalogHandler(products, logger)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(middleware.RateLimit(ctx, cfg.RateLimitRPS, cfg.RateLimitBurst, logger))
		}
		r.Use(ContentTypeJSON)

		r.Group(func(r chi.Router) {
			if cfg.CatalogMaxAge > 0 {
				r.Use(middleware.CacheControl(cfg.CatalogMaxAge))
			}
			r.Get("/products", catalogHandler.ListProducts)
		})

		r.Route("/session", func(r chi.Router) {
			r.Use(middleware.Session())
			r.Use(middleware.NoStore())

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Put("/", cartHandler.SetCart)
				r.Delete("/", cartHandler.ClearCart)
				r.Post("/refresh", cartHandler.RefreshCart)
				r.Post("/open", cartHandler.OpenCart)
				r.Post("/close", cartHandler.CloseCart)
				r.Post("/toggle", cartHandler.ToggleCart)

				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{itemId}", cartHandler.UpdateItemQuantity)
				r.Delete("/items/{itemId}", cartHandler.RemoveItem)
			})

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", wishlistHandler.GetWishlist)
				r.Delete("/", wishlistHandler.ClearWishlist)
				r.Post("/refresh", wishlistHandler.RefreshWishlist)

				r.Post("/items", wishlistHandler.AddItem)
				r.Get("/items/{productId}", wishlistHandler.HasItem)
				r.Delete("/items/{productId}", wishlistHandler.RemoveItem)
			})

			r.Get("/search", searchHandler.Results)
			r.Put("/search", searchHandler.Input)
		})
	})

	return r
}
