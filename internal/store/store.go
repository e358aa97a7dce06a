// Package store holds the client-side cart and wishlist state that mirrors
// the remote commerce API and persists a projection of it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/persist"
	"github.com/utafrali/storefront/pkg/logger"
)

// CartAPI is the slice of the remote commerce API used by CartStore.
type CartAPI interface {
	GetCart(ctx context.Context) (*domain.Cart, error)
	AddToCart(ctx context.Context, productID, variantID string, quantity int) (*domain.Cart, error)
	UpdateCartItem(ctx context.Context, itemID string, quantity int) (*domain.Cart, error)
	RemoveFromCart(ctx context.Context, itemID string) (*domain.Cart, error)
	ClearCart(ctx context.Context) error
}

// WishlistAPI is the slice of the remote commerce API used by WishlistStore.
type WishlistAPI interface {
	GetWishlist(ctx context.Context) ([]domain.Product, error)
	AddToWishlist(ctx context.Context, productID string) error
	RemoveFromWishlist(ctx context.Context, productID string) error
}

// Operation outcomes recorded in storeOperationsTotal.
const (
	outcomeSuccess  = "success"
	outcomeError    = "error"
	outcomeDiscard  = "discarded"
	outcomeRejected = "rejected"
)

var storeOperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_store_operations_total",
		Help: "Store operations by store, operation and outcome",
	},
	[]string{"store", "operation", "outcome"},
)

// Option configures a store.
type Option func(*options)

type options struct {
	logger     *slog.Logger
	staleGuard bool
}

// WithLogger sets the logger used for diagnostics. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStaleResponseGuard makes the cart store drop a response when a call
// started later has already applied its own response. Without it the last
// response to resolve wins.
func WithStaleResponseGuard() Option {
	return func(o *options) { o.staleGuard = true }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

type cartProjection struct {
	Cart *domain.Cart `json:"cart"`
}

type wishlistProjection struct {
	Items []domain.Product `json:"items"`
}

// restore loads key into dst. A missing key leaves dst untouched; any other
// failure is logged and ignored.
func restore(ctx context.Context, storage persist.Storage, key string, dst any, l *slog.Logger) bool {
	data, err := storage.Load(ctx, key)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			logger.WithContext(ctx, l).Warn("failed to load projection",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.WithContext(ctx, l).Warn("ignoring corrupt projection",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return false
	}
	return true
}

func marshal(key string, v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", key, err)
	}
	return data, nil
}
