package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/persist"
	"github.com/utafrali/storefront/pkg/logger"
)

const wishlistStoreName = "wishlist"

// WishlistStore keeps a local list of wished products. Adds and removes
// call the API and then edit the local list in place; only FetchWishlist
// replaces it with the server's view.
type WishlistStore struct {
	api     WishlistAPI
	storage persist.Storage
	logger  *slog.Logger

	mu        sync.RWMutex
	items     []domain.Product
	isLoading bool

	persistMu sync.Mutex
}

// NewWishlistStore creates a wishlist store and restores the persisted list.
func NewWishlistStore(ctx context.Context, api WishlistAPI, storage persist.Storage, opts ...Option) *WishlistStore {
	o := buildOptions(opts)
	s := &WishlistStore{
		api:     api,
		storage: storage,
		logger:  o.logger,
		items:   []domain.Product{},
	}

	var p wishlistProjection
	if restore(ctx, storage, persist.WishlistKey, &p, s.logger) && p.Items != nil {
		s.items = p.Items
	}
	return s
}

// Items returns a copy of the local list in insertion order.
func (s *WishlistStore) Items() []domain.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneProducts(s.items)
}

// IsLoading reports whether an API call is in flight.
func (s *WishlistStore) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isLoading
}

// IsInWishlist reports whether the local list holds productID. It never
// consults the API.
func (s *WishlistStore) IsInWishlist(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.items {
		if s.items[i].ID == productID {
			return true
		}
	}
	return false
}

// AddItem records product remotely and appends it locally. Adding the same
// product twice yields two entries.
func (s *WishlistStore) AddItem(ctx context.Context, product domain.Product) error {
	const op = "add_item"

	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.api.AddToWishlist(ctx, product.ID); err != nil {
		return s.fail(ctx, op, err)
	}

	s.mu.Lock()
	s.items = append(s.items, product.Clone())
	s.mu.Unlock()

	s.succeed(ctx, op)
	return nil
}

// RemoveItem records the removal remotely and drops every local entry with
// productID. An absent id still calls the API.
func (s *WishlistStore) RemoveItem(ctx context.Context, productID string) error {
	const op = "remove_item"

	s.setLoading(true)
	defer s.setLoading(false)

	if err := s.api.RemoveFromWishlist(ctx, productID); err != nil {
		return s.fail(ctx, op, err)
	}

	s.mu.Lock()
	kept := make([]domain.Product, 0, len(s.items))
	for _, p := range s.items {
		if p.ID != productID {
			kept = append(kept, p)
		}
	}
	s.items = kept
	s.mu.Unlock()

	s.succeed(ctx, op)
	return nil
}

// FetchWishlist replaces the local list with the server's. Failures are
// logged and the previous list stays.
func (s *WishlistStore) FetchWishlist(ctx context.Context) {
	const op = "fetch_wishlist"

	s.setLoading(true)
	defer s.setLoading(false)

	items, err := s.api.GetWishlist(ctx)
	if err != nil {
		storeOperationsTotal.WithLabelValues(wishlistStoreName, op, outcomeError).Inc()
		logger.WithContext(ctx, s.logger).Warn("failed to fetch wishlist",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return
	}

	s.mu.Lock()
	s.items = domain.CloneProducts(items)
	s.mu.Unlock()

	s.succeed(ctx, op)
}

// ClearWishlist forgets the local list. The remote wishlist is untouched.
func (s *WishlistStore) ClearWishlist(ctx context.Context) {
	s.mu.Lock()
	s.items = []domain.Product{}
	s.mu.Unlock()

	s.succeed(ctx, "clear_wishlist")
}

func (s *WishlistStore) setLoading(v bool) {
	s.mu.Lock()
	s.isLoading = v
	s.mu.Unlock()
}

func (s *WishlistStore) fail(ctx context.Context, op string, err error) error {
	storeOperationsTotal.WithLabelValues(wishlistStoreName, op, outcomeError).Inc()
	logger.WithContext(ctx, s.logger).Error("wishlist operation failed",
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s: %w", op, err)
}

func (s *WishlistStore) succeed(ctx context.Context, op string) {
	storeOperationsTotal.WithLabelValues(wishlistStoreName, op, outcomeSuccess).Inc()

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	data, err := marshal(persist.WishlistKey, wishlistProjection{Items: s.items})
	s.mu.RUnlock()

	if err == nil {
		err = s.storage.Save(context.WithoutCancel(ctx), persist.WishlistKey, data)
	}
	if err != nil {
		logger.WithContext(ctx, s.logger).Error("failed to persist wishlist",
			slog.String("key", persist.WishlistKey),
			slog.String("error", err.Error()),
		)
	}
}
