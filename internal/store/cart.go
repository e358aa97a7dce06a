package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/persist"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
)

const cartStoreName = "cart"

// CartState is a read-only view of a CartStore.
type CartState struct {
	Cart      *domain.Cart `json:"cart"`
	IsOpen    bool         `json:"is_open"`
	IsLoading bool         `json:"is_loading"`
}

// CartStore caches the cart as last returned by the remote API. Every
// mutation is a remote call followed by a wholesale replace of the
// snapshot; totals are never recomputed locally.
//
// Concurrent operations are allowed. Unless the stale-response guard is
// enabled, whichever response resolves last wins.
type CartStore struct {
	api     CartAPI
	storage persist.Storage
	logger  *slog.Logger
	guard   bool

	mu        sync.RWMutex
	cart      *domain.Cart
	isOpen    bool
	isLoading bool
	started   uint64
	applied   uint64

	// persistMu orders snapshot-then-save so the last write is the newest state.
	persistMu sync.Mutex
}

// NewCartStore creates a cart store and eagerly restores the persisted
// projection. A missing or unreadable projection leaves the cart nil.
func NewCartStore(ctx context.Context, api CartAPI, storage persist.Storage, opts ...Option) *CartStore {
	o := buildOptions(opts)
	s := &CartStore{
		api:     api,
		storage: storage,
		logger:  o.logger,
		guard:   o.staleGuard,
	}

	var p cartProjection
	if restore(ctx, storage, persist.CartKey, &p, s.logger) {
		s.cart = p.Cart
	}
	return s
}

// State returns a snapshot safe to hand to callers.
func (s *CartStore) State() CartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CartState{
		Cart:      s.cart.Clone(),
		IsOpen:    s.isOpen,
		IsLoading: s.isLoading,
	}
}

// Cart returns a copy of the current snapshot, or nil.
func (s *CartStore) Cart() *domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Clone()
}

// SetCart replaces the snapshot without calling the API.
func (s *CartStore) SetCart(ctx context.Context, cart *domain.Cart) {
	s.mu.Lock()
	s.started++
	s.applied = s.started
	s.cart = cart.Clone()
	s.mu.Unlock()

	storeOperationsTotal.WithLabelValues(cartStoreName, "set_cart", outcomeSuccess).Inc()
	s.persist(ctx)
}

// AddItem adds quantity units of variant to the cart and opens the cart
// panel on success.
func (s *CartStore) AddItem(ctx context.Context, product domain.Product, variant domain.Variant, quantity int) error {
	if quantity < 1 {
		storeOperationsTotal.WithLabelValues(cartStoreName, "add_item", outcomeRejected).Inc()
		return apperrors.InvalidInput("quantity must be at least 1")
	}

	return s.mutate(ctx, "add_item", func(ctx context.Context) (*domain.Cart, error) {
		return s.api.AddToCart(ctx, product.ID, variant.ID, quantity)
	}, func() { s.isOpen = true })
}

// UpdateQuantity sets the quantity of a line item. Zero is passed through
// to the API unchanged.
func (s *CartStore) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	return s.mutate(ctx, "update_quantity", func(ctx context.Context) (*domain.Cart, error) {
		return s.api.UpdateCartItem(ctx, itemID, quantity)
	}, nil)
}

// RemoveItem deletes a line item.
func (s *CartStore) RemoveItem(ctx context.Context, itemID string) error {
	return s.mutate(ctx, "remove_item", func(ctx context.Context) (*domain.Cart, error) {
		return s.api.RemoveFromCart(ctx, itemID)
	}, nil)
}

// ClearCart empties the remote cart. On success the local cart is nil,
// not an empty cart.
func (s *CartStore) ClearCart(ctx context.Context) error {
	return s.mutate(ctx, "clear_cart", func(ctx context.Context) (*domain.Cart, error) {
		return nil, s.api.ClearCart(ctx)
	}, nil)
}

// FetchCart refreshes the snapshot from the API. Failures are logged and
// the previous snapshot stays visible.
func (s *CartStore) FetchCart(ctx context.Context) {
	const op = "fetch_cart"

	seq := s.begin()
	defer s.end()

	cart, err := s.api.GetCart(ctx)
	if err != nil {
		storeOperationsTotal.WithLabelValues(cartStoreName, op, outcomeError).Inc()
		logger.WithContext(ctx, s.logger).Warn("failed to fetch cart",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return
	}

	if !s.apply(seq, cart, nil) {
		s.discarded(ctx, op, seq)
		return
	}
	storeOperationsTotal.WithLabelValues(cartStoreName, op, outcomeSuccess).Inc()
	s.persist(ctx)
}

// OpenCart shows the cart panel.
func (s *CartStore) OpenCart() { s.setOpen(func(bool) bool { return true }) }

// CloseCart hides the cart panel.
func (s *CartStore) CloseCart() { s.setOpen(func(bool) bool { return false }) }

// ToggleCart flips cart panel visibility.
func (s *CartStore) ToggleCart() { s.setOpen(func(open bool) bool { return !open }) }

func (s *CartStore) setOpen(f func(bool) bool) {
	s.mu.Lock()
	s.isOpen = f(s.isOpen)
	s.mu.Unlock()
}

func (s *CartStore) mutate(ctx context.Context, op string, call func(context.Context) (*domain.Cart, error), onSuccess func()) error {
	seq := s.begin()
	defer s.end()

	cart, err := call(ctx)
	if err != nil {
		storeOperationsTotal.WithLabelValues(cartStoreName, op, outcomeError).Inc()
		logger.WithContext(ctx, s.logger).Error("cart operation failed",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s: %w", op, err)
	}

	if !s.apply(seq, cart, onSuccess) {
		s.discarded(ctx, op, seq)
		return nil
	}
	storeOperationsTotal.WithLabelValues(cartStoreName, op, outcomeSuccess).Inc()
	s.persist(ctx)
	return nil
}

// begin marks the store loading and hands out a sequence number.
func (s *CartStore) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = true
	s.started++
	return s.started
}

func (s *CartStore) end() {
	s.mu.Lock()
	s.isLoading = false
	s.mu.Unlock()
}

// apply installs cart as the snapshot unless the guard is on and a later
// call already applied its response.
func (s *CartStore) apply(seq uint64, cart *domain.Cart, onSuccess func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.guard && seq < s.applied {
		return false
	}
	if seq > s.applied {
		s.applied = seq
	}
	s.cart = cart
	if onSuccess != nil {
		onSuccess()
	}
	return true
}

func (s *CartStore) discarded(ctx context.Context, op string, seq uint64) {
	storeOperationsTotal.WithLabelValues(cartStoreName, op, outcomeDiscard).Inc()
	logger.WithContext(ctx, s.logger).Debug("discarding stale cart response",
		slog.String("operation", op),
		slog.Uint64("sequence", seq),
	)
}

func (s *CartStore) persist(ctx context.Context) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.RLock()
	data, err := marshal(persist.CartKey, cartProjection{Cart: s.cart})
	s.mu.RUnlock()

	if err == nil {
		err = s.storage.Save(context.WithoutCancel(ctx), persist.CartKey, data)
	}
	if err != nil {
		logger.WithContext(ctx, s.logger).Error("failed to persist cart",
			slog.String("key", persist.CartKey),
			slog.String("error", err.Error()),
		)
	}
}
