package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/utafrali/storefront/internal/domain"
)

// --- Mock API ---

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) GetCart(ctx context.Context) (*domain.Cart, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockAPI) AddToCart(ctx context.Context, productID, variantID string, quantity int) (*domain.Cart, error) {
	args := m.Called(ctx, productID, variantID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockAPI) UpdateCartItem(ctx context.Context, itemID string, quantity int) (*domain.Cart, error) {
	args := m.Called(ctx, itemID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockAPI) RemoveFromCart(ctx context.Context, itemID string) (*domain.Cart, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Cart), args.Error(1)
}

func (m *mockAPI) ClearCart(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockAPI) GetWishlist(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockAPI) AddToWishlist(ctx context.Context, productID string) error {
	return m.Called(ctx, productID).Error(0)
}

func (m *mockAPI) RemoveFromWishlist(ctx context.Context, productID string) error {
	return m.Called(ctx, productID).Error(0)
}

// --- Storage that fails writes ---

type failingStorage struct {
	mu    sync.Mutex
	saves int
}

var errDiskFull = errors.New("disk full")

func (f *failingStorage) Load(context.Context, string) ([]byte, error) {
	return nil, errors.New("storage offline")
}

func (f *failingStorage) Save(context.Context, string, []byte) error {
	f.mu.Lock()
	f.saves++
	f.mu.Unlock()
	return errDiskFull
}

func (f *failingStorage) Delete(context.Context, string) error { return nil }

// --- Test helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleProduct() domain.Product {
	return domain.Product{
		ID:       "prod-a",
		Name:     "Linen Shirt",
		Slug:     "linen-shirt",
		Price:    4900,
		Currency: "USD",
		Variants: []domain.Variant{
			{ID: "var-x", Name: "M", SKU: "LS-M", Price: 4900, InStock: true},
		},
	}
}

func cartWith(qty int) *domain.Cart {
	return &domain.Cart{
		ID: "cart-1",
		Items: []domain.CartItem{
			{ID: "item-1", ProductID: "prod-a", VariantID: "var-x", Name: "Linen Shirt", Price: 4900, Quantity: qty},
		},
		Subtotal:  int64(4900 * qty),
		Tax:       int64(392 * qty),
		Shipping:  500,
		Total:     int64(4900*qty + 392*qty + 500),
		ItemCount: qty,
		Currency:  "USD",
	}
}
