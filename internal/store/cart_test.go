package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/persist"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func newTestCartStore(t *testing.T, opts ...Option) (*CartStore, *mockAPI, *persist.Memory) {
	t.Helper()
	api := new(mockAPI)
	mem := persist.NewMemory()
	opts = append([]Option{WithLogger(newTestLogger())}, opts...)
	return NewCartStore(context.Background(), api, mem, opts...), api, mem
}

func persistedCart(t *testing.T, mem *persist.Memory) *domain.Cart {
	t.Helper()
	data, err := mem.Load(context.Background(), persist.CartKey)
	require.NoError(t, err)
	var p cartProjection
	require.NoError(t, json.Unmarshal(data, &p))
	return p.Cart
}

// --- Construction ---

func TestNewCartStore_EmptyStorage(t *testing.T) {
	s, _, _ := newTestCartStore(t)

	state := s.State()
	assert.Nil(t, state.Cart)
	assert.False(t, state.IsOpen)
	assert.False(t, state.IsLoading)
}

func TestNewCartStore_RestoresProjection(t *testing.T) {
	mem := persist.NewMemory()
	data, err := json.Marshal(cartProjection{Cart: cartWith(3)})
	require.NoError(t, err)
	require.NoError(t, mem.Save(context.Background(), persist.CartKey, data))

	s := NewCartStore(context.Background(), new(mockAPI), mem, WithLogger(newTestLogger()))

	assert.Equal(t, cartWith(3), s.Cart())
	assert.False(t, s.State().IsOpen, "visibility is not persisted")
}

func TestNewCartStore_CorruptProjectionIgnored(t *testing.T) {
	mem := persist.NewMemory()
	require.NoError(t, mem.Save(context.Background(), persist.CartKey, []byte("{not json")))

	s := NewCartStore(context.Background(), new(mockAPI), mem, WithLogger(newTestLogger()))
	assert.Nil(t, s.Cart())
}

func TestNewCartStore_UnreadableStorageIgnored(t *testing.T) {
	s := NewCartStore(context.Background(), new(mockAPI), &failingStorage{}, WithLogger(newTestLogger()))
	assert.Nil(t, s.Cart())
}

// --- SetCart ---

func TestSetCart_ReplacesAndPersists(t *testing.T) {
	s, api, mem := newTestCartStore(t)

	s.SetCart(context.Background(), cartWith(1))

	assert.Equal(t, cartWith(1), s.Cart())
	assert.Equal(t, cartWith(1), persistedCart(t, mem))
	api.AssertExpectations(t)
}

func TestSetCart_DoesNotAliasCaller(t *testing.T) {
	s, _, _ := newTestCartStore(t)

	c := cartWith(1)
	s.SetCart(context.Background(), c)
	c.Items[0].Quantity = 99

	assert.Equal(t, 1, s.Cart().Items[0].Quantity)
}

// --- AddItem ---

func TestAddItem_ReplacesSnapshotAndOpens(t *testing.T) {
	s, api, mem := newTestCartStore(t)
	ctx := context.Background()

	api.On("AddToCart", mock.Anything, "prod-a", "var-x", 2).Return(cartWith(2), nil).Once()

	p := sampleProduct()
	require.NoError(t, s.AddItem(ctx, p, p.Variants[0], 2))

	state := s.State()
	assert.Equal(t, cartWith(2), state.Cart)
	assert.True(t, state.IsOpen)
	assert.False(t, state.IsLoading)
	assert.Equal(t, cartWith(2), persistedCart(t, mem))
	api.AssertExpectations(t)
}

func TestAddItem_QuantityBelowOne(t *testing.T) {
	for _, qty := range []int{0, -1} {
		s, api, mem := newTestCartStore(t)

		p := sampleProduct()
		err := s.AddItem(context.Background(), p, p.Variants[0], qty)

		require.Error(t, err)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Nil(t, s.Cart())
		assert.Empty(t, mem.Keys())
		api.AssertNotCalled(t, "AddToCart", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	}
}

func TestAddItem_FailureLeavesCartUntouched(t *testing.T) {
	s, api, mem := newTestCartStore(t)
	ctx := context.Background()
	s.SetCart(ctx, cartWith(1))

	apiErr := errors.New("connection reset")
	api.On("AddToCart", mock.Anything, "prod-a", "var-x", 1).Return(nil, apiErr).Once()

	p := sampleProduct()
	err := s.AddItem(ctx, p, p.Variants[0], 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, apiErr)
	state := s.State()
	assert.Equal(t, cartWith(1), state.Cart)
	assert.False(t, state.IsLoading)
	assert.False(t, state.IsOpen)
	assert.Equal(t, cartWith(1), persistedCart(t, mem))
}

func TestAddItem_LoadingWhileInFlight(t *testing.T) {
	s, api, _ := newTestCartStore(t)

	var loading bool
	api.On("AddToCart", mock.Anything, "prod-a", "var-x", 1).
		Run(func(mock.Arguments) { loading = s.State().IsLoading }).
		Return(cartWith(1), nil).Once()

	p := sampleProduct()
	require.NoError(t, s.AddItem(context.Background(), p, p.Variants[0], 1))

	assert.True(t, loading)
	assert.False(t, s.State().IsLoading)
}

// --- UpdateQuantity / RemoveItem ---

func TestAddThenUpdate_UsesServerQuantity(t *testing.T) {
	s, api, mem := newTestCartStore(t)
	ctx := context.Background()

	api.On("AddToCart", mock.Anything, "prod-a", "var-x", 2).Return(cartWith(2), nil).Once()
	api.On("UpdateCartItem", mock.Anything, "item-1", 5).Return(cartWith(5), nil).Once()

	p := sampleProduct()
	require.NoError(t, s.AddItem(ctx, p, p.Variants[0], 2))
	require.NoError(t, s.UpdateQuantity(ctx, "item-1", 5))

	cart := s.Cart()
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, cartWith(5), persistedCart(t, mem))
	api.AssertExpectations(t)
}

func TestUpdateQuantity_TotalsAreNotRecomputed(t *testing.T) {
	s, api, _ := newTestCartStore(t)

	server := cartWith(2)
	server.Subtotal = 1 // discounted by the server; must be taken as-is
	server.Total = 7
	api.On("UpdateCartItem", mock.Anything, "item-1", 2).Return(server, nil).Once()

	require.NoError(t, s.UpdateQuantity(context.Background(), "item-1", 2))

	assert.Equal(t, int64(1), s.Cart().Subtotal)
	assert.Equal(t, int64(7), s.Cart().Total)
}

func TestUpdateQuantity_ZeroPassesThrough(t *testing.T) {
	s, api, _ := newTestCartStore(t)

	empty := &domain.Cart{ID: "cart-1", Items: []domain.CartItem{}, Currency: "USD"}
	api.On("UpdateCartItem", mock.Anything, "item-1", 0).Return(empty, nil).Once()

	require.NoError(t, s.UpdateQuantity(context.Background(), "item-1", 0))
	assert.Equal(t, empty, s.Cart())
}

func TestRemoveItem_Failure(t *testing.T) {
	s, api, _ := newTestCartStore(t)
	ctx := context.Background()
	s.SetCart(ctx, cartWith(2))

	api.On("RemoveFromCart", mock.Anything, "item-1").Return(nil, apperrors.NotFound("cart item", "item-1")).Once()

	err := s.RemoveItem(ctx, "item-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, cartWith(2), s.Cart())
	assert.False(t, s.State().IsLoading)
}

// --- ClearCart ---

func TestClearCart_SetsNil(t *testing.T) {
	s, api, mem := newTestCartStore(t)
	ctx := context.Background()
	s.SetCart(ctx, cartWith(2))

	api.On("ClearCart", mock.Anything).Return(nil).Once()

	require.NoError(t, s.ClearCart(ctx))

	state := s.State()
	assert.Nil(t, state.Cart)
	assert.False(t, state.IsLoading)

	raw, err := mem.Load(ctx, persist.CartKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cart":null}`, string(raw))
}

func TestClearCart_Failure(t *testing.T) {
	s, api, _ := newTestCartStore(t)
	ctx := context.Background()
	s.SetCart(ctx, cartWith(2))

	api.On("ClearCart", mock.Anything).Return(apperrors.Unavailable("circuit open")).Once()

	err := s.ClearCart(ctx)
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
	assert.Equal(t, cartWith(2), s.Cart())
}

// --- FetchCart ---

func TestFetchCart_Success(t *testing.T) {
	s, api, mem := newTestCartStore(t)

	api.On("GetCart", mock.Anything).Return(cartWith(4), nil).Once()

	s.FetchCart(context.Background())

	assert.Equal(t, cartWith(4), s.Cart())
	assert.Equal(t, cartWith(4), persistedCart(t, mem))
}

func TestFetchCart_FailureSwallowed(t *testing.T) {
	s, api, _ := newTestCartStore(t)
	ctx := context.Background()
	s.SetCart(ctx, cartWith(1))

	api.On("GetCart", mock.Anything).Return(nil, errors.New("timeout")).Once()

	before := testutil.ToFloat64(storeOperationsTotal.WithLabelValues("cart", "fetch_cart", "error"))
	s.FetchCart(ctx)

	assert.Equal(t, cartWith(1), s.Cart())
	assert.False(t, s.State().IsLoading)
	assert.Equal(t, before+1, testutil.ToFloat64(storeOperationsTotal.WithLabelValues("cart", "fetch_cart", "error")))
}

// --- Visibility ---

func TestCartVisibility(t *testing.T) {
	s, _, mem := newTestCartStore(t)

	s.OpenCart()
	assert.True(t, s.State().IsOpen)
	s.CloseCart()
	assert.False(t, s.State().IsOpen)
	s.ToggleCart()
	assert.True(t, s.State().IsOpen)
	s.ToggleCart()
	assert.False(t, s.State().IsOpen)

	assert.Empty(t, mem.Keys(), "visibility changes do not persist")
}

// --- Persistence failures ---

func TestPersistFailure_DoesNotFailMutation(t *testing.T) {
	api := new(mockAPI)
	fs := &failingStorage{}
	s := NewCartStore(context.Background(), api, fs, WithLogger(newTestLogger()))

	api.On("AddToCart", mock.Anything, "prod-a", "var-x", 1).Return(cartWith(1), nil).Once()

	p := sampleProduct()
	require.NoError(t, s.AddItem(context.Background(), p, p.Variants[0], 1))
	assert.Equal(t, cartWith(1), s.Cart())
	assert.Equal(t, 1, fs.saves)
}

func TestPersist_SurvivesCancelledContext(t *testing.T) {
	s, api, mem := newTestCartStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	api.On("GetCart", mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(cartWith(1), nil).Once()

	s.FetchCart(ctx)
	assert.Equal(t, cartWith(1), persistedCart(t, mem))
}

// --- Concurrency ---

// outOfOrder starts AddItem then RemoveItem, lets RemoveItem resolve first
// and AddItem last.
func outOfOrder(t *testing.T, s *CartStore, api *mockAPI) {
	t.Helper()

	addStarted := make(chan struct{})
	releaseAdd := make(chan struct{})

	api.On("AddToCart", mock.Anything, "prod-a", "var-x", 3).
		Run(func(mock.Arguments) {
			close(addStarted)
			<-releaseAdd
		}).
		Return(cartWith(3), nil).Once()

	removed := &domain.Cart{ID: "cart-1", Items: []domain.CartItem{}, Currency: "USD"}
	api.On("RemoveFromCart", mock.Anything, "item-1").Return(removed, nil).Once()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		p := sampleProduct()
		assert.NoError(t, s.AddItem(context.Background(), p, p.Variants[0], 3))
	}()

	<-addStarted
	require.NoError(t, s.RemoveItem(context.Background(), "item-1"))
	close(releaseAdd)
	wg.Wait()
}

func TestConcurrentMutations_LastResolvedWins(t *testing.T) {
	s, api, mem := newTestCartStore(t)

	outOfOrder(t, s, api)

	assert.Equal(t, cartWith(3), s.Cart())
	assert.Equal(t, cartWith(3), persistedCart(t, mem))
	assert.False(t, s.State().IsLoading)
	api.AssertExpectations(t)
}

func TestConcurrentMutations_StaleGuardKeepsNewest(t *testing.T) {
	s, api, mem := newTestCartStore(t, WithStaleResponseGuard())

	before := testutil.ToFloat64(storeOperationsTotal.WithLabelValues("cart", "add_item", "discarded"))
	outOfOrder(t, s, api)

	cart := s.Cart()
	require.NotNil(t, cart)
	assert.Empty(t, cart.Items)
	assert.Equal(t, cart, persistedCart(t, mem))
	assert.False(t, s.State().IsOpen, "discarded add does not open the cart")
	assert.Equal(t, before+1, testutil.ToFloat64(storeOperationsTotal.WithLabelValues("cart", "add_item", "discarded")))
}

func TestStaleGuard_InOrderResponsesApply(t *testing.T) {
	s, api, _ := newTestCartStore(t, WithStaleResponseGuard())
	ctx := context.Background()

	api.On("UpdateCartItem", mock.Anything, "item-1", 2).Return(cartWith(2), nil).Once()
	api.On("UpdateCartItem", mock.Anything, "item-1", 3).Return(cartWith(3), nil).Once()

	require.NoError(t, s.UpdateQuantity(ctx, "item-1", 2))
	require.NoError(t, s.UpdateQuantity(ctx, "item-1", 3))
	assert.Equal(t, cartWith(3), s.Cart())
}
