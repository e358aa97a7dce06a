package commerce

import (
	"context"
	"net/http"
	"net/url"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httpclient"
)

// SessionAPI is the commerce API as seen by one browser session. It
// satisfies store.CartAPI, store.WishlistAPI and search.API.
type SessionAPI struct {
	client    *Client
	sessionID string
}

// SessionID returns the bound session.
func (s *SessionAPI) SessionID() string { return s.sessionID }

func (s *SessionAPI) ctx(ctx context.Context) context.Context {
	return httpclient.WithHeader(ctx, SessionHeader, s.sessionID)
}

type addToCartRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the session's cart.
func (s *SessionAPI) GetCart(ctx context.Context) (*domain.Cart, error) {
	var env envelope[*domain.Cart]
	if err := s.client.call(s.ctx(ctx), "GetCart", http.MethodGet, "/api/v1/cart", nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// AddToCart adds quantity units of a variant and returns the new cart.
func (s *SessionAPI) AddToCart(ctx context.Context, productID, variantID string, quantity int) (*domain.Cart, error) {
	req := addToCartRequest{ProductID: productID, VariantID: variantID, Quantity: quantity}

	var env envelope[*domain.Cart]
	if err := s.client.call(s.ctx(ctx), "AddToCart", http.MethodPost, "/api/v1/cart/items", req, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// UpdateCartItem sets a line item's quantity and returns the new cart.
func (s *SessionAPI) UpdateCartItem(ctx context.Context, itemID string, quantity int) (*domain.Cart, error) {
	path := "/api/v1/cart/items/" + url.PathEscape(itemID)

	var env envelope[*domain.Cart]
	if err := s.client.call(s.ctx(ctx), "UpdateCartItem", http.MethodPut, path, updateCartItemRequest{Quantity: quantity}, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// RemoveFromCart deletes a line item and returns the new cart.
func (s *SessionAPI) RemoveFromCart(ctx context.Context, itemID string) (*domain.Cart, error) {
	path := "/api/v1/cart/items/" + url.PathEscape(itemID)

	var env envelope[*domain.Cart]
	if err := s.client.call(s.ctx(ctx), "RemoveFromCart", http.MethodDelete, path, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// ClearCart empties the session's cart.
func (s *SessionAPI) ClearCart(ctx context.Context) error {
	return s.client.call(s.ctx(ctx), "ClearCart", http.MethodDelete, "/api/v1/cart", nil, nil)
}

// GetWishlist returns the session's wishlist.
func (s *SessionAPI) GetWishlist(ctx context.Context) ([]domain.Product, error) {
	var env envelope[[]domain.Product]
	if err := s.client.call(s.ctx(ctx), "GetWishlist", http.MethodGet, "/api/v1/wishlist", nil, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return []domain.Product{}, nil
	}
	return env.Data, nil
}

// AddToWishlist records a product on the wishlist.
func (s *SessionAPI) AddToWishlist(ctx context.Context, productID string) error {
	path := "/api/v1/wishlist/" + url.PathEscape(productID)
	return s.client.call(s.ctx(ctx), "AddToWishlist", http.MethodPost, path, nil, nil)
}

// RemoveFromWishlist removes a product from the wishlist.
func (s *SessionAPI) RemoveFromWishlist(ctx context.Context, productID string) error {
	path := "/api/v1/wishlist/" + url.PathEscape(productID)
	return s.client.call(s.ctx(ctx), "RemoveFromWishlist", http.MethodDelete, path, nil, nil)
}

// SearchProducts runs a product search on behalf of the session.
func (s *SessionAPI) SearchProducts(ctx context.Context, term string) ([]domain.Product, error) {
	return s.client.SearchProducts(s.ctx(ctx), term)
}
