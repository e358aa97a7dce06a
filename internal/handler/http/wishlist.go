package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/store"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/slug"
	"github.com/utafrali/storefront/pkg/validator"
)

// WishlistHandler handles HTTP requests for the session wishlist.
type WishlistHandler struct {
	sessions Sessions
	logger   *slog.Logger
}

// NewWishlistHandler creates a new wishlist HTTP handler.
func NewWishlistHandler(sessions Sessions, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// AddWishlistItemRequest carries the product shown in the local list. The
// slug is derived from the name when omitted.
type AddWishlistItemRequest struct {
	ProductID string `json:"product_id" validate:"required,notblank,max=128"`
	Name      string `json:"name" validate:"max=500"`
	Slug      string `json:"slug" validate:"max=500"`
	Price     int64  `json:"price" validate:"gte=0"`
	Currency  string `json:"currency" validate:"omitempty,len=3"`
	ImageURL  string `json:"image_url" validate:"omitempty,url"`
}

type wishlistResponse struct {
	Items     []domain.Product `json:"items"`
	IsLoading bool             `json:"is_loading"`
}

type membershipResponse struct {
	ProductID  string `json:"product_id"`
	InWishlist bool   `json:"in_wishlist"`
}

func wishlistState(w *store.WishlistStore) wishlistResponse {
	return wishlistResponse{Items: w.Items(), IsLoading: w.IsLoading()}
}

// GetWishlist handles GET /api/v1/session/wishlist
func (h *WishlistHandler) GetWishlist(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, wishlistState(s.Wishlist))
}

// RefreshWishlist handles POST /api/v1/session/wishlist/refresh
func (h *WishlistHandler) RefreshWishlist(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	s.Wishlist.FetchWishlist(r.Context())
	httputil.WriteData(w, http.StatusOK, wishlistState(s.Wishlist))
}

// AddItem handles POST /api/v1/session/wishlist/items
func (h *WishlistHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddWishlistItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	product := domain.Product{
		ID:       req.ProductID,
		Name:     req.Name,
		Slug:     req.Slug,
		Price:    req.Price,
		Currency: req.Currency,
		ImageURL: req.ImageURL,
	}
	if product.Slug == "" && product.Name != "" {
		product.Slug = slug.Make(product.Name)
	}

	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	if err := s.Wishlist.AddItem(r.Context(), product); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusCreated, wishlistState(s.Wishlist))
}

// RemoveItem handles DELETE /api/v1/session/wishlist/items/{productId}
func (h *WishlistHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.RequireParam(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	if err := s.Wishlist.RemoveItem(r.Context(), productID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, wishlistState(s.Wishlist))
}

// HasItem handles GET /api/v1/session/wishlist/items/{productId}
func (h *WishlistHandler) HasItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.RequireParam(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, membershipResponse{
		ProductID:  productID,
		InWishlist: s.Wishlist.IsInWishlist(productID),
	})
}

// ClearWishlist handles DELETE /api/v1/session/wishlist. Only local state
// is forgotten.
func (h *WishlistHandler) ClearWishlist(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	s.Wishlist.ClearWishlist(r.Context())
	httputil.WriteData(w, http.StatusOK, wishlistState(s.Wishlist))
}
