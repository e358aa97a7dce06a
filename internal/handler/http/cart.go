package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

// Sessions resolves the stores of a browser session.
type Sessions interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// currentSession resolves the caller's session and writes the error response
// when its stored state cannot be loaded.
func currentSession(w http.ResponseWriter, r *http.Request, sessions Sessions, l *slog.Logger) (*session.Session, bool) {
	s, err := sessions.Get(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, l)
		return nil, false
	}
	return s, true
}

// CartHandler handles HTTP requests for the session cart.
type CartHandler struct {
	sessions Sessions
	logger   *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(sessions Sessions, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// --- Request DTOs ---

// SetCartRequest seeds the cart with an externally obtained snapshot. A
// null cart clears local state without calling the API.
type SetCartRequest struct {
	Cart *domain.Cart `json:"cart"`
}

// AddItemRequest is the JSON request body for adding an item to the cart.
// Quantity defaults to 1.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,notblank,max=128"`
	VariantID string `json:"variant_id" validate:"required,notblank,max=128"`
	Quantity  *int   `json:"quantity" validate:"omitempty,gte=1,lte=100"`
}

// UpdateQuantityRequest is the JSON request body for updating an item's quantity.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=100"`
}

// --- Handlers ---

// GetCart handles GET /api/v1/session/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, s.Cart.State())
}

// RefreshCart handles POST /api/v1/session/cart/refresh. A failed fetch
// still returns the cached state.
func (h *CartHandler) RefreshCart(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	s.Cart.FetchCart(r.Context())
	httputil.WriteData(w, http.StatusOK, s.Cart.State())
}

// SetCart handles PUT /api/v1/session/cart
func (h *CartHandler) SetCart(w http.ResponseWriter, r *http.Request) {
	var req SetCartRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	s.Cart.SetCart(r.Context(), req.Cart)
	httputil.WriteData(w, http.StatusOK, s.Cart.State())
}

// AddItem handles POST /api/v1/session/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	product := domain.Product{ID: req.ProductID}
	variant := domain.Variant{ID: req.VariantID}
	if err := s.Cart.AddItem(r.Context(), product, variant, quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, s.Cart.State())
}

// UpdateItemQuantity handles PUT /api/v1/session/cart/items/{itemId}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, ok := httputil.RequireParam(w, "itemId", chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	if err := s.Cart.UpdateQuantity(r.Context(), itemID, *req.Quantity); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, s.Cart.State())
}

// RemoveItem handles DELETE /api/v1/session/cart/items/{itemId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := httputil.RequireParam(w, "itemId", chi.URLParam(r, "itemId"))
	if !ok {
		return
	}

	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	if err := s.Cart.RemoveItem(r.Context(), itemID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, s.Cart.State())
}

// ClearCart handles DELETE /api/v1/session/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	if err := s.Cart.ClearCart(r.Context()); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, s.Cart.State())
}

// OpenCart handles POST /api/v1/session/cart/open
func (h *CartHandler) OpenCart(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	s.Cart.OpenCart()
	httputil.WriteData(w, http.StatusOK, s.Cart.State())
}

// CloseCart handles POST /api/v1/session/cart/close
func (h *CartHandler) CloseCart(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	s.Cart.CloseCart()
	httputil.WriteData(w, http.StatusOK, s.Cart.State())
}

// ToggleCart handles POST /api/v1/session/cart/toggle
func (h *CartHandler) ToggleCart(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	s.Cart.ToggleCart()
	httputil.WriteData(w, http.StatusOK, s.Cart.State())
}
