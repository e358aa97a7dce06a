package http

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/pagination"
)

// ProductLister fetches catalog pages from the commerce API.
type ProductLister interface {
	ListProducts(ctx context.Context, query url.Values) (*domain.ProductPage, error)
}

// CatalogHandler proxies product listings and adds the pager window.
type CatalogHandler struct {
	products ProductLister
	logger   *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(products ProductLister, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{
		products: products,
		logger:   logger,
	}
}

type listingResponse struct {
	pagination.Result[domain.Product]
	Sort    string              `json:"sort"`
	Sorts   []string            `json:"sorts"`
	Filters map[string][]string `json:"filters"`
	Query   string              `json:"query"`
}

// ListProducts handles GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	lq := catalog.ParseQuery(r.URL.Query())

	page, err := h.products.ListProducts(r.Context(), lq.Values())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	params := pagination.Params{Page: lq.Page, PerPage: lq.PerPage}
	if page.Page > 0 {
		params.Page = page.Page
	}
	if page.PerPage > 0 {
		params.PerPage = page.PerPage
	}

	httputil.WriteJSON(w, http.StatusOK, listingResponse{
		Result:  pagination.NewResult(page.Products, page.TotalCount, params),
		Sort:    lq.Sort,
		Sorts:   catalog.Sorts(),
		Filters: lq.Filters,
		Query:   lq.Encode(),
	})
}
