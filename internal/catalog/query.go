// Package catalog builds product listing queries. It only manipulates URL
// query parameters; the commerce API does the filtering.
package catalog

import (
	"maps"
	"net/url"
	"slices"

	"github.com/utafrali/storefront/pkg/pagination"
)

// Sort orders accepted by the listing endpoint.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNameAsc   = "name_asc"
	SortNameDesc  = "name_desc"
)

// DefaultSort is used when the query names no sort or an unknown one.
const DefaultSort = SortNewest

var sorts = []string{SortNewest, SortPriceAsc, SortPriceDesc, SortNameAsc, SortNameDesc}

// Sorts returns the accepted sort orders.
func Sorts() []string { return slices.Clone(sorts) }

// ValidSort reports whether s is an accepted sort order.
func ValidSort(s string) bool { return slices.Contains(sorts, s) }

// ListingQuery describes one page of a catalog listing.
type ListingQuery struct {
	Page    int
	PerPage int
	Sort    string
	Filters map[string][]string
}

// ParseQuery reads a ListingQuery from URL parameters. Every parameter other
// than page, per_page and sort is a filter.
func ParseQuery(q url.Values) ListingQuery {
	p := pagination.FromQuery(q)
	lq := ListingQuery{
		Page:    p.Page,
		PerPage: p.PerPage,
		Sort:    q.Get("sort"),
		Filters: make(map[string][]string),
	}
	if !ValidSort(lq.Sort) {
		lq.Sort = DefaultSort
	}

	for key, values := range q {
		if reserved(key) {
			continue
		}
		for _, v := range values {
			if v != "" && !slices.Contains(lq.Filters[key], v) {
				lq.Filters[key] = append(lq.Filters[key], v)
			}
		}
	}
	for key := range lq.Filters {
		slices.Sort(lq.Filters[key])
	}
	return lq
}

func reserved(key string) bool {
	return key == "page" || key == "per_page" || key == "sort"
}

// Values encodes the query. Defaults are omitted so equal listings share
// one canonical URL.
func (lq ListingQuery) Values() url.Values {
	q := url.Values{}
	pagination.Params{Page: lq.Page, PerPage: lq.PerPage}.Apply(q)
	if lq.Sort != "" && lq.Sort != DefaultSort {
		q.Set("sort", lq.Sort)
	}
	for key, values := range lq.Filters {
		if reserved(key) || len(values) == 0 {
			continue
		}
		q[key] = slices.Clone(values)
	}
	return q
}

// Encode returns the canonical query string.
func (lq ListingQuery) Encode() string { return lq.Values().Encode() }

func (lq ListingQuery) clone() ListingQuery {
	out := lq
	out.Filters = make(map[string][]string, len(lq.Filters))
	for k, v := range lq.Filters {
		out.Filters[k] = slices.Clone(v)
	}
	return out
}

// WithPage moves to page n. Values below 1 select the first page.
func (lq ListingQuery) WithPage(n int) ListingQuery {
	out := lq.clone()
	out.Page = max(n, 1)
	return out
}

// WithSort changes the order and returns to the first page. Unknown orders
// fall back to DefaultSort.
func (lq ListingQuery) WithSort(sort string) ListingQuery {
	out := lq.clone()
	if !ValidSort(sort) {
		sort = DefaultSort
	}
	out.Sort = sort
	out.Page = 1
	return out
}

// ToggleFilter adds value under key if absent, removes it if present, and
// returns to the first page.
func (lq ListingQuery) ToggleFilter(key, value string) ListingQuery {
	out := lq.clone()
	out.Page = 1
	if reserved(key) || value == "" {
		return out
	}

	values := out.Filters[key]
	if i := slices.Index(values, value); i >= 0 {
		values = slices.Delete(values, i, i+1)
	} else {
		values = append(values, value)
		slices.Sort(values)
	}

	if len(values) == 0 {
		delete(out.Filters, key)
	} else {
		out.Filters[key] = values
	}
	return out
}

// HasFilter reports whether value is selected under key.
func (lq ListingQuery) HasFilter(key, value string) bool {
	return slices.Contains(lq.Filters[key], value)
}

// FilterKeys returns the active filter names in sorted order.
func (lq ListingQuery) FilterKeys() []string {
	return slices.Sorted(maps.Keys(lq.Filters))
}

// ClearFilters drops every filter and returns to the first page.
func (lq ListingQuery) ClearFilters() ListingQuery {
	out := lq.clone()
	out.Filters = make(map[string][]string)
	out.Page = 1
	return out
}
