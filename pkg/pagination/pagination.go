package pagination

import (
	"net/url"
	"strconv"
)

// Ellipsis marks a gap in a page window.
const Ellipsis = 0

// MaxPerPage caps the page size a client may request.
const MaxPerPage = 100

// Params holds pagination parameters extracted from query strings.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// DefaultParams returns sensible pagination defaults.
func DefaultParams() Params {
	return Params{
		Page:    1,
		PerPage: 24,
	}
}

// FromQuery extracts pagination parameters from URL query values. Invalid or
// out-of-range values fall back to the defaults.
func FromQuery(q url.Values) Params {
	p := DefaultParams()

	if page := q.Get("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 0 {
			p.Page = v
		}
	}

	if perPage := q.Get("per_page"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= MaxPerPage {
			p.PerPage = v
		}
	}

	return p
}

// Apply writes the parameters back into q, omitting values equal to the
// defaults so URLs stay canonical.
func (p Params) Apply(q url.Values) {
	def := DefaultParams()
	if p.Page > def.Page {
		q.Set("page", strconv.Itoa(p.Page))
	} else {
		q.Del("page")
	}
	if p.PerPage != def.PerPage && p.PerPage > 0 {
		q.Set("per_page", strconv.Itoa(p.PerPage))
	} else {
		q.Del("per_page")
	}
}

// TotalPages returns the number of pages needed for totalCount items.
func TotalPages(totalCount, perPage int) int {
	if perPage <= 0 || totalCount <= 0 {
		return 0
	}
	pages := totalCount / perPage
	if totalCount%perPage > 0 {
		pages++
	}
	return pages
}

// Window returns the page numbers a pager should render around current.
// The first and last pages are always present, siblings pages are shown on
// each side of current, and Ellipsis stands in for any skipped run.
//
//	Window(5, 10, 1) => [1 0 4 5 6 0 10]
func Window(current, total, siblings int) []int {
	if total <= 0 {
		return []int{}
	}
	if siblings < 0 {
		siblings = 0
	}
	current = max(1, min(current, total))

	// first + last + current + siblings on both sides + two gap slots
	slots := 2*siblings + 5
	if total <= slots {
		return pageRange(1, total)
	}

	leftGap := current-siblings > 3
	rightGap := current+siblings < total-2
	edge := 3 + 2*siblings

	switch {
	case !leftGap && rightGap:
		return append(pageRange(1, edge), Ellipsis, total)
	case leftGap && !rightGap:
		return append([]int{1, Ellipsis}, pageRange(total-edge+1, total)...)
	default:
		out := []int{1, Ellipsis}
		out = append(out, pageRange(current-siblings, current+siblings)...)
		return append(out, Ellipsis, total)
	}
}

func pageRange(from, to int) []int {
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

// Result wraps a paginated response.
type Result[T any] struct {
	Data       []T   `json:"data"`
	TotalCount int   `json:"total_count"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
	Window     []int `json:"window"`
}

// NewResult creates a paginated result with a page window of one sibling.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	totalPages := TotalPages(totalCount, params.PerPage)
	if data == nil {
		data = []T{}
	}

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
		Window:     Window(params.Page, totalPages, 1),
	}
}
