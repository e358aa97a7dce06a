package http

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/search"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// SearchHandler exposes the session's search-as-you-type state.
type SearchHandler struct {
	sessions Sessions
	logger   *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(sessions Sessions, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// SearchInputRequest is one keystroke's worth of search term.
type SearchInputRequest struct {
	Query string `json:"q" validate:"max=200"`
}

type searchAccepted struct {
	Query      string `json:"q"`
	Generation uint64 `json:"generation"`
}

type searchResponse struct {
	Query      string                  `json:"q"`
	Generation uint64                  `json:"generation"`
	Pending    bool                    `json:"pending"`
	Products   []domain.Product        `json:"products"`
	Error      *httputil.ErrorResponse `json:"error,omitempty"`
}

// Input handles PUT /api/v1/session/search
func (h *SearchHandler) Input(w http.ResponseWriter, r *http.Request) {
	var req SearchInputRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	gen := s.Search.Input(req.Query)
	httputil.WriteData(w, http.StatusAccepted, searchAccepted{Query: req.Query, Generation: gen})
}

// Results handles GET /api/v1/session/search
func (h *SearchHandler) Results(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r, h.sessions, h.logger)
	if !ok {
		return
	}
	httputil.WriteData(w, http.StatusOK, toSearchResponse(s.Search.Results()))
}

func toSearchResponse(res search.Results) searchResponse {
	out := searchResponse{
		Query:      res.Query,
		Generation: res.Generation,
		Pending:    res.Pending,
		Products:   res.Products,
	}
	if res.Err != nil {
		out.Error = &httputil.ErrorResponse{Code: "SEARCH_FAILED", Message: "search is temporarily unavailable"}
	}
	return out
}
