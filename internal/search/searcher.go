package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/storefront/internal/domain"
)

// MinQueryLength is the shortest trimmed term that reaches the API.
const MinQueryLength = 2

// DefaultDelay is the debounce window between keystrokes.
const DefaultDelay = 300 * time.Millisecond

var (
	searchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_search_requests_total",
			Help: "Search requests sent to the commerce API by outcome",
		},
		[]string{"outcome"},
	)

	searchDiscardedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "storefront_search_discarded_total",
			Help: "Search responses dropped because a newer term was typed",
		},
	)
)

// API runs a product search.
type API interface {
	SearchProducts(ctx context.Context, term string) ([]domain.Product, error)
}

// Results is the outcome of the most recent term.
type Results struct {
	Query      string
	Generation uint64
	Products   []domain.Product
	Pending    bool
	Err        error
}

// Searcher debounces terms and keeps only results for the latest one.
type Searcher struct {
	api     API
	logger  *slog.Logger
	timeout time.Duration
	deb     *Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	gen      uint64
	results  Results
	inflight context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
}

// NewSearcher creates a searcher. timeout bounds each API call; zero means
// no per-call bound.
func NewSearcher(api API, delay, timeout time.Duration, l *slog.Logger) *Searcher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Searcher{
		api:     api,
		logger:  l,
		timeout: timeout,
		deb:     NewDebouncer(delay),
		ctx:     ctx,
		cancel:  cancel,
		results: Results{Products: []domain.Product{}},
	}
}

// Input records a new term. Blank or too-short terms clear the results
// immediately without a network call.
func (s *Searcher) Input(term string) uint64 {
	term = strings.TrimSpace(term)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen++
	gen := s.gen
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}

	if len([]rune(term)) < MinQueryLength || s.closed {
		s.deb.Stop()
		s.results = Results{Query: term, Generation: gen, Products: []domain.Product{}}
		return gen
	}

	s.results = Results{Query: term, Generation: gen, Products: []domain.Product{}, Pending: true}
	s.deb.Trigger(func() { s.run(gen, term) })
	return gen
}

// Results returns a copy of the latest results.
func (s *Searcher) Results() Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.results
	r.Products = domain.CloneProducts(r.Products)
	return r
}

// Close cancels pending work and waits for any running search to return.
func (s *Searcher) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.deb.Stop()
	s.cancel()
	s.wg.Wait()
}

func (s *Searcher) run(gen uint64, term string) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, s.timeout)
	} else {
		ctx, cancel = context.WithCancel(s.ctx)
	}
	s.inflight = cancel
	s.mu.Unlock()

	defer s.wg.Done()
	defer cancel()

	products, err := s.api.SearchProducts(ctx, term)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		searchDiscardedTotal.Inc()
		s.logger.Debug("discarding stale search results",
			slog.String("query", term),
			slog.Uint64("generation", gen),
			slog.Uint64("current", s.gen),
		)
		return
	}
	s.inflight = nil

	if err != nil {
		searchRequestsTotal.WithLabelValues("error").Inc()
		s.logger.Warn("search failed",
			slog.String("query", term),
			slog.String("error", err.Error()),
		)
		s.results = Results{Query: term, Generation: gen, Products: []domain.Product{}, Err: err}
		return
	}

	searchRequestsTotal.WithLabelValues("success").Inc()
	s.results = Results{Query: term, Generation: gen, Products: domain.CloneProducts(products)}
}
