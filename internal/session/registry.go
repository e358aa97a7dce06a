// Package session keeps the per-browser-session stores of the BFF.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"

	"github.com/utafrali/storefront/internal/persist"
	"github.com/utafrali/storefront/internal/search"
	"github.com/utafrali/storefront/internal/store"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_sessions_active",
		Help: "Sessions currently held in memory",
	})

	sessionsEvictedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_sessions_evicted_total",
		Help: "Sessions dropped from memory after being idle",
	})

	sessionRestoreFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_session_restore_failures_total",
		Help: "Session restores rejected because stored state could not be read",
	})
)

// API is the commerce API bound to one session.
type API interface {
	store.CartAPI
	store.WishlistAPI
	search.API
}

// Binder returns the API for a session.
type Binder func(sessionID string) API

// Config tunes a Registry.
type Config struct {
	IdleTimeout    time.Duration
	SearchDelay    time.Duration
	SearchTimeout  time.Duration
	RestoreTimeout time.Duration
	StaleGuard     bool
}

// DefaultConfig returns the registry defaults.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:    30 * time.Minute,
		SearchDelay:    search.DefaultDelay,
		SearchTimeout:  5 * time.Second,
		RestoreTimeout: 5 * time.Second,
	}
}

// Session groups the stores owned by one browser session.
type Session struct {
	ID       string
	Cart     *store.CartStore
	Wishlist *store.WishlistStore
	Search   *search.Searcher

	lastSeen time.Time
}

// Registry lazily creates sessions and evicts idle ones from memory. Evicted
// sessions keep their projections in storage and are restored on next use.
type Registry struct {
	bind    Binder
	storage persist.Storage
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
	opening  singleflight.Group
}

// NewRegistry creates an empty registry.
func NewRegistry(bind Binder, storage persist.Storage, cfg Config, l *slog.Logger) *Registry {
	return &Registry{
		bind:     bind,
		storage:  storage,
		cfg:      cfg,
		logger:   l,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session for id, creating it and restoring its persisted
// state on first use. Restoring is detached from ctx cancellation. When the
// stored state cannot be read the session is not kept, so the next call
// retries the restore instead of overwriting storage with empty state.
func (r *Registry) Get(ctx context.Context, id string) (*Session, error) {
	if s := r.lookup(id); s != nil {
		return s, nil
	}

	v, err, _ := r.opening.Do(id, func() (any, error) {
		if s := r.lookup(id); s != nil {
			return s, nil
		}

		s, err := r.open(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.sessions[id] = s
		r.mu.Unlock()
		sessionsActive.Inc()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (r *Registry) lookup(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	s.lastSeen = r.now()
	return s
}

// open builds the stores of a session without holding the registry lock.
func (r *Registry) open(ctx context.Context, id string) (*Session, error) {
	if r.cfg.RestoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RestoreTimeout)
		defer cancel()
	}

	api := r.bind(id)
	storage := &loadTracker{Storage: persist.WithPrefix(r.storage, persist.SessionPrefix(id))}
	l := r.logger.With(slog.String("session_id", id))

	opts := []store.Option{store.WithLogger(l)}
	if r.cfg.StaleGuard {
		opts = append(opts, store.WithStaleResponseGuard())
	}

	cart := store.NewCartStore(ctx, api, storage, opts...)
	wishlist := store.NewWishlistStore(ctx, api, storage, opts...)
	if err := storage.failure(); err != nil {
		sessionRestoreFailuresTotal.Inc()
		l.Warn("session state unavailable", slog.String("error", err.Error()))
		return nil, fmt.Errorf("restore session: %w: %w", apperrors.ErrServiceUnavail, err)
	}

	l.Debug("session created")
	return &Session{
		ID:       id,
		Cart:     cart,
		Wishlist: wishlist,
		Search:   search.NewSearcher(api, r.cfg.SearchDelay, r.cfg.SearchTimeout, l),
		lastSeen: r.now(),
	}, nil
}

// loadTracker remembers the first load failure other than a missing key.
type loadTracker struct {
	persist.Storage

	mu  sync.Mutex
	err error
}

func (t *loadTracker) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := t.Storage.Load(ctx, key)
	if err != nil && !errors.Is(err, persist.ErrNotFound) {
		t.mu.Lock()
		if t.err == nil {
			t.err = fmt.Errorf("load %s: %w", key, err)
		}
		t.mu.Unlock()
	}
	return data, err
}

func (t *loadTracker) failure() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Len returns the number of sessions in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run evicts idle sessions until ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	interval := r.cfg.IdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := r.EvictIdle(); n > 0 {
				r.logger.Info("evicted idle sessions", slog.Int("count", n))
			}
		}
	}
}

// EvictIdle drops sessions not used within IdleTimeout and reports how many
// were removed.
func (r *Registry) EvictIdle() int {
	cutoff := r.now().Add(-r.cfg.IdleTimeout)

	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.Search.Close()
		sessionsActive.Dec()
		sessionsEvictedTotal.Inc()
	}
	return len(idle)
}

// Close releases every session.
func (r *Registry) Close() {
	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Search.Close()
		sessionsActive.Dec()
	}
}
