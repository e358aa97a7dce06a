package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/storefront/internal/commerce"
	"github.com/utafrali/storefront/internal/config"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/persist"
	persistfile "github.com/utafrali/storefront/internal/persist/file"
	persistredis "github.com/utafrali/storefront/internal/persist/redis"
	"github.com/utafrali/storefront/internal/session"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/httpclient"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

const serviceName = "storefront"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	rdb            *redis.Client
	registry       *session.Registry
	httpServer     *http.Server
	cancel         context.CancelFunc
	shutdownTracer func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	healthHandler := health.NewHandler()

	// Persistence backend.
	storage, rdb, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		healthHandler.RegisterCritical("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
	}

	// Tracing must be installed before the commerce client creates spans.
	tcfg := tracing.DefaultConfig(serviceName)
	tcfg.Environment = cfg.Environment
	tcfg.Enabled = cfg.OTelEnabled
	tcfg.OTLPEndpoint = cfg.OTelEndpoint
	tcfg.SampleRate = cfg.OTelSampleRate
	shutdownTracer, err := tracing.InitTracer(ctx, tcfg)
	if err != nil {
		closeRedis(rdb, logger)
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Commerce API client behind a circuit breaker.
	httpCfg := httpclient.DefaultConfig()
	httpCfg.Timeout = cfg.CommerceTimeout()
	httpCfg.MaxRetries = cfg.CommerceMaxRetries
	breaker := httpclient.NewCircuitBreakerClient(
		httpclient.New(httpCfg),
		httpclient.DefaultCircuitBreakerConfig("commerce-api"),
		logger,
	)
	api := commerce.NewClient(cfg.CommerceAPIURL, breaker, logger)
	logger.Info("commerce api client initialized", slog.String("base_url", cfg.CommerceAPIURL))

	healthHandler.RegisterNonCritical("commerce_api", func(context.Context) error {
		if breaker.State() == gobreaker.StateOpen {
			return httpclient.ErrCircuitOpen
		}
		return nil
	})

	// Sessions.
	scfg := session.DefaultConfig()
	scfg.IdleTimeout = cfg.SessionIdle()
	scfg.SearchDelay = cfg.SearchDelay()
	scfg.SearchTimeout = cfg.CommerceTimeout()
	scfg.StaleGuard = cfg.DiscardStaleResponses
	registry := session.NewRegistry(func(id string) session.API {
		return api.ForSession(id)
	}, storage, scfg, logger)

	// HTTP router. runCtx bounds the rate limiter's eviction loop.
	runCtx, runCancel := context.WithCancel(context.Background())
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins
	cors.Environment = cfg.Environment

	router := handler.NewRouter(runCtx, registry, api, healthHandler, handler.RouterConfig{
		ServiceName:    serviceName,
		CORS:           cors,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		CatalogMaxAge:  cfg.CatalogMaxAge,
	}, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		rdb:            rdb,
		registry:       registry,
		httpServer:     httpServer,
		cancel:         runCancel,
		shutdownTracer: shutdownTracer,
	}, nil
}

// openStorage selects the projection backend. The redis client is returned
// so it can be health checked and closed; it is nil for other backends.
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (persist.Storage, *redis.Client, error) {
	switch cfg.PersistBackend {
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis",
			slog.String("addr", cfg.RedisAddr),
			slog.Int("db", cfg.RedisDB),
		)
		prometheus.MustRegister(persistredis.NewPoolStatsCollector(rdb))
		storage := persistredis.NewStorage(rdb,
			persistredis.WithTTL(cfg.TTL()),
			persistredis.WithSlowOpLogging(cfg.RedisSlowOp(), logger),
		)
		return storage, rdb, nil

	case config.BackendFile:
		fs, err := persistfile.NewStorage(cfg.StateDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open state dir: %w", err)
		}
		logger.Info("using file storage", slog.String("dir", fs.Dir()))
		return fs, nil, nil

	default:
		logger.Warn("using in-memory storage; state is lost on restart")
		return persist.NewMemory(), nil, nil
	}
}

// Run starts the HTTP server and the session sweeper and blocks until the
// context is canceled or either fails.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return a.registry.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown signal received")
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}
	a.cancel()

	// In-flight searches are cancelled; projections are already persisted.
	a.registry.Close()

	if err := a.shutdownTracer(shutdownCtx); err != nil {
		a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
	}

	closeRedis(a.rdb, a.logger)

	a.logger.Info("application shutdown complete")
	return nil
}

func closeRedis(rdb *redis.Client, logger *slog.Logger) {
	if rdb == nil {
		return
	}
	if err := rdb.Close(); err != nil {
		logger.Error("redis close error", slog.String("error", err.Error()))
	}
}
