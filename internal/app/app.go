// Package app wires configuration, adapters and handlers into the HTTP
// server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/alex-user-go/tripquote/internal/cache"
	"github.com/alex-user-go/tripquote/internal/config"
	"github.com/alex-user-go/tripquote/internal/currency"
	"github.com/alex-user-go/tripquote/internal/currency/ratesource"
	"github.com/alex-user-go/tripquote/internal/currency/rediscache"
	"github.com/alex-user-go/tripquote/internal/handler"
	"github.com/alex-user-go/tripquote/internal/middleware"
	"github.com/alex-user-go/tripquote/internal/obs"
	"github.com/alex-user-go/tripquote/internal/offers"
	"github.com/alex-user-go/tripquote/internal/offers/search"
	"github.com/alex-user-go/tripquote/internal/quote"
	"github.com/alex-user-go/tripquote/internal/ratelimit"
)

// App holds the long-lived components of the server.
type App struct {
	cfg       config.Config
	logger    *slog.Logger
	metrics   *obs.Metrics
	converter *currency.Converter
	handler   http.Handler

	closers []func()
}

// New builds the application from cfg. Close releases what it started.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger, metrics: obs.NewMetrics(logger)}

	spread, err := cfg.SpreadDecimal()
	if err != nil {
		return nil, err
	}

	fallback := currency.DefaultFallback()
	if cfg.FallbackRatesFile != "" {
		if fallback, err = currency.LoadFallbackFile(cfg.FallbackRatesFile); err != nil {
			return nil, err
		}
	}

	settings := ratesource.DefaultSettings()
	settings.Timeout = cfg.RateSourceTimeout
	source := ratesource.NewHTTPSource(cfg.RateSourceURL, settings, logger)

	opts := []currency.Option{
		currency.WithFallback(fallback),
		currency.WithSpread(spread),
		currency.WithRateTTL(cfg.RateCacheTTL),
		currency.WithMetrics(a.metrics),
		currency.WithLogger(logger),
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, func() { _ = client.Close() })
		opts = append(opts, currency.WithCache(rediscache.New(client, cfg.RateCacheTTL, logger)))
	}
	a.converter = currency.NewConverter(source, opts...)
	a.closers = append(a.closers, a.converter.Close)

	endpoints, err := cfg.ProviderEndpoints()
	if err != nil {
		return nil, err
	}
	providers := make([]offers.Provider, 0, len(endpoints))
	for _, e := range endpoints {
		providers = append(providers, offers.NewHTTPProvider(e.Name, e.BaseURL, cfg.ProviderTimeout))
	}
	aggregator := search.NewAggregator(providers, cfg.SearchTimeout, a.metrics, logger)

	searchCache := cache.New[*search.Result](cfg.SearchCacheTTL)
	a.closers = append(a.closers, searchCache.Close)

	limiter := ratelimit.New(cfg.RateLimit, cfg.RateLimitWindow)
	a.closers = append(a.closers, limiter.Close)

	h := handler.New(handler.Deps{
		Searcher:    aggregator,
		SearchCache: searchCache,
		RateLimiter: limiter,
		Converter:   a.converter,
		Submitter:   quote.NewSubmitter(a.metrics, logger),
		Metrics:     a.metrics,
		Logger:      logger,
	})

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /healthz", obs.HealthHandler(logger))
	mux.HandleFunc("GET /metrics", a.metrics.MetricsHandler())

	a.handler = middleware.Logging(logger, a.metrics)(middleware.Recover(mux))
	return a, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Close stops background goroutines and closes connections.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Serve runs the server until ctx is done, then shuts it down gracefully.
// Rate warm-up runs alongside and never fails the server.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         a.cfg.Addr,
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		warmCtx, cancel := context.WithTimeout(ctx, a.cfg.RateSourceTimeout)
		defer cancel()
		if err := a.converter.Warm(warmCtx, a.cfg.WarmCurrencies, a.cfg.BaseCurrency); err != nil {
			a.logger.Warn("rate warm-up incomplete", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		a.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("server stopped")
	return nil
}

// Run loads configuration from configPath and serves until SIGINT or SIGTERM.
func Run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	level, _ := cfg.Level()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	a, err := New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.Serve(ctx)
}
