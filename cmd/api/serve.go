package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"vendor-rewards-api/internal/cache"
	"vendor-rewards-api/internal/config"
	"vendor-rewards-api/internal/events"
	"vendor-rewards-api/internal/features"
	"vendor-rewards-api/internal/handler"
	"vendor-rewards-api/internal/metrics"
	"vendor-rewards-api/internal/middleware"
	"vendor-rewards-api/internal/service"
	"vendor-rewards-api/internal/tracing"
)

const shutdownTimeout = 10 * time.Second

func serve(ctx context.Context, configPath, logLevel string) error {
	cfg, err := loadConfig(configPath, logLevel)
	if err != nil {
		return err
	}
	logger, closeLog := newLogger(cfg)
	defer closeLog()

	if _, err := tracing.InitTracing(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: appName,
		Environment: cfg.Tracing.Environment,
		Version:     Version,
		SampleRatio: cfg.Tracing.SampleRatio,
	}); err != nil {
		return fmt.Errorf("initialize tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tracing.Shutdown(sctx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	store, closeCache := newCache(ctx, cfg, logger)
	defer closeCache()

	flags := features.NewManager()
	if unknown := flags.Apply(cfg.Features); len(unknown) > 0 {
		logger.Warn("ignoring unknown feature flags", "flags", unknown)
	}

	eventManager := events.NewManager(logger, func() bool {
		return flags.IsEnabled(features.FeatureEventHooksEnabled)
	})
	subscribeAuditLog(eventManager, logger)
	defer eventManager.Shutdown()

	m := metrics.New("rewards")

	svc := service.NewServiceWithOptions(db, service.Options{
		Cache:    store,
		CacheTTL: time.Duration(cfg.Cache.TTLSeconds) * time.Second,
		Flags:    flags,
		Events:   eventManager,
		Metrics:  m,
		Logger:   logger,
	})
	h := handler.NewHandlerWithOptions(svc, handler.NewHandlerOptions{
		MaxBodySize: cfg.Security.MaxRequestBodySize,
		Logger:      logger,
	})

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.Rate, time.Duration(cfg.RateLimit.Window)*time.Second)
		defer limiter.Stop()
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:           newRouter(cfg, h, m, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			"version", Version,
			"addr", server.Addr,
			"tls", cfg.Server.EnableTLS,
			"database", cfg.Database.Path,
			"rate_limit", cfg.RateLimit.Enabled,
		)
		if cfg.Server.EnableTLS {
			errCh <- server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newRouter wires middleware, API routes and the metrics endpoint. A nil
// limiter disables rate limiting.
func newRouter(cfg *config.Config, h *handler.Handler, m *metrics.Metrics, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()

	// Middleware (order matters)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.TracingMiddleware())
	r.Use(middleware.MetricsMiddleware(m))

	if limiter != nil {
		r.Use(middleware.RateLimitMiddleware(limiter))
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Method(http.MethodGet, "/metrics", m.Handler())
	h.Routes(r)

	return r
}

// newCache returns Redis when an address is configured and falls back to
// process memory when it is not, or when Redis is unreachable.
func newCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, func()) {
	if cfg.Cache.RedisAddr == "" {
		return cache.NewInMemoryCache(), func() {}
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rc, err := cache.NewRedisCache(pctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	if err != nil {
		logger.Warn("redis unavailable, using in-memory cache", "addr", cfg.Cache.RedisAddr, "error", err)
		return cache.NewInMemoryCache(), func() {}
	}
	logger.Info("using redis cache", "addr", cfg.Cache.RedisAddr)
	return rc, func() { _ = rc.Close() }
}

// subscribeAuditLog logs every ledger and catalog event.
func subscribeAuditLog(m *events.Manager, logger *slog.Logger) {
	audit := logger.With("component", "audit")

	m.Subscribe(events.EventPurchaseRecorded, func(ctx context.Context, e events.Event) error {
		d, ok := e.Data.(events.PurchaseRecordedData)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Data)
		}
		audit.Info("purchase recorded",
			"user_id", d.Balance.UserID,
			"vendor_id", d.Balance.VendorID,
			"earned", d.Earned,
			"balance", d.Balance.Points)
		return nil
	})
	m.Subscribe(events.EventPointsRedeemed, func(ctx context.Context, e events.Event) error {
		d, ok := e.Data.(events.PointsRedeemedData)
		if !ok {
			return fmt.Errorf("unexpected payload %T", e.Data)
		}
		audit.Info("points redeemed",
			"user_id", d.Balance.UserID,
			"vendor_id", d.Balance.VendorID,
			"deal_id", d.DealID,
			"spent", d.Spent,
			"balance", d.Balance.Points)
		return nil
	})
	for _, t := range []events.EventType{events.EventVendorChanged, events.EventVendorDeleted} {
		m.Subscribe(t, func(ctx context.Context, e events.Event) error {
			audit.Info("catalog event", "event", string(e.Type), "data", e.Data)
			return nil
		})
	}
}
