package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/procurehq/sourcedex/internal/config"
	"github.com/procurehq/sourcedex/internal/db"
	dbRedis "github.com/procurehq/sourcedex/internal/db/redis"
	logpkg "github.com/procurehq/sourcedex/internal/logger"
	"github.com/procurehq/sourcedex/internal/metrics"
	"github.com/procurehq/sourcedex/internal/normalizer"
	"github.com/procurehq/sourcedex/internal/provider"
	listingrepo "github.com/procurehq/sourcedex/internal/repository/listing"
	"github.com/procurehq/sourcedex/internal/repository/provcache"
	requestrepo "github.com/procurehq/sourcedex/internal/repository/request"
	chiTransport "github.com/procurehq/sourcedex/internal/transport/chi"
	healthuc "github.com/procurehq/sourcedex/internal/usecase/health"
	searchuc "github.com/procurehq/sourcedex/internal/usecase/search"
	"github.com/procurehq/sourcedex/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting sourcedex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register sourcing metrics explicitly (no init())
	metrics.RegisterSourcingMetrics()

	adapters := buildAdapters(cfg, store, logger)
	if len(adapters) == 0 {
		logger.Warn("No search providers enabled; searches will fail")
	}

	norm := normalizer.NewRegistry(cfg.Sourcing.ComparisonCurrency)
	listings := listingrepo.New(store, cfg.Storage.KeyPrefix)
	requests := requestrepo.New(store, cfg.Storage.KeyPrefix)

	searchSvc := searchuc.New(
		adapters, norm, listings, requests, metrics.Sourcing{},
		searchuc.Config{
			ProviderTimeout:   time.Duration(cfg.Sourcing.ProviderTimeoutSec) * time.Second,
			OverallTimeout:    time.Duration(cfg.Sourcing.OverallTimeoutSec) * time.Second,
			CoverageThreshold: cfg.Sourcing.CoverageThreshold,
		},
		logger,
	)

	healthSvc := healthuc.New(store, providerSet(adapters))

	server := chiTransport.NewServer(searchSvc, requests, listings, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildAdapters assembles the provider set from config, wrapping each
// adapter in the payload cache when caching is enabled. Order is sorted by
// provider id so merge order is stable across restarts.
func buildAdapters(cfg config.Config, store db.Store, logger *zap.Logger) []provider.Adapter {
	ids := make([]string, 0, len(cfg.Sourcing.Providers))
	for id := range cfg.Sourcing.Providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cacheTTL := time.Duration(cfg.Sourcing.CacheTTLSec) * time.Second

	var adapters []provider.Adapter
	for _, id := range ids {
		pc := cfg.Sourcing.Providers[id]
		if !pc.IsEnabled() {
			continue
		}

		adapter, err := provider.New(provider.Config{
			ID:              id,
			Kind:            pc.Kind,
			APIKey:          pc.APIKey,
			BaseURL:         pc.BaseURL,
			EngineID:        pc.EngineID,
			DefaultCurrency: pc.DefaultCurrency,
			RateLimitPerSec: pc.RateLimitPerSec,
			MaxResults:      cfg.Sourcing.MaxResultsPerProvider,
			Country:         pc.Country,
			Language:        pc.Language,
		})
		if err != nil {
			logger.Fatal("Failed to create provider adapter",
				zap.String("provider", id), zap.Error(err))
		}

		if cacheTTL > 0 {
			adapter = provcache.New(
				adapter, store, cfg.Storage.KeyPrefix, cacheTTL,
				metrics.ProviderCacheTotal, logger,
			)
		}

		adapters = append(adapters, adapter)
		logger.Info("Provider enabled",
			zap.String("provider", id), zap.String("kind", pc.Kind))
	}
	return adapters
}

// providerSet adapts the adapter slice to the health check contract.
type providerSet []provider.Adapter

func (p providerSet) Count() int { return len(p) }

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
