package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragstore/internal/config"
	dbRedis "github.com/kailas-cloud/ragstore/internal/db/redis"
	"github.com/kailas-cloud/ragstore/internal/domain"
	logpkg "github.com/kailas-cloud/ragstore/internal/logger"
	"github.com/kailas-cloud/ragstore/internal/metrics"
	"github.com/kailas-cloud/ragstore/internal/registry"
	"github.com/kailas-cloud/ragstore/internal/repository/embcache"
	"github.com/kailas-cloud/ragstore/internal/repository/rescache"
	"github.com/kailas-cloud/ragstore/internal/repository/vectorstore"
	"github.com/kailas-cloud/ragstore/internal/resilience"
	chiTransport "github.com/kailas-cloud/ragstore/internal/transport/chi"
	ollamaEmb "github.com/kailas-cloud/ragstore/internal/transport/ollama"
	openaiEmb "github.com/kailas-cloud/ragstore/internal/transport/openai"
	adminuc "github.com/kailas-cloud/ragstore/internal/usecase/admin"
	embeddinguc "github.com/kailas-cloud/ragstore/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/ragstore/internal/usecase/health"
	searchuc "github.com/kailas-cloud/ragstore/internal/usecase/search"
	"github.com/kailas-cloud/ragstore/internal/version"
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

	logger.Info("Starting ragstore API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("default_model", cfg.Embedding.DefaultModel),
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

	// Register embedding metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()

	// Build the model registry. Each provider gets its own
	// retry/circuit-breaker guard.
	policy := resiliencePolicy(cfg.Resilience)
	entries := make([]registry.Entry, 0, len(cfg.Embedding.Models))
	for name, mc := range cfg.Embedding.Models {
		base := buildProvider(name, mc, logger)
		guard := resilience.NewGuard(name, policy, metrics.CircuitBreakerState, logger)
		entries = append(entries, registry.Entry{
			Descriptor: domain.ModelDescriptor{
				Name:       name,
				Kind:       domain.ModelKind(mc.Kind),
				Dimensions: mc.Dimensions,
			},
			Provider: resilience.NewEmbedder(base, guard),
			Aliases:  mc.Aliases,
		})
	}

	models, err := registry.New(entries, cfg.Embedding.DefaultModel, logger)
	if err != nil {
		logger.Fatal("Failed to build model registry", zap.Error(err))
	}
	logger.Info("Model registry ready",
		zap.Int("models", len(entries)),
		zap.String("default", models.DefaultName()),
	)

	// Repositories
	prefix := cfg.Storage.KeyPrefix
	embCache := embcache.New(store, prefix,
		time.Duration(cfg.Cache.EmbeddingTTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)
	resCache := rescache.New(store, prefix,
		time.Duration(cfg.Cache.ResponseTTLSec)*time.Second, metrics.ResponseCacheTotal, logger)
	// Vector reads/writes go through their own guard; cache traffic is not guarded.
	vectorGuard := resilience.NewGuard("vectorstore", policy, metrics.CircuitBreakerState, logger)
	vectors := vectorstore.New(resilience.NewStore(store, vectorGuard), prefix, logger)

	// Use case services
	embSvc := embeddinguc.New(models, embCache, vectors, logger)
	searchSvc := searchuc.New(models, embSvc, vectors, resCache, searchuc.Limits{
		DefaultTopK: cfg.Search.DefaultTopK,
		MaxTopK:     cfg.Search.MaxTopK,
	}, logger)
	adminSvc := adminuc.New(vectors, embCache, resCache, logger)
	healthSvc := healthuc.New(store, models)

	// Chi server
	server := chiTransport.NewServer(embSvc, searchSvc, adminSvc, models, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Register(r)

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

// buildProvider creates the raw transport for a configured model.
// Remote models speak the OpenAI embeddings API, local models speak Ollama.
func buildProvider(name string, mc config.ModelConfig, logger *zap.Logger) registry.Provider {
	if mc.Kind == "local" {
		return ollamaEmb.NewEmbedder(&ollamaEmb.Config{
			BaseURL: mc.BaseURL,
			Model:   name,
			Timeout: time.Duration(mc.TimeoutSec) * time.Second,
			Logger:  logger,
		})
	}
	return openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     mc.APIKey,
		BaseURL:    mc.BaseURL,
		Model:      name,
		Dimensions: mc.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
}

func resiliencePolicy(rc config.ResilienceConfig) resilience.Policy {
	return resilience.Policy{
		MaxAttempts:      rc.MaxAttempts,
		InitialInterval:  time.Duration(rc.InitialIntervalMs) * time.Millisecond,
		MaxInterval:      time.Duration(rc.MaxIntervalMs) * time.Millisecond,
		FailureRatio:     rc.FailureRatio,
		MinRequests:      uint32(rc.MinRequests),
		Window:           time.Duration(rc.WindowSec) * time.Second,
		Cooldown:         time.Duration(rc.CooldownSec) * time.Second,
		HalfOpenMaxCalls: uint32(rc.HalfOpenMaxCalls),
	}
}

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

			// Canonical log line — one line per request
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
