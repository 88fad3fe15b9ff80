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

	"github.com/kailas-cloud/rowdex/internal/config"
	"github.com/kailas-cloud/rowdex/internal/db"
	dbMemory "github.com/kailas-cloud/rowdex/internal/db/memory"
	dbPostgres "github.com/kailas-cloud/rowdex/internal/db/postgres"
	dbRedis "github.com/kailas-cloud/rowdex/internal/db/redis"
	logpkg "github.com/kailas-cloud/rowdex/internal/logger"
	"github.com/kailas-cloud/rowdex/internal/metrics"
	rowrepo "github.com/kailas-cloud/rowdex/internal/repository/row"
	tablerepo "github.com/kailas-cloud/rowdex/internal/repository/table"
	chiTransport "github.com/kailas-cloud/rowdex/internal/transport/chi"
	batchuc "github.com/kailas-cloud/rowdex/internal/usecase/batch"
	healthuc "github.com/kailas-cloud/rowdex/internal/usecase/health"
	rowuc "github.com/kailas-cloud/rowdex/internal/usecase/row"
	searchuc "github.com/kailas-cloud/rowdex/internal/usecase/search"
	tableuc "github.com/kailas-cloud/rowdex/internal/usecase/table"
	"github.com/kailas-cloud/rowdex/internal/version"
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

	logger.Info("Starting rowdex server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("built", version.Date),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.String("index_data_dir", cfg.Index.DataDir),
	)

	ctx := context.Background()

	// Create the row store based on driver
	var store db.Store
	switch cfg.Storage.Driver {
	case "memory":
		store = dbMemory.NewStore()
	case "redis":
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Storage.Addrs,
			Password: cfg.Storage.Password,
		})
	case "postgres":
		store, err = dbPostgres.NewStore(ctx, dbPostgres.Config{DSN: cfg.Storage.DSN})
	default:
		logger.Fatal("Unknown storage driver", zap.String("driver", cfg.Storage.Driver))
	}
	if err != nil {
		logger.Fatal("Failed to create store", zap.Error(err))
	}
	defer store.Close()

	// Wait for the store to be ready
	if err := store.WaitForReady(ctx, time.Duration(cfg.Storage.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Store not ready", zap.Error(err))
	}
	logger.Info("Connected to store")

	// Register indexing metrics explicitly (no init())
	metrics.RegisterIndexingMetrics()

	// Create repositories
	tabRepo := tablerepo.New(store, cfg.Storage.KeyPrefix)
	rowRepo := rowrepo.New(store, cfg.Storage.KeyPrefix)

	// Create use case services
	tabSvc := tableuc.New(tabRepo, rowRepo, cfg.Index.DataDir, logger)
	rowSvc := rowuc.New(rowRepo, tabSvc, tabSvc)
	searchSvc := searchuc.New(rowRepo, tabSvc, tabSvc)
	batchSvc := batchuc.New(rowRepo, tabSvc, tabSvc).WithMaxBatchSize(cfg.Index.MaxBatchSize)
	healthSvc := healthuc.New(store, tabSvc)

	// Reopen every persisted table's index before serving traffic. A
	// broken index is logged and left for reload; it must not block the
	// rest of the catalog.
	if err := tabSvc.OpenAll(ctx); err != nil {
		logger.Fatal("Failed to open table indexes", zap.Error(err))
	}

	// Create chi server
	server := chiTransport.NewServer(tabSvc, rowSvc, searchSvc, batchSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
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

	// Flush buffered index writes before exit.
	if err := tabSvc.Close(); err != nil {
		logger.Error("Error closing table indexes", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
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

			// Canonical log line, one per request.
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
