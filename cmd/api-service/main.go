package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/vk-parser/platform/pkg/common/config"
	"github.com/vk-parser/platform/pkg/common/database"
	"github.com/vk-parser/platform/pkg/common/logger"
	"github.com/vk-parser/platform/pkg/common/middleware"
	"github.com/vk-parser/platform/pkg/common/pagination"
	"github.com/vk-parser/platform/pkg/observability/metrics"
	"github.com/vk-parser/platform/pkg/parserrequest"
	"github.com/vk-parser/platform/pkg/queue"
)

func main() {
	logger.Init()
	cfg := config.Load()
	logger.InitWith(cfg.LogLevel, cfg.LogFormat)

	db, err := database.GetPostgres(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize database")
	}

	publisher, err := queue.New(context.Background(), cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to initialize queue publisher")
	}

	repo := parserrequest.NewRepository(db, cfg.DBQueryTimeout)
	service := parserrequest.NewService(repo, publisher)
	handler := parserrequest.NewHandler(service, pagination.Limits{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	})

	router := mux.NewRouter()
	router.Use(middleware.Logging)
	router.Use(middleware.Recovery)
	router.Use(middleware.CORS)
	router.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ready(ctx, cfg); err != nil {
			logger.Log.WithError(err).Warn("Readiness check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	handler.Register(router.PathPrefix("/api/v1").Subrouter())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host":          cfg.ServerHost,
			"port":          cfg.ServerPort,
			"queue_backend": cfg.QueueBackend,
		}).Info("Parser request API started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down parser request API...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("Server forced to shutdown")
	}
	if err := publisher.Close(); err != nil {
		logger.Log.WithError(err).Error("Failed to close queue publisher")
	}
	if err := database.CloseRedis(); err != nil {
		logger.Log.WithError(err).Error("Failed to close Redis")
	}
	if err := database.ClosePostgres(); err != nil {
		logger.Log.WithError(err).Error("Failed to close PostgreSQL")
	}

	logger.Log.Info("Parser request API stopped")
}

func ready(ctx context.Context, cfg *config.Config) error {
	if err := database.PingPostgres(ctx); err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if cfg.QueueBackend == config.QueueBackendRedis {
		if err := database.CheckTaskStream(ctx, database.GetRedis(cfg), cfg.RedisStream); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}
