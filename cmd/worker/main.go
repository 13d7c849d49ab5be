package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/medtracker-api/internal/config"
	"github.com/jwalitptl/medtracker-api/internal/handler/health"
	"github.com/jwalitptl/medtracker-api/internal/handler/prometheus"
	"github.com/jwalitptl/medtracker-api/internal/middleware"
	"github.com/jwalitptl/medtracker-api/internal/repository/postgres"
	internalWorker "github.com/jwalitptl/medtracker-api/internal/worker"
	"github.com/jwalitptl/medtracker-api/pkg/logger"
	"github.com/jwalitptl/medtracker-api/pkg/messaging"
	"github.com/jwalitptl/medtracker-api/pkg/messaging/redis"
	"github.com/jwalitptl/medtracker-api/pkg/worker"
)

// setupHealthCheck serves liveness, readiness and metrics for the worker
// until ctx is cancelled.
func setupHealthCheck(ctx context.Context, port int, store *postgres.Store, broker messaging.Broker, promH *prometheus.Handler, appLogger *logger.Logger) {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(middleware.Recovery())

	health.NewHandler(
		health.Check{Name: "database", Pinger: store},
		health.Check{Name: "redis", Pinger: broker},
	).RegisterRoutes(engine)
	engine.GET("/health/metrics", promH.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(err, "Health check server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

func main() {
	// Load config
	cfg, err := config.Load(os.Getenv("MEDTRACKER_CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if cfg.Storage.Driver != config.StoragePostgres {
		log.Fatal().Str("driver", cfg.Storage.Driver).Msg("The outbox worker requires the postgres storage driver")
	}

	appLogger := logger.NewLogger(cfg.Log.ToLoggerConfig()).WithFields(map[string]interface{}{
		"component": "outbox-worker",
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	promH := prometheus.New(cfg.Metrics.Namespace)
	m := promH.Metrics()

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		appLogger.Fatal(err, "Failed to connect to database")
	}
	store := postgres.NewStore(db, m)
	defer store.Close()

	// Initialize Redis broker
	broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), &appLogger.ZL, m)
	if err != nil {
		appLogger.Fatal(err, "Failed to create Redis broker")
	}
	defer broker.Close()

	processor := worker.NewOutboxProcessor(
		store.Outbox(),
		broker,
		cfg.Outbox.ToWorkerConfig(),
		appLogger,
		m,
	)
	cleanup := internalWorker.NewOutboxCleanupWorker(
		store.Outbox(),
		cfg.Outbox.Retention,
		cfg.Outbox.CleanupInterval,
		appLogger,
		m,
	)

	setupHealthCheck(ctx, cfg.Worker.HealthPort, store, broker, promH, appLogger)

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		appLogger.Info("Shutting down...")
		cancel()
	}()

	go cleanup.Start(ctx)
	processor.Start(ctx)
}
