package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medtracker-api/internal/config"
	"github.com/jwalitptl/medtracker-api/internal/handler/doselog"
	"github.com/jwalitptl/medtracker-api/internal/handler/health"
	"github.com/jwalitptl/medtracker-api/internal/handler/medication"
	"github.com/jwalitptl/medtracker-api/internal/handler/note"
	"github.com/jwalitptl/medtracker-api/internal/handler/prometheus"
	"github.com/jwalitptl/medtracker-api/internal/middleware"
	"github.com/jwalitptl/medtracker-api/internal/repository"
	"github.com/jwalitptl/medtracker-api/internal/repository/memory"
	"github.com/jwalitptl/medtracker-api/internal/repository/postgres"
	"github.com/jwalitptl/medtracker-api/internal/router"
	"github.com/jwalitptl/medtracker-api/internal/service/adherence"
	doselogService "github.com/jwalitptl/medtracker-api/internal/service/doselog"
	"github.com/jwalitptl/medtracker-api/internal/service/druginfo"
	eventService "github.com/jwalitptl/medtracker-api/internal/service/event"
	medicationService "github.com/jwalitptl/medtracker-api/internal/service/medication"
	noteService "github.com/jwalitptl/medtracker-api/internal/service/note"
	internalWorker "github.com/jwalitptl/medtracker-api/internal/worker"
	"github.com/jwalitptl/medtracker-api/pkg/event"
	"github.com/jwalitptl/medtracker-api/pkg/logger"
	"github.com/jwalitptl/medtracker-api/pkg/messaging/redis"
	"github.com/jwalitptl/medtracker-api/pkg/metrics"
	"github.com/jwalitptl/medtracker-api/pkg/worker"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("MEDTRACKER_CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(cfg.Log.ToLoggerConfig())

	loc, err := cfg.Location()
	if err != nil {
		appLogger.Fatal(err, "invalid adherence timezone")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	promH := prometheus.New(cfg.Metrics.Namespace)
	m := promH.Metrics()

	// Initialize storage
	store, closeStore, err := openStore(ctx, cfg, m)
	if err != nil {
		appLogger.Fatal(err, "failed to open storage", "driver", cfg.Storage.Driver)
	}
	defer closeStore()

	// Initialize services
	engine := adherence.NewEngine(loc)
	gateway := druginfo.NewCachedGateway(
		druginfo.NewOpenFDAClient(cfg.DrugInfo.ToClientConfig(), m),
		cfg.DrugInfo.CacheTTL,
		m,
	)
	medicationSvc := medicationService.NewService(
		store.Medications(),
		store.DoseLogs(),
		store.Notes(),
		gateway,
		engine,
		cfg.DrugInfo.Timeout,
	)
	doseLogSvc := doselogService.NewService(store.DoseLogs(), engine)
	noteSvc := noteService.NewService(store.Notes())

	// Initialize event tracking
	eventSvc := eventService.NewEventService(store.Outbox())
	eventTracker := event.NewEventTrackerMiddleware(eventSvc, cfg.Outbox.Enabled, cfg.EventTracking.ToResources())

	if cfg.Outbox.Enabled && cfg.Outbox.Inline {
		broker, err := redis.NewRedisBroker(ctx, cfg.Redis.ToBrokerConfig(), &appLogger.ZL, m)
		if err != nil {
			appLogger.Fatal(err, "failed to connect to Redis")
		}
		defer broker.Close()

		processor := worker.NewOutboxProcessor(store.Outbox(), broker, cfg.Outbox.ToWorkerConfig(), appLogger, m)
		go processor.Start(ctx)

		cleanup := internalWorker.NewOutboxCleanupWorker(store.Outbox(), cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, appLogger, m)
		go cleanup.Start(ctx)
	}

	var metricsH *prometheus.Handler
	if cfg.Metrics.Enabled {
		metricsH = promH
	}

	routerConfig := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		CORSConfig: middleware.CORSConfig{
			AllowOrigins: cfg.CORS.AllowedOrigins,
			AllowMethods: cfg.CORS.AllowedMethods,
			AllowHeaders: cfg.CORS.AllowedHeaders,
			MaxAge:       cfg.CORS.MaxAge,
		},
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}

	r := router.NewRouter(
		medication.NewHandler(medicationSvc, cfg.DrugInfo.CacheTTL),
		doselog.NewHandler(doseLogSvc),
		note.NewHandler(noteSvc),
		health.NewHandler(health.Check{Name: cfg.Storage.Driver, Pinger: store}),
		metricsH,
		eventTracker,
		routerConfig,
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		appLogger.Info("starting server", "addr", srv.Addr, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(err, "failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(err, "server forced to shutdown")
	}

	appLogger.Info("server exited properly")
}

// openStore returns the configured backend and a function that releases it.
func openStore(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (repository.Store, func() error, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		return memory.NewStore(), func() error { return nil }, nil
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	store := postgres.NewStore(db, m)
	return store, store.Close, nil
}
