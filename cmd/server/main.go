package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ride-trip/internal/app"
	"ride-trip/internal/config"
	"ride-trip/internal/directory"
	"ride-trip/internal/estimate"
	"ride-trip/internal/handler"
	"ride-trip/internal/lock"
	"ride-trip/internal/notify"
	internalRedis "ride-trip/internal/redis"
	"ride-trip/internal/repository/postgres"
	"ride-trip/internal/service"
	"ride-trip/internal/statemachine"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	logger := app.NewLogger(os.Stdout, cfg.Log.ServiceName, cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", "error", err)
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	// Trip events go to websocket subscribers and, when enabled, RabbitMQ.
	hub := notify.NewHub(logger)
	defer hub.Close()
	publishers := notify.Fanout{hub}

	var rabbit *notify.RabbitPublisher
	if cfg.RabbitMQ.Enabled {
		rabbit, err = notify.DialRabbit(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer rabbit.Close()
		publishers = append(publishers, rabbit)
	}

	server := wireServer(db, redisClient, nrApp, hub, rabbit, publishers, cfg, logger)

	// Start server in goroutine.
	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(
	db *sql.DB,
	redisClient *redis.Client,
	nrApp *newrelic.Application,
	hub *notify.Hub,
	rabbit *notify.RabbitPublisher,
	publisher notify.Publisher,
	cfg *config.Config,
	logger *slog.Logger,
) *http.Server {
	// Initialize Redis stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)
	idempotencyStore := internalRedis.NewIdempotencyStore(redisClient)

	// Initialize collaborators.
	tripRepo := postgres.NewTripRepository(db)
	locks := lock.NewCoordinator(lockStore, lock.Config{
		TTL:        cfg.Lock.TTL,
		Retries:    cfg.Lock.Retries,
		RetryDelay: cfg.Lock.RetryDelay,
	}, logger)
	users := directory.NewClient(directory.Config{
		BaseURL:    cfg.Directory.URL,
		Timeout:    cfg.Directory.Timeout,
		RetryCount: cfg.Directory.RetryCount,
		RetryDelay: cfg.Directory.RetryDelay,
	}, logger)
	estimator := estimate.NewHaversine(cfg.Estimate.AvgSpeedKmh, cfg.Estimate.CostPerMinute)

	// Initialize services.
	notificationService := service.NewNotificationService(publisher, logger)
	tripService := service.NewTripOrchestrator(service.TripOrchestratorDeps{
		Trips:        tripRepo,
		Locks:        locks,
		StateMachine: statemachine.New(),
		Customers:    users.Collection(directory.Customers),
		Drivers:      users.Collection(directory.Drivers),
		Estimator:    estimator,
		Cache:        cacheStore,
		Notifier:     notificationService,
		Logger:       logger,
	})

	// Initialize handlers.
	checks := map[string]handler.HealthCheck{
		"postgres": db.PingContext,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}
	if rabbit != nil {
		checks["rabbitmq"] = func(context.Context) error {
			if !rabbit.Healthy() {
				return errors.New("rabbitmq connection closed")
			}
			return nil
		}
	}

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		TripHandler:      handler.NewTripHandler(tripService),
		HealthHandler:    handler.NewHealthHandler(checks),
		EventStream:      hub,
		IdempotencyStore: idempotencyStore,
		NewRelicApp:      nrApp,
		Logger:           logger,
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
