package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"ledger/internal/app"
	"ledger/internal/config"
	"ledger/internal/handler"
	"ledger/internal/logging"
	internalRedis "ledger/internal/redis"
	"ledger/internal/repository/postgres"
	"ledger/internal/service"
)

func main() {
	logging.Setup()

	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
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
			slog.Warn("failed to initialize New Relic", "error", err)
		} else {
			slog.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to PostgreSQL", "database", cfg.Database.DBName)

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.Info("connected to Redis", "addr", cfg.Redis.Addr)

	// Wire dependencies.
	ledgerService, server := wireServer(db, redisClient, nrApp, cfg)

	// Subscribe to record change notifications for cache invalidation.
	feedCtx, feedCancel := context.WithCancel(context.Background())
	defer feedCancel()

	changeFeed := internalRedis.NewChangeFeed(redisClient, cfg.Ledger.ChangeChannel)
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		err := changeFeed.Subscribe(feedCtx, func(event internalRedis.ChangeEvent) {
			switch event.Kind {
			case internalRedis.ChangeKindSplit:
				ledgerService.OnSplitChanged(event.TripID)
			default:
				ledgerService.OnPaymentChanged(event.TripID)
			}
		})
		if err != nil {
			slog.Error("change feed subscription ended", "error", err)
		}
	}()
	slog.Info("subscribed to change feed", "channel", cfg.Ledger.ChangeChannel)

	// Start server in goroutine.
	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	feedCancel()
	select {
	case <-feedDone:
	case <-shutdownCtx.Done():
		slog.Warn("change feed did not stop in time")
	}

	slog.Info("server exited")
}

// wireServer wires all dependencies and returns the ledger service plus
// the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*service.LedgerService, *http.Server) {
	// Initialize repositories.
	paymentRepo := postgres.NewPaymentRepository(db)
	splitRepo := postgres.NewSplitRepository(db)
	rateRepo := postgres.NewRateRepository(db)

	// Conversion rates are read through the redis cache.
	rateProvider := internalRedis.NewRateCache(redisClient, rateRepo, cfg.Ledger.RateCacheTTL)

	// Initialize services.
	ledgerService := service.NewLedgerService(paymentRepo, splitRepo, rateProvider, cfg.Ledger.StoreTimeout)

	// Initialize handlers.
	balanceHandler := handler.NewBalanceHandler(ledgerService, cfg.Ledger.DefaultCurrency)
	paymentHandler := handler.NewPaymentHandler(ledgerService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		BalanceHandler: balanceHandler,
		PaymentHandler: paymentHandler,
		NewRelicApp:    nrApp,
	})

	// Create HTTP server.
	return ledgerService, &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
