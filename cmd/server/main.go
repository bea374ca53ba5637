package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/handler"
	"dispatch/internal/notify"
	internalredis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
	"dispatch/internal/stripe"
)

func main() {
	cfg := config.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the database driver can be instrumented.
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Error().Err(err).Msg("failed to initialize New Relic")
		} else {
			logger.Info().Str("app", cfg.NewRelic.AppName).Msg("New Relic enabled")
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	logger.Info().Msg("connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	logger.Info().Msg("connected to Redis")

	server, dispatcher := wireServer(db, redisClient, nrApp, cfg, logger)

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	// Drain queued notifications before exiting.
	dispatcher.Close()

	logger.Info().Msg("server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// notification dispatcher (closed on shutdown).
func wireServer(db *sql.DB, redisClient *goredis.Client, nrApp *newrelic.Application, cfg *config.Config, logger zerolog.Logger) (*http.Server, *notify.Dispatcher) {
	store := postgres.NewStore(db)

	dedupeStore := internalredis.NewDedupeStore(redisClient)
	dispatcher := notify.NewDispatcher(
		[]notify.Sender{
			notify.NewEmailSender(logger),
			notify.NewSMSSender(logger),
		},
		dedupeStore,
		logger,
		cfg.Notify.QueueSize,
		cfg.Notify.DedupeTTL,
	)

	var stripeClient stripe.Client = stripe.DisabledClient{}
	if cfg.Stripe.APIKey != "" {
		stripeClient = stripe.NewAPIClient(cfg.Stripe.APIKey)
	}

	transitionService := service.NewTransitionService(store, dispatcher, logger)
	reconciliationService := service.NewReconciliationService(store, stripeClient, dispatcher, logger)

	bookingHandler := handler.NewBookingHandler(transitionService, store)
	webhookHandler := handler.NewWebhookHandler(reconciliationService, logger)

	router := app.NewRouter(app.RouterDeps{
		BookingHandler: bookingHandler,
		WebhookHandler: webhookHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, dispatcher
}
