package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/slotcare/booking-backend/internal/adapters/cache"
	"github.com/slotcare/booking-backend/internal/adapters/database"
	"github.com/slotcare/booking-backend/internal/adapters/providers/payments"
	"github.com/slotcare/booking-backend/internal/api/handlers"
	"github.com/slotcare/booking-backend/internal/api/routes"
	"github.com/slotcare/booking-backend/internal/application/services"
	"github.com/slotcare/booking-backend/internal/domain/providers"
	"github.com/slotcare/booking-backend/internal/domain/repositories"
	"github.com/slotcare/booking-backend/internal/infrastructure/clients/postgres"
	"github.com/slotcare/booking-backend/internal/infrastructure/clients/redis"
	"github.com/slotcare/booking-backend/internal/infrastructure/observability"
	"github.com/slotcare/booking-backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env, cfg.Server.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var metrics *observability.Metrics
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			metrics, err = observability.InitMetrics()
			if err != nil {
				log.Warn().Err(err).Msg("failed to initialize metrics")
			}
		}
	}

	// Initialize database client
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Redis is optional: without it reads go straight to the database.
	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, running without read cache")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
	}

	// Initialize adapters
	appointmentAdapter := database.NewAppointmentAdapter(pgClient)
	settlementAdapter := database.NewSettlementAdapter(pgClient)
	settingsAdapter := database.NewSettingsAdapter(pgClient, cfg.Booking.DefaultCommissionPct)

	baseProviderAdapter := database.NewProviderAdapter(pgClient)
	var providerAdapter repositories.ProviderRepository
	if cacheProvider != nil {
		providerAdapter = database.NewCachedProviderAdapter(
			baseProviderAdapter,
			cacheProvider,
			metrics,
			cfg.Cache.FreshTTL,
			cfg.Cache.StaleTTL,
		)
		log.Info().Msg("provider reads wrapped with stale-while-revalidate cache")
	} else {
		providerAdapter = baseProviderAdapter
	}

	paymentProvider := payments.NewPaymentProvider(payments.PaymentProviderConfig{
		StripeAPIKey:      cfg.Payments.StripeAPIKey,
		AllowMockFallback: cfg.Payments.AllowMockFallback,
	})

	// Initialize services
	availabilityService := services.NewAvailabilityService(
		providerAdapter,
		appointmentAdapter,
		cfg.Booking.DefaultSlotMinutes,
		time.Local,
	)
	settlementService := services.NewSettlementService(
		settlementAdapter,
		appointmentAdapter,
		paymentProvider,
		cfg.Payout.DelayAfterAppointment,
		cfg.Payments.Currency,
		time.Local,
	)
	bookingService := services.NewBookingService(
		appointmentAdapter,
		providerAdapter,
		settingsAdapter,
		availabilityService,
		settlementService,
		services.BookingRules{
			AdvanceDaysMax: cfg.Booking.DefaultAdvanceDaysMax,
			MinHoursAhead:  cfg.Booking.DefaultMinHoursAhead,
			CommissionPct:  cfg.Booking.DefaultCommissionPct,
		},
		time.Local,
	)
	appointmentService := services.NewAppointmentService(
		appointmentAdapter,
		settlementAdapter,
		providerAdapter,
		settlementService,
	)
	payoutService := services.NewPayoutService(
		settlementAdapter,
		providerAdapter,
		paymentProvider,
		metrics,
		cfg.Payments.Currency,
	)

	// Initialize handlers
	appointmentHandler := handlers.NewAppointmentHandler(
		bookingService,
		appointmentService,
		availabilityService,
		settlementService,
	)
	var webhookHandler *handlers.PaymentWebhookHandler
	if cfg.Payments.WebhookSecret != "" {
		webhookHandler = handlers.NewPaymentWebhookHandler(
			settlementService,
			payoutService,
			settlementAdapter,
			cfg.Payments.WebhookSecret,
			time.Duration(cfg.Payments.WebhookToleranceSec)*time.Second,
		)
	} else {
		log.Warn().Msg("payment webhook secret not set, webhook endpoint disabled")
	}
	payoutHandler := handlers.NewPayoutHandler(payoutService)

	// Set up router
	router := routes.NewRouter(appointmentHandler, webhookHandler, payoutHandler, metrics)
	handler := router.SetupRoutes()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}
