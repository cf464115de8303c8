package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/slotcare/booking-backend/internal/adapters/database"
	"github.com/slotcare/booking-backend/internal/adapters/providers/payments"
	"github.com/slotcare/booking-backend/internal/application/services"
	"github.com/slotcare/booking-backend/internal/infrastructure/clients/postgres"
	"github.com/slotcare/booking-backend/internal/infrastructure/observability"
	"github.com/slotcare/booking-backend/pkg/config"
)

// The sweeper disburses due provider payouts on a fixed interval. It is safe
// to run alongside the API server and alongside other sweeper instances: the
// provider_paid compare-and-set prevents double payment.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger("booking-sweeper", cfg.Server.Env, cfg.Server.LogLevel)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	paymentProvider := payments.NewPaymentProvider(payments.PaymentProviderConfig{
		StripeAPIKey:      cfg.Payments.StripeAPIKey,
		AllowMockFallback: cfg.Payments.AllowMockFallback,
	})

	payoutService := services.NewPayoutService(
		database.NewSettlementAdapter(pgClient),
		database.NewProviderAdapter(pgClient),
		paymentProvider,
		nil,
		cfg.Payments.Currency,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		log.Info().Msg("sweeper shutting down")
		cancel()
	}()

	log.Info().Dur("interval", cfg.Payout.SweepInterval).Msg("payout sweeper started")

	ticker := time.NewTicker(cfg.Payout.SweepInterval)
	defer ticker.Stop()

	runOnce(ctx, payoutService)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sweeper stopped")
			return
		case <-ticker.C:
			runOnce(ctx, payoutService)
		}
	}
}

func runOnce(ctx context.Context, payouts *services.PayoutService) {
	if _, err := payouts.RunSweep(ctx, time.Now()); err != nil {
		log.Error().Err(err).Msg("payout sweep failed")
	}
}
