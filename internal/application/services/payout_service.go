package services

import (
	"context"
	"fmt"
	"time"

	"github.com/slotcare/booking-backend/internal/domain/providers"
	"github.com/slotcare/booking-backend/internal/domain/repositories"
	"github.com/slotcare/booking-backend/internal/infrastructure/observability"
)

const sweepBatchSize = 100

// SweepResult summarizes one payout sweep run
type SweepResult struct {
	Selected int `json:"selected"`
	Paid     int `json:"paid"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// PayoutService runs the periodic payout sweep and consumes transfer events.
// Each settlement is processed independently; a failure is logged and left for
// the next run rather than aborting the sweep. Idempotency comes from the
// provider_paid compare-and-set, not from job-level locking.
type PayoutService struct {
	settlementRepo repositories.SettlementRepository
	providerRepo   repositories.ProviderRepository
	payments       providers.PaymentProvider
	metrics        *observability.Metrics
	currency       string
}

// NewPayoutService creates a new payout service
func NewPayoutService(
	settlementRepo repositories.SettlementRepository,
	providerRepo repositories.ProviderRepository,
	payments providers.PaymentProvider,
	metrics *observability.Metrics,
	currency string,
) *PayoutService {
	return &PayoutService{
		settlementRepo: settlementRepo,
		providerRepo:   providerRepo,
		payments:       payments,
		metrics:        metrics,
		currency:       currency,
	}
}

// RunSweep disburses every due payout as of now. Re-running over an unchanged
// dataset issues no transfers: paid settlements no longer match the selection,
// and the compare-and-set covers sweeps racing on the same rows.
func (s *PayoutService) RunSweep(ctx context.Context, now time.Time) (SweepResult, error) {
	logger := observability.LoggerFromContext(ctx)

	due, err := s.settlementRepo.ListPayoutDue(ctx, now, sweepBatchSize)
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{Selected: len(due)}
	for _, settlement := range due {
		if settlement.PayoutAmount <= 0 {
			result.Skipped++
			continue
		}

		provider, err := s.providerRepo.GetByID(ctx, settlement.ProviderID)
		if err != nil {
			logger.Warn().Err(err).
				Str("settlement_id", settlement.ID).
				Str("provider_id", settlement.ProviderID).
				Msg("could not load provider for payout, skipping")
			result.Skipped++
			continue
		}
		if !provider.HasActivePayoutAccount() {
			// Left eligible: the sweep picks it up again once the account is set up.
			logger.Warn().
				Str("settlement_id", settlement.ID).
				Str("provider_id", settlement.ProviderID).
				Msg("provider has no active payout account, payout deferred")
			result.Skipped++
			continue
		}

		transferRef, err := s.payments.Transfer(
			ctx,
			*provider.PayoutAccountID,
			settlement.PayoutAmount,
			s.currency,
			fmt.Sprintf("payout for appointment %s", settlement.AppointmentID),
		)
		if err != nil {
			logger.Error().Err(err).
				Str("settlement_id", settlement.ID).
				Float64("amount", settlement.PayoutAmount).
				Msg("payout transfer failed, left for next sweep")
			observability.RecordPayoutFailed(ctx, s.metrics)
			result.Failed++
			continue
		}

		won, err := s.settlementRepo.MarkProviderPaid(ctx, settlement.ID, now, transferRef)
		if err != nil {
			logger.Error().Err(err).
				Str("settlement_id", settlement.ID).
				Str("transfer_ref", transferRef).
				Msg("transfer sent but settlement not marked paid, needs reconciliation")
			result.Failed++
			continue
		}
		if !won {
			logger.Warn().
				Str("settlement_id", settlement.ID).
				Msg("settlement already paid by a concurrent sweep")
			continue
		}

		observability.RecordPayoutSwept(ctx, s.metrics)
		result.Paid++
		logger.Info().
			Str("settlement_id", settlement.ID).
			Str("transfer_ref", transferRef).
			Float64("amount", settlement.PayoutAmount).
			Msg("payout disbursed")
	}

	logger.Info().
		Int("selected", result.Selected).
		Int("paid", result.Paid).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("payout sweep finished")
	return result, nil
}

// ConfirmPayout acknowledges a transfer confirmation event. The settlement is
// already marked paid by the sweep, so this is informational.
func (s *PayoutService) ConfirmPayout(ctx context.Context, transferRef string) error {
	settlement, err := s.settlementRepo.GetByTransferRef(ctx, transferRef)
	if err != nil {
		return err
	}
	observability.LoggerFromContext(ctx).Debug().
		Str("settlement_id", settlement.ID).
		Str("transfer_ref", transferRef).
		Bool("provider_paid", settlement.ProviderPaid).
		Msg("payout transfer confirmed")
	return nil
}

// MarkPayoutReversed handles a reversed or failed transfer: the payout marker
// is cleared so the settlement awaits manual retry. No automatic re-transfer.
func (s *PayoutService) MarkPayoutReversed(ctx context.Context, transferRef string) error {
	settlement, err := s.settlementRepo.GetByTransferRef(ctx, transferRef)
	if err != nil {
		return err
	}
	if !settlement.ProviderPaid {
		return nil
	}

	if err := s.settlementRepo.ResetProviderPaid(ctx, settlement.ID); err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Warn().
		Str("settlement_id", settlement.ID).
		Str("transfer_ref", transferRef).
		Msg("payout transfer reversed, settlement left for manual retry")
	return nil
}
