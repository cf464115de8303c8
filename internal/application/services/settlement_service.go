package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slotcare/booking-backend/internal/domain/entities"
	"github.com/slotcare/booking-backend/internal/domain/providers"
	"github.com/slotcare/booking-backend/internal/domain/repositories"
	"github.com/slotcare/booking-backend/internal/infrastructure/observability"
	apperrors "github.com/slotcare/booking-backend/pkg/errors"
)

// SettlementService applies payment outcomes and cancellation refunds to
// settlements. All event-driven entry points are idempotent: a duplicate event
// finds the state already applied and becomes a no-op.
type SettlementService struct {
	settlementRepo  repositories.SettlementRepository
	appointmentRepo repositories.AppointmentRepository
	payments        providers.PaymentProvider
	payoutDelay     time.Duration
	currency        string
	location        *time.Location
}

// NewSettlementService creates a new settlement service
func NewSettlementService(
	settlementRepo repositories.SettlementRepository,
	appointmentRepo repositories.AppointmentRepository,
	payments providers.PaymentProvider,
	payoutDelay time.Duration,
	currency string,
	location *time.Location,
) *SettlementService {
	if location == nil {
		location = time.Local
	}
	return &SettlementService{
		settlementRepo:  settlementRepo,
		appointmentRepo: appointmentRepo,
		payments:        payments,
		payoutDelay:     payoutDelay,
		currency:        currency,
		location:        location,
	}
}

// GetByAppointmentID returns the settlement tied to an appointment
func (s *SettlementService) GetByAppointmentID(ctx context.Context, appointmentID string) (*entities.Settlement, error) {
	return s.settlementRepo.GetByAppointmentID(ctx, appointmentID)
}

// ConfirmPayment marks the requester's payment as completed and schedules the
// provider payout for appointment start + payout delay. Re-delivered events
// are no-ops.
func (s *SettlementService) ConfirmPayment(ctx context.Context, paymentRef, chargeRef string) error {
	settlement, err := s.settlementRepo.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		return err
	}
	if settlement.RequesterPaid {
		observability.LoggerFromContext(ctx).Debug().
			Str("payment_ref", paymentRef).
			Msg("payment already confirmed, ignoring duplicate event")
		return nil
	}

	now := time.Now()
	settlement.RequesterPaid = true
	settlement.RequesterPaidAt = &now
	settlement.Status = entities.SettlementStatusCompleted
	if chargeRef != "" {
		settlement.ChargeRef = &chargeRef
	}

	if scheduledAt, err := s.payoutTime(ctx, settlement.AppointmentID); err == nil {
		settlement.PayoutScheduledAt = &scheduledAt
	} else {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("settlement_id", settlement.ID).
			Msg("could not schedule payout, leaving unscheduled")
	}

	settlement.UpdatedAt = now
	if err := s.settlementRepo.Update(ctx, settlement); err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("settlement_id", settlement.ID).
		Str("appointment_id", settlement.AppointmentID).
		Msg("payment confirmed")
	return nil
}

// MarkPaymentFailed moves an unpaid settlement to FAILED. Events arriving
// after a successful payment are ignored as stale.
func (s *SettlementService) MarkPaymentFailed(ctx context.Context, paymentRef string) error {
	settlement, err := s.settlementRepo.GetByPaymentRef(ctx, paymentRef)
	if err != nil {
		return err
	}
	if settlement.RequesterPaid {
		observability.LoggerFromContext(ctx).Warn().
			Str("payment_ref", paymentRef).
			Msg("payment failure event for an already-paid settlement, ignoring")
		return nil
	}
	if settlement.Status == entities.SettlementStatusFailed {
		return nil
	}

	settlement.Status = entities.SettlementStatusFailed
	settlement.UpdatedAt = time.Now()
	if err := s.settlementRepo.Update(ctx, settlement); err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("settlement_id", settlement.ID).
		Msg("payment marked failed")
	return nil
}

// ApplyRefund runs the tiered refund for a cancelled appointment at time now.
// The platform's waived commission moves into the provider payout. A refund
// that arrives after the payout was already disbursed flags the settlement for
// manual reversal instead of clawing the payout back.
func (s *SettlementService) ApplyRefund(ctx context.Context, appointment *entities.Appointment, reason string, now time.Time) error {
	settlement, err := s.settlementRepo.GetByAppointmentID(ctx, appointment.ID)
	if err != nil {
		return err
	}
	if settlement.Refunded {
		return nil
	}
	if !settlement.RequesterPaid {
		// Nothing was charged; there is nothing to refund.
		return nil
	}

	startAt, err := appointment.StartAt(s.location)
	if err != nil {
		return err
	}
	outcome := CalculateRefund(settlement.Price, settlement.CommissionAmount, startAt, now)

	record := &entities.RefundRecord{
		ID:                     uuid.New().String(),
		SettlementID:           settlement.ID,
		Amount:                 outcome.PatientRefund,
		RefundType:             outcome.RefundType,
		Reason:                 reason,
		HoursBeforeAppointment: outcome.HoursBeforeAppointment,
		Status:                 "completed",
		CreatedAt:              now,
	}

	if outcome.PatientRefund > 0 {
		refundRef, refundErr := s.issueExternalRefund(ctx, settlement, outcome.PatientRefund, reason)
		if refundErr != nil {
			observability.LoggerFromContext(ctx).Error().Err(refundErr).
				Str("settlement_id", settlement.ID).
				Float64("amount", outcome.PatientRefund).
				Msg("external refund failed, recorded for operator review")
			record.Status = "failed"
		} else if refundRef != "" {
			record.ExternalRefundRef = &refundRef
			settlement.RefundRef = &refundRef
		}

		settlement.Refunded = true
		settlement.RefundAmount = outcome.PatientRefund
		settlement.RefundType = &outcome.RefundType
		if outcome.PatientRefund >= settlement.Price {
			settlement.Status = entities.SettlementStatusRefunded
		} else {
			settlement.Status = entities.SettlementStatusPartiallyRefunded
		}
		settlement.PayoutAmount = roundCents(settlement.PayoutAmount + outcome.CommissionRefund)

		if settlement.ProviderPaid && outcome.CommissionRefund > 0 {
			settlement.NeedsManualReversal = true
			observability.LoggerFromContext(ctx).Warn().
				Str("settlement_id", settlement.ID).
				Float64("commission_refund", outcome.CommissionRefund).
				Msg("refund after payout disbursed, settlement flagged for manual reversal")
		}

		settlement.UpdatedAt = now
		if err := s.settlementRepo.Update(ctx, settlement); err != nil {
			return err
		}
	}

	if err := s.settlementRepo.CreateRefundRecord(ctx, record); err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("settlement_id", settlement.ID).
		Str("refund_type", string(outcome.RefundType)).
		Float64("amount", outcome.PatientRefund).
		Int("hours_before", outcome.HoursBeforeAppointment).
		Msg("cancellation refund applied")
	return nil
}

// ReschedulePayout realigns a paid settlement's payout schedule after its
// appointment moves, so the sweep waits for the new start + delay instead of
// disbursing against the original time. Unpaid and already-disbursed
// settlements (and appointments without one) are no-ops.
func (s *SettlementService) ReschedulePayout(ctx context.Context, appointment *entities.Appointment) error {
	settlement, err := s.settlementRepo.GetByAppointmentID(ctx, appointment.ID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil
		}
		return err
	}
	if !settlement.RequesterPaid || settlement.ProviderPaid {
		return nil
	}

	startAt, err := appointment.StartAt(s.location)
	if err != nil {
		return err
	}
	scheduledAt := startAt.Add(s.payoutDelay)
	settlement.PayoutScheduledAt = &scheduledAt
	if err := s.settlementRepo.Update(ctx, settlement); err != nil {
		return err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("settlement_id", settlement.ID).
		Time("payout_scheduled_at", scheduledAt).
		Msg("payout schedule realigned to rescheduled appointment")
	return nil
}

func (s *SettlementService) issueExternalRefund(ctx context.Context, settlement *entities.Settlement, amount float64, reason string) (string, error) {
	if settlement.ChargeRef == nil || *settlement.ChargeRef == "" {
		return "", fmt.Errorf("settlement %s has no charge reference", settlement.ID)
	}
	return s.payments.RefundCharge(ctx, *settlement.ChargeRef, amount, s.currency, reason)
}

// payoutTime computes appointment start + payout delay
func (s *SettlementService) payoutTime(ctx context.Context, appointmentID string) (time.Time, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return time.Time{}, err
	}
	startAt, err := appointment.StartAt(s.location)
	if err != nil {
		return time.Time{}, err
	}
	return startAt.Add(s.payoutDelay), nil
}
