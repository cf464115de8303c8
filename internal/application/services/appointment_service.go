package services

import (
	"context"
	"time"

	"github.com/slotcare/booking-backend/internal/domain/entities"
	"github.com/slotcare/booking-backend/internal/domain/repositories"
	"github.com/slotcare/booking-backend/internal/infrastructure/observability"
	apperrors "github.com/slotcare/booking-backend/pkg/errors"
)

// AppointmentService governs appointment status transitions: the legal
// transition table, the payment gate on confirmation, and cancellation with
// its refund side effects.
type AppointmentService struct {
	appointmentRepo repositories.AppointmentRepository
	settlementRepo  repositories.SettlementRepository
	providerRepo    repositories.ProviderRepository
	settlements     *SettlementService
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	appointmentRepo repositories.AppointmentRepository,
	settlementRepo repositories.SettlementRepository,
	providerRepo repositories.ProviderRepository,
	settlements *SettlementService,
) *AppointmentService {
	return &AppointmentService{
		appointmentRepo: appointmentRepo,
		settlementRepo:  settlementRepo,
		providerRepo:    providerRepo,
		settlements:     settlements,
	}
}

// GetByID retrieves an appointment by ID
func (s *AppointmentService) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	return s.appointmentRepo.GetByID(ctx, id)
}

// UpdateStatus transitions an appointment to newStatus. Confirmation of a
// priced appointment requires the payment to have completed; cancellation is
// routed through Cancel so the refund policy always runs.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id string, newStatus entities.AppointmentStatus) (*entities.Appointment, error) {
	if newStatus == entities.AppointmentStatusCancelled {
		return s.Cancel(ctx, id, "")
	}

	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appointment.CanTransitionTo(newStatus) {
		return nil, invalidTransition(appointment.Status, newStatus)
	}

	if newStatus == entities.AppointmentStatusConfirmed {
		if err := s.checkConfirmationGate(ctx, appointment); err != nil {
			return nil, err
		}
	}

	if err := s.appointmentRepo.UpdateStatus(ctx, id, appointment.Status, newStatus, ""); err != nil {
		return nil, err
	}
	appointment.Status = newStatus
	appointment.UpdatedAt = time.Now()

	observability.LoggerFromContext(ctx).Info().
		Str("appointment_id", id).
		Str("status", string(newStatus)).
		Msg("appointment status updated")
	return appointment, nil
}

// Cancel cancels an appointment and applies the tiered refund when a
// settlement exists. Cancellation is a status change; the row is kept.
func (s *AppointmentService) Cancel(ctx context.Context, id, reason string) (*entities.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appointment.CanTransitionTo(entities.AppointmentStatusCancelled) {
		return nil, invalidTransition(appointment.Status, entities.AppointmentStatusCancelled)
	}

	if err := s.appointmentRepo.UpdateStatus(ctx, id, appointment.Status, entities.AppointmentStatusCancelled, reason); err != nil {
		return nil, err
	}
	appointment.Status = entities.AppointmentStatusCancelled
	if reason != "" {
		appointment.Reason = reason
	}
	appointment.UpdatedAt = time.Now()

	if err := s.settlements.ApplyRefund(ctx, appointment, reason, time.Now()); err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, err
		}
		// Unpriced appointment, no settlement to refund.
	}

	observability.LoggerFromContext(ctx).Info().
		Str("appointment_id", id).
		Str("reason", reason).
		Msg("appointment cancelled")
	return appointment, nil
}

// checkConfirmationGate enforces the payment gate for priced appointments. A
// missing or inactive payout account never blocks confirmation; it only delays
// the payout, so it logs a warning and proceeds.
func (s *AppointmentService) checkConfirmationGate(ctx context.Context, appointment *entities.Appointment) error {
	settlement, err := s.settlementRepo.GetByAppointmentID(ctx, appointment.ID)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil
		}
		return err
	}

	if !settlement.RequesterPaid {
		return apperrors.NewStateError("payment has not been processed").
			WithCode(apperrors.CodePaymentNotProcessed)
	}
	if settlement.Status != entities.SettlementStatusCompleted {
		return apperrors.NewStateError("payment has not completed").
			WithCode(apperrors.CodePaymentNotCompleted)
	}

	provider, err := s.providerRepo.GetByID(ctx, appointment.ProviderID)
	if err == nil && !provider.HasActivePayoutAccount() {
		observability.LoggerFromContext(ctx).Warn().
			Str("appointment_id", appointment.ID).
			Str("provider_id", appointment.ProviderID).
			Msg("provider has no active payout account, payout will be delayed")
	}
	return nil
}

func invalidTransition(from, to entities.AppointmentStatus) error {
	return apperrors.NewStateError("cannot transition from "+string(from)+" to "+string(to)).
		WithCode(apperrors.CodeInvalidTransition)
}
