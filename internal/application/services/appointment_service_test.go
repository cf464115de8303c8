package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slotcare/booking-backend/internal/application/services"
	"github.com/slotcare/booking-backend/internal/domain/entities"
	apperrors "github.com/slotcare/booking-backend/pkg/errors"
)

func strPtr(s string) *string { return &s }

func newAppointmentFixture() (*MockAppointmentRepository, *MockSettlementRepository, *MockProviderRepository, *MockPaymentProvider, *services.AppointmentService) {
	appointmentRepo := new(MockAppointmentRepository)
	settlementRepo := new(MockSettlementRepository)
	providerRepo := new(MockProviderRepository)
	payments := new(MockPaymentProvider)
	settlements := services.NewSettlementService(settlementRepo, appointmentRepo, payments, 2*time.Hour, "usd", time.Local)
	service := services.NewAppointmentService(appointmentRepo, settlementRepo, providerRepo, settlements)
	return appointmentRepo, settlementRepo, providerRepo, payments, service
}

func activeProvider(id string) *entities.Provider {
	return &entities.Provider{
		ID:                  id,
		PayoutAccountID:     strPtr("acct-1"),
		PayoutAccountActive: true,
		IsActive:            true,
	}
}

func TestAppointmentService_UpdateStatus(t *testing.T) {
	t.Run("confirms a paid appointment", func(t *testing.T) {
		appointmentRepo, settlementRepo, providerRepo, _, service := newAppointmentFixture()
		now := time.Now()

		appointmentRepo.On("GetByID", mock.Anything, "appt-1").Return(&entities.Appointment{
			ID:         "appt-1",
			ProviderID: "prov-1",
			Status:     entities.AppointmentStatusPending,
		}, nil)
		settlementRepo.On("GetByAppointmentID", mock.Anything, "appt-1").Return(&entities.Settlement{
			ID:              "stl-1",
			AppointmentID:   "appt-1",
			RequesterPaid:   true,
			RequesterPaidAt: &now,
			Status:          entities.SettlementStatusCompleted,
		}, nil)
		providerRepo.On("GetByID", mock.Anything, "prov-1").Return(activeProvider("prov-1"), nil)
		appointmentRepo.On("UpdateStatus", mock.Anything, "appt-1",
			entities.AppointmentStatusPending, entities.AppointmentStatusConfirmed, "").Return(nil)

		appointment, err := service.UpdateStatus(context.Background(), "appt-1", entities.AppointmentStatusConfirmed)

		require.NoError(t, err)
		assert.Equal(t, entities.AppointmentStatusConfirmed, appointment.Status)
		appointmentRepo.AssertExpectations(t)
	})

	t.Run("blocks confirmation when payment was not processed", func(t *testing.T) {
		appointmentRepo, settlementRepo, _, _, service := newAppointmentFixture()

		appointmentRepo.On("GetByID", mock.Anything, "appt-1").Return(&entities.Appointment{
			ID:     "appt-1",
			Status: entities.AppointmentStatusPending,
		}, nil)
		settlementRepo.On("GetByAppointmentID", mock.Anything, "appt-1").Return(&entities.Settlement{
			ID:            "stl-1",
			AppointmentID: "appt-1",
			RequesterPaid: false,
			Status:        entities.SettlementStatusProcessing,
		}, nil)

		_, err := service.UpdateStatus(context.Background(), "appt-1", entities.AppointmentStatusConfirmed)

		require.Error(t, err)
		assert.Equal(t, apperrors.CodePaymentNotProcessed, apperrors.CodeOf(err))
		appointmentRepo.AssertNotCalled(t, "UpdateStatus")
	})

	t.Run("blocks confirmation when payment has not completed", func(t *testing.T) {
		appointmentRepo, settlementRepo, _, _, service := newAppointmentFixture()
		now := time.Now()

		appointmentRepo.On("GetByID", mock.Anything, "appt-1").Return(&entities.Appointment{
			ID:     "appt-1",
			Status: entities.AppointmentStatusPending,
		}, nil)
		settlementRepo.On("GetByAppointmentID", mock.Anything, "appt-1").Return(&entities.Settlement{
			ID:              "stl-1",
			AppointmentID:   "appt-1",
			RequesterPaid:   true,
			RequesterPaidAt: &now,
			Status:          entities.SettlementStatusProcessing,
		}, nil)

		_, err := service.UpdateStatus(context.Background(), "appt-1", entities.AppointmentStatusConfirmed)

		require.Error(t, err)
		assert.Equal(t, apperrors.CodePaymentNotCompleted, apperrors.CodeOf(err))
	})

	t.Run("confirms a free appointment without a settlement", func(t *testing.T) {
		appointmentRepo, settlementRepo, _, _, service := newAppointmentFixture()

		appointmentRepo.On("GetByID", mock.Anything, "appt-1").Return(&entities.Appointment{
			ID:     "appt-1",
			Status: entities.AppointmentStatusPending,
		}, nil)
		settlementRepo.On("GetByAppointmentID", mock.Anything, "appt-1").
			Return(nil, apperrors.NewNotFoundError("no settlement"))
		appointmentRepo.On("UpdateStatus", mock.Anything, "appt-1",
			entities.AppointmentStatusPending, entities.AppointmentStatusConfirmed, "").Return(nil)

		_, err := service.UpdateStatus(context.Background(), "appt-1", entities.AppointmentStatusConfirmed)

		require.NoError(t, err)
	})

	t.Run("a missing payout account warns but does not block", func(t *testing.T) {
		appointmentRepo, settlementRepo, providerRepo, _, service := newAppointmentFixture()
		now := time.Now()

		appointmentRepo.On("GetByID", mock.Anything, "appt-1").Return(&entities.Appointment{
			ID:         "appt-1",
			ProviderID: "prov-1",
			Status:     entities.AppointmentStatusPending,
		}, nil)
		settlementRepo.On("GetByAppointmentID", mock.Anything, "appt-1").Return(&entities.Settlement{
			ID:              "stl-1",
			AppointmentID:   "appt-1",
			RequesterPaid:   true,
			RequesterPaidAt: &now,
			Status:          entities.SettlementStatusCompleted,
		}, nil)
		providerRepo.On("GetByID", mock.Anything, "prov-1").Return(&entities.Provider{ID: "prov-1"}, nil)
		appointmentRepo.On("UpdateStatus", mock.Anything, "appt-1",
			entities.AppointmentStatusPending, entities.AppointmentStatusConfirmed, "").Return(nil)

		_, err := service.UpdateStatus(context.Background(), "appt-1", entities.AppointmentStatusConfirmed)

		require.NoError(t, err)
	})

	t.Run("rejects an illegal transition and leaves state unchanged", func(t *testing.T) {
		appointmentRepo, _, _, _, service := newAppointmentFixture()

		appointmentRepo.On("GetByID", mock.Anything, "appt-1").Return(&entities.Appointment{
			ID:     "appt-1",
			Status: entities.AppointmentStatusPending,
		}, nil)

		_, err := service.UpdateStatus(context.Background(), "appt-1", entities.AppointmentStatusCompleted)

		require.Error(t, err)
		assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))
		appointmentRepo.AssertNotCalled(t, "UpdateStatus")
	})
}

func TestAppointmentService_Cancel(t *testing.T) {
	t.Run("full refund when cancelled 24h or more ahead", func(t *testing.T) {
		appointmentRepo, settlementRepo, _, payments, service := newAppointmentFixture()

		startAt := time.Now().AddDate(0, 0, 2)
		appointment := &entities.Appointment{
			ID:              "appt-1",
			ProviderID:      "prov-1",
			Date:            startAt.Format("2006-01-02"),
			StartTime:       "14:00",
			DurationMinutes: 30,
			Status:          entities.AppointmentStatusConfirmed,
		}
		paidAt := time.Now().Add(-time.Hour)
		settlement := &entities.Settlement{
			ID:                       "stl-1",
			AppointmentID:            "appt-1",
			Price:                    100,
			CommissionAmount:         5,
			CommissionPercentageUsed: 5,
			PayoutAmount:             95,
			Status:                   entities.SettlementStatusCompleted,
			RequesterPaid:            true,
			RequesterPaidAt:          &paidAt,
			ChargeRef:                strPtr("ch_123"),
		}

		appointmentRepo.On("GetByID", mock.Anything, "appt-1").Return(appointment, nil)
		appointmentRepo.On("UpdateStatus", mock.Anything, "appt-1",
			entities.AppointmentStatusConfirmed, entities.AppointmentStatusCancelled, "sick").Return(nil)
		settlementRepo.On("GetByAppointmentID", mock.Anything, "appt-1").Return(settlement, nil)
		payments.On("RefundCharge", mock.Anything, "ch_123", 100.0, "usd", "sick").Return("re_123", nil)
		settlementRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *entities.Settlement) bool {
			return s.Refunded &&
				s.RefundAmount == 100.0 &&
				s.Status == entities.SettlementStatusRefunded &&
				s.PayoutAmount == 100.0 &&
				!s.NeedsManualReversal
		})).Return(nil)
		settlementRepo.On("CreateRefundRecord", mock.Anything, mock.MatchedBy(func(r *entities.RefundRecord) bool {
			return r.RefundType == entities.RefundTypeFull && r.Amount == 100.0
		})).Return(nil)

		result, err := service.Cancel(context.Background(), "appt-1", "sick")

		require.NoError(t, err)
		assert.Equal(t, entities.AppointmentStatusCancelled, result.Status)
		settlementRepo.AssertExpectations(t)
		payments.AssertExpectations(t)
	})

	t.Run("no refund under an hour before keeps the payout", func(t *testing.T) {
		appointmentRepo, settlementRepo, _, payments, service := newAppointmentFixture()

		startAt := time.Now().Add(30 * time.Minute)
		appointment := &entities.Appointment{
			ID:              "appt-1",
			ProviderID:      "prov-1",
			Date:            startAt.Format("2006-01-02"),
			StartTime:       startAt.Format("15:04"),
			DurationMinutes: 30,
			Status:          entities.AppointmentStatusConfirmed,
		}
		paidAt := time.Now().Add(-time.Hour)
		settlement := &entities.Settlement{
			ID:               "stl-1",
			AppointmentID:    "appt-1",
			Price:            100,
			CommissionAmount: 5,
			PayoutAmount:     95,
			Status:           entities.SettlementStatusCompleted,
			RequesterPaid:    true,
			RequesterPaidAt:  &paidAt,
			ChargeRef:        strPtr("ch_123"),
		}

		appointmentRepo.On("GetByID", mock.Anything, "appt-1").Return(appointment, nil)
		appointmentRepo.On("UpdateStatus", mock.Anything, "appt-1",
			entities.AppointmentStatusConfirmed, entities.AppointmentStatusCancelled, "late").Return(nil)
		settlementRepo.On("GetByAppointmentID", mock.Anything, "appt-1").Return(settlement, nil)
		settlementRepo.On("CreateRefundRecord", mock.Anything, mock.MatchedBy(func(r *entities.RefundRecord) bool {
			return r.RefundType == entities.RefundTypeNone && r.Amount == 0.0
		})).Return(nil)

		_, err := service.Cancel(context.Background(), "appt-1", "late")

		require.NoError(t, err)
		assert.Equal(t, 95.0, settlement.PayoutAmount)
		payments.AssertNotCalled(t, "RefundCharge")
		settlementRepo.AssertNotCalled(t, "Update")
	})

	t.Run("refund after disbursed payout flags manual reversal", func(t *testing.T) {
		appointmentRepo, settlementRepo, _, payments, service := newAppointmentFixture()

		startAt := time.Now().AddDate(0, 0, 2)
		appointment := &entities.Appointment{
			ID:              "appt-1",
			ProviderID:      "prov-1",
			Date:            startAt.Format("2006-01-02"),
			StartTime:       "14:00",
			DurationMinutes: 30,
			Status:          entities.AppointmentStatusConfirmed,
		}
		paidAt := time.Now().Add(-48 * time.Hour)
		settlement := &entities.Settlement{
			ID:               "stl-1",
			AppointmentID:    "appt-1",
			Price:            100,
			CommissionAmount: 5,
			PayoutAmount:     95,
			Status:           entities.SettlementStatusCompleted,
			RequesterPaid:    true,
			RequesterPaidAt:  &paidAt,
			ProviderPaid:     true,
			ChargeRef:        strPtr("ch_123"),
		}

		appointmentRepo.On("GetByID", mock.Anything, "appt-1").Return(appointment, nil)
		appointmentRepo.On("UpdateStatus", mock.Anything, "appt-1",
			entities.AppointmentStatusConfirmed, entities.AppointmentStatusCancelled, "").Return(nil)
		settlementRepo.On("GetByAppointmentID", mock.Anything, "appt-1").Return(settlement, nil)
		payments.On("RefundCharge", mock.Anything, "ch_123", 100.0, "usd", "").Return("re_123", nil)
		settlementRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *entities.Settlement) bool {
			return s.NeedsManualReversal
		})).Return(nil)
		settlementRepo.On("CreateRefundRecord", mock.Anything, mock.Anything).Return(nil)

		_, err := service.Cancel(context.Background(), "appt-1", "")

		require.NoError(t, err)
		settlementRepo.AssertExpectations(t)
	})

	t.Run("cancelling a free appointment skips refund handling", func(t *testing.T) {
		appointmentRepo, settlementRepo, _, _, service := newAppointmentFixture()

		appointmentRepo.On("GetByID", mock.Anything, "appt-1").Return(&entities.Appointment{
			ID:     "appt-1",
			Status: entities.AppointmentStatusPending,
		}, nil)
		appointmentRepo.On("UpdateStatus", mock.Anything, "appt-1",
			entities.AppointmentStatusPending, entities.AppointmentStatusCancelled, "changed plans").Return(nil)
		settlementRepo.On("GetByAppointmentID", mock.Anything, "appt-1").
			Return(nil, apperrors.NewNotFoundError("no settlement"))

		result, err := service.Cancel(context.Background(), "appt-1", "changed plans")

		require.NoError(t, err)
		assert.Equal(t, entities.AppointmentStatusCancelled, result.Status)
	})

	t.Run("cannot cancel a completed appointment", func(t *testing.T) {
		appointmentRepo, _, _, _, service := newAppointmentFixture()

		appointmentRepo.On("GetByID", mock.Anything, "appt-1").Return(&entities.Appointment{
			ID:     "appt-1",
			Status: entities.AppointmentStatusCompleted,
		}, nil)

		_, err := service.Cancel(context.Background(), "appt-1", "")

		require.Error(t, err)
		assert.Equal(t, apperrors.CodeInvalidTransition, apperrors.CodeOf(err))
		appointmentRepo.AssertNotCalled(t, "UpdateStatus")
	})
}
