package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slotcare/booking-backend/internal/application/services"
	"github.com/slotcare/booking-backend/internal/domain/entities"
)

func newSettlementFixture() (*MockAppointmentRepository, *MockSettlementRepository, *MockPaymentProvider, *services.SettlementService) {
	appointmentRepo := new(MockAppointmentRepository)
	settlementRepo := new(MockSettlementRepository)
	payments := new(MockPaymentProvider)
	service := services.NewSettlementService(settlementRepo, appointmentRepo, payments, 2*time.Hour, "usd", time.Local)
	return appointmentRepo, settlementRepo, payments, service
}

func TestSettlementService_ConfirmPayment(t *testing.T) {
	t.Run("marks the settlement paid and schedules the payout", func(t *testing.T) {
		appointmentRepo, settlementRepo, _, service := newSettlementFixture()

		startAt := time.Now().AddDate(0, 0, 3)
		appointment := &entities.Appointment{
			ID:              "appt-1",
			Date:            startAt.Format("2006-01-02"),
			StartTime:       "14:00",
			DurationMinutes: 30,
			Status:          entities.AppointmentStatusPending,
		}
		wantScheduled, err := appointment.StartAt(time.Local)
		require.NoError(t, err)
		wantScheduled = wantScheduled.Add(2 * time.Hour)

		settlementRepo.On("GetByPaymentRef", mock.Anything, "pay-1").Return(&entities.Settlement{
			ID:            "stl-1",
			AppointmentID: "appt-1",
			Status:        entities.SettlementStatusProcessing,
		}, nil)
		appointmentRepo.On("GetByID", mock.Anything, "appt-1").Return(appointment, nil)
		settlementRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *entities.Settlement) bool {
			return s.RequesterPaid &&
				s.RequesterPaidAt != nil &&
				s.Status == entities.SettlementStatusCompleted &&
				s.ChargeRef != nil && *s.ChargeRef == "ch_1" &&
				s.PayoutScheduledAt != nil && s.PayoutScheduledAt.Equal(wantScheduled)
		})).Return(nil)

		err = service.ConfirmPayment(context.Background(), "pay-1", "ch_1")

		require.NoError(t, err)
		settlementRepo.AssertExpectations(t)
	})

	t.Run("a duplicate success event is a no-op", func(t *testing.T) {
		_, settlementRepo, _, service := newSettlementFixture()

		now := time.Now()
		settlementRepo.On("GetByPaymentRef", mock.Anything, "pay-1").Return(&entities.Settlement{
			ID:              "stl-1",
			AppointmentID:   "appt-1",
			RequesterPaid:   true,
			RequesterPaidAt: &now,
			Status:          entities.SettlementStatusCompleted,
		}, nil)

		err := service.ConfirmPayment(context.Background(), "pay-1", "ch_1")

		require.NoError(t, err)
		settlementRepo.AssertNotCalled(t, "Update")
	})
}

func TestSettlementService_MarkPaymentFailed(t *testing.T) {
	t.Run("moves an unpaid settlement to failed", func(t *testing.T) {
		_, settlementRepo, _, service := newSettlementFixture()

		settlementRepo.On("GetByPaymentRef", mock.Anything, "pay-1").Return(&entities.Settlement{
			ID:            "stl-1",
			AppointmentID: "appt-1",
			Status:        entities.SettlementStatusProcessing,
		}, nil)
		settlementRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *entities.Settlement) bool {
			return s.Status == entities.SettlementStatusFailed
		})).Return(nil)

		err := service.MarkPaymentFailed(context.Background(), "pay-1")

		require.NoError(t, err)
		settlementRepo.AssertExpectations(t)
	})

	t.Run("ignores a failure event after a successful payment", func(t *testing.T) {
		_, settlementRepo, _, service := newSettlementFixture()

		now := time.Now()
		settlementRepo.On("GetByPaymentRef", mock.Anything, "pay-1").Return(&entities.Settlement{
			ID:              "stl-1",
			RequesterPaid:   true,
			RequesterPaidAt: &now,
			Status:          entities.SettlementStatusCompleted,
		}, nil)

		err := service.MarkPaymentFailed(context.Background(), "pay-1")

		require.NoError(t, err)
		settlementRepo.AssertNotCalled(t, "Update")
	})

	t.Run("a repeated failure event is a no-op", func(t *testing.T) {
		_, settlementRepo, _, service := newSettlementFixture()

		settlementRepo.On("GetByPaymentRef", mock.Anything, "pay-1").Return(&entities.Settlement{
			ID:     "stl-1",
			Status: entities.SettlementStatusFailed,
		}, nil)

		err := service.MarkPaymentFailed(context.Background(), "pay-1")

		require.NoError(t, err)
		settlementRepo.AssertNotCalled(t, "Update")
	})
}

func TestSettlementService_ApplyRefund(t *testing.T) {
	t.Run("an already refunded settlement is not refunded twice", func(t *testing.T) {
		_, settlementRepo, payments, service := newSettlementFixture()

		settlementRepo.On("GetByAppointmentID", mock.Anything, "appt-1").Return(&entities.Settlement{
			ID:            "stl-1",
			AppointmentID: "appt-1",
			Refunded:      true,
			RequesterPaid: true,
			Status:        entities.SettlementStatusRefunded,
		}, nil)

		err := service.ApplyRefund(context.Background(), &entities.Appointment{ID: "appt-1"}, "", time.Now())

		require.NoError(t, err)
		payments.AssertNotCalled(t, "RefundCharge")
		settlementRepo.AssertNotCalled(t, "Update")
	})

	t.Run("nothing to refund when the requester never paid", func(t *testing.T) {
		_, settlementRepo, payments, service := newSettlementFixture()

		settlementRepo.On("GetByAppointmentID", mock.Anything, "appt-1").Return(&entities.Settlement{
			ID:            "stl-1",
			AppointmentID: "appt-1",
			Status:        entities.SettlementStatusProcessing,
		}, nil)

		err := service.ApplyRefund(context.Background(), &entities.Appointment{ID: "appt-1"}, "", time.Now())

		require.NoError(t, err)
		payments.AssertNotCalled(t, "RefundCharge")
	})

	t.Run("partial refund moves half the commission into the payout", func(t *testing.T) {
		_, settlementRepo, payments, service := newSettlementFixture()

		now := time.Now()
		startAt := now.Add(5 * time.Hour)
		appointment := &entities.Appointment{
			ID:              "appt-1",
			Date:            startAt.Format("2006-01-02"),
			StartTime:       startAt.Format("15:04"),
			DurationMinutes: 30,
		}
		paidAt := now.Add(-time.Hour)
		settlementRepo.On("GetByAppointmentID", mock.Anything, "appt-1").Return(&entities.Settlement{
			ID:               "stl-1",
			AppointmentID:    "appt-1",
			Price:            100,
			CommissionAmount: 5,
			PayoutAmount:     95,
			Status:           entities.SettlementStatusCompleted,
			RequesterPaid:    true,
			RequesterPaidAt:  &paidAt,
			ChargeRef:        strPtr("ch_1"),
		}, nil)
		payments.On("RefundCharge", mock.Anything, "ch_1", 50.0, "usd", "conflict").Return("re_1", nil)
		settlementRepo.On("Update", mock.Anything, mock.MatchedBy(func(s *entities.Settlement) bool {
			return s.Refunded &&
				s.RefundAmount == 50.0 &&
				s.Status == entities.SettlementStatusPartiallyRefunded &&
				s.PayoutAmount == 97.5
		})).Return(nil)
		settlementRepo.On("CreateRefundRecord", mock.Anything, mock.MatchedBy(func(r *entities.RefundRecord) bool {
			return r.RefundType == entities.RefundTypePartial &&
				r.ExternalRefundRef != nil && *r.ExternalRefundRef == "re_1"
		})).Return(nil)

		err := service.ApplyRefund(context.Background(), appointment, "conflict", now)

		require.NoError(t, err)
		settlementRepo.AssertExpectations(t)
	})
}
