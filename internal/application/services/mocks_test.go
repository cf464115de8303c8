package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/slotcare/booking-backend/internal/domain/entities"
	"github.com/slotcare/booking-backend/internal/domain/repositories"
)

// Mocks shared by the service tests

type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) CreateBooked(ctx context.Context, appointment *entities.Appointment, settlement *entities.Settlement) error {
	args := m.Called(ctx, appointment, settlement)
	return args.Error(0)
}

func (m *MockAppointmentRepository) Reschedule(ctx context.Context, appointment *entities.Appointment) error {
	args := m.Called(ctx, appointment)
	return args.Error(0)
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) UpdateStatus(ctx context.Context, id string, from, to entities.AppointmentStatus, reason string) error {
	args := m.Called(ctx, id, from, to, reason)
	return args.Error(0)
}

func (m *MockAppointmentRepository) ListForProviderDate(ctx context.Context, spec repositories.ProviderDateSpec) ([]*entities.Appointment, error) {
	args := m.Called(ctx, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) GetAppointmentType(ctx context.Context, id string) (*entities.AppointmentType, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.AppointmentType), args.Error(1)
}

type MockSettlementRepository struct {
	mock.Mock
}

func (m *MockSettlementRepository) GetByAppointmentID(ctx context.Context, appointmentID string) (*entities.Settlement, error) {
	args := m.Called(ctx, appointmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) GetByPaymentRef(ctx context.Context, paymentRef string) (*entities.Settlement, error) {
	args := m.Called(ctx, paymentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) GetByTransferRef(ctx context.Context, transferRef string) (*entities.Settlement, error) {
	args := m.Called(ctx, transferRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) Update(ctx context.Context, settlement *entities.Settlement) error {
	args := m.Called(ctx, settlement)
	return args.Error(0)
}

func (m *MockSettlementRepository) ListPayoutDue(ctx context.Context, now time.Time, limit int) ([]*entities.Settlement, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Settlement), args.Error(1)
}

func (m *MockSettlementRepository) MarkProviderPaid(ctx context.Context, settlementID string, paidAt time.Time, transferRef string) (bool, error) {
	args := m.Called(ctx, settlementID, paidAt, transferRef)
	return args.Bool(0), args.Error(1)
}

func (m *MockSettlementRepository) ResetProviderPaid(ctx context.Context, settlementID string) error {
	args := m.Called(ctx, settlementID)
	return args.Error(0)
}

func (m *MockSettlementRepository) CreateRefundRecord(ctx context.Context, record *entities.RefundRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSettlementRepository) RecordWebhookEvent(ctx context.Context, event *entities.WebhookEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockSettlementRepository) MarkWebhookEvent(ctx context.Context, eventID string, status entities.WebhookEventStatus, procErr error) error {
	args := m.Called(ctx, eventID, status, procErr)
	return args.Error(0)
}

type MockProviderRepository struct {
	mock.Mock
}

func (m *MockProviderRepository) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Provider), args.Error(1)
}

func (m *MockProviderRepository) GetWorkingHours(ctx context.Context, providerID string, dayOfWeek int) (*entities.ProviderWorkingHours, error) {
	args := m.Called(ctx, providerID, dayOfWeek)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ProviderWorkingHours), args.Error(1)
}

func (m *MockProviderRepository) GetAvailability(ctx context.Context, providerID string) (*entities.ProviderAvailability, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ProviderAvailability), args.Error(1)
}

type MockSettingsRepository struct {
	mock.Mock
}

func (m *MockSettingsRepository) Get(ctx context.Context) (*entities.PlatformSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PlatformSettings), args.Error(1)
}

type MockPaymentProvider struct {
	mock.Mock
}

func (m *MockPaymentProvider) RefundCharge(ctx context.Context, chargeRef string, amount float64, currency string, reason string) (string, error) {
	args := m.Called(ctx, chargeRef, amount, currency, reason)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentProvider) Transfer(ctx context.Context, accountID string, amount float64, currency string, description string) (string, error) {
	args := m.Called(ctx, accountID, amount, currency, description)
	return args.String(0), args.Error(1)
}
