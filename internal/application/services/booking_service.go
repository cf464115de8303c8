package services

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/slotcare/booking-backend/internal/domain/entities"
	"github.com/slotcare/booking-backend/internal/domain/repositories"
	"github.com/slotcare/booking-backend/internal/infrastructure/observability"
	apperrors "github.com/slotcare/booking-backend/pkg/errors"
)

var timeOfDayRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// BookingRules are the advance-window defaults applied when a provider has no
// availability row.
type BookingRules struct {
	AdvanceDaysMax int
	MinHoursAhead  int
	CommissionPct  float64
}

// BookAppointmentRequest carries the booking input from the outer layers
type BookAppointmentRequest struct {
	ProviderID        string
	RequesterID       string
	Date              string
	StartTime         string
	DurationMinutes   int
	Reason            string
	Notes             string
	AppointmentTypeID string
}

// BookingService validates and atomically commits new and rescheduled
// appointments. The pre-checks here are advisory; the overlap re-check inside
// the repository's serializable transaction is the correctness guarantee.
type BookingService struct {
	appointmentRepo repositories.AppointmentRepository
	providerRepo    repositories.ProviderRepository
	settingsRepo    repositories.SettingsRepository
	availability    *AvailabilityService
	settlements     *SettlementService
	defaults        BookingRules
	location        *time.Location
}

// NewBookingService creates a new booking service
func NewBookingService(
	appointmentRepo repositories.AppointmentRepository,
	providerRepo repositories.ProviderRepository,
	settingsRepo repositories.SettingsRepository,
	availability *AvailabilityService,
	settlements *SettlementService,
	defaults BookingRules,
	location *time.Location,
) *BookingService {
	if location == nil {
		location = time.Local
	}
	return &BookingService{
		appointmentRepo: appointmentRepo,
		providerRepo:    providerRepo,
		settingsRepo:    settingsRepo,
		availability:    availability,
		settlements:     settlements,
		defaults:        defaults,
		location:        location,
	}
}

// Book validates the requested slot and atomically creates the appointment,
// together with its settlement when the appointment type is priced.
func (s *BookingService) Book(ctx context.Context, req BookAppointmentRequest) (*entities.Appointment, error) {
	if req.ProviderID == "" || req.RequesterID == "" {
		return nil, apperrors.NewValidationError("provider_id and requester_id are required")
	}

	duration := req.DurationMinutes
	price := 0.0
	var typeID *string
	if req.AppointmentTypeID != "" {
		apptType, err := s.appointmentRepo.GetAppointmentType(ctx, req.AppointmentTypeID)
		if err != nil {
			return nil, err
		}
		if !apptType.IsActive {
			return nil, apperrors.NewValidationError("appointment type is not active")
		}
		duration = apptType.DurationMinutes
		if apptType.RequiresPayment {
			price = apptType.Price
		}
		typeID = &apptType.ID
	}

	appointment := &entities.Appointment{
		ID:                uuid.New().String(),
		ProviderID:        req.ProviderID,
		RequesterID:       req.RequesterID,
		Date:              req.Date,
		StartTime:         req.StartTime,
		DurationMinutes:   duration,
		Status:            entities.AppointmentStatusPending,
		Reason:            req.Reason,
		Notes:             req.Notes,
		AppointmentTypeID: typeID,
	}

	if err := s.validateSlot(ctx, appointment, ""); err != nil {
		return nil, err
	}

	settlement, err := s.buildSettlement(ctx, appointment, price)
	if err != nil {
		return nil, err
	}

	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	if err := s.appointmentRepo.CreateBooked(ctx, appointment, settlement); err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Info().
		Str("appointment_id", appointment.ID).
		Str("provider_id", appointment.ProviderID).
		Str("date", appointment.Date).
		Str("start_time", appointment.StartTime).
		Bool("priced", settlement != nil).
		Msg("appointment booked")

	return appointment, nil
}

// Reschedule moves an appointment to a new date/time using the same
// validation and conflict pipeline as booking, keeping the existing duration.
// The settlement is untouched and the status resets to PENDING.
func (s *BookingService) Reschedule(ctx context.Context, appointmentID, date, startTime string) (*entities.Appointment, error) {
	appointment, err := s.appointmentRepo.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.IsTerminal() {
		return nil, apperrors.NewStateError("cannot reschedule a completed or cancelled appointment").
			WithCode(apperrors.CodeInvalidTransition)
	}

	appointment.Date = date
	appointment.StartTime = startTime
	if err := s.validateSlot(ctx, appointment, appointment.ID); err != nil {
		return nil, err
	}

	appointment.Status = entities.AppointmentStatusPending
	appointment.UpdatedAt = time.Now()
	if err := s.appointmentRepo.Reschedule(ctx, appointment); err != nil {
		return nil, err
	}

	// The move is committed; a paid settlement must now wait for the new
	// start time before the sweep disburses it.
	if s.settlements != nil {
		if err := s.settlements.ReschedulePayout(ctx, appointment); err != nil {
			observability.LoggerFromContext(ctx).Error().Err(err).
				Str("appointment_id", appointment.ID).
				Msg("failed to realign payout schedule after reschedule")
		}
	}

	observability.LoggerFromContext(ctx).Info().
		Str("appointment_id", appointment.ID).
		Str("date", date).
		Str("start_time", startTime).
		Msg("appointment rescheduled")

	return appointment, nil
}

// validateSlot runs the advisory booking pipeline: format checks, advance
// window, working-hours containment and the availability pre-check.
func (s *BookingService) validateSlot(ctx context.Context, appointment *entities.Appointment, excludeAppointmentID string) error {
	if !timeOfDayRe.MatchString(appointment.StartTime) {
		return apperrors.NewValidationError("invalid time, expected 24-hour HH:MM")
	}
	if appointment.DurationMinutes <= 0 {
		return apperrors.NewValidationError("duration must be positive")
	}

	startAt, err := appointment.StartAt(s.location)
	if err != nil {
		return apperrors.NewValidationError("invalid date, expected YYYY-MM-DD")
	}

	now := time.Now()
	if !startAt.After(now) {
		return apperrors.NewValidationError("appointment must be in the future")
	}

	rules := s.advanceRules(ctx, appointment.ProviderID)
	if startAt.After(now.AddDate(0, 0, rules.AdvanceDaysMax)) {
		return apperrors.NewValidationError("appointment is too far in advance").
			WithCode(apperrors.CodeBookingTooFarAdvance)
	}
	if startAt.Before(now.Add(time.Duration(rules.MinHoursAhead) * time.Hour)) {
		return apperrors.NewValidationError("appointment is too soon").
			WithCode(apperrors.CodeBookingTooSoon)
	}

	hours, err := s.providerRepo.GetWorkingHours(ctx, appointment.ProviderID, int(startAt.Weekday()))
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return apperrors.NewValidationError("provider does not work on this day").
				WithCode(apperrors.CodeDoctorNotWorking)
		}
		return err
	}
	if !hours.IsWorking {
		return apperrors.NewValidationError("provider does not work on this day").
			WithCode(apperrors.CodeDoctorNotWorking)
	}

	windowStart, err := entities.MinutesOfDay(hours.StartTime)
	if err != nil {
		return apperrors.NewInternalError("invalid working hours start", err)
	}
	windowEnd, err := entities.MinutesOfDay(hours.EndTime)
	if err != nil {
		return apperrors.NewInternalError("invalid working hours end", err)
	}
	start, end, err := appointment.Interval()
	if err != nil {
		return apperrors.NewValidationError("invalid time, expected 24-hour HH:MM")
	}
	if start < windowStart || end > windowEnd {
		return apperrors.NewValidationError("appointment does not fit within working hours").
			WithCode(apperrors.CodeExceedsWorkingHours)
	}

	// Advisory pre-check. The serializable re-check in the repository is what
	// actually prevents the double-booking race.
	slots, err := s.availability.availableSlots(ctx, appointment.ProviderID, appointment.Date, appointment.DurationMinutes, excludeAppointmentID)
	if err != nil {
		return err
	}
	for _, slot := range slots {
		if slot == appointment.StartTime {
			return nil
		}
	}
	return apperrors.NewConflictError("requested slot is not available").
		WithCode(apperrors.CodeSlotNotAvailable)
}

// buildSettlement snapshots the platform commission rate and splits the price.
// Unpriced appointments get no settlement row.
func (s *BookingService) buildSettlement(ctx context.Context, appointment *entities.Appointment, price float64) (*entities.Settlement, error) {
	if price <= 0 {
		return nil, nil
	}

	percentage := s.defaults.CommissionPct
	if settings, err := s.settingsRepo.Get(ctx); err == nil {
		percentage = settings.CommissionPercentage
	}

	split := CalculateCommission(price, percentage)
	now := time.Now()
	return &entities.Settlement{
		ID:                       uuid.New().String(),
		AppointmentID:            appointment.ID,
		ProviderID:               appointment.ProviderID,
		Price:                    price,
		CommissionAmount:         split.CommissionAmount,
		CommissionPercentageUsed: split.PercentageUsed,
		PayoutAmount:             split.PayoutAmount,
		Status:                   entities.SettlementStatusProcessing,
		PaymentRef:               uuid.New().String(),
		CreatedAt:                now,
		UpdatedAt:                now,
	}, nil
}

// advanceRules returns the provider's advance window, falling back to defaults
func (s *BookingService) advanceRules(ctx context.Context, providerID string) BookingRules {
	rules := s.defaults
	availability, err := s.providerRepo.GetAvailability(ctx, providerID)
	if err != nil || availability == nil {
		return rules
	}
	if availability.BookingAdvanceDaysMax > 0 {
		rules.AdvanceDaysMax = availability.BookingAdvanceDaysMax
	}
	if availability.MinBookingHoursAhead > 0 {
		rules.MinHoursAhead = availability.MinBookingHoursAhead
	}
	return rules
}
