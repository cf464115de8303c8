package services

import (
	"context"
	"fmt"
	"time"

	"github.com/slotcare/booking-backend/internal/domain/entities"
	"github.com/slotcare/booking-backend/internal/domain/repositories"
	apperrors "github.com/slotcare/booking-backend/pkg/errors"
)

// AvailabilityService derives bookable slot start times from working hours,
// booking rules and existing appointments.
type AvailabilityService struct {
	providerRepo       repositories.ProviderRepository
	appointmentRepo    repositories.AppointmentRepository
	defaultSlotMinutes int
	location           *time.Location
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(
	providerRepo repositories.ProviderRepository,
	appointmentRepo repositories.AppointmentRepository,
	defaultSlotMinutes int,
	location *time.Location,
) *AvailabilityService {
	if location == nil {
		location = time.Local
	}
	return &AvailabilityService{
		providerRepo:       providerRepo,
		appointmentRepo:    appointmentRepo,
		defaultSlotMinutes: defaultSlotMinutes,
		location:           location,
	}
}

// GetAvailableSlots returns ascending HH:MM start times bookable for the
// provider on the given date. durationMinutes <= 0 means the provider's slot
// duration.
func (s *AvailabilityService) GetAvailableSlots(ctx context.Context, providerID, date string, durationMinutes int) ([]string, error) {
	return s.availableSlots(ctx, providerID, date, durationMinutes, "")
}

// GetAvailableSlotsForType lists slots sized to an appointment type's duration.
func (s *AvailabilityService) GetAvailableSlotsForType(ctx context.Context, providerID, date, appointmentTypeID string) ([]string, error) {
	apptType, err := s.appointmentRepo.GetAppointmentType(ctx, appointmentTypeID)
	if err != nil {
		return nil, err
	}
	if !apptType.IsActive {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("appointment type %s is not active", appointmentTypeID))
	}
	return s.availableSlots(ctx, providerID, date, apptType.DurationMinutes, "")
}

// availableSlots is GetAvailableSlots with an optional appointment to ignore,
// used when rescheduling so the appointment's current slot does not block its
// own move.
func (s *AvailabilityService) availableSlots(ctx context.Context, providerID, date string, durationMinutes int, excludeAppointmentID string) ([]string, error) {
	day, err := time.ParseInLocation("2006-01-02", date, s.location)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid date, expected YYYY-MM-DD")
	}

	hours, err := s.providerRepo.GetWorkingHours(ctx, providerID, int(day.Weekday()))
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	if !hours.IsWorking {
		return []string{}, nil
	}

	rules := s.bookingRules(ctx, providerID)
	if durationMinutes <= 0 {
		durationMinutes = rules.SlotDurationMinutes
	}

	windowStart, err := entities.MinutesOfDay(hours.StartTime)
	if err != nil {
		return nil, apperrors.NewInternalError("invalid working hours start", err)
	}
	windowEnd, err := entities.MinutesOfDay(hours.EndTime)
	if err != nil {
		return nil, apperrors.NewInternalError("invalid working hours end", err)
	}

	candidates := make([]int, 0, (windowEnd-windowStart)/rules.SlotDurationMinutes+1)
	for start := windowStart; start < windowEnd; start += rules.SlotDurationMinutes {
		if start+durationMinutes > windowEnd {
			break
		}
		candidates = append(candidates, start)
	}

	if len(rules.AllowedTimeSlots) > 0 {
		candidates = intersectAllowed(candidates, rules.AllowedTimeSlots)
	}

	booked, err := s.appointmentRepo.ListForProviderDate(ctx, repositories.ProviderDateSpec{
		ProviderID:       providerID,
		Date:             date,
		ExcludeCancelled: true,
		ExcludeID:        excludeAppointmentID,
	})
	if err != nil {
		return nil, err
	}

	slots := make([]string, 0, len(candidates))
	for _, start := range candidates {
		if overlapsAny(start, start+durationMinutes, booked) {
			continue
		}
		slots = append(slots, entities.FormatMinutes(start))
	}
	return slots, nil
}

// bookingRules returns the provider's availability row, falling back to the
// platform defaults when none is configured.
func (s *AvailabilityService) bookingRules(ctx context.Context, providerID string) *entities.ProviderAvailability {
	rules, err := s.providerRepo.GetAvailability(ctx, providerID)
	if err != nil || rules == nil {
		return &entities.ProviderAvailability{
			ProviderID:          providerID,
			SlotDurationMinutes: s.defaultSlotMinutes,
		}
	}
	if rules.SlotDurationMinutes <= 0 {
		rules.SlotDurationMinutes = s.defaultSlotMinutes
	}
	return rules
}

func intersectAllowed(candidates []int, allowed []string) []int {
	allowedSet := make(map[int]struct{}, len(allowed))
	for _, hhmm := range allowed {
		if m, err := entities.MinutesOfDay(hhmm); err == nil {
			allowedSet[m] = struct{}{}
		}
	}

	kept := candidates[:0]
	for _, start := range candidates {
		if _, ok := allowedSet[start]; ok {
			kept = append(kept, start)
		}
	}
	return kept
}

func overlapsAny(start, end int, appointments []*entities.Appointment) bool {
	for _, appt := range appointments {
		bStart, bEnd, err := appt.Interval()
		if err != nil {
			continue
		}
		if entities.Overlaps(start, end, bStart, bEnd) {
			return true
		}
	}
	return false
}
