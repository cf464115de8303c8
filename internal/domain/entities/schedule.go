package entities

import (
	"time"
)

// ProviderWorkingHours is one provider's window for a single day of week.
// DayOfWeek follows time.Weekday (0 = Sunday).
type ProviderWorkingHours struct {
	ID         string    `json:"id" db:"id"`
	ProviderID string    `json:"provider_id" db:"provider_id"`
	DayOfWeek  int       `json:"day_of_week" db:"day_of_week"`
	StartTime  string    `json:"start_time" db:"start_time"`
	EndTime    string    `json:"end_time" db:"end_time"`
	IsWorking  bool      `json:"is_working" db:"is_working"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ProviderAvailability holds a provider's booking rules. AllowedTimeSlots is an
// optional allow-list of HH:MM starts; when non-empty, generated candidates are
// intersected with it.
type ProviderAvailability struct {
	ID                   string    `json:"id" db:"id"`
	ProviderID           string    `json:"provider_id" db:"provider_id"`
	AllowedTimeSlots     []string  `json:"allowed_time_slots" db:"allowed_time_slots"`
	SlotDurationMinutes  int       `json:"slot_duration_minutes" db:"slot_duration_minutes"`
	BookingAdvanceDaysMax int      `json:"booking_advance_days_max" db:"booking_advance_days_max"`
	MinBookingHoursAhead int       `json:"min_booking_hours_ahead" db:"min_booking_hours_ahead"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}
