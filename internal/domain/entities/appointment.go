package entities

import (
	"fmt"
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "PENDING"
	AppointmentStatusConfirmed AppointmentStatus = "CONFIRMED"
	AppointmentStatusCompleted AppointmentStatus = "COMPLETED"
	AppointmentStatusCancelled AppointmentStatus = "CANCELLED"
)

// legalTransitions is the full transition table. COMPLETED and CANCELLED are
// terminal; everything not listed here is rejected.
var legalTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending:   {AppointmentStatusConfirmed, AppointmentStatusCancelled},
	AppointmentStatusConfirmed: {AppointmentStatusCompleted, AppointmentStatusCancelled},
}

// Appointment represents a booked time interval between a provider and a requester.
// Cancellation is a status change, never a physical delete.
type Appointment struct {
	ID                string            `json:"id" db:"id"`
	ProviderID        string            `json:"provider_id" db:"provider_id"`
	RequesterID       string            `json:"requester_id" db:"requester_id"`
	Date              string            `json:"date" db:"date"`
	StartTime         string            `json:"start_time" db:"start_time"`
	DurationMinutes   int               `json:"duration_minutes" db:"duration_minutes"`
	Status            AppointmentStatus `json:"status" db:"status"`
	Reason            string            `json:"reason" db:"reason"`
	Notes             string            `json:"notes" db:"notes"`
	AppointmentTypeID *string           `json:"appointment_type_id,omitempty" db:"appointment_type_id"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

// CanTransitionTo reports whether moving to next is legal from the current status
func (a *Appointment) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range legalTransitions[a.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the appointment is in a terminal status
func (a *Appointment) IsTerminal() bool {
	return a.Status == AppointmentStatusCompleted || a.Status == AppointmentStatusCancelled
}

// StartAt returns the appointment start as a wall-clock instant in loc
func (a *Appointment) StartAt(loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02 15:04", a.Date+" "+a.StartTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid appointment date/time %q %q: %w", a.Date, a.StartTime, err)
	}
	return t, nil
}

// EndAt returns the appointment end instant (start + duration) in loc
func (a *Appointment) EndAt(loc *time.Location) (time.Time, error) {
	start, err := a.StartAt(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(a.DurationMinutes) * time.Minute), nil
}

// Interval returns the appointment's half-open interval in minutes since midnight
func (a *Appointment) Interval() (start, end int, err error) {
	start, err = MinutesOfDay(a.StartTime)
	if err != nil {
		return 0, 0, err
	}
	return start, start + a.DurationMinutes, nil
}

// Overlaps reports whether two half-open minute intervals intersect
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// MinutesOfDay parses a 24-hour HH:MM string into minutes since midnight
func MinutesOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatMinutes renders minutes since midnight as an HH:MM string
func FormatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// AppointmentType describes a bookable service a provider offers. RequiresPayment
// is explicit: a settlement is created only when it is set and Price > 0.
type AppointmentType struct {
	ID              string    `json:"id" db:"id"`
	ProviderID      string    `json:"provider_id" db:"provider_id"`
	Name            string    `json:"name" db:"name"`
	DurationMinutes int       `json:"duration_minutes" db:"duration_minutes"`
	Price           float64   `json:"price" db:"price"`
	RequiresPayment bool      `json:"requires_payment" db:"requires_payment"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
