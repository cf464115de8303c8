package repositories

import (
	"context"

	"github.com/slotcare/booking-backend/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// CreateBooked atomically inserts an appointment (and its settlement when
	// non-nil) after re-checking, inside a serializable transaction, that no
	// non-cancelled appointment for the same provider and date overlaps the
	// requested interval. A detected overlap or serialization failure returns
	// a CONFLICT error with code SLOT_CONFLICT.
	CreateBooked(ctx context.Context, appointment *entities.Appointment, settlement *entities.Settlement) error

	// Reschedule atomically moves an appointment to a new date/time with the
	// same in-transaction overlap re-check, resetting status to PENDING.
	Reschedule(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// UpdateStatus persists a status change together with an optional reason,
	// guarded by the expected current status to avoid lost updates.
	UpdateStatus(ctx context.Context, id string, from, to entities.AppointmentStatus, reason string) error

	// ListForProviderDate retrieves appointments for a provider on a date
	ListForProviderDate(ctx context.Context, spec ProviderDateSpec) ([]*entities.Appointment, error)

	// GetAppointmentType retrieves an appointment type by ID
	GetAppointmentType(ctx context.Context, id string) (*entities.AppointmentType, error)
}

// ProviderDateSpec is the typed query specification for same-day appointment
// lookups used by the availability calculator and the booking re-check.
type ProviderDateSpec struct {
	ProviderID       string
	Date             string
	ExcludeCancelled bool
	ExcludeID        string
}
