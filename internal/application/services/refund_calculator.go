package services

import (
	"time"

	"github.com/slotcare/booking-backend/internal/domain/entities"
)

// RefundOutcome is the tiered refund decision for one cancellation.
// CommissionRefund is the platform's waived cut: it moves into the provider's
// payout rather than back to the requester.
type RefundOutcome struct {
	RefundType             entities.RefundType
	PatientRefund          float64
	CommissionRefund       float64
	HoursBeforeAppointment int
}

// CalculateRefund applies the cancellation tiers by whole hours remaining
// before the appointment: 24h or more refunds everything, one hour or more
// refunds half, anything less refunds nothing.
func CalculateRefund(price, commission float64, appointmentAt, now time.Time) RefundOutcome {
	hoursBefore := int(appointmentAt.Sub(now).Hours())
	if appointmentAt.Before(now) {
		hoursBefore = 0
	}

	switch {
	case hoursBefore >= 24:
		return RefundOutcome{
			RefundType:             entities.RefundTypeFull,
			PatientRefund:          roundCents(price),
			CommissionRefund:       roundCents(commission),
			HoursBeforeAppointment: hoursBefore,
		}
	case hoursBefore >= 1:
		return RefundOutcome{
			RefundType:             entities.RefundTypePartial,
			PatientRefund:          roundCents(price * 0.5),
			CommissionRefund:       roundCents(commission * 0.5),
			HoursBeforeAppointment: hoursBefore,
		}
	default:
		return RefundOutcome{
			RefundType:             entities.RefundTypeNone,
			HoursBeforeAppointment: hoursBefore,
		}
	}
}
