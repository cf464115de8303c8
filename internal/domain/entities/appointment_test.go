package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slotcare/booking-backend/internal/domain/entities"
)

func TestAppointment_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from    entities.AppointmentStatus
		to      entities.AppointmentStatus
		allowed bool
	}{
		{entities.AppointmentStatusPending, entities.AppointmentStatusConfirmed, true},
		{entities.AppointmentStatusPending, entities.AppointmentStatusCancelled, true},
		{entities.AppointmentStatusPending, entities.AppointmentStatusCompleted, false},
		{entities.AppointmentStatusConfirmed, entities.AppointmentStatusCompleted, true},
		{entities.AppointmentStatusConfirmed, entities.AppointmentStatusCancelled, true},
		{entities.AppointmentStatusConfirmed, entities.AppointmentStatusPending, false},
		{entities.AppointmentStatusCompleted, entities.AppointmentStatusCancelled, false},
		{entities.AppointmentStatusCancelled, entities.AppointmentStatusConfirmed, false},
	}

	for _, tc := range cases {
		appt := &entities.Appointment{Status: tc.from}
		assert.Equal(t, tc.allowed, appt.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestOverlaps(t *testing.T) {
	// Half-open intervals: touching endpoints do not overlap.
	assert.False(t, entities.Overlaps(540, 570, 570, 600))
	assert.False(t, entities.Overlaps(570, 600, 540, 570))
	assert.True(t, entities.Overlaps(540, 600, 570, 630))
	assert.True(t, entities.Overlaps(540, 600, 550, 560))
	assert.True(t, entities.Overlaps(550, 560, 540, 600))
	assert.False(t, entities.Overlaps(540, 570, 600, 630))
}

func TestMinutesOfDay(t *testing.T) {
	m, err := entities.MinutesOfDay("09:30")
	assert.NoError(t, err)
	assert.Equal(t, 570, m)

	_, err = entities.MinutesOfDay("9:30am")
	assert.Error(t, err)

	assert.Equal(t, "09:30", entities.FormatMinutes(570))
	assert.Equal(t, "00:00", entities.FormatMinutes(0))
}
