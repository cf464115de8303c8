package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slotcare/booking-backend/internal/application/services"
)

func TestCalculateCommission(t *testing.T) {
	t.Run("splits price at the platform percentage", func(t *testing.T) {
		split := services.CalculateCommission(100, 5)

		assert.Equal(t, 5.00, split.CommissionAmount)
		assert.Equal(t, 95.00, split.PayoutAmount)
		assert.Equal(t, 5.0, split.PercentageUsed)
	})

	t.Run("rounds to cents", func(t *testing.T) {
		split := services.CalculateCommission(99.99, 7.5)

		assert.Equal(t, 7.50, split.CommissionAmount)
		assert.Equal(t, 92.49, split.PayoutAmount)
	})

	t.Run("commission and payout always sum back to price", func(t *testing.T) {
		for _, price := range []float64{10, 33.33, 49.95, 100, 250.01} {
			split := services.CalculateCommission(price, 5)
			assert.InDelta(t, price, split.CommissionAmount+split.PayoutAmount, 0.01)
		}
	})

	t.Run("zero percentage pays out everything", func(t *testing.T) {
		split := services.CalculateCommission(80, 0)

		assert.Equal(t, 0.0, split.CommissionAmount)
		assert.Equal(t, 80.0, split.PayoutAmount)
	})
}
