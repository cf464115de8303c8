package payments

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/slotcare/booking-backend/internal/domain/providers"
)

// MockAdapter records refund and transfer calls without touching a real
// payment network. Used in local development and tests.
type MockAdapter struct {
	seq atomic.Int64
}

// NewMockAdapter creates a mock payment provider.
func NewMockAdapter() providers.PaymentProvider {
	return &MockAdapter{}
}

// RefundCharge returns a synthetic refund reference.
func (m *MockAdapter) RefundCharge(ctx context.Context, chargeRef string, amount float64, currency string, reason string) (string, error) {
	if chargeRef == "" {
		return "", fmt.Errorf("charge reference is required")
	}
	return fmt.Sprintf("mock-refund-%d", m.seq.Add(1)), nil
}

// Transfer returns a synthetic transfer reference.
func (m *MockAdapter) Transfer(ctx context.Context, accountID string, amount float64, currency string, description string) (string, error) {
	if accountID == "" {
		return "", fmt.Errorf("payout account is required")
	}
	return fmt.Sprintf("mock-transfer-%d", m.seq.Add(1)), nil
}
