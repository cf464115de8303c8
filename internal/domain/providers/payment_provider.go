package providers

import (
	"context"
)

// PaymentProvider defines the interface for the external payment service
// (Stripe, or a mock in development). The core never speaks the provider's wire
// protocol directly; it only holds the reference ids the provider hands back.
// Charges are initiated by the outer layers; this core consumes their outcome
// through webhook events and initiates refunds and provider transfers.
type PaymentProvider interface {
	// RefundCharge refunds amount (major units) of the given charge and
	// returns the provider's refund reference.
	RefundCharge(ctx context.Context, chargeRef string, amount float64, currency string, reason string) (string, error)

	// Transfer moves amount (major units) to the provider's external payout
	// account and returns the provider's transfer reference.
	Transfer(ctx context.Context, accountID string, amount float64, currency string, description string) (string, error)
}
