package payments

import (
	"context"
	"math"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/refund"
	"github.com/stripe/stripe-go/v79/transfer"

	"github.com/slotcare/booking-backend/internal/domain/providers"
	apperrors "github.com/slotcare/booking-backend/pkg/errors"
)

// StripeAdapter executes refunds and payout transfers against the Stripe API.
type StripeAdapter struct{}

// NewStripeAdapter creates a Stripe-backed payment provider. The API key is
// process-wide per the stripe-go client model.
func NewStripeAdapter(apiKey string) providers.PaymentProvider {
	stripe.Key = apiKey
	return &StripeAdapter{}
}

// RefundCharge refunds amount (major units) of the given charge.
func (s *StripeAdapter) RefundCharge(ctx context.Context, chargeRef string, amount float64, currency string, reason string) (string, error) {
	params := &stripe.RefundParams{
		Amount: stripe.Int64(toMinorUnits(amount)),
	}
	if strings.HasPrefix(chargeRef, "pi_") {
		params.PaymentIntent = stripe.String(chargeRef)
	} else {
		params.Charge = stripe.String(chargeRef)
	}
	if reason != "" {
		params.Reason = stripe.String(string(stripe.RefundReasonRequestedByCustomer))
		params.AddMetadata("cancellation_reason", reason)
	}
	params.Context = ctx

	r, err := refund.New(params)
	if err != nil {
		return "", apperrors.NewExternalError("failed to create refund", err)
	}
	return r.ID, nil
}

// Transfer moves amount (major units) to the connected payout account.
func (s *StripeAdapter) Transfer(ctx context.Context, accountID string, amount float64, currency string, description string) (string, error) {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(toMinorUnits(amount)),
		Currency:    stripe.String(currency),
		Destination: stripe.String(accountID),
	}
	if description != "" {
		params.Description = stripe.String(description)
	}
	params.Context = ctx

	t, err := transfer.New(params)
	if err != nil {
		return "", apperrors.NewExternalError("failed to create transfer", err)
	}
	return t.ID, nil
}

// toMinorUnits converts a major-unit amount to the integer cents Stripe expects.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
