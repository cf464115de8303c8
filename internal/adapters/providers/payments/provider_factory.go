package payments

import (
	"context"
	"errors"

	"github.com/slotcare/booking-backend/internal/domain/providers"
)

// PaymentProviderConfig configures payment providers.
type PaymentProviderConfig struct {
	StripeAPIKey      string
	AllowMockFallback bool
}

// NewPaymentProvider creates a resilient provider with optional mock fallback.
func NewPaymentProvider(cfg PaymentProviderConfig) providers.PaymentProvider {
	if cfg.StripeAPIKey == "" {
		// No real provider configured; use mock provider for dev.
		return NewMockAdapter()
	}

	primary := NewStripeAdapter(cfg.StripeAPIKey)
	fallback := NewMockAdapter()

	return &FallbackProvider{
		primary:       primary,
		fallback:      fallback,
		allowFallback: cfg.AllowMockFallback,
	}
}

// FallbackProvider wraps a primary provider with optional mock fallback.
type FallbackProvider struct {
	primary       providers.PaymentProvider
	fallback      providers.PaymentProvider
	allowFallback bool
}

func (p *FallbackProvider) RefundCharge(ctx context.Context, chargeRef string, amount float64, currency string, reason string) (string, error) {
	if p.primary == nil {
		if p.fallback != nil {
			return p.fallback.RefundCharge(ctx, chargeRef, amount, currency, reason)
		}
		return "", errors.New("payment provider not configured")
	}

	ref, err := p.primary.RefundCharge(ctx, chargeRef, amount, currency, reason)
	if err != nil && p.allowFallback && p.fallback != nil {
		return p.fallback.RefundCharge(ctx, chargeRef, amount, currency, reason)
	}
	return ref, err
}

func (p *FallbackProvider) Transfer(ctx context.Context, accountID string, amount float64, currency string, description string) (string, error) {
	if p.primary == nil {
		if p.fallback != nil {
			return p.fallback.Transfer(ctx, accountID, amount, currency, description)
		}
		return "", errors.New("payment provider not configured")
	}

	ref, err := p.primary.Transfer(ctx, accountID, amount, currency, description)
	if err != nil && p.allowFallback && p.fallback != nil {
		return p.fallback.Transfer(ctx, accountID, amount, currency, description)
	}
	return ref, err
}
