package entities

import (
	"time"
)

// Provider is the bookable party (the doctor/clinician side of an appointment)
type Provider struct {
	ID                  string    `json:"id" db:"id"`
	Name                string    `json:"name" db:"name"`
	Specialty           string    `json:"specialty" db:"specialty"`
	PayoutAccountID     *string   `json:"payout_account_id,omitempty" db:"payout_account_id"`
	PayoutAccountActive bool      `json:"payout_account_active" db:"payout_account_active"`
	IsActive            bool      `json:"is_active" db:"is_active"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// HasActivePayoutAccount reports whether payouts can be disbursed right now.
// A missing or inactive account never blocks confirmation, it only delays payout.
func (p *Provider) HasActivePayoutAccount() bool {
	return p.PayoutAccountID != nil && *p.PayoutAccountID != "" && p.PayoutAccountActive
}
