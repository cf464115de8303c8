package entities

import (
	"time"
)

// DefaultCommissionPercentage is used when the platform settings row is absent
const DefaultCommissionPercentage = 5.0

// PlatformSettings is the singleton platform configuration row, lazily
// initialized to defaults on first read.
type PlatformSettings struct {
	ID                   string    `json:"id" db:"id"`
	CommissionPercentage float64   `json:"commission_percentage" db:"commission_percentage"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}
