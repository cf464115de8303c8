package services

import (
	"math"
)

// CommissionSplit is the outcome of splitting an appointment price between the
// platform and the provider.
type CommissionSplit struct {
	CommissionAmount float64
	PayoutAmount     float64
	PercentageUsed   float64
}

// CalculateCommission splits price into platform commission and provider
// payout at the given percentage. Amounts are rounded to cents; the payout is
// derived from the rounded commission so the two always sum back to the price.
// The percentage must be the one snapshotted at settlement creation, never the
// current platform rate.
func CalculateCommission(price, percentage float64) CommissionSplit {
	commission := roundCents(price * percentage / 100)
	return CommissionSplit{
		CommissionAmount: commission,
		PayoutAmount:     roundCents(price - commission),
		PercentageUsed:   percentage,
	}
}

// roundCents rounds half away from zero to two decimals
func roundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
