package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/slotcare/booking-backend/internal/application/services"
)

// PayoutSweeper runs the payout sweep
type PayoutSweeper interface {
	RunSweep(ctx context.Context, now time.Time) (services.SweepResult, error)
}

// PayoutHandler exposes the manual sweep trigger for operators
type PayoutHandler struct {
	payouts PayoutSweeper
}

// NewPayoutHandler creates a new payout handler
func NewPayoutHandler(payouts PayoutSweeper) *PayoutHandler {
	return &PayoutHandler{payouts: payouts}
}

// TriggerSweep handles POST /internal/payouts/sweep
func (h *PayoutHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.payouts.RunSweep(r.Context(), time.Now())
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
