package repositories

import (
	"context"
	"time"

	"github.com/slotcare/booking-backend/internal/domain/entities"
)

// SettlementRepository defines the interface for settlement data operations
type SettlementRepository interface {
	// GetByAppointmentID retrieves the settlement tied to an appointment, or a
	// NOT_FOUND error when the appointment is unpriced.
	GetByAppointmentID(ctx context.Context, appointmentID string) (*entities.Settlement, error)

	// GetByPaymentRef retrieves a settlement by its external payment reference
	GetByPaymentRef(ctx context.Context, paymentRef string) (*entities.Settlement, error)

	// GetByTransferRef retrieves a settlement by its external transfer reference
	GetByTransferRef(ctx context.Context, transferRef string) (*entities.Settlement, error)

	// Update persists the mutable settlement fields
	Update(ctx context.Context, settlement *entities.Settlement) error

	// ListPayoutDue retrieves settlements eligible for the payout sweep:
	// requester paid, provider unpaid, scheduled at or before now, status
	// COMPLETED or PARTIALLY_REFUNDED.
	ListPayoutDue(ctx context.Context, now time.Time, limit int) ([]*entities.Settlement, error)

	// MarkProviderPaid sets provider_paid with a compare-and-set on
	// provider_paid = false and returns false when another sweep won the race.
	MarkProviderPaid(ctx context.Context, settlementID string, paidAt time.Time, transferRef string) (bool, error)

	// ResetProviderPaid clears the provider payout marker after a reversed or
	// failed transfer, leaving the settlement for manual retry.
	ResetProviderPaid(ctx context.Context, settlementID string) error

	// CreateRefundRecord appends a refund audit row
	CreateRefundRecord(ctx context.Context, record *entities.RefundRecord) error

	// RecordWebhookEvent stores an inbound provider event; it returns
	// ErrDuplicateEvent semantics via a CONFLICT error when the provider event
	// id was already seen.
	RecordWebhookEvent(ctx context.Context, event *entities.WebhookEvent) error

	// MarkWebhookEvent updates the stored event's processing outcome
	MarkWebhookEvent(ctx context.Context, eventID string, status entities.WebhookEventStatus, procErr error) error
}
