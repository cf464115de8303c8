package entities

import (
	"time"
)

// SettlementStatus represents the payment state of a settlement
type SettlementStatus string

const (
	SettlementStatusProcessing        SettlementStatus = "PROCESSING"
	SettlementStatusCompleted         SettlementStatus = "COMPLETED"
	SettlementStatusFailed            SettlementStatus = "FAILED"
	SettlementStatusRefunded          SettlementStatus = "REFUNDED"
	SettlementStatusPartiallyRefunded SettlementStatus = "PARTIALLY_REFUNDED"
)

// RefundType is the refund tier determined by hours-before-appointment
type RefundType string

const (
	RefundTypeFull    RefundType = "FULL"
	RefundTypePartial RefundType = "PARTIAL"
	RefundTypeNone    RefundType = "NO_REFUND"
)

// Settlement is the commission/payout/refund record tied 1:1 to a priced
// appointment. While unrefunded, CommissionAmount + PayoutAmount == Price
// within a cent; after a refund the waived commission moves into PayoutAmount.
type Settlement struct {
	ID                       string           `json:"id" db:"id"`
	AppointmentID            string           `json:"appointment_id" db:"appointment_id"`
	ProviderID               string           `json:"provider_id" db:"provider_id"`
	Price                    float64          `json:"price" db:"price"`
	CommissionAmount         float64          `json:"commission_amount" db:"commission_amount"`
	CommissionPercentageUsed float64          `json:"commission_percentage_used" db:"commission_percentage_used"`
	PayoutAmount             float64          `json:"payout_amount" db:"payout_amount"`
	Status                   SettlementStatus `json:"status" db:"status"`
	RequesterPaid            bool             `json:"requester_paid" db:"requester_paid"`
	RequesterPaidAt          *time.Time       `json:"requester_paid_at,omitempty" db:"requester_paid_at"`
	ProviderPaid             bool             `json:"provider_paid" db:"provider_paid"`
	ProviderPaidAt           *time.Time       `json:"provider_paid_at,omitempty" db:"provider_paid_at"`
	PayoutScheduledAt        *time.Time       `json:"payout_scheduled_at,omitempty" db:"payout_scheduled_at"`
	Refunded                 bool             `json:"refunded" db:"refunded"`
	RefundAmount             float64          `json:"refund_amount" db:"refund_amount"`
	RefundType               *RefundType      `json:"refund_type,omitempty" db:"refund_type"`
	NeedsManualReversal      bool             `json:"needs_manual_reversal" db:"needs_manual_reversal"`
	PaymentRef               string           `json:"payment_ref" db:"payment_ref"`
	ChargeRef                *string          `json:"charge_ref,omitempty" db:"charge_ref"`
	TransferRef              *string          `json:"transfer_ref,omitempty" db:"transfer_ref"`
	RefundRef                *string          `json:"refund_ref,omitempty" db:"refund_ref"`
	CreatedAt                time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt                time.Time        `json:"updated_at" db:"updated_at"`
}

// PayoutDue reports whether the settlement is eligible for the payout sweep at now
func (s *Settlement) PayoutDue(now time.Time) bool {
	if !s.RequesterPaid || s.ProviderPaid || s.PayoutScheduledAt == nil {
		return false
	}
	if s.Status != SettlementStatusCompleted && s.Status != SettlementStatusPartiallyRefunded {
		return false
	}
	return !s.PayoutScheduledAt.After(now)
}

// RefundRecord is the append-only audit row written once per cancellation
type RefundRecord struct {
	ID                     string     `json:"id" db:"id"`
	SettlementID           string     `json:"settlement_id" db:"settlement_id"`
	Amount                 float64    `json:"amount" db:"amount"`
	RefundType             RefundType `json:"refund_type" db:"refund_type"`
	Reason                 string     `json:"reason" db:"reason"`
	HoursBeforeAppointment int        `json:"hours_before_appointment" db:"hours_before_appointment"`
	ExternalRefundRef      *string    `json:"external_refund_ref,omitempty" db:"external_refund_ref"`
	Status                 string     `json:"status" db:"status"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
}

// WebhookEventStatus marks the outcome of an inbound provider event
type WebhookEventStatus string

const (
	WebhookEventProcessed WebhookEventStatus = "processed"
	WebhookEventFailed    WebhookEventStatus = "failed"
)

// WebhookEvent is the idempotency ledger for inbound payment-provider events.
// A duplicate provider event id is acknowledged without reprocessing.
type WebhookEvent struct {
	ID         string             `json:"id" db:"id"`
	EventID    string             `json:"event_id" db:"event_id"`
	EventType  string             `json:"event_type" db:"event_type"`
	Payload    []byte             `json:"-" db:"payload"`
	Status     WebhookEventStatus `json:"status" db:"status"`
	Error      *string            `json:"error,omitempty" db:"error"`
	ReceivedAt time.Time          `json:"received_at" db:"received_at"`
}
