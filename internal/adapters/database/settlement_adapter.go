package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/slotcare/booking-backend/internal/domain/entities"
	"github.com/slotcare/booking-backend/internal/domain/repositories"
	"github.com/slotcare/booking-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/slotcare/booking-backend/pkg/errors"
)

var settlementColumns = []interface{}{
	"id", "appointment_id", "provider_id", "price", "commission_amount",
	"commission_percentage_used", "payout_amount", "status",
	"requester_paid", "requester_paid_at", "provider_paid", "provider_paid_at",
	"payout_scheduled_at", "refunded", "refund_amount", "refund_type",
	"needs_manual_reversal", "payment_ref", "charge_ref", "transfer_ref",
	"refund_ref", "created_at", "updated_at",
}

// SettlementAdapter implements the SettlementRepository interface
type SettlementAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSettlementAdapter creates a new settlement adapter
func NewSettlementAdapter(client *postgres.Client) repositories.SettlementRepository {
	return &SettlementAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// insertSettlementTx inserts a settlement row inside the booking transaction,
// so appointment and settlement are created or rolled back together.
func insertSettlementTx(ctx context.Context, db *goqu.Database, tx *sql.Tx, settlement *entities.Settlement) error {
	record := goqu.Record{
		"id":                         settlement.ID,
		"appointment_id":             settlement.AppointmentID,
		"provider_id":                settlement.ProviderID,
		"price":                      settlement.Price,
		"commission_amount":          settlement.CommissionAmount,
		"commission_percentage_used": settlement.CommissionPercentageUsed,
		"payout_amount":              settlement.PayoutAmount,
		"status":                     settlement.Status,
		"requester_paid":             settlement.RequesterPaid,
		"requester_paid_at":          settlement.RequesterPaidAt,
		"provider_paid":              settlement.ProviderPaid,
		"provider_paid_at":           settlement.ProviderPaidAt,
		"payout_scheduled_at":        settlement.PayoutScheduledAt,
		"refunded":                   settlement.Refunded,
		"refund_amount":              settlement.RefundAmount,
		"refund_type":                settlement.RefundType,
		"needs_manual_reversal":      settlement.NeedsManualReversal,
		"payment_ref":                settlement.PaymentRef,
		"charge_ref":                 settlement.ChargeRef,
		"transfer_ref":               settlement.TransferRef,
		"refund_ref":                 settlement.RefundRef,
		"created_at":                 settlement.CreatedAt,
		"updated_at":                 settlement.UpdatedAt,
	}

	query, args, err := db.Insert("settlements").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build settlement insert query", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create settlement", err)
	}
	return nil
}

// GetByAppointmentID retrieves the settlement tied to an appointment
func (a *SettlementAdapter) GetByAppointmentID(ctx context.Context, appointmentID string) (*entities.Settlement, error) {
	return a.getBy(ctx, goqu.Ex{"appointment_id": appointmentID},
		fmt.Sprintf("settlement for appointment %s not found", appointmentID))
}

// GetByPaymentRef retrieves a settlement by its external payment reference
func (a *SettlementAdapter) GetByPaymentRef(ctx context.Context, paymentRef string) (*entities.Settlement, error) {
	return a.getBy(ctx, goqu.Ex{"payment_ref": paymentRef},
		fmt.Sprintf("settlement with payment ref %s not found", paymentRef))
}

// GetByTransferRef retrieves a settlement by its external transfer reference
func (a *SettlementAdapter) GetByTransferRef(ctx context.Context, transferRef string) (*entities.Settlement, error) {
	return a.getBy(ctx, goqu.Ex{"transfer_ref": transferRef},
		fmt.Sprintf("settlement with transfer ref %s not found", transferRef))
}

func (a *SettlementAdapter) getBy(ctx context.Context, where goqu.Ex, notFoundMsg string) (*entities.Settlement, error) {
	query, args, err := a.db.Select(settlementColumns...).
		From("settlements").
		Where(where).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	settlement, err := scanSettlement(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(notFoundMsg)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get settlement", err)
	}
	return settlement, nil
}

// Update persists the mutable settlement fields. The WHERE clause pins the
// row to the updated_at the caller read it with, so two writers racing over
// the same settlement (a refund against a webhook confirmation, say) cannot
// silently overwrite each other; the loser gets a CONFLICT and must re-read.
func (a *SettlementAdapter) Update(ctx context.Context, settlement *entities.Settlement) error {
	prevUpdatedAt := settlement.UpdatedAt
	// Rounded to Postgres timestamp precision so the value kept in memory
	// matches what the row will round-trip as.
	settlement.UpdatedAt = time.Now().Round(time.Microsecond)

	record := goqu.Record{
		"payout_amount":         settlement.PayoutAmount,
		"status":                settlement.Status,
		"requester_paid":        settlement.RequesterPaid,
		"requester_paid_at":     settlement.RequesterPaidAt,
		"provider_paid":         settlement.ProviderPaid,
		"provider_paid_at":      settlement.ProviderPaidAt,
		"payout_scheduled_at":   settlement.PayoutScheduledAt,
		"refunded":              settlement.Refunded,
		"refund_amount":         settlement.RefundAmount,
		"refund_type":           settlement.RefundType,
		"needs_manual_reversal": settlement.NeedsManualReversal,
		"charge_ref":            settlement.ChargeRef,
		"transfer_ref":          settlement.TransferRef,
		"refund_ref":            settlement.RefundRef,
		"updated_at":            settlement.UpdatedAt,
	}

	query, args, err := a.db.Update("settlements").
		Set(record).
		Where(goqu.Ex{"id": settlement.ID, "updated_at": prevUpdatedAt}).
		ToSQL()
	if err != nil {
		settlement.UpdatedAt = prevUpdatedAt
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		settlement.UpdatedAt = prevUpdatedAt
		return apperrors.NewInternalError("failed to update settlement", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		settlement.UpdatedAt = prevUpdatedAt
		if _, getErr := a.getBy(ctx, goqu.Ex{"id": settlement.ID},
			fmt.Sprintf("settlement with id %s not found", settlement.ID)); getErr != nil {
			return getErr
		}
		return apperrors.NewConflictError(
			fmt.Sprintf("settlement %s was modified concurrently", settlement.ID))
	}
	return nil
}

// ListPayoutDue retrieves settlements eligible for the payout sweep
func (a *SettlementAdapter) ListPayoutDue(ctx context.Context, now time.Time, limit int) ([]*entities.Settlement, error) {
	ds := a.db.Select(settlementColumns...).
		From("settlements").
		Where(goqu.Ex{
			"requester_paid": true,
			"provider_paid":  false,
		}).
		Where(goqu.C("payout_scheduled_at").IsNotNull()).
		Where(goqu.C("payout_scheduled_at").Lte(now)).
		Where(goqu.C("status").In(
			entities.SettlementStatusCompleted,
			entities.SettlementStatusPartiallyRefunded,
		)).
		Order(goqu.I("payout_scheduled_at").Asc())

	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build payout query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list due settlements", err)
	}
	defer rows.Close()

	var settlements []*entities.Settlement
	for rows.Next() {
		settlement, err := scanSettlement(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan settlement", err)
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate settlements", err)
	}

	return settlements, nil
}

// MarkProviderPaid flips provider_paid with a compare-and-set on the unpaid
// state. Returning false means a concurrent sweep already paid this settlement;
// the caller must treat that as "nothing to do", never as an error.
func (a *SettlementAdapter) MarkProviderPaid(ctx context.Context, settlementID string, paidAt time.Time, transferRef string) (bool, error) {
	query, args, err := a.db.Update("settlements").
		Set(goqu.Record{
			"provider_paid":    true,
			"provider_paid_at": paidAt,
			"transfer_ref":     transferRef,
			"updated_at":       time.Now(),
		}).
		Where(goqu.Ex{"id": settlementID, "provider_paid": false}).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build payout update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return false, apperrors.NewInternalError("failed to mark provider paid", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.NewInternalError("failed to get rows affected", err)
	}
	return rowsAffected > 0, nil
}

// ResetProviderPaid clears the payout marker after a reversed or failed transfer
func (a *SettlementAdapter) ResetProviderPaid(ctx context.Context, settlementID string) error {
	query, args, err := a.db.Update("settlements").
		Set(goqu.Record{
			"provider_paid":    false,
			"provider_paid_at": nil,
			"transfer_ref":     nil,
			"updated_at":       time.Now(),
		}).
		Where(goqu.Ex{"id": settlementID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build payout reset query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to reset provider payout", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("settlement with id %s not found", settlementID))
	}
	return nil
}

// CreateRefundRecord appends a refund audit row
func (a *SettlementAdapter) CreateRefundRecord(ctx context.Context, record *entities.RefundRecord) error {
	row := goqu.Record{
		"id":                       record.ID,
		"settlement_id":            record.SettlementID,
		"amount":                   record.Amount,
		"refund_type":              record.RefundType,
		"reason":                   record.Reason,
		"hours_before_appointment": record.HoursBeforeAppointment,
		"external_refund_ref":      record.ExternalRefundRef,
		"status":                   record.Status,
		"created_at":               record.CreatedAt,
	}

	query, args, err := a.db.Insert("refund_records").Rows(row).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build refund insert query", err)
	}
	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create refund record", err)
	}
	return nil
}

// RecordWebhookEvent stores an inbound provider event. The unique index on
// event_id turns an at-least-once redelivery into a CONFLICT error here.
func (a *SettlementAdapter) RecordWebhookEvent(ctx context.Context, event *entities.WebhookEvent) error {
	row := goqu.Record{
		"id":          event.ID,
		"event_id":    event.EventID,
		"event_type":  event.EventType,
		"payload":     event.Payload,
		"status":      event.Status,
		"error":       event.Error,
		"received_at": event.ReceivedAt,
	}

	query, args, err := a.db.Insert("webhook_events").Rows(row).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build webhook event insert query", err)
	}
	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.NewConflictError(
				fmt.Sprintf("webhook event %s already recorded", event.EventID))
		}
		return apperrors.NewInternalError("failed to record webhook event", err)
	}
	return nil
}

// MarkWebhookEvent updates the stored event's processing outcome
func (a *SettlementAdapter) MarkWebhookEvent(ctx context.Context, eventID string, status entities.WebhookEventStatus, procErr error) error {
	record := goqu.Record{"status": status}
	if procErr != nil {
		record["error"] = procErr.Error()
	}

	query, args, err := a.db.Update("webhook_events").
		Set(record).
		Where(goqu.Ex{"event_id": eventID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build webhook event update query", err)
	}
	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to mark webhook event", err)
	}
	return nil
}

func scanSettlement(row rowScanner) (*entities.Settlement, error) {
	settlement := &entities.Settlement{}
	var refundType, chargeRef, transferRef, refundRef sql.NullString
	var requesterPaidAt, providerPaidAt, payoutScheduledAt sql.NullTime

	err := row.Scan(
		&settlement.ID,
		&settlement.AppointmentID,
		&settlement.ProviderID,
		&settlement.Price,
		&settlement.CommissionAmount,
		&settlement.CommissionPercentageUsed,
		&settlement.PayoutAmount,
		&settlement.Status,
		&settlement.RequesterPaid,
		&requesterPaidAt,
		&settlement.ProviderPaid,
		&providerPaidAt,
		&payoutScheduledAt,
		&settlement.Refunded,
		&settlement.RefundAmount,
		&refundType,
		&settlement.NeedsManualReversal,
		&settlement.PaymentRef,
		&chargeRef,
		&transferRef,
		&refundRef,
		&settlement.CreatedAt,
		&settlement.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if requesterPaidAt.Valid {
		settlement.RequesterPaidAt = &requesterPaidAt.Time
	}
	if providerPaidAt.Valid {
		settlement.ProviderPaidAt = &providerPaidAt.Time
	}
	if payoutScheduledAt.Valid {
		settlement.PayoutScheduledAt = &payoutScheduledAt.Time
	}
	if refundType.Valid {
		rt := entities.RefundType(refundType.String)
		settlement.RefundType = &rt
	}
	if chargeRef.Valid {
		settlement.ChargeRef = &chargeRef.String
	}
	if transferRef.Valid {
		settlement.TransferRef = &transferRef.String
	}
	if refundRef.Valid {
		settlement.RefundRef = &refundRef.String
	}
	return settlement, nil
}
