package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/lib/pq"

	"github.com/slotcare/booking-backend/internal/domain/entities"
	"github.com/slotcare/booking-backend/internal/domain/repositories"
	"github.com/slotcare/booking-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/slotcare/booking-backend/pkg/errors"
)

var appointmentColumns = []interface{}{
	"id", "provider_id", "requester_id", "date", "start_time", "duration_minutes",
	"status", "reason", "notes", "appointment_type_id", "created_at", "updated_at",
}

// AppointmentAdapter implements the AppointmentRepository interface
type AppointmentAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) repositories.AppointmentRepository {
	return &AppointmentAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// CreateBooked atomically inserts an appointment plus its settlement. The
// overlap test runs a second time here, inside a serializable transaction:
// the service-level pre-check is only advisory and two concurrent callers can
// both pass it. This re-check is the actual double-booking guarantee.
func (a *AppointmentAdapter) CreateBooked(ctx context.Context, appointment *entities.Appointment, settlement *entities.Settlement) error {
	tx, err := a.client.BeginSerializableTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin booking transaction", err)
	}
	defer tx.Rollback()

	if err := a.checkConflictsTx(ctx, tx, appointment, ""); err != nil {
		return err
	}

	if err := a.insertAppointmentTx(ctx, tx, appointment); err != nil {
		return err
	}

	if settlement != nil {
		if err := insertSettlementTx(ctx, a.db, tx, settlement); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return mapTxCommitError(err)
	}
	return nil
}

// Reschedule moves an appointment to its (already mutated) new date/time with
// the same in-transaction conflict re-check, resetting status to PENDING.
func (a *AppointmentAdapter) Reschedule(ctx context.Context, appointment *entities.Appointment) error {
	tx, err := a.client.BeginSerializableTx(ctx)
	if err != nil {
		return apperrors.NewInternalError("failed to begin reschedule transaction", err)
	}
	defer tx.Rollback()

	if err := a.checkConflictsTx(ctx, tx, appointment, appointment.ID); err != nil {
		return err
	}

	appointment.Status = entities.AppointmentStatusPending
	appointment.UpdatedAt = time.Now()

	query, args, err := a.db.Update("appointments").
		Set(goqu.Record{
			"date":             appointment.Date,
			"start_time":       appointment.StartTime,
			"duration_minutes": appointment.DurationMinutes,
			"status":           appointment.Status,
			"updated_at":       appointment.UpdatedAt,
		}).
		Where(goqu.Ex{"id": appointment.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build reschedule query", err)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to reschedule appointment", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", appointment.ID))
	}

	if err := tx.Commit(); err != nil {
		return mapTxCommitError(err)
	}
	return nil
}

// checkConflictsTx re-fetches the provider's non-cancelled appointments for the
// date inside the transaction and runs the half-open overlap test.
func (a *AppointmentAdapter) checkConflictsTx(ctx context.Context, tx *sql.Tx, appointment *entities.Appointment, excludeID string) error {
	reqStart, reqEnd, err := appointment.Interval()
	if err != nil {
		return apperrors.NewValidationError(err.Error())
	}

	ds := a.db.Select("id", "start_time", "duration_minutes").
		From("appointments").
		Where(goqu.Ex{
			"provider_id": appointment.ProviderID,
			"date":        appointment.Date,
		}).
		Where(goqu.C("status").Neq(entities.AppointmentStatusCancelled))
	if excludeID != "" {
		ds = ds.Where(goqu.C("id").Neq(excludeID))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build conflict query", err)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to query existing appointments", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, startTime string
		var duration int
		if err := rows.Scan(&id, &startTime, &duration); err != nil {
			return apperrors.NewInternalError("failed to scan appointment row", err)
		}
		existingStart, err := entities.MinutesOfDay(startTime)
		if err != nil {
			return apperrors.NewInternalError("stored appointment has invalid start time", err)
		}
		if entities.Overlaps(reqStart, reqEnd, existingStart, existingStart+duration) {
			return apperrors.NewConflictError(
				fmt.Sprintf("slot %s on %s conflicts with appointment %s", appointment.StartTime, appointment.Date, id),
			).WithCode(apperrors.CodeSlotConflict)
		}
	}
	if err := rows.Err(); err != nil {
		return apperrors.NewInternalError("failed to iterate appointment rows", err)
	}
	return nil
}

func (a *AppointmentAdapter) insertAppointmentTx(ctx context.Context, tx *sql.Tx, appointment *entities.Appointment) error {
	record := goqu.Record{
		"id":                  appointment.ID,
		"provider_id":         appointment.ProviderID,
		"requester_id":        appointment.RequesterID,
		"date":                appointment.Date,
		"start_time":          appointment.StartTime,
		"duration_minutes":    appointment.DurationMinutes,
		"status":              appointment.Status,
		"reason":              appointment.Reason,
		"notes":               appointment.Notes,
		"appointment_type_id": appointment.AppointmentTypeID,
		"created_at":          appointment.CreatedAt,
		"updated_at":          appointment.UpdatedAt,
	}

	query, args, err := a.db.Insert("appointments").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to create appointment", err)
	}
	return nil
}

// mapTxCommitError translates a serialization failure at commit time into the
// same conflict the in-transaction check produces, so callers retry with a new
// slot instead of surfacing a 500.
func mapTxCommitError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "40001" {
		return apperrors.NewConflictError("booking lost a concurrent slot race").
			WithCode(apperrors.CodeSlotConflict)
	}
	return apperrors.NewInternalError("failed to commit booking transaction", err)
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment", err)
	}
	return appointment, nil
}

// UpdateStatus persists a status change guarded by the expected current status.
// A zero rows-affected result means the row either vanished or moved to a
// different status concurrently; both are surfaced as a state error.
func (a *AppointmentAdapter) UpdateStatus(ctx context.Context, id string, from, to entities.AppointmentStatus, reason string) error {
	record := goqu.Record{
		"status":     to,
		"updated_at": time.Now(),
	}
	if reason != "" {
		record["reason"] = reason
	}

	query, args, err := a.db.Update("appointments").
		Set(record).
		Where(goqu.Ex{"id": id, "status": from}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build status update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update appointment status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewStateError(
			fmt.Sprintf("appointment %s is no longer in status %s", id, from),
		).WithCode(apperrors.CodeInvalidTransition)
	}
	return nil
}

// ListForProviderDate retrieves appointments matching the typed specification
func (a *AppointmentAdapter) ListForProviderDate(ctx context.Context, spec repositories.ProviderDateSpec) ([]*entities.Appointment, error) {
	ds := a.db.Select(appointmentColumns...).
		From("appointments").
		Where(goqu.Ex{
			"provider_id": spec.ProviderID,
			"date":        spec.Date,
		})

	if spec.ExcludeCancelled {
		ds = ds.Where(goqu.C("status").Neq(entities.AppointmentStatusCancelled))
	}
	if spec.ExcludeID != "" {
		ds = ds.Where(goqu.C("id").Neq(spec.ExcludeID))
	}

	ds = ds.Order(goqu.I("start_time").Asc())

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list appointments", err)
	}
	defer rows.Close()

	var appointments []*entities.Appointment
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate appointments", err)
	}

	return appointments, nil
}

// GetAppointmentType retrieves an appointment type by ID
func (a *AppointmentAdapter) GetAppointmentType(ctx context.Context, id string) (*entities.AppointmentType, error) {
	query, args, err := a.db.Select(
		"id", "provider_id", "name", "duration_minutes", "price",
		"requires_payment", "is_active", "created_at", "updated_at",
	).From("appointment_types").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	apptType := &entities.AppointmentType{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&apptType.ID,
		&apptType.ProviderID,
		&apptType.Name,
		&apptType.DurationMinutes,
		&apptType.Price,
		&apptType.RequiresPayment,
		&apptType.IsActive,
		&apptType.CreatedAt,
		&apptType.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment type with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get appointment type", err)
	}
	return apptType, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var reason, notes sql.NullString
	var appointmentTypeID sql.NullString

	err := row.Scan(
		&appointment.ID,
		&appointment.ProviderID,
		&appointment.RequesterID,
		&appointment.Date,
		&appointment.StartTime,
		&appointment.DurationMinutes,
		&appointment.Status,
		&reason,
		&notes,
		&appointmentTypeID,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	appointment.Reason = reason.String
	appointment.Notes = notes.String
	if appointmentTypeID.Valid {
		appointment.AppointmentTypeID = &appointmentTypeID.String
	}
	return appointment, nil
}
