package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/slotcare/booking-backend/internal/domain/entities"
	"github.com/slotcare/booking-backend/internal/domain/repositories"
	"github.com/slotcare/booking-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/slotcare/booking-backend/pkg/errors"
)

// ProviderAdapter implements the ProviderRepository interface
type ProviderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) repositories.ProviderRepository {
	return &ProviderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// GetByID retrieves a provider by ID
func (a *ProviderAdapter) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	query, args, err := a.db.Select(
		"id", "name", "specialty", "payout_account_id", "payout_account_active",
		"is_active", "created_at", "updated_at",
	).From("providers").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	provider := &entities.Provider{}
	var specialty, payoutAccountID sql.NullString

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&provider.ID,
		&provider.Name,
		&specialty,
		&payoutAccountID,
		&provider.PayoutAccountActive,
		&provider.IsActive,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get provider", err)
	}

	provider.Specialty = specialty.String
	if payoutAccountID.Valid {
		provider.PayoutAccountID = &payoutAccountID.String
	}
	return provider, nil
}

// GetWorkingHours retrieves a provider's window for a day of week
func (a *ProviderAdapter) GetWorkingHours(ctx context.Context, providerID string, dayOfWeek int) (*entities.ProviderWorkingHours, error) {
	query, args, err := a.db.Select(
		"id", "provider_id", "day_of_week", "start_time", "end_time",
		"is_working", "created_at", "updated_at",
	).From("provider_working_hours").
		Where(goqu.Ex{"provider_id": providerID, "day_of_week": dayOfWeek}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	hours := &entities.ProviderWorkingHours{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&hours.ID,
		&hours.ProviderID,
		&hours.DayOfWeek,
		&hours.StartTime,
		&hours.EndTime,
		&hours.IsWorking,
		&hours.CreatedAt,
		&hours.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("working hours for provider %s on day %d not found", providerID, dayOfWeek))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get working hours", err)
	}
	return hours, nil
}

// GetAvailability retrieves a provider's booking rules
func (a *ProviderAdapter) GetAvailability(ctx context.Context, providerID string) (*entities.ProviderAvailability, error) {
	query, args, err := a.db.Select(
		"id", "provider_id", "allowed_time_slots", "slot_duration_minutes",
		"booking_advance_days_max", "min_booking_hours_ahead", "created_at", "updated_at",
	).From("provider_availability").
		Where(goqu.Ex{"provider_id": providerID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	availability := &entities.ProviderAvailability{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&availability.ID,
		&availability.ProviderID,
		pq.Array(&availability.AllowedTimeSlots),
		&availability.SlotDurationMinutes,
		&availability.BookingAdvanceDaysMax,
		&availability.MinBookingHoursAhead,
		&availability.CreatedAt,
		&availability.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(
			fmt.Sprintf("availability rules for provider %s not found", providerID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get availability rules", err)
	}
	return availability, nil
}
