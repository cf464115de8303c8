package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/slotcare/booking-backend/internal/domain/entities"
	"github.com/slotcare/booking-backend/internal/domain/repositories"
	"github.com/slotcare/booking-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/slotcare/booking-backend/pkg/errors"
)

// SettingsAdapter implements the SettingsRepository interface
type SettingsAdapter struct {
	client            *postgres.Client
	db                *goqu.Database
	defaultCommission float64
}

// NewSettingsAdapter creates a new platform settings adapter
func NewSettingsAdapter(client *postgres.Client, defaultCommission float64) repositories.SettingsRepository {
	if defaultCommission <= 0 {
		defaultCommission = entities.DefaultCommissionPercentage
	}
	return &SettingsAdapter{
		client:            client,
		db:                goqu.New("postgres", client.DB()),
		defaultCommission: defaultCommission,
	}
}

// Get returns the singleton platform settings, inserting the default row when absent
func (a *SettingsAdapter) Get(ctx context.Context) (*entities.PlatformSettings, error) {
	query, args, err := a.db.Select(
		"id", "commission_percentage", "created_at", "updated_at",
	).From("platform_settings").
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	settings := &entities.PlatformSettings{}
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&settings.ID,
		&settings.CommissionPercentage,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return a.initDefaults(ctx)
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get platform settings", err)
	}
	return settings, nil
}

func (a *SettingsAdapter) initDefaults(ctx context.Context) (*entities.PlatformSettings, error) {
	now := time.Now()
	settings := &entities.PlatformSettings{
		ID:                   uuid.New().String(),
		CommissionPercentage: a.defaultCommission,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	query, args, err := a.db.Insert("platform_settings").Rows(goqu.Record{
		"id":                    settings.ID,
		"commission_percentage": settings.CommissionPercentage,
		"created_at":            settings.CreatedAt,
		"updated_at":            settings.UpdatedAt,
	}).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build settings insert query", err)
	}
	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return nil, apperrors.NewInternalError("failed to initialize platform settings", err)
	}
	return settings, nil
}
