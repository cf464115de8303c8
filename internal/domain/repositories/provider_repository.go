package repositories

import (
	"context"

	"github.com/slotcare/booking-backend/internal/domain/entities"
)

// ProviderRepository defines the interface for provider read operations
type ProviderRepository interface {
	// GetByID retrieves a provider by ID
	GetByID(ctx context.Context, id string) (*entities.Provider, error)

	// GetWorkingHours retrieves a provider's window for a day of week, or a
	// NOT_FOUND error when none is configured.
	GetWorkingHours(ctx context.Context, providerID string, dayOfWeek int) (*entities.ProviderWorkingHours, error)

	// GetAvailability retrieves a provider's booking rules, or a NOT_FOUND
	// error when none are configured.
	GetAvailability(ctx context.Context, providerID string) (*entities.ProviderAvailability, error)
}

// SettingsRepository defines the interface for platform settings
type SettingsRepository interface {
	// Get returns the singleton platform settings, inserting the default row
	// when absent.
	Get(ctx context.Context) (*entities.PlatformSettings, error)
}
