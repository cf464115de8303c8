package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/slotcare/booking-backend/internal/domain/entities"
	"github.com/slotcare/booking-backend/internal/domain/providers"
	"github.com/slotcare/booking-backend/internal/domain/repositories"
	"github.com/slotcare/booking-backend/internal/infrastructure/observability"
)

// CachedProviderAdapter wraps ProviderRepository with a stale-while-revalidate
// read-path cache. Entries younger than freshTTL are served as-is; entries
// older than freshTTL but younger than staleTTL are served immediately while a
// background refresh replaces them; anything older is a miss. Cache failures
// never fail the caller: every path falls through to the direct read.
type CachedProviderAdapter struct {
	adapter  repositories.ProviderRepository
	cache    providers.CacheProvider
	metrics  *observability.Metrics
	freshTTL time.Duration
	staleTTL time.Duration
}

// NewCachedProviderAdapter creates a new cached provider adapter
func NewCachedProviderAdapter(
	adapter repositories.ProviderRepository,
	cache providers.CacheProvider,
	metrics *observability.Metrics,
	freshTTL, staleTTL time.Duration,
) repositories.ProviderRepository {
	return &CachedProviderAdapter{
		adapter:  adapter,
		cache:    cache,
		metrics:  metrics,
		freshTTL: freshTTL,
		staleTTL: staleTTL,
	}
}

// swrEnvelope wraps a cached payload with its write timestamp
type swrEnvelope struct {
	WrittenAt time.Time       `json:"written_at"`
	Payload   json.RawMessage `json:"payload"`
}

func providerCacheKey(id string) string {
	return fmt.Sprintf("provider:%s", id)
}

func workingHoursCacheKey(providerID string, dayOfWeek int) string {
	return fmt.Sprintf("provider:%s:hours:%d", providerID, dayOfWeek)
}

func availabilityCacheKey(providerID string) string {
	return fmt.Sprintf("provider:%s:availability", providerID)
}

// GetByID retrieves a provider by ID through the SWR cache
func (a *CachedProviderAdapter) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	return getOrSetSWR(ctx, a, providerCacheKey(id), func(ctx context.Context) (*entities.Provider, error) {
		return a.adapter.GetByID(ctx, id)
	})
}

// GetWorkingHours retrieves a provider's working-hours window through the SWR cache
func (a *CachedProviderAdapter) GetWorkingHours(ctx context.Context, providerID string, dayOfWeek int) (*entities.ProviderWorkingHours, error) {
	return getOrSetSWR(ctx, a, workingHoursCacheKey(providerID, dayOfWeek), func(ctx context.Context) (*entities.ProviderWorkingHours, error) {
		return a.adapter.GetWorkingHours(ctx, providerID, dayOfWeek)
	})
}

// GetAvailability retrieves a provider's booking rules through the SWR cache
func (a *CachedProviderAdapter) GetAvailability(ctx context.Context, providerID string) (*entities.ProviderAvailability, error) {
	return getOrSetSWR(ctx, a, availabilityCacheKey(providerID), func(ctx context.Context) (*entities.ProviderAvailability, error) {
		return a.adapter.GetAvailability(ctx, providerID)
	})
}

// getOrSetSWR implements the stale-while-revalidate read path for one key
func getOrSetSWR[T any](ctx context.Context, a *CachedProviderAdapter, key string, fetch func(ctx context.Context) (*T, error)) (*T, error) {
	if data, err := a.cache.Get(ctx, key); err == nil {
		var envelope swrEnvelope
		if err := json.Unmarshal(data, &envelope); err == nil {
			age := time.Since(envelope.WrittenAt)
			if age < a.staleTTL {
				var value T
				if err := json.Unmarshal(envelope.Payload, &value); err == nil {
					observability.RecordCacheHit(ctx, a.metrics, key)
					if age >= a.freshTTL {
						// Stale window: serve now, refresh in the background.
						go func() {
							fresh, err := fetch(context.Background())
							if err != nil {
								log.Debug().Err(err).Str("key", key).Msg("background cache refresh failed")
								return
							}
							a.store(key, fresh)
						}()
					}
					return &value, nil
				}
			}
		}
	}

	observability.RecordCacheMiss(ctx, a.metrics, key)

	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	// Fill the cache without blocking the response
	go a.store(key, value)

	return value, nil
}

func (a *CachedProviderAdapter) store(key string, value interface{}) {
	bgCtx := context.Background()
	payload, err := json.Marshal(value)
	if err != nil {
		log.Debug().Err(err).Str("key", key).Msg("failed to marshal cache payload")
		return
	}
	envelope, err := json.Marshal(swrEnvelope{
		WrittenAt: time.Now(),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	if err := a.cache.Set(bgCtx, key, envelope, int(a.staleTTL.Seconds())); err != nil {
		log.Debug().Err(err).Str("key", key).Msg("failed to fill cache")
	}
}
