package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/providers"
	"github.com/smartscheduler/backend/internal/domain/repositories"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
)

// Cache TTLs (in seconds)
const (
	providerByIDTTL  = 300
	providerListTTL  = 180
	providerListKeys = "providers:list:"
)

func providerCacheKey(id string) string {
	return fmt.Sprintf("provider:%s", id)
}

func providerListCacheKey(filter repositories.ProviderFilter) string {
	return fmt.Sprintf("%s%s:%d", providerListKeys, filter.Specialty, filter.Limit)
}

// CachedProviderRepository wraps a ProviderRepository with a read-through cache.
// Cache failures are logged and fall through to the underlying repository.
type CachedProviderRepository struct {
	repo    repositories.ProviderRepository
	cache   providers.CacheProvider
	metrics *observability.Metrics
}

var _ repositories.ProviderRepository = (*CachedProviderRepository)(nil)

// NewCachedProviderRepository creates a new cached provider repository
func NewCachedProviderRepository(repo repositories.ProviderRepository, cache providers.CacheProvider, metrics *observability.Metrics) *CachedProviderRepository {
	return &CachedProviderRepository{repo: repo, cache: cache, metrics: metrics}
}

func (r *CachedProviderRepository) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	key := providerCacheKey(id)

	var cached entities.Provider
	if r.load(ctx, key, &cached) {
		cached.ID = id
		return &cached, nil
	}

	provider, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, provider, providerByIDTTL)
	return provider, nil
}

func (r *CachedProviderRepository) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	key := providerListCacheKey(filter)

	var cached []*entities.Provider
	if r.load(ctx, key, &cached) {
		return cached, nil
	}

	list, err := r.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, list, providerListTTL)
	return list, nil
}

// Upsert writes through and invalidates the provider and every cached listing
func (r *CachedProviderRepository) Upsert(ctx context.Context, provider *entities.Provider) (string, error) {
	id, err := r.repo.Upsert(ctx, provider)
	if err != nil {
		return "", err
	}

	logger := observability.LoggerFromContext(ctx)
	if err := r.cache.Delete(ctx, providerCacheKey(id)); err != nil {
		logger.Warn().Err(err).Str("provider_id", id).Msg("Failed to invalidate cached provider")
	}
	if err := r.cache.DeleteByPrefix(ctx, providerListKeys); err != nil {
		logger.Warn().Err(err).Msg("Failed to invalidate cached provider listings")
	}
	return id, nil
}

func (r *CachedProviderRepository) load(ctx context.Context, key string, dst any) bool {
	data, err := r.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, providers.ErrCacheMiss) {
			observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		observability.RecordCacheMiss(ctx, r.metrics, key)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Discarding undecodable cache entry")
		observability.RecordCacheMiss(ctx, r.metrics, key)
		return false
	}
	observability.RecordCacheHit(ctx, r.metrics, key)
	return true
}

func (r *CachedProviderRepository) store(ctx context.Context, key string, value any, ttl int) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, key, data, ttl); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Cache write failed")
	}
}
