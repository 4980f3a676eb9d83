// Package bootstrap builds the storage, cache and search infrastructure shared by
// the api, worker and seed commands.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartscheduler/backend/internal/adapters/cache"
	"github.com/smartscheduler/backend/internal/adapters/database"
	"github.com/smartscheduler/backend/internal/adapters/search"
	"github.com/smartscheduler/backend/internal/application/scheduling"
	"github.com/smartscheduler/backend/internal/application/services"
	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/providers"
	"github.com/smartscheduler/backend/internal/domain/repositories"
	"github.com/smartscheduler/backend/internal/infrastructure/clients/mongo"
	"github.com/smartscheduler/backend/internal/infrastructure/clients/postgres"
	redisclient "github.com/smartscheduler/backend/internal/infrastructure/clients/redis"
	"github.com/smartscheduler/backend/internal/infrastructure/clients/typesense"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
	"github.com/smartscheduler/backend/pkg/config"
)

const cachePrefix = "scheduler:"

// Infrastructure holds the opened backends. Search, Cache and Redis are nil when
// not configured or unreachable.
type Infrastructure struct {
	Store     repositories.AvailabilityStore
	Providers repositories.ProviderRepository
	Search    providers.ProviderSearch
	Cache     providers.CacheProvider
	Redis     *redisclient.Client
	Checks    map[string]func(context.Context) error

	closers []func(context.Context) error
}

// Open connects the configured store driver and the optional Redis and Typesense
// backends. Store failures are fatal; cache and search failures only degrade.
func Open(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*Infrastructure, error) {
	logger := observability.GetLogger()
	infra := &Infrastructure{Checks: make(map[string]func(context.Context) error)}

	var store repositories.AvailabilityStore
	switch cfg.Store.Driver {
	case "", "memory":
		store = database.NewMemoryAvailabilityStore()
		infra.Providers = database.NewMemoryProviderRepository()
		logger.Warn().Msg("Using in-memory availability store; data is lost on restart")

	case "mongo":
		client, err := mongo.NewClient(ctx, &cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		infra.closers = append(infra.closers, client.Close)
		infra.Checks["mongo"] = client.Ping

		mongoStore := database.NewMongoAvailabilityStore(client.Database())
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			infra.Close(ctx)
			return nil, fmt.Errorf("failed to create MongoDB indexes: %w", err)
		}
		store = mongoStore
		infra.Providers = database.NewMongoProviderRepository(client.Database())

	case "postgres":
		client, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
		}
		infra.closers = append(infra.closers, func(context.Context) error { return client.Close() })
		infra.Checks["postgres"] = client.Ping

		pgStore := database.NewPostgresAvailabilityStore(client)
		if err := pgStore.Migrate(ctx); err != nil {
			infra.Close(ctx)
			return nil, fmt.Errorf("failed to migrate PostgreSQL schema: %w", err)
		}
		store = pgStore
		infra.Providers = database.NewPostgresProviderRepository(client)

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	infra.Store = database.NewInstrumentedAvailabilityStore(store, metrics)

	if cfg.Redis.Enabled {
		client, err := redisclient.NewClient(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable; running without cache and with in-process events")
		} else {
			infra.Redis = client
			infra.closers = append(infra.closers, func(context.Context) error { return client.Close() })
			infra.Checks["redis"] = client.Ping

			infra.Cache = cache.NewRedisAdapter(client, cachePrefix)
			infra.Providers = database.NewCachedProviderRepository(infra.Providers, infra.Cache, metrics)
			logger.Info().Msg("Provider repository wrapped with Redis cache")
		}
	}

	if cfg.Typesense.URL != "" {
		client, err := typesense.NewClient(&cfg.Typesense)
		if err != nil {
			logger.Warn().Err(err).Msg("Typesense unavailable; provider search falls back to the repository")
		} else {
			index := search.NewTypesenseProviderIndex(client)
			if err := index.InitSchema(ctx); err != nil {
				logger.Warn().Err(err).Msg("Failed to initialize provider search schema")
			}
			infra.Search = index
		}
	}

	return infra, nil
}

// Close releases every opened backend in reverse order
func (i *Infrastructure) Close(ctx context.Context) error {
	var errs []error
	for idx := len(i.closers) - 1; idx >= 0; idx-- {
		if err := i.closers[idx](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	i.closers = nil
	return errors.Join(errs...)
}

// RequirePersistentStore rejects store drivers whose data does not outlive the process
func RequirePersistentStore(cfg *config.StoreConfig) error {
	switch cfg.Driver {
	case "", "memory":
		return fmt.Errorf("store driver %q keeps data in process memory; set STORE_DRIVER to mongo or postgres", cfg.Driver)
	}
	return nil
}

// SlotPolicy converts scheduling configuration into the generation policy
func SlotPolicy(cfg *config.SchedulingConfig) (services.SlotPolicy, error) {
	loc, err := config.LoadLocation(cfg.Location)
	if err != nil {
		return services.SlotPolicy{}, err
	}
	windows := make([]scheduling.DailyWindow, 0, len(cfg.Windows))
	for _, w := range cfg.Windows {
		windows = append(windows, scheduling.DailyWindow{StartHour: w.StartHour, EndHour: w.EndHour})
	}
	return services.SlotPolicy{
		Windows:       windows,
		Step:          cfg.Step,
		HorizonDays:   cfg.HorizonDays,
		Location:      loc,
		IsBusinessDay: scheduling.Weekdays,
	}, nil
}

// SampleProviders is the directory loaded into an empty deployment
func SampleProviders() []entities.Provider {
	return []entities.Provider{
		{ID: "dr-alice-smith", Name: "Dr. Alice Smith", Specialties: []string{"cardiology"}},
		{ID: "dr-bob-jones", Name: "Dr. Bob Jones", Specialties: []string{"dermatology", "general"}},
	}
}

// SeedProviders registers the sample directory when no provider exists yet.
// It returns the number of providers registered.
func SeedProviders(ctx context.Context, repo repositories.ProviderRepository, svc *services.ProviderService) (int, error) {
	existing, err := repo.List(ctx, repositories.ProviderFilter{Limit: 1})
	if err != nil {
		return 0, fmt.Errorf("failed to check provider directory: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	seeded := 0
	for _, p := range SampleProviders() {
		if _, err := svc.Register(ctx, &p); err != nil {
			return seeded, fmt.Errorf("failed to seed provider %s: %w", p.Name, err)
		}
		seeded++
	}
	return seeded, nil
}
