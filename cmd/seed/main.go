package main

import (
	"context"
	"flag"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smartscheduler/backend/internal/application/services"
	"github.com/smartscheduler/backend/internal/bootstrap"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
	"github.com/smartscheduler/backend/pkg/config"
)

// seed loads the sample provider directory into an empty store and generates the
// availability horizon. It is safe to run repeatedly.
func main() {
	providerIDs := flag.String("providers", "", "comma-separated provider ids to generate slots for (default: all)")
	skipDirectory := flag.Bool("skip-directory", false, "only generate availability")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-seed", cfg.Env)
	logger := observability.GetLogger()

	if err := bootstrap.RequirePersistentStore(&cfg.Store); err != nil {
		logger.Fatal().Err(err).Msg("Refusing to seed a store that is discarded on exit")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	infra, err := bootstrap.Open(ctx, cfg, nil)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open availability store")
	}
	defer infra.Close(context.Background())

	policy, err := bootstrap.SlotPolicy(&cfg.Scheduling)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid scheduling configuration")
	}

	if !*skipDirectory {
		providerService := services.NewProviderService(infra.Providers, infra.Search)
		seeded, err := bootstrap.SeedProviders(ctx, infra.Providers, providerService)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to seed providers")
		}
		logger.Info().Int("providers", seeded).Msg("Provider directory seeded")
	}

	var ids []string
	for _, id := range strings.Split(*providerIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	availability := services.NewAvailabilityService(infra.Store, infra.Providers, policy)
	report, err := availability.GenerateHorizon(ctx, ids)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to generate availability")
	}
	logger.Info().
		Int("generated", report.Generated).
		Int("inserted", report.Inserted).
		Int("skipped", report.Skipped).
		Msg("Availability horizon generated")
}
