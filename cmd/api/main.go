package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/smartscheduler/backend/internal/adapters/events"
	"github.com/smartscheduler/backend/internal/adapters/providers/recommender"
	"github.com/smartscheduler/backend/internal/adapters/providers/scheduling"
	"github.com/smartscheduler/backend/internal/api/handlers"
	"github.com/smartscheduler/backend/internal/api/middleware"
	"github.com/smartscheduler/backend/internal/api/routes"
	"github.com/smartscheduler/backend/internal/application/services"
	"github.com/smartscheduler/backend/internal/bootstrap"
	"github.com/smartscheduler/backend/internal/domain/providers"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
	"github.com/smartscheduler/backend/pkg/config"
)

const providerResponseTTL = 120

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)
	logger := observability.GetLogger()

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			logger.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Storage, cache and search
	infra, err := bootstrap.Open(ctx, cfg, metrics)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("Failed to open availability store")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := infra.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("Error closing infrastructure")
		}
	}()

	// External providers
	calendar, err := scheduling.NewCalendarProvider(ctx, scheduling.CalendarProviderConfig{
		Driver:          cfg.Calendar.Driver,
		CredentialsFile: cfg.Calendar.CredentialsFile,
		AllowMockReads:  cfg.Calendar.AllowMockReads,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize calendar provider")
	}

	rec, recCloser, err := recommender.New(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize recommender")
	}
	defer recCloser.Close()

	notifier, closeNotifier, err := bootstrap.Notifier(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize notifications")
	}
	defer closeNotifier()

	var eventBus providers.EventBus
	if infra.Redis != nil {
		eventBus = events.NewRedisEventBus(infra.Redis)
		logger.Info().Msg("Appointment events published to Redis")
	} else {
		// Without Redis no worker sees the events, so follow them in-process
		eventBus = events.NewMemoryEventBus()
		monitor := services.NewEventMonitor(eventBus)
		if err := monitor.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start event monitor")
		}
		defer monitor.Stop()
	}

	// Services
	policy, err := bootstrap.SlotPolicy(&cfg.Scheduling)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid scheduling configuration")
	}
	providerService := services.NewProviderService(infra.Providers, infra.Search)
	availabilityService := services.NewAvailabilityService(infra.Store, infra.Providers, policy)
	bookingService := services.NewBookingService(infra.Store, infra.Providers, calendar, notifier, services.BookingConfig{
		EventBus:            eventBus,
		Metrics:             metrics,
		CompensationTimeout: cfg.Scheduling.CompensationTimeout,
	})

	var source services.AvailabilitySource = services.NewStoredAvailabilitySource(infra.Store)
	if cfg.Scheduling.AvailabilitySource == "calendar" {
		source = services.NewCalendarAvailabilitySource(calendar)
	}
	recommendationService := services.NewRecommendationService(infra.Providers, infra.Store, source, rec, metrics)

	if cfg.Scheduling.SeedOnStartup {
		seeded, err := bootstrap.SeedProviders(ctx, infra.Providers, providerService)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to seed providers")
		}
		if seeded > 0 {
			report, err := availabilityService.GenerateHorizon(ctx, nil)
			if err != nil {
				logger.Fatal().Err(err).Msg("Failed to generate initial availability")
			}
			logger.Info().Int("providers", seeded).Int("slots", report.Inserted).Msg("Seeded sample directory")
		}
	}

	// HTTP
	checks := make(map[string]handlers.HealthCheck, len(infra.Checks))
	for name, check := range infra.Checks {
		checks[name] = check
	}
	rateLimiter, err := middleware.NewRateLimiter(middleware.RateLimitOptions{
		RPM:            cfg.Server.RateLimitRPM,
		Burst:          cfg.Server.RateLimitBurst,
		TrustedProxies: cfg.Server.TrustedProxies,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid rate limit configuration")
	}
	defer rateLimiter.Close()
	if cfg.Server.AdminToken == "" {
		logger.Warn().Msg("ADMIN_TOKEN not set; admin endpoints are disabled")
	}

	router := routes.NewRouter(
		handlers.NewBookingHandler(bookingService),
		handlers.NewAvailabilityHandler(availabilityService),
		handlers.NewRecommendationHandler(recommendationService),
		handlers.NewProviderHandler(providerService),
		handlers.NewHealthHandler(checks),
		routes.Options{
			ResponseCache:  middleware.NewResponseCache(infra.Cache, providerResponseTTL),
			RateLimiter:    rateLimiter,
			AdminToken:     cfg.Server.AdminToken,
			AllowedOrigins: cfg.Server.AllowedOrigins,
			Metrics:        metrics,
		},
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", serverAddr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Error during server shutdown")
	}

	// Let in-flight confirmations finish before their transports close
	bookingService.Wait()

	if err := eventBus.Close(); err != nil {
		logger.Error().Err(err).Msg("Error closing event bus")
	}

	logger.Info().Msg("Server stopped")
}
