package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/smartscheduler/backend/internal/adapters/events"
	"github.com/smartscheduler/backend/internal/application/services"
	"github.com/smartscheduler/backend/internal/bootstrap"
	redisclient "github.com/smartscheduler/backend/internal/infrastructure/clients/redis"
	"github.com/smartscheduler/backend/internal/infrastructure/notifications"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
	"github.com/smartscheduler/backend/pkg/config"
)

// The worker delivers queued booking confirmations and follows appointment events.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-worker", cfg.Env)
	logger := observability.GetLogger()

	// Queued tasks are delivered over SMTP when it is configured, otherwise logged
	mode := "log"
	if cfg.SMTP.Host != "" {
		mode = "direct"
	}
	delivery, err := bootstrap.DeliveryNotifier(cfg, mode)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize confirmation delivery")
	}

	srv := asynq.NewServer(
		bootstrap.QueueRedisOpt(cfg),
		asynq.Config{
			Concurrency: cfg.Queue.Concurrency,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: newAsynqLogger(),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(notifications.TypeBookingConfirmation, notifications.NewConfirmationHandler(delivery))

	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start task server")
	}
	logger.Info().Str("delivery", mode).Int("concurrency", cfg.Queue.Concurrency).Msg("Worker started")

	redisClient, err := redisclient.NewClient(&cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable; appointment events are not monitored")
	} else {
		defer redisClient.Close()
		bus := events.NewRedisEventBus(redisClient)
		defer bus.Close()

		monitor := services.NewEventMonitor(bus)
		if err := monitor.Start(); err != nil {
			logger.Warn().Err(err).Msg("Failed to start event monitor")
		} else {
			defer monitor.Stop()
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Worker shutting down")
	srv.Shutdown()
}
