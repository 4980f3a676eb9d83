package bootstrap

import (
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/smartscheduler/backend/internal/application/services"
	"github.com/smartscheduler/backend/internal/domain/providers"
	"github.com/smartscheduler/backend/internal/infrastructure/notifications"
	"github.com/smartscheduler/backend/pkg/config"
	"github.com/smartscheduler/backend/pkg/retry"
)

// QueueRedisOpt points asynq at the configured Redis, on the queue's own database
func QueueRedisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Queue.RedisDB,
	}
}

// DeliveryNotifier renders and delivers confirmations inline. Mode "direct" sends
// over SMTP; anything else logs the rendered message.
func DeliveryNotifier(cfg *config.Config, mode string) (*services.NotificationService, error) {
	loc, err := config.LoadLocation(cfg.Notification.DisplayLocation)
	if err != nil {
		return nil, err
	}
	renderer := notifications.NewConfirmationRenderer(loc, cfg.Notification.SenderName)

	var sender services.MessageSender = notifications.NewLogSender()
	if mode == "direct" {
		smtpSender, err := notifications.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
		if err != nil {
			return nil, err
		}
		sender = smtpSender
	}
	return services.NewNotificationService(renderer, sender, retry.NotificationConfig(cfg.Notification.RetryAttempts)), nil
}

// Notifier builds the booking notifier for the configured mode. In queue mode the
// returned closer releases the asynq client.
func Notifier(cfg *config.Config) (providers.Notifier, func() error, error) {
	switch cfg.Notification.Mode {
	case "", "log", "direct":
		n, err := DeliveryNotifier(cfg, cfg.Notification.Mode)
		if err != nil {
			return nil, nil, err
		}
		return n, func() error { return nil }, nil
	case "queue":
		client := asynq.NewClient(QueueRedisOpt(cfg))
		return notifications.NewQueueNotifier(client, cfg.Queue.MaxRetry), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown notification mode %q", cfg.Notification.Mode)
	}
}
