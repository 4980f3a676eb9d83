package services

import (
	"context"
	"time"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
	"github.com/smartscheduler/backend/pkg/retry"
)

// MessageRenderer turns an appointment into a deliverable message
type MessageRenderer interface {
	Render(contactAddress string, appointment *entities.Appointment) (*entities.OutboundMessage, error)
}

// MessageSender delivers a rendered message over one channel
type MessageSender interface {
	SendMessage(ctx context.Context, msg *entities.OutboundMessage) error
}

// NotificationService renders booking confirmations and delivers them with a bounded retry policy
type NotificationService struct {
	renderer MessageRenderer
	sender   MessageSender
	retryCfg retry.Config
}

// NewNotificationService creates a new notification service
func NewNotificationService(renderer MessageRenderer, sender MessageSender, retryCfg retry.Config) *NotificationService {
	return &NotificationService{
		renderer: renderer,
		sender:   sender,
		retryCfg: retryCfg,
	}
}

// Send renders and delivers the confirmation for appointment
func (n *NotificationService) Send(ctx context.Context, contactAddress string, appointment *entities.Appointment) error {
	if contactAddress == "" {
		return apperrors.NewValidationError("contact address is required")
	}
	msg, err := n.renderer.Render(contactAddress, appointment)
	if err != nil {
		return apperrors.NewInternalError("failed to render confirmation", err)
	}

	logger := observability.LoggerFromContext(ctx).With().
		Str("appointment_id", appointment.ID).
		Str("notification_type", string(msg.Type)).
		Logger()

	err = retry.DoWithLog(ctx, n.retryCfg, "notification", func() error {
		return n.sender.SendMessage(ctx, msg)
	}, func(attempt int, err error, nextDelay time.Duration) {
		logger.Warn().Err(err).Int("attempt", attempt).Dur("next_delay", nextDelay).Msg("Notification delivery failed, retrying")
	})
	if err != nil {
		return apperrors.NewProviderError("failed to deliver confirmation", err)
	}

	logger.Info().Msg("Confirmation delivered")
	return nil
}
