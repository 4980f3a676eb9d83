package notifications

import (
	"context"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
)

// LogSender logs messages instead of delivering them, for local development
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (LogSender) SendMessage(ctx context.Context, msg *entities.OutboundMessage) error {
	observability.LoggerFromContext(ctx).Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("attachments", len(msg.Attachments)).
		Msg("Notification delivery skipped (log mode)")
	return nil
}
