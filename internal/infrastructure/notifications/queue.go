package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/providers"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

// TypeBookingConfirmation is the asynq task type for confirmation delivery
const TypeBookingConfirmation = "notification:booking_confirmation"

// ConfirmationPayload is the task body for a queued confirmation
type ConfirmationPayload struct {
	ContactAddress string               `json:"contact_address"`
	Appointment    entities.Appointment `json:"appointment"`
}

// NewConfirmationTask encodes a confirmation for the queue
func NewConfirmationTask(contactAddress string, appointment *entities.Appointment, maxRetry int) (*asynq.Task, error) {
	b, err := json.Marshal(ConfirmationPayload{ContactAddress: contactAddress, Appointment: *appointment})
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.Timeout(2 * time.Minute)}
	if maxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(maxRetry))
	}
	return asynq.NewTask(TypeBookingConfirmation, b, opts...), nil
}

// Enqueuer is the part of asynq.Client the notifier needs
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// QueueNotifier hands confirmations to the worker instead of delivering inline
type QueueNotifier struct {
	client   Enqueuer
	maxRetry int
}

var _ providers.Notifier = (*QueueNotifier)(nil)

// NewQueueNotifier creates a notifier that enqueues onto client
func NewQueueNotifier(client Enqueuer, maxRetry int) *QueueNotifier {
	return &QueueNotifier{client: client, maxRetry: maxRetry}
}

func (q *QueueNotifier) Send(ctx context.Context, contactAddress string, appointment *entities.Appointment) error {
	if contactAddress == "" {
		return apperrors.NewValidationError("contact address is required")
	}
	task, err := NewConfirmationTask(contactAddress, appointment, q.maxRetry)
	if err != nil {
		return apperrors.NewInternalError("failed to encode confirmation task", err)
	}

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return apperrors.NewProviderError("failed to enqueue confirmation", err)
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("task_id", info.ID).
		Str("queue", info.Queue).
		Str("appointment_id", appointment.ID).
		Msg("Queued booking confirmation")
	return nil
}

// NewConfirmationHandler delivers queued confirmations through notifier.
// Validation failures are not retried.
func NewConfirmationHandler(notifier providers.Notifier) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p ConfirmationPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return fmt.Errorf("invalid confirmation payload: %v: %w", err, asynq.SkipRetry)
		}

		logger := observability.LoggerFromContext(ctx).With().Str("appointment_id", p.Appointment.ID).Logger()
		err := notifier.Send(ctx, p.ContactAddress, &p.Appointment)
		if err == nil {
			return nil
		}

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apperrors.ErrorTypeValidation {
			logger.Warn().Err(err).Msg("Dropping undeliverable confirmation")
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		logger.Error().Err(err).Msg("Confirmation delivery failed")
		return err
	}
}
