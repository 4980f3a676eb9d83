package providers

import (
	"context"

	"github.com/smartscheduler/backend/internal/domain/entities"
)

// Notifier delivers a booking confirmation to the patient
type Notifier interface {
	Send(ctx context.Context, contactAddress string, appointment *entities.Appointment) error
}
