package providers

import (
	"context"

	"github.com/smartscheduler/backend/internal/domain/entities"
)

// CalendarProvider defines the interface for external calendar services (Google Calendar, mock)
type CalendarProvider interface {
	// CreateEvent books the appointment on the provider's calendar
	CreateEvent(ctx context.Context, providerID string, appointment *entities.Appointment) (*entities.CalendarEvent, error)

	// ListEvents returns the event intervals on the provider's calendar within window
	ListEvents(ctx context.Context, providerID string, window entities.Interval) ([]entities.Interval, error)
}
