package scheduling

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/providers"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
)

// GoogleCalendarAdapter books and reads events on Google Calendar. The provider id
// is used as the calendar id, so providers are registered under their calendar address.
type GoogleCalendarAdapter struct {
	service *calendar.Service
}

var _ providers.CalendarProvider = (*GoogleCalendarAdapter)(nil)

// NewGoogleCalendarAdapter creates a Calendar API client, typically with option.WithCredentialsFile
func NewGoogleCalendarAdapter(ctx context.Context, opts ...option.ClientOption) (*GoogleCalendarAdapter, error) {
	opts = append([]option.ClientOption{option.WithScopes(calendar.CalendarEventsScope, calendar.CalendarReadonlyScope)}, opts...)
	service, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &GoogleCalendarAdapter{service: service}, nil
}

// CreateEvent inserts the appointment and returns the event id and its html link
func (a *GoogleCalendarAdapter) CreateEvent(ctx context.Context, providerID string, appointment *entities.Appointment) (*entities.CalendarEvent, error) {
	event := &calendar.Event{
		Summary:     fmt.Sprintf("Appointment with %s", appointment.Patient.Name),
		Description: appointment.Notes,
		Start:       &calendar.EventDateTime{DateTime: appointment.Interval.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: appointment.Interval.End.Format(time.RFC3339)},
	}

	created, err := a.service.Events.Insert(providerID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to insert calendar event: %w", err)
	}

	observability.LoggerFromContext(ctx).Info().
		Str("provider_id", providerID).
		Str("event_id", created.Id).
		Msg("Created calendar event")

	return &entities.CalendarEvent{ExternalReference: created.Id, DisplayLink: created.HtmlLink}, nil
}

// ListEvents returns timed events in the window; all-day events carry no interval and are skipped
func (a *GoogleCalendarAdapter) ListEvents(ctx context.Context, providerID string, window entities.Interval) ([]entities.Interval, error) {
	call := a.service.Events.List(providerID).
		TimeMin(window.Start.Format(time.RFC3339)).
		TimeMax(window.End.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")

	logger := observability.LoggerFromContext(ctx)
	out := []entities.Interval{}
	err := call.Pages(ctx, func(page *calendar.Events) error {
		for _, item := range page.Items {
			iv, ok := eventInterval(item)
			if !ok {
				logger.Debug().Str("event_id", item.Id).Msg("Skipping calendar event without a timed interval")
				continue
			}
			out = append(out, iv)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list calendar events: %w", err)
	}
	return out, nil
}

func eventInterval(ev *calendar.Event) (entities.Interval, bool) {
	if ev.Start == nil || ev.End == nil || ev.Start.DateTime == "" || ev.End.DateTime == "" {
		return entities.Interval{}, false
	}
	start, err := time.Parse(time.RFC3339, ev.Start.DateTime)
	if err != nil {
		return entities.Interval{}, false
	}
	end, err := time.Parse(time.RFC3339, ev.End.DateTime)
	if err != nil {
		return entities.Interval{}, false
	}
	return entities.Interval{Start: start.UTC(), End: end.UTC()}, true
}
