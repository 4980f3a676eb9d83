package scheduling

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/option"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/providers"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
)

// CalendarProviderConfig configures calendar providers
type CalendarProviderConfig struct {
	Driver          string
	CredentialsFile string
	AllowMockReads  bool
}

// NewCalendarProvider builds the configured calendar provider. With AllowMockReads a
// failing Google read falls back to the mock; writes never fall back.
func NewCalendarProvider(ctx context.Context, cfg CalendarProviderConfig) (providers.CalendarProvider, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "mock":
		return NewMockAdapter(), nil
	case "google":
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		primary, err := NewGoogleCalendarAdapter(ctx, opts...)
		if err != nil {
			return nil, err
		}
		if !cfg.AllowMockReads {
			return primary, nil
		}
		return NewFallbackCalendar(primary, NewMockAdapter()), nil
	default:
		return nil, fmt.Errorf("unknown calendar driver %q", cfg.Driver)
	}
}

// FallbackCalendar wraps a primary calendar with a read-only fallback
type FallbackCalendar struct {
	primary  providers.CalendarProvider
	fallback providers.CalendarProvider
}

var _ providers.CalendarProvider = (*FallbackCalendar)(nil)

// NewFallbackCalendar creates a calendar that serves reads from fallback when primary fails
func NewFallbackCalendar(primary, fallback providers.CalendarProvider) *FallbackCalendar {
	return &FallbackCalendar{primary: primary, fallback: fallback}
}

// CreateEvent always goes to the primary; a booking must never land on a mock calendar
func (p *FallbackCalendar) CreateEvent(ctx context.Context, providerID string, appointment *entities.Appointment) (*entities.CalendarEvent, error) {
	return p.primary.CreateEvent(ctx, providerID, appointment)
}

func (p *FallbackCalendar) ListEvents(ctx context.Context, providerID string, window entities.Interval) ([]entities.Interval, error) {
	events, err := p.primary.ListEvents(ctx, providerID, window)
	if err != nil && p.fallback != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("provider_id", providerID).Msg("Calendar read failed, serving fallback events")
		return p.fallback.ListEvents(ctx, providerID, window)
	}
	return events, err
}
