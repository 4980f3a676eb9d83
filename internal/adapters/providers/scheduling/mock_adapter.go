package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/providers"
)

// MockAdapter provides deterministic calendar behaviour for local development.
// Created events are remembered so ListEvents reflects them.
type MockAdapter struct {
	slotDuration time.Duration
	maxSlots     int

	mu     sync.Mutex
	events map[string][]entities.Interval
}

var _ providers.CalendarProvider = (*MockAdapter)(nil)

// NewMockAdapter creates a mock calendar provider
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		slotDuration: 30 * time.Minute,
		maxSlots:     6,
		events:       make(map[string][]entities.Interval),
	}
}

// CreateEvent returns a mock reference and records the event
func (m *MockAdapter) CreateEvent(ctx context.Context, providerID string, appointment *entities.Appointment) (*entities.CalendarEvent, error) {
	m.mu.Lock()
	m.events[providerID] = append(m.events[providerID], appointment.Interval)
	m.mu.Unlock()

	id := "mock-" + uuid.NewString()
	return &entities.CalendarEvent{
		ExternalReference: id,
		DisplayLink:       fmt.Sprintf("https://calendar.example.com/event/%s", id),
	}, nil
}

// ListEvents returns recorded events in the window, or when none exist a run of
// half-hour events starting on the first half-hour boundary after window start.
func (m *MockAdapter) ListEvents(ctx context.Context, providerID string, window entities.Interval) ([]entities.Interval, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	recorded := m.events[providerID]
	m.mu.Unlock()

	out := []entities.Interval{}
	for _, iv := range recorded {
		if window.Contains(iv) {
			out = append(out, iv)
		}
	}
	if len(out) > 0 || len(recorded) > 0 {
		return out, nil
	}

	cursor := window.Start.Truncate(m.slotDuration)
	if cursor.Before(window.Start) {
		cursor = cursor.Add(m.slotDuration)
	}
	for len(out) < m.maxSlots {
		end := cursor.Add(m.slotDuration)
		if end.After(window.End) {
			break
		}
		out = append(out, entities.Interval{Start: cursor, End: end})
		cursor = end
	}
	return out, nil
}
