package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/providers"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
)

// EventMonitor follows appointment events and surfaces the ones that need an
// operator: reservations left behind by a failed rollback and bookings whose
// availability was not retracted.
type EventMonitor struct {
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}

	mu     sync.Mutex
	counts map[entities.AppointmentEventType]int
}

// NewEventMonitor creates a new event monitor
func NewEventMonitor(eventBus providers.EventBus) *EventMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventMonitor{
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		counts:   make(map[entities.AppointmentEventType]int),
	}
}

// Start subscribes to the appointment channel and processes events in the background
func (m *EventMonitor) Start() error {
	eventChan, err := m.eventBus.Subscribe(m.ctx, providers.EventChannelAppointments)
	if err != nil {
		return fmt.Errorf("failed to subscribe to appointment events: %w", err)
	}

	go m.processEvents(eventChan)
	observability.GetLogger().Info().Str("channel", providers.EventChannelAppointments).Msg("Event monitor started")
	return nil
}

// Stop cancels the subscription and waits for the processing loop to exit
func (m *EventMonitor) Stop() {
	m.cancel()
	<-m.done
}

// Counts returns how many events of each type were seen
func (m *EventMonitor) Counts() map[entities.AppointmentEventType]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[entities.AppointmentEventType]int, len(m.counts))
	for k, v := range m.counts {
		out[k] = v
	}
	return out
}

func (m *EventMonitor) processEvents(eventChan <-chan *entities.AppointmentEvent) {
	defer close(m.done)
	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}
			if event != nil {
				m.handleEvent(event)
			}
		}
	}
}

func (m *EventMonitor) handleEvent(event *entities.AppointmentEvent) {
	m.mu.Lock()
	m.counts[event.EventType]++
	m.mu.Unlock()

	logger := observability.GetLogger()
	var entry *zerolog.Event
	switch event.EventType {
	case entities.AppointmentEventCompensationFailed:
		entry = logger.Error().Bool("manual_cleanup", true)
	case entities.AppointmentEventRetractionDegraded, entities.AppointmentEventRolledBack:
		entry = logger.Warn()
	default:
		entry = logger.Info()
	}

	entry.
		Str("event_id", event.ID).
		Str("event_type", string(event.EventType)).
		Str("appointment_id", event.AppointmentID).
		Str("provider_id", event.ProviderID).
		Str("interval", event.Interval.String()).
		Str("detail", event.Detail).
		Msg("Appointment event")
}
