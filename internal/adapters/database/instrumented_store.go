package database

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/repositories"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
)

// InstrumentedAvailabilityStore records a span and a latency sample for every store call
type InstrumentedAvailabilityStore struct {
	next    repositories.AvailabilityStore
	metrics *observability.Metrics
}

var _ repositories.AvailabilityStore = (*InstrumentedAvailabilityStore)(nil)

// NewInstrumentedAvailabilityStore wraps next
func NewInstrumentedAvailabilityStore(next repositories.AvailabilityStore, metrics *observability.Metrics) *InstrumentedAvailabilityStore {
	return &InstrumentedAvailabilityStore{next: next, metrics: metrics}
}

func (s *InstrumentedAvailabilityStore) observe(ctx context.Context, op, providerID string) (context.Context, func(error)) {
	ctx, span := observability.StartSpan(ctx, "store."+op)
	if providerID != "" {
		observability.SetSpanAttributes(span, attribute.String("provider.id", providerID))
	}
	start := time.Now()
	return ctx, func(err error) {
		observability.RecordStoreMetric(ctx, s.metrics, op, time.Since(start))
		if err != nil {
			observability.RecordError(span, err)
		}
		span.End()
	}
}

func (s *InstrumentedAvailabilityStore) InsertAppointment(ctx context.Context, appointment *entities.Appointment) (string, error) {
	ctx, done := s.observe(ctx, "insert_appointment", appointment.ProviderID)
	id, err := s.next.InsertAppointment(ctx, appointment)
	done(err)
	return id, err
}

func (s *InstrumentedAvailabilityStore) DeleteAppointment(ctx context.Context, id string) error {
	ctx, done := s.observe(ctx, "delete_appointment", "")
	err := s.next.DeleteAppointment(ctx, id)
	done(err)
	return err
}

func (s *InstrumentedAvailabilityStore) FindAppointments(ctx context.Context, providerID string) ([]entities.Appointment, error) {
	ctx, done := s.observe(ctx, "find_appointments", providerID)
	out, err := s.next.FindAppointments(ctx, providerID)
	done(err)
	return out, err
}

func (s *InstrumentedAvailabilityStore) FindAvailability(ctx context.Context, providerID string, window entities.Interval) ([]entities.AvailabilitySlot, error) {
	ctx, done := s.observe(ctx, "find_availability", providerID)
	out, err := s.next.FindAvailability(ctx, providerID, window)
	done(err)
	return out, err
}

func (s *InstrumentedAvailabilityStore) DeleteAvailability(ctx context.Context, providerID string, interval entities.Interval) (int64, error) {
	ctx, done := s.observe(ctx, "delete_availability", providerID)
	n, err := s.next.DeleteAvailability(ctx, providerID, interval)
	done(err)
	return n, err
}

func (s *InstrumentedAvailabilityStore) InsertAvailability(ctx context.Context, slot entities.AvailabilitySlot) error {
	ctx, done := s.observe(ctx, "insert_availability", slot.ProviderID)
	err := s.next.InsertAvailability(ctx, slot)
	done(err)
	return err
}
