package repositories

import (
	"context"

	"github.com/smartscheduler/backend/internal/domain/entities"
)

// AvailabilityStore is the gateway over persisted appointments and availability slots.
// Implementations wrap backend failures as STORE errors and reject a second appointment
// with the same provider, start and end as CONFLICT.
type AvailabilityStore interface {
	// InsertAppointment persists the appointment and returns the store-assigned id
	InsertAppointment(ctx context.Context, appointment *entities.Appointment) (string, error)

	// DeleteAppointment removes an appointment; deleting a missing id is not an error
	DeleteAppointment(ctx context.Context, id string) error

	// FindAppointments returns every committed appointment for the provider
	FindAppointments(ctx context.Context, providerID string) ([]entities.Appointment, error)

	// FindAvailability returns stored slots lying within window, ordered by start
	FindAvailability(ctx context.Context, providerID string, window entities.Interval) ([]entities.AvailabilitySlot, error)

	// DeleteAvailability removes every slot overlapping interval and reports how many were removed
	DeleteAvailability(ctx context.Context, providerID string, interval entities.Interval) (int64, error)

	// InsertAvailability stores a slot; an identical existing slot yields CONFLICT
	InsertAvailability(ctx context.Context, slot entities.AvailabilitySlot) error
}
