package scheduling

import "github.com/smartscheduler/backend/internal/domain/entities"

// FilterConflicts keeps the candidates that overlap no committed appointment,
// preserving input order. It does not scope by provider; callers pass only the
// relevant provider's appointments.
func FilterConflicts(candidates []entities.AvailabilitySlot, committed []entities.Appointment) []entities.AvailabilitySlot {
	free := make([]entities.AvailabilitySlot, 0, len(candidates))
	for _, slot := range candidates {
		if !OverlapsAny(slot.Interval, committed) {
			free = append(free, slot)
		}
	}
	return free
}

// OverlapsAny reports whether interval overlaps any committed appointment
func OverlapsAny(interval entities.Interval, committed []entities.Appointment) bool {
	for _, appt := range committed {
		if interval.Overlaps(appt.Interval) {
			return true
		}
	}
	return false
}
