package providers

import (
	"context"

	"github.com/smartscheduler/backend/internal/domain/entities"
)

// Recommender ranks free slots for a patient and returns the model's raw text.
// The output is untrusted and must be extracted and validated by the caller.
type Recommender interface {
	Suggest(ctx context.Context, patient entities.PatientProfile, free []entities.AvailabilitySlot) (string, error)
}
