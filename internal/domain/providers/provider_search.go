package providers

import (
	"context"

	"github.com/smartscheduler/backend/internal/domain/entities"
)

// ProviderSearch is a full-text index over the provider directory
type ProviderSearch interface {
	Index(ctx context.Context, provider *entities.Provider) error
	SearchBySpecialty(ctx context.Context, specialty string, limit int) ([]*entities.Provider, error)
}
