package repositories

import (
	"context"

	"github.com/smartscheduler/backend/internal/domain/entities"
)

// ProviderRepository is read-mostly reference data for practitioners
type ProviderRepository interface {
	// GetByID returns a PROVIDER_NOT_FOUND error when the id is unknown
	GetByID(ctx context.Context, id string) (*entities.Provider, error)

	// List returns providers, optionally restricted to a specialty
	List(ctx context.Context, filter ProviderFilter) ([]*entities.Provider, error)

	// Upsert creates or replaces a provider and returns its id
	Upsert(ctx context.Context, provider *entities.Provider) (string, error)
}

// ProviderFilter defines filters for listing providers
type ProviderFilter struct {
	Specialty string
	Limit     int
}
