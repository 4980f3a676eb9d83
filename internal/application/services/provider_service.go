package services

import (
	"context"
	"strings"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/providers"
	"github.com/smartscheduler/backend/internal/domain/repositories"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

const defaultProviderSearchLimit = 20

// ProviderService serves the provider directory. Specialty search goes to the
// search index when configured and falls back to the repository.
type ProviderService struct {
	repo   repositories.ProviderRepository
	search providers.ProviderSearch
}

// NewProviderService creates a new provider service. search may be nil.
func NewProviderService(repo repositories.ProviderRepository, search providers.ProviderSearch) *ProviderService {
	return &ProviderService{repo: repo, search: search}
}

// Get returns a provider by id
func (s *ProviderService) Get(ctx context.Context, id string) (*entities.Provider, error) {
	return lookupProvider(ctx, s.repo, id)
}

// Search lists providers, filtered by specialty when one is given
func (s *ProviderService) Search(ctx context.Context, specialty string, limit int) ([]*entities.Provider, error) {
	if limit <= 0 {
		limit = defaultProviderSearchLimit
	}
	specialty = strings.TrimSpace(specialty)

	if specialty != "" && s.search != nil {
		found, err := s.search.SearchBySpecialty(ctx, specialty, limit)
		if err == nil {
			return found, nil
		}
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("specialty", specialty).
			Msg("Provider search index unavailable, falling back to repository")
	}

	list, err := s.repo.List(ctx, repositories.ProviderFilter{Specialty: specialty, Limit: limit})
	if err != nil {
		return nil, apperrors.NewStoreError("failed to list providers", err)
	}
	return list, nil
}

// Register upserts a provider and indexes it for search
func (s *ProviderService) Register(ctx context.Context, provider *entities.Provider) (string, error) {
	if strings.TrimSpace(provider.Name) == "" {
		return "", apperrors.NewValidationError("provider name is required")
	}
	id, err := s.repo.Upsert(ctx, provider)
	if err != nil {
		return "", apperrors.NewStoreError("failed to save provider", err)
	}
	provider.ID = id

	if s.search != nil {
		if err := s.search.Index(ctx, provider); err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("provider_id", id).
				Msg("Failed to index provider")
		}
	}
	return id, nil
}

// lookupProvider normalizes repository misses to PROVIDER_NOT_FOUND and other failures to STORE
func lookupProvider(ctx context.Context, repo repositories.ProviderRepository, id string) (*entities.Provider, error) {
	provider, err := repo.GetByID(ctx, id)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeProviderNotFound) || apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			return nil, apperrors.NewProviderNotFoundError(id)
		}
		return nil, apperrors.NewStoreError("failed to resolve provider", err)
	}
	if provider == nil {
		return nil, apperrors.NewProviderNotFoundError(id)
	}
	return provider, nil
}
