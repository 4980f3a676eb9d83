package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/smartscheduler/backend/internal/application/scheduling"
	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/providers"
	"github.com/smartscheduler/backend/internal/domain/repositories"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

// AvailabilitySource yields candidate slots for a provider within a window
type AvailabilitySource interface {
	Candidates(ctx context.Context, providerID string, window entities.Interval) ([]entities.AvailabilitySlot, error)
}

// StoredAvailabilitySource reads slots persisted in the availability store
type StoredAvailabilitySource struct {
	store repositories.AvailabilityStore
}

func NewStoredAvailabilitySource(store repositories.AvailabilityStore) *StoredAvailabilitySource {
	return &StoredAvailabilitySource{store: store}
}

func (s *StoredAvailabilitySource) Candidates(ctx context.Context, providerID string, window entities.Interval) ([]entities.AvailabilitySlot, error) {
	slots, err := s.store.FindAvailability(ctx, providerID, window)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeStore) {
			return nil, err
		}
		return nil, apperrors.NewStoreError("failed to load availability", err)
	}
	return slots, nil
}

// CalendarAvailabilitySource treats each event on the provider's calendar as an open slot
type CalendarAvailabilitySource struct {
	calendar providers.CalendarProvider
}

func NewCalendarAvailabilitySource(calendar providers.CalendarProvider) *CalendarAvailabilitySource {
	return &CalendarAvailabilitySource{calendar: calendar}
}

func (s *CalendarAvailabilitySource) Candidates(ctx context.Context, providerID string, window entities.Interval) ([]entities.AvailabilitySlot, error) {
	intervals, err := s.calendar.ListEvents(ctx, providerID, window)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeProvider) {
			return nil, err
		}
		return nil, apperrors.NewProviderError("failed to read provider calendar", err)
	}
	slots := make([]entities.AvailabilitySlot, 0, len(intervals))
	for _, interval := range intervals {
		if interval.Validate() != nil || !window.Contains(interval) {
			continue
		}
		slots = append(slots, entities.AvailabilitySlot{ProviderID: providerID, Interval: interval})
	}
	return slots, nil
}

// RecommendationService narrows free slots and asks the recommender to rank them
type RecommendationService struct {
	providerRepo repositories.ProviderRepository
	store        repositories.AvailabilityStore
	source       AvailabilitySource
	recommender  providers.Recommender
	metrics      *observability.Metrics
}

// NewRecommendationService creates a new recommendation service
func NewRecommendationService(
	providerRepo repositories.ProviderRepository,
	store repositories.AvailabilityStore,
	source AvailabilitySource,
	recommender providers.Recommender,
	metrics *observability.Metrics,
) *RecommendationService {
	return &RecommendationService{
		providerRepo: providerRepo,
		store:        store,
		source:       source,
		recommender:  recommender,
		metrics:      metrics,
	}
}

// Recommend returns at most three validated suggestions. Recommender output that
// cannot be parsed yields MALFORMED_RECOMMENDATION; suggestions are never invented.
func (s *RecommendationService) Recommend(ctx context.Context, providerID string, window entities.Interval, patient entities.PatientProfile) ([]entities.RecommendationSuggestion, error) {
	ctx, span := observability.StartSpan(ctx, "recommendation.pipeline")
	defer span.End()
	observability.SetSpanAttributes(span, attribute.String("provider.id", providerID))

	logger := observability.LoggerFromContext(ctx).With().Str("provider_id", providerID).Logger()

	if providerID == "" {
		return nil, apperrors.NewValidationError("provider_id is required")
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if _, err := lookupProvider(ctx, s.providerRepo, providerID); err != nil {
		return nil, err
	}

	candidates, err := s.source.Candidates(ctx, providerID, window)
	if err != nil {
		s.record(ctx, "source_error")
		return nil, err
	}
	committed, err := s.store.FindAppointments(ctx, providerID)
	if err != nil {
		s.record(ctx, "store_error")
		return nil, apperrors.NewStoreError("failed to load committed appointments", err)
	}

	free := scheduling.FilterConflicts(candidates, committed)
	if len(free) == 0 {
		logger.Debug().Int("candidates", len(candidates)).Msg("No free slots to recommend")
		s.record(ctx, "no_free_slots")
		return []entities.RecommendationSuggestion{}, nil
	}

	raw, err := s.recommender.Suggest(ctx, patient, free)
	if err != nil {
		observability.RecordError(span, err)
		s.record(ctx, "recommender_error")
		if apperrors.IsType(err, apperrors.ErrorTypeProvider) {
			return nil, err
		}
		return nil, apperrors.NewProviderError("recommender request failed", err)
	}

	suggestions, err := scheduling.ExtractSuggestions(raw)
	if err != nil {
		logger.Warn().Err(err).Msg("Recommender output rejected")
		s.record(ctx, "malformed")
		return nil, err
	}

	valid := scheduling.ValidateSuggestions(suggestions, window, free)
	if dropped := len(suggestions) - len(valid); dropped > 0 {
		logger.Debug().Int("parsed", len(suggestions)).Int("kept", len(valid)).Msg("Dropped suggestions outside the free set")
	}
	s.record(ctx, "ok")
	return valid, nil
}

func (s *RecommendationService) record(ctx context.Context, outcome string) {
	observability.RecordRecommendationOutcome(ctx, s.metrics, outcome)
}
