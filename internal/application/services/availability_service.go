package services

import (
	"context"
	"time"

	"github.com/smartscheduler/backend/internal/application/scheduling"
	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/repositories"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

// SlotPolicy is the deployment's rule for generating availability
type SlotPolicy struct {
	Windows       []scheduling.DailyWindow
	Step          time.Duration
	HorizonDays   int
	Location      *time.Location
	IsBusinessDay func(time.Time) bool
}

// GenerationReport summarizes one generation run
type GenerationReport struct {
	Generated int `json:"generated"`
	Inserted  int `json:"inserted"`
	Skipped   int `json:"skipped"`
}

// AvailabilityService serves free slots and keeps stored availability populated
type AvailabilityService struct {
	store        repositories.AvailabilityStore
	providerRepo repositories.ProviderRepository
	policy       SlotPolicy
	now          func() time.Time
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(store repositories.AvailabilityStore, providerRepo repositories.ProviderRepository, policy SlotPolicy) *AvailabilityService {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &AvailabilityService{
		store:        store,
		providerRepo: providerRepo,
		policy:       policy,
		now:          time.Now,
	}
}

// FreeSlots returns stored slots within window that no committed appointment overlaps
func (s *AvailabilityService) FreeSlots(ctx context.Context, providerID string, window entities.Interval) ([]entities.AvailabilitySlot, error) {
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if _, err := lookupProvider(ctx, s.providerRepo, providerID); err != nil {
		return nil, err
	}

	slots, err := s.store.FindAvailability(ctx, providerID, window)
	if err != nil {
		return nil, apperrors.NewStoreError("failed to load availability", err)
	}
	committed, err := s.store.FindAppointments(ctx, providerID)
	if err != nil {
		return nil, apperrors.NewStoreError("failed to load committed appointments", err)
	}
	return scheduling.FilterConflicts(slots, committed), nil
}

// GenerateHorizon generates slots from tomorrow over the policy horizon for the
// given providers (all providers when none are named) and persists them.
// Slots already stored or overlapping a committed appointment are skipped.
func (s *AvailabilityService) GenerateHorizon(ctx context.Context, providerIDs []string) (*GenerationReport, error) {
	targets, err := s.targetProviders(ctx, providerIDs)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.policy.Location)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.policy.Location).AddDate(0, 0, 1)
	params := scheduling.SlotParams{
		Providers:     targets,
		Horizon:       scheduling.DateRange{From: from, To: from.AddDate(0, 0, s.policy.HorizonDays)},
		Windows:       s.policy.Windows,
		Step:          s.policy.Step,
		IsBusinessDay: s.policy.IsBusinessDay,
		Location:      s.policy.Location,
		Now:           now,
	}
	return s.Persist(ctx, params)
}

// Persist stores every slot of a generation run
func (s *AvailabilityService) Persist(ctx context.Context, params scheduling.SlotParams) (*GenerationReport, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	logger := observability.LoggerFromContext(ctx)

	committedByProvider := make(map[string][]entities.Appointment, len(params.Providers))
	for _, p := range params.Providers {
		committed, err := s.store.FindAppointments(ctx, p.ID)
		if err != nil {
			return nil, apperrors.NewStoreError("failed to load committed appointments", err)
		}
		committedByProvider[p.ID] = committed
	}

	report := &GenerationReport{}
	for slot := range scheduling.GenerateSlots(params) {
		report.Generated++
		if scheduling.OverlapsAny(slot.Interval, committedByProvider[slot.ProviderID]) {
			report.Skipped++
			continue
		}
		if err := s.store.InsertAvailability(ctx, slot); err != nil {
			if apperrors.IsType(err, apperrors.ErrorTypeConflict) {
				report.Skipped++
				continue
			}
			return report, apperrors.NewStoreError("failed to persist availability", err)
		}
		report.Inserted++
	}

	logger.Info().
		Int("providers", len(params.Providers)).
		Int("generated", report.Generated).
		Int("inserted", report.Inserted).
		Int("skipped", report.Skipped).
		Msg("Availability generated")
	return report, nil
}

func (s *AvailabilityService) targetProviders(ctx context.Context, providerIDs []string) ([]entities.Provider, error) {
	if len(providerIDs) == 0 {
		all, err := s.providerRepo.List(ctx, repositories.ProviderFilter{})
		if err != nil {
			return nil, apperrors.NewStoreError("failed to list providers", err)
		}
		out := make([]entities.Provider, 0, len(all))
		for _, p := range all {
			out = append(out, *p)
		}
		return out, nil
	}

	out := make([]entities.Provider, 0, len(providerIDs))
	for _, id := range providerIDs {
		p, err := lookupProvider(ctx, s.providerRepo, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}
