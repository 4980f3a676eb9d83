package database

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/repositories"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

// MemoryAvailabilityStore is an in-process AvailabilityStore. A single mutex makes
// every operation atomic, including the (provider, start, end) uniqueness check.
type MemoryAvailabilityStore struct {
	mu           sync.RWMutex
	appointments map[string]entities.Appointment
	slots        map[string][]entities.AvailabilitySlot
}

// NewMemoryAvailabilityStore creates an empty in-memory store
func NewMemoryAvailabilityStore() *MemoryAvailabilityStore {
	return &MemoryAvailabilityStore{
		appointments: make(map[string]entities.Appointment),
		slots:        make(map[string][]entities.AvailabilitySlot),
	}
}

var _ repositories.AvailabilityStore = (*MemoryAvailabilityStore)(nil)

func (s *MemoryAvailabilityStore) InsertAppointment(ctx context.Context, appointment *entities.Appointment) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperrors.NewStoreError("insert appointment", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.appointments {
		if existing.ProviderID == appointment.ProviderID && existing.Interval.Equal(appointment.Interval) {
			return "", apperrors.NewConflictError("appointment already exists for provider and interval", nil)
		}
	}

	id := uuid.NewString()
	stored := *appointment
	stored.ID = id
	s.appointments[id] = stored
	return id, nil
}

func (s *MemoryAvailabilityStore) DeleteAppointment(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStoreError("delete appointment", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.appointments, id)
	return nil
}

func (s *MemoryAvailabilityStore) FindAppointments(ctx context.Context, providerID string) ([]entities.Appointment, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStoreError("find appointments", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.Appointment, 0)
	for _, appt := range s.appointments {
		if appt.ProviderID == providerID {
			out = append(out, appt)
		}
	}
	slices.SortFunc(out, func(a, b entities.Appointment) int {
		return a.Interval.Start.Compare(b.Interval.Start)
	})
	return out, nil
}

func (s *MemoryAvailabilityStore) FindAvailability(ctx context.Context, providerID string, window entities.Interval) ([]entities.AvailabilitySlot, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStoreError("find availability", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entities.AvailabilitySlot, 0)
	for _, slot := range s.slots[providerID] {
		if window.Contains(slot.Interval) {
			out = append(out, slot)
		}
	}
	return out, nil
}

func (s *MemoryAvailabilityStore) DeleteAvailability(ctx context.Context, providerID string, interval entities.Interval) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperrors.NewStoreError("delete availability", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.slots[providerID])
	s.slots[providerID] = slices.DeleteFunc(s.slots[providerID], func(slot entities.AvailabilitySlot) bool {
		return slot.Interval.Overlaps(interval)
	})
	return int64(before - len(s.slots[providerID])), nil
}

func (s *MemoryAvailabilityStore) InsertAvailability(ctx context.Context, slot entities.AvailabilitySlot) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStoreError("insert availability", err)
	}
	if err := slot.Interval.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.slots[slot.ProviderID]
	idx, found := slices.BinarySearchFunc(existing, slot, compareSlots)
	if found {
		return apperrors.NewConflictError("availability slot already exists", nil)
	}
	s.slots[slot.ProviderID] = slices.Insert(existing, idx, slot)
	return nil
}

func compareSlots(a, b entities.AvailabilitySlot) int {
	if c := a.Interval.Start.Compare(b.Interval.Start); c != 0 {
		return c
	}
	return a.Interval.End.Compare(b.Interval.End)
}

// MemoryProviderRepository is an in-process ProviderRepository
type MemoryProviderRepository struct {
	mu        sync.RWMutex
	providers map[string]entities.Provider
	order     []string
}

// NewMemoryProviderRepository creates a repository preloaded with providers
func NewMemoryProviderRepository(seed ...entities.Provider) *MemoryProviderRepository {
	r := &MemoryProviderRepository{providers: make(map[string]entities.Provider)}
	for _, p := range seed {
		_, _ = r.Upsert(context.Background(), &p)
	}
	return r
}

var _ repositories.ProviderRepository = (*MemoryProviderRepository)(nil)

func (r *MemoryProviderRepository) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, apperrors.NewProviderNotFoundError(id)
	}
	p.Specialties = slices.Clone(p.Specialties)
	return &p, nil
}

func (r *MemoryProviderRepository) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*entities.Provider, 0, len(r.order))
	for _, id := range r.order {
		p := r.providers[id]
		if filter.Specialty != "" && !p.HasSpecialty(filter.Specialty) {
			continue
		}
		p.Specialties = slices.Clone(p.Specialties)
		out = append(out, &p)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *MemoryProviderRepository) Upsert(ctx context.Context, provider *entities.Provider) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := provider.ID
	if id == "" {
		id = uuid.NewString()
	}
	stored := *provider
	stored.ID = id
	stored.Specialties = slices.Clone(provider.Specialties)
	if _, exists := r.providers[id]; !exists {
		r.order = append(r.order, id)
	}
	r.providers[id] = stored
	return id, nil
}
