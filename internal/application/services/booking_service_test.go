package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/smartscheduler/backend/internal/adapters/database"
	"github.com/smartscheduler/backend/internal/application/services"
	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/providers"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

// Mocks

type MockCalendarProvider struct {
	mock.Mock
}

func (m *MockCalendarProvider) CreateEvent(ctx context.Context, providerID string, appointment *entities.Appointment) (*entities.CalendarEvent, error) {
	args := m.Called(ctx, providerID, appointment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.CalendarEvent), args.Error(1)
}

func (m *MockCalendarProvider) ListEvents(ctx context.Context, providerID string, window entities.Interval) ([]entities.Interval, error) {
	args := m.Called(ctx, providerID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Interval), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, contactAddress string, appointment *entities.Appointment) error {
	args := m.Called(ctx, contactAddress, appointment)
	return args.Error(0)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.AppointmentEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.AppointmentEvent, error) {
	return nil, nil
}

func (m *MockEventBus) Close() error {
	return nil
}

// flakyStore fails selected operations on top of the in-memory store
type flakyStore struct {
	*database.MemoryAvailabilityStore
	deleteAppointmentErr  error
	deleteAvailabilityErr error
}

func (s *flakyStore) DeleteAppointment(ctx context.Context, id string) error {
	if s.deleteAppointmentErr != nil {
		return s.deleteAppointmentErr
	}
	return s.MemoryAvailabilityStore.DeleteAppointment(ctx, id)
}

func (s *flakyStore) DeleteAvailability(ctx context.Context, providerID string, interval entities.Interval) (int64, error) {
	if s.deleteAvailabilityErr != nil {
		return 0, s.deleteAvailabilityErr
	}
	return s.MemoryAvailabilityStore.DeleteAvailability(ctx, providerID, interval)
}

// Helpers

var testProviders = []entities.Provider{
	{ID: "P1", Name: "Dr. Alice Smith", Specialties: []string{"cardiology"}},
	{ID: "P2", Name: "Dr. Bob Jones", Specialties: []string{"dermatology", "general"}},
}

func mustInterval(t *testing.T, h1, m1, h2, m2 int) entities.Interval {
	t.Helper()
	i, err := entities.NewInterval(
		time.Date(2025, 6, 2, h1, m1, 0, 0, time.UTC),
		time.Date(2025, 6, 2, h2, m2, 0, 0, time.UTC),
	)
	require.NoError(t, err)
	return i
}

func seededStore(t *testing.T, slots ...entities.Interval) *database.MemoryAvailabilityStore {
	t.Helper()
	store := database.NewMemoryAvailabilityStore()
	for _, interval := range slots {
		require.NoError(t, store.InsertAvailability(context.Background(), entities.AvailabilitySlot{ProviderID: "P1", Interval: interval}))
	}
	return store
}

func bookingRequest(interval entities.Interval) entities.BookingRequest {
	return entities.BookingRequest{
		ProviderID: "P1",
		Interval:   interval,
		Patient:    entities.PatientProfile{Name: "Jane Doe", ContactAddress: "jane@example.com"},
		Notes:      "Annual check-up",
	}
}

// Tests

func TestBookingService_Book(t *testing.T) {
	window := mustInterval(t, 9, 0, 12, 0)
	slot := mustInterval(t, 9, 0, 9, 30)

	t.Run("commits, retracts availability and notifies", func(t *testing.T) {
		store := seededStore(t, slot, mustInterval(t, 9, 30, 10, 0))
		calendar := new(MockCalendarProvider)
		notifier := new(MockNotifier)
		bus := new(MockEventBus)

		calendar.On("CreateEvent", mock.Anything, "P1", mock.MatchedBy(func(a *entities.Appointment) bool {
			return a.ID != "" && a.ProviderName == "Dr. Alice Smith" && a.Interval.Equal(slot)
		})).Return(&entities.CalendarEvent{ExternalReference: "evt-1", DisplayLink: "https://calendar/evt-1"}, nil)
		notifier.On("Send", mock.Anything, "jane@example.com", mock.Anything).Return(nil)
		bus.On("Publish", mock.Anything, providers.EventChannelAppointments, mock.MatchedBy(func(e *entities.AppointmentEvent) bool {
			return e.EventType == entities.AppointmentEventBooked
		})).Return(nil)

		svc := services.NewBookingService(store, database.NewMemoryProviderRepository(testProviders...), calendar, notifier,
			services.BookingConfig{EventBus: bus})

		result, err := svc.Book(context.Background(), bookingRequest(slot))
		require.NoError(t, err)
		svc.Wait()

		assert.NotEmpty(t, result.AppointmentID)
		assert.Equal(t, "evt-1", result.CalendarReference)
		assert.Equal(t, "https://calendar/evt-1", result.CalendarLink)
		assert.Empty(t, result.Warnings)

		appts, err := store.FindAppointments(context.Background(), "P1")
		require.NoError(t, err)
		require.Len(t, appts, 1)
		assert.Equal(t, result.AppointmentID, appts[0].ID)

		remaining, err := store.FindAvailability(context.Background(), "P1", window)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.False(t, remaining[0].Interval.Overlaps(slot))

		calendar.AssertExpectations(t)
		notifier.AssertExpectations(t)
		bus.AssertExpectations(t)
	})

	t.Run("calendar failure rolls the reservation back", func(t *testing.T) {
		store := seededStore(t, slot)
		calendar := new(MockCalendarProvider)
		notifier := new(MockNotifier)
		cause := errors.New("googleapi: Error 403: quota exceeded")
		calendar.On("CreateEvent", mock.Anything, "P1", mock.Anything).Return(nil, cause)

		svc := services.NewBookingService(store, database.NewMemoryProviderRepository(testProviders...), calendar, notifier, services.BookingConfig{})

		result, err := svc.Book(context.Background(), bookingRequest(slot))
		svc.Wait()
		require.Error(t, err)
		assert.Nil(t, result)

		bookingErr, ok := services.AsBookingError(err)
		require.True(t, ok)
		assert.Equal(t, services.SagaRolledBack, bookingErr.State)
		assert.False(t, bookingErr.Inconsistent())
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCalendarCommitFailed))
		assert.ErrorIs(t, err, cause)

		appts, _ := store.FindAppointments(context.Background(), "P1")
		assert.Empty(t, appts)
		slots, _ := store.FindAvailability(context.Background(), "P1", window)
		assert.Len(t, slots, 1, "availability must be untouched")
		notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("compensation failure is surfaced distinctly", func(t *testing.T) {
		store := &flakyStore{
			MemoryAvailabilityStore: seededStore(t, slot),
			deleteAppointmentErr:    errors.New("store unreachable"),
		}
		calendar := new(MockCalendarProvider)
		calendar.On("CreateEvent", mock.Anything, "P1", mock.Anything).Return(nil, errors.New("timeout"))

		svc := services.NewBookingService(store, database.NewMemoryProviderRepository(testProviders...), calendar, nil, services.BookingConfig{})

		_, err := svc.Book(context.Background(), bookingRequest(slot))
		bookingErr, ok := services.AsBookingError(err)
		require.True(t, ok)
		assert.Equal(t, services.SagaCompensationFailed, bookingErr.State)
		assert.True(t, bookingErr.Inconsistent())
		assert.NotEmpty(t, bookingErr.AppointmentID)
		assert.True(t, apperrors.IsType(bookingErr.CompensationErr, apperrors.ErrorTypeStore))
		assert.Contains(t, err.Error(), "compensation failed")
	})

	t.Run("cancelled request still compensates", func(t *testing.T) {
		store := seededStore(t, slot)
		calendar := new(MockCalendarProvider)
		ctx, cancel := context.WithCancel(context.Background())
		calendar.On("CreateEvent", mock.Anything, "P1", mock.Anything).
			Run(func(mock.Arguments) { cancel() }).
			Return(nil, context.Canceled)

		svc := services.NewBookingService(store, database.NewMemoryProviderRepository(testProviders...), calendar, nil, services.BookingConfig{})

		_, err := svc.Book(ctx, bookingRequest(slot))
		bookingErr, ok := services.AsBookingError(err)
		require.True(t, ok)
		assert.Equal(t, services.SagaRolledBack, bookingErr.State)

		appts, _ := store.FindAppointments(context.Background(), "P1")
		assert.Empty(t, appts)
	})

	t.Run("retraction failure degrades to a warning", func(t *testing.T) {
		store := &flakyStore{
			MemoryAvailabilityStore: seededStore(t, slot),
			deleteAvailabilityErr:   errors.New("write concern timeout"),
		}
		calendar := new(MockCalendarProvider)
		calendar.On("CreateEvent", mock.Anything, "P1", mock.Anything).Return(&entities.CalendarEvent{ExternalReference: "evt-2"}, nil)

		svc := services.NewBookingService(store, database.NewMemoryProviderRepository(testProviders...), calendar, nil, services.BookingConfig{})

		result, err := svc.Book(context.Background(), bookingRequest(slot))
		require.NoError(t, err)
		assert.Equal(t, "evt-2", result.CalendarReference)
		require.Len(t, result.Warnings, 1)

		appts, _ := store.FindAppointments(context.Background(), "P1")
		assert.Len(t, appts, 1)
	})

	t.Run("notification failure does not affect the result", func(t *testing.T) {
		store := seededStore(t, slot)
		calendar := new(MockCalendarProvider)
		notifier := new(MockNotifier)
		calendar.On("CreateEvent", mock.Anything, "P1", mock.Anything).Return(&entities.CalendarEvent{ExternalReference: "evt-3"}, nil)
		notifier.On("Send", mock.Anything, "jane@example.com", mock.Anything).Return(errors.New("smtp down"))

		svc := services.NewBookingService(store, database.NewMemoryProviderRepository(testProviders...), calendar, notifier, services.BookingConfig{})

		result, err := svc.Book(context.Background(), bookingRequest(slot))
		svc.Wait()
		require.NoError(t, err)
		assert.Equal(t, "evt-3", result.CalendarReference)
		notifier.AssertExpectations(t)
	})

	t.Run("unknown provider fails without side effects", func(t *testing.T) {
		store := seededStore(t, slot)
		calendar := new(MockCalendarProvider)

		svc := services.NewBookingService(store, database.NewMemoryProviderRepository(testProviders...), calendar, nil, services.BookingConfig{})

		req := bookingRequest(slot)
		req.ProviderID = "P404"
		_, err := svc.Book(context.Background(), req)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProviderNotFound))
		calendar.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid interval is rejected", func(t *testing.T) {
		calendar := new(MockCalendarProvider)
		svc := services.NewBookingService(seededStore(t), database.NewMemoryProviderRepository(testProviders...), calendar, nil, services.BookingConfig{})

		req := bookingRequest(entities.Interval{Start: slot.End, End: slot.Start})
		_, err := svc.Book(context.Background(), req)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidInterval))
	})

	t.Run("overlapping existing appointment is a conflict", func(t *testing.T) {
		store := seededStore(t)
		_, err := store.InsertAppointment(context.Background(), &entities.Appointment{ProviderID: "P1", Interval: mustInterval(t, 9, 15, 9, 45)})
		require.NoError(t, err)
		calendar := new(MockCalendarProvider)

		svc := services.NewBookingService(store, database.NewMemoryProviderRepository(testProviders...), calendar, nil, services.BookingConfig{})

		_, err = svc.Book(context.Background(), bookingRequest(slot))
		bookingErr, ok := services.AsBookingError(err)
		require.True(t, ok)
		assert.Equal(t, services.SagaRequested, bookingErr.State)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict))
		calendar.AssertNotCalled(t, "CreateEvent", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestBookingService_ConcurrentDuplicateBookings(t *testing.T) {
	slot := mustInterval(t, 9, 0, 9, 30)
	store := seededStore(t, slot)
	calendar := new(MockCalendarProvider)
	calendar.On("CreateEvent", mock.Anything, "P1", mock.Anything).Return(&entities.CalendarEvent{ExternalReference: "evt"}, nil)

	svc := services.NewBookingService(store, database.NewMemoryProviderRepository(testProviders...), calendar, nil, services.BookingConfig{})

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Book(context.Background(), bookingRequest(slot))
		}()
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, successes)

	appts, _ := store.FindAppointments(context.Background(), "P1")
	assert.Len(t, appts, 1)
}

func TestSagaState_Transitions(t *testing.T) {
	saga := services.NewSaga()
	require.NoError(t, saga.Advance(services.SagaReserved))
	require.NoError(t, saga.Advance(services.SagaCalendarCommitted))
	require.NoError(t, saga.Advance(services.SagaAvailabilityRetracted))
	require.NoError(t, saga.Advance(services.SagaComplete))
	assert.True(t, saga.State().Terminal())
	assert.Equal(t, []services.SagaState{
		services.SagaRequested, services.SagaReserved, services.SagaCalendarCommitted,
		services.SagaAvailabilityRetracted, services.SagaComplete,
	}, saga.History())

	tests := []struct {
		from, to services.SagaState
		legal    bool
	}{
		{services.SagaRequested, services.SagaCalendarCommitted, false},
		{services.SagaRequested, services.SagaRolledBack, false},
		{services.SagaReserved, services.SagaRolledBack, true},
		{services.SagaReserved, services.SagaCompensationFailed, true},
		{services.SagaReserved, services.SagaComplete, false},
		{services.SagaCalendarCommitted, services.SagaRolledBack, false},
		{services.SagaCalendarCommitted, services.SagaComplete, true},
		{services.SagaRolledBack, services.SagaReserved, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.legal, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}

	assert.True(t, services.SagaRolledBack.Terminal())
	assert.True(t, services.SagaCompensationFailed.Terminal())
	assert.False(t, services.SagaReserved.Terminal())
}
