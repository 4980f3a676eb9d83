package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/smartscheduler/backend/internal/adapters/database"
	"github.com/smartscheduler/backend/internal/application/services"
	"github.com/smartscheduler/backend/internal/domain/entities"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) Suggest(ctx context.Context, patient entities.PatientProfile, free []entities.AvailabilitySlot) (string, error) {
	args := m.Called(ctx, patient, free)
	return args.String(0), args.Error(1)
}

func TestRecommendationService_Recommend(t *testing.T) {
	window := mustInterval(t, 9, 0, 12, 0)
	patient := entities.PatientProfile{Name: "Jane Doe", Preferences: map[string]bool{"morning": true}}

	newService := func(t *testing.T, recommender *MockRecommender) (*services.RecommendationService, *database.MemoryAvailabilityStore) {
		store := seededStore(t,
			mustInterval(t, 9, 0, 9, 30),
			mustInterval(t, 9, 30, 10, 0),
			mustInterval(t, 10, 0, 10, 30),
			mustInterval(t, 10, 30, 11, 0),
		)
		_, err := store.InsertAppointment(context.Background(), &entities.Appointment{ProviderID: "P1", Interval: mustInterval(t, 9, 30, 10, 0)})
		require.NoError(t, err)
		repo := database.NewMemoryProviderRepository(testProviders...)
		return services.NewRecommendationService(repo, store, services.NewStoredAvailabilitySource(store), recommender, nil), store
	}

	t.Run("validates and truncates recommender output", func(t *testing.T) {
		recommender := new(MockRecommender)
		recommender.On("Suggest", mock.Anything, patient, mock.MatchedBy(func(free []entities.AvailabilitySlot) bool {
			return len(free) == 3
		})).Return("Here are my picks:\n```json\n"+`[
  {"start": "2025-06-02T09:30:00Z", "end": "2025-06-02T10:00:00Z", "reason": "booked already"},
  {"start": "2025-06-02T09:00:00Z", "end": "2025-06-02T09:30:00Z", "reason": "earliest"},
  {"start": "2025-06-02T10:00:00Z", "end": "2025-06-02T10:30:00Z", "reason": "mid morning"},
  {"start": "2025-06-02T10:30:00Z", "end": "2025-06-02T11:00:00Z", "reason": "late morning"},
  {"start": "2025-06-02T14:00:00Z", "end": "2025-06-02T14:30:00Z", "reason": "outside window"}
]`+"\n```", nil)

		svc, _ := newService(t, recommender)
		got, err := svc.Recommend(context.Background(), "P1", window, patient)
		require.NoError(t, err)

		require.Len(t, got, 3)
		assert.Equal(t, "earliest", got[0].Reason)
		assert.Equal(t, "mid morning", got[1].Reason)
		assert.Equal(t, "late morning", got[2].Reason)
		recommender.AssertExpectations(t)
	})

	t.Run("malformed output is a typed error", func(t *testing.T) {
		recommender := new(MockRecommender)
		recommender.On("Suggest", mock.Anything, mock.Anything, mock.Anything).Return("Sorry, I cannot help with that.", nil)

		svc, _ := newService(t, recommender)
		got, err := svc.Recommend(context.Background(), "P1", window, patient)
		assert.Nil(t, got)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeMalformedRecommendation))
	})

	t.Run("recommender transport failure is a provider error", func(t *testing.T) {
		recommender := new(MockRecommender)
		recommender.On("Suggest", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("429 rate limited"))

		svc, _ := newService(t, recommender)
		_, err := svc.Recommend(context.Background(), "P1", window, patient)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProvider))
	})

	t.Run("no free slots skips the recommender", func(t *testing.T) {
		recommender := new(MockRecommender)
		svc, _ := newService(t, recommender)

		got, err := svc.Recommend(context.Background(), "P1", mustInterval(t, 13, 0, 17, 0), patient)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		recommender.AssertNotCalled(t, "Suggest", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown provider", func(t *testing.T) {
		recommender := new(MockRecommender)
		svc, _ := newService(t, recommender)
		_, err := svc.Recommend(context.Background(), "P404", window, patient)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProviderNotFound))
	})

	t.Run("invalid window", func(t *testing.T) {
		recommender := new(MockRecommender)
		svc, _ := newService(t, recommender)
		_, err := svc.Recommend(context.Background(), "P1", entities.Interval{Start: window.End, End: window.Start}, patient)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInvalidInterval))
	})
}

func TestCalendarAvailabilitySource_Candidates(t *testing.T) {
	window := mustInterval(t, 9, 0, 12, 0)
	calendar := new(MockCalendarProvider)
	calendar.On("ListEvents", mock.Anything, "P1", window).Return([]entities.Interval{
		mustInterval(t, 9, 0, 9, 30),
		mustInterval(t, 11, 30, 12, 30),
		{Start: window.End, End: window.Start},
	}, nil)

	source := services.NewCalendarAvailabilitySource(calendar)
	slots, err := source.Candidates(context.Background(), "P1", window)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "P1", slots[0].ProviderID)

	failing := new(MockCalendarProvider)
	failing.On("ListEvents", mock.Anything, "P1", window).Return(nil, errors.New("401 unauthorized"))
	_, err = services.NewCalendarAvailabilitySource(failing).Candidates(context.Background(), "P1", window)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProvider))
}
