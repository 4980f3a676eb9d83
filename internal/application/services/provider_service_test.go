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

type MockProviderSearch struct {
	mock.Mock
}

func (m *MockProviderSearch) Index(ctx context.Context, provider *entities.Provider) error {
	args := m.Called(ctx, provider)
	return args.Error(0)
}

func (m *MockProviderSearch) SearchBySpecialty(ctx context.Context, specialty string, limit int) ([]*entities.Provider, error) {
	args := m.Called(ctx, specialty, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Provider), args.Error(1)
}

func TestProviderService_Search(t *testing.T) {
	repo := database.NewMemoryProviderRepository(testProviders...)

	t.Run("uses the search index", func(t *testing.T) {
		search := new(MockProviderSearch)
		search.On("SearchBySpecialty", mock.Anything, "cardiology", 20).Return([]*entities.Provider{&testProviders[0]}, nil)

		got, err := services.NewProviderService(repo, search).Search(context.Background(), "cardiology", 0)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "P1", got[0].ID)
		search.AssertExpectations(t)
	})

	t.Run("falls back to the repository", func(t *testing.T) {
		search := new(MockProviderSearch)
		search.On("SearchBySpecialty", mock.Anything, "General", 5).Return(nil, errors.New("typesense down"))

		got, err := services.NewProviderService(repo, search).Search(context.Background(), "General", 5)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "Dr. Bob Jones", got[0].Name)
	})

	t.Run("lists everything without a specialty", func(t *testing.T) {
		got, err := services.NewProviderService(repo, nil).Search(context.Background(), "", 0)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestProviderService_GetAndRegister(t *testing.T) {
	repo := database.NewMemoryProviderRepository()
	search := new(MockProviderSearch)
	search.On("Index", mock.Anything, mock.Anything).Return(errors.New("index offline"))
	svc := services.NewProviderService(repo, search)

	id, err := svc.Register(context.Background(), &entities.Provider{Name: "Dr. Carol White", Specialties: []string{"pediatrics"}})
	require.NoError(t, err, "indexing failures are logged, not returned")
	assert.NotEmpty(t, id)

	got, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Carol White", got.Name)

	_, err = svc.Get(context.Background(), "missing")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProviderNotFound))

	_, err = svc.Register(context.Background(), &entities.Provider{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
