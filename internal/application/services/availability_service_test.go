package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartscheduler/backend/internal/adapters/database"
	"github.com/smartscheduler/backend/internal/application/scheduling"
	"github.com/smartscheduler/backend/internal/application/services"
	"github.com/smartscheduler/backend/internal/domain/entities"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

func TestAvailabilityService_FreeSlots(t *testing.T) {
	store := seededStore(t, mustInterval(t, 9, 0, 9, 30), mustInterval(t, 9, 30, 10, 0))
	_, err := store.InsertAppointment(context.Background(), &entities.Appointment{ProviderID: "P1", Interval: mustInterval(t, 9, 0, 9, 30)})
	require.NoError(t, err)

	svc := services.NewAvailabilityService(store, database.NewMemoryProviderRepository(testProviders...), services.SlotPolicy{})

	free, err := svc.FreeSlots(context.Background(), "P1", mustInterval(t, 8, 0, 12, 0))
	require.NoError(t, err)
	require.Len(t, free, 1)
	assert.True(t, free[0].Interval.Equal(mustInterval(t, 9, 30, 10, 0)))

	_, err = svc.FreeSlots(context.Background(), "P404", mustInterval(t, 8, 0, 12, 0))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProviderNotFound))
}

func TestAvailabilityService_PersistIsIdempotent(t *testing.T) {
	store := database.NewMemoryAvailabilityStore()
	_, err := store.InsertAppointment(context.Background(), &entities.Appointment{ProviderID: "P1", Interval: mustInterval(t, 9, 0, 9, 30)})
	require.NoError(t, err)

	svc := services.NewAvailabilityService(store, database.NewMemoryProviderRepository(testProviders...), services.SlotPolicy{})
	params := scheduling.SlotParams{
		Providers: []entities.Provider{testProviders[0]},
		Horizon:   scheduling.DateRange{From: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), To: time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)},
		Windows:   []scheduling.DailyWindow{{StartHour: 9, EndHour: 12}},
		Step:      30 * time.Minute,
	}

	first, err := svc.Persist(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 6, first.Generated)
	assert.Equal(t, 5, first.Inserted, "slot under the committed appointment is skipped")
	assert.Equal(t, 1, first.Skipped)

	second, err := svc.Persist(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 6, second.Skipped)
}

func TestAvailabilityService_GenerateHorizon(t *testing.T) {
	store := database.NewMemoryAvailabilityStore()
	svc := services.NewAvailabilityService(store, database.NewMemoryProviderRepository(testProviders...), services.SlotPolicy{
		Windows:     []scheduling.DailyWindow{{StartHour: 9, EndHour: 10}},
		Step:        30 * time.Minute,
		HorizonDays: 7,
	})

	report, err := svc.GenerateHorizon(context.Background(), []string{"P2"})
	require.NoError(t, err)
	assert.Equal(t, 10, report.Inserted, "five weekdays in any seven-day span, two slots each")

	_, err = svc.GenerateHorizon(context.Background(), []string{"P404"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeProviderNotFound))
}

func TestAvailabilityService_PersistRejectsInvalidParams(t *testing.T) {
	svc := services.NewAvailabilityService(database.NewMemoryAvailabilityStore(), database.NewMemoryProviderRepository(), services.SlotPolicy{})
	_, err := svc.Persist(context.Background(), scheduling.SlotParams{Step: 0})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
}
