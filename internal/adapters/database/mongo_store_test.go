package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/smartscheduler/backend/internal/adapters/database"
	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/repositories"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

func TestMongoAvailabilityStore(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("insert appointment returns hex id", func(mt *mtest.T) {
		store := database.NewMongoAvailabilityStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		id, err := store.InsertAppointment(ctx, &entities.Appointment{ProviderID: "P1", Interval: slotAt(10, 11)})
		require.NoError(mt, err)
		_, err = primitive.ObjectIDFromHex(id)
		assert.NoError(mt, err)
	})

	mt.Run("duplicate appointment is a conflict", func(mt *mtest.T) {
		store := database.NewMongoAvailabilityStore(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		_, err := store.InsertAppointment(ctx, &entities.Appointment{ProviderID: "P1", Interval: slotAt(10, 11)})
		assert.Equal(mt, apperrors.ErrorTypeConflict, apperrors.TypeOf(err))
	})

	mt.Run("command failure is a store error", func(mt *mtest.T) {
		store := database.NewMongoAvailabilityStore(mt.DB)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad value",
		}))

		_, err := store.InsertAppointment(ctx, &entities.Appointment{ProviderID: "P1", Interval: slotAt(10, 11)})
		assert.Equal(mt, apperrors.ErrorTypeStore, apperrors.TypeOf(err))
	})

	mt.Run("find appointments decodes documents", func(mt *mtest.T) {
		store := database.NewMongoAvailabilityStore(mt.DB)
		oid := primitive.NewObjectID()
		iv := slotAt(10, 11)
		ns := mt.DB.Name() + ".appointments"

		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "provider_id", Value: "P1"},
			{Key: "interval", Value: bson.D{{Key: "start", Value: iv.Start}, {Key: "end", Value: iv.End}}},
			{Key: "patient", Value: bson.D{{Key: "name", Value: "Jane Doe"}}},
			{Key: "provider_name", Value: "Dr. Alice Smith"},
		}))

		got, err := store.FindAppointments(ctx, "P1")
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, oid.Hex(), got[0].ID)
		assert.True(mt, got[0].Interval.Equal(iv))
		assert.Equal(mt, "Jane Doe", got[0].Patient.Name)
	})

	mt.Run("delete availability reports count", func(mt *mtest.T) {
		store := database.NewMongoAvailabilityStore(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(2)}))

		n, err := store.DeleteAvailability(ctx, "P1", slotAt(10, 11))
		require.NoError(mt, err)
		assert.Equal(mt, int64(2), n)
	})

	mt.Run("delete appointment ignores foreign ids", func(mt *mtest.T) {
		store := database.NewMongoAvailabilityStore(mt.DB)
		assert.NoError(mt, store.DeleteAppointment(ctx, "not-an-object-id"))
	})

	mt.Run("duplicate slot is a conflict", func(mt *mtest.T) {
		store := database.NewMongoAvailabilityStore(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key error"}))

		err := store.InsertAvailability(ctx, entities.AvailabilitySlot{ProviderID: "P1", Interval: slotAt(9, 10)})
		assert.Equal(mt, apperrors.ErrorTypeConflict, apperrors.TypeOf(err))
	})
}

func TestMongoProviderRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("get unknown provider", func(mt *mtest.T) {
		repo := database.NewMongoProviderRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".providers", mtest.FirstBatch))

		_, err := repo.GetByID(ctx, "P9")
		assert.Equal(mt, apperrors.ErrorTypeProviderNotFound, apperrors.TypeOf(err))
	})

	mt.Run("list maps ids", func(mt *mtest.T) {
		repo := database.NewMongoProviderRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, mt.DB.Name()+".providers", mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "P1"}, {Key: "name", Value: "Dr. Alice Smith"}, {Key: "specialties", Value: bson.A{"cardiology"}}},
		))

		got, err := repo.List(ctx, repositories.ProviderFilter{Specialty: "Cardiology"})
		require.NoError(mt, err)
		require.Len(mt, got, 1)
		assert.Equal(mt, "P1", got[0].ID)
		assert.Equal(mt, []string{"cardiology"}, got[0].Specialties)
	})

	mt.Run("upsert keeps given id", func(mt *mtest.T) {
		repo := database.NewMongoProviderRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(1)}))

		id, err := repo.Upsert(ctx, &entities.Provider{ID: "P3", Name: "Dr. Carol White"})
		require.NoError(mt, err)
		assert.Equal(mt, "P3", id)
	})
}
