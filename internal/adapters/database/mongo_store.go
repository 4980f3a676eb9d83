package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/repositories"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

const (
	appointmentsCollection = "appointments"
	availabilityCollection = "availability"
	providersCollection    = "providers"
)

type appointmentDocument struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	entities.Appointment `bson:",inline"`
}

type slotDocument struct {
	ID                        primitive.ObjectID `bson:"_id,omitempty"`
	entities.AvailabilitySlot `bson:",inline"`
}

// MongoAvailabilityStore implements AvailabilityStore on MongoDB
type MongoAvailabilityStore struct {
	appointments *mongo.Collection
	availability *mongo.Collection
}

var _ repositories.AvailabilityStore = (*MongoAvailabilityStore)(nil)

// NewMongoAvailabilityStore creates a store over the given database
func NewMongoAvailabilityStore(db *mongo.Database) *MongoAvailabilityStore {
	return &MongoAvailabilityStore{
		appointments: db.Collection(appointmentsCollection),
		availability: db.Collection(availabilityCollection),
	}
}

// EnsureIndexes creates the unique (provider, start, end) indexes both collections rely on
func (s *MongoAvailabilityStore) EnsureIndexes(ctx context.Context) error {
	unique := mongo.IndexModel{
		Keys: bson.D{
			{Key: "provider_id", Value: 1},
			{Key: "interval.start", Value: 1},
			{Key: "interval.end", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	for _, coll := range []*mongo.Collection{s.appointments, s.availability} {
		if _, err := coll.Indexes().CreateOne(ctx, unique); err != nil {
			return apperrors.NewStoreError(fmt.Sprintf("failed to create index on %s", coll.Name()), err)
		}
	}
	return nil
}

func (s *MongoAvailabilityStore) InsertAppointment(ctx context.Context, appointment *entities.Appointment) (string, error) {
	doc := appointmentDocument{Appointment: *appointment}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	res, err := s.appointments.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", apperrors.NewConflictError("appointment already exists for provider and interval", err)
		}
		return "", apperrors.NewStoreError("failed to insert appointment", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", apperrors.NewStoreError("unexpected inserted id type", nil)
	}
	return oid.Hex(), nil
}

func (s *MongoAvailabilityStore) DeleteAppointment(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// Not an id this store could have issued
		return nil
	}
	if _, err := s.appointments.DeleteOne(ctx, bson.M{"_id": oid}); err != nil {
		return apperrors.NewStoreError("failed to delete appointment", err)
	}
	return nil
}

func (s *MongoAvailabilityStore) FindAppointments(ctx context.Context, providerID string) ([]entities.Appointment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "interval.start", Value: 1}})
	cursor, err := s.appointments.Find(ctx, bson.M{"provider_id": providerID}, opts)
	if err != nil {
		return nil, apperrors.NewStoreError("failed to find appointments", err)
	}

	var docs []appointmentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperrors.NewStoreError("failed to decode appointments", err)
	}

	out := make([]entities.Appointment, 0, len(docs))
	for _, doc := range docs {
		appt := doc.Appointment
		appt.ID = doc.ID.Hex()
		out = append(out, appt)
	}
	return out, nil
}

func (s *MongoAvailabilityStore) FindAvailability(ctx context.Context, providerID string, window entities.Interval) ([]entities.AvailabilitySlot, error) {
	filter := bson.M{
		"provider_id":    providerID,
		"interval.start": bson.M{"$gte": window.Start},
		"interval.end":   bson.M{"$lte": window.End},
	}
	opts := options.Find().SetSort(bson.D{{Key: "interval.start", Value: 1}})

	cursor, err := s.availability.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperrors.NewStoreError("failed to find availability", err)
	}

	var docs []slotDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperrors.NewStoreError("failed to decode availability", err)
	}

	out := make([]entities.AvailabilitySlot, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.AvailabilitySlot)
	}
	return out, nil
}

func (s *MongoAvailabilityStore) DeleteAvailability(ctx context.Context, providerID string, interval entities.Interval) (int64, error) {
	filter := bson.M{
		"provider_id":    providerID,
		"interval.start": bson.M{"$lt": interval.End},
		"interval.end":   bson.M{"$gt": interval.Start},
	}
	res, err := s.availability.DeleteMany(ctx, filter)
	if err != nil {
		return 0, apperrors.NewStoreError("failed to delete availability", err)
	}
	return res.DeletedCount, nil
}

func (s *MongoAvailabilityStore) InsertAvailability(ctx context.Context, slot entities.AvailabilitySlot) error {
	if err := slot.Interval.Validate(); err != nil {
		return err
	}
	if _, err := s.availability.InsertOne(ctx, slotDocument{AvailabilitySlot: slot}); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.NewConflictError("availability slot already exists", err)
		}
		return apperrors.NewStoreError("failed to insert availability", err)
	}
	return nil
}

type providerDocument struct {
	ID                string `bson:"_id"`
	entities.Provider `bson:",inline"`
}

// MongoProviderRepository implements ProviderRepository on MongoDB
type MongoProviderRepository struct {
	providers *mongo.Collection
}

var _ repositories.ProviderRepository = (*MongoProviderRepository)(nil)

// NewMongoProviderRepository creates a provider repository over the given database
func NewMongoProviderRepository(db *mongo.Database) *MongoProviderRepository {
	return &MongoProviderRepository{providers: db.Collection(providersCollection)}
}

func (r *MongoProviderRepository) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	var doc providerDocument
	err := r.providers.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NewProviderNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewStoreError("failed to get provider", err)
	}

	p := doc.Provider
	p.ID = doc.ID
	return &p, nil
}

func (r *MongoProviderRepository) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	query := bson.M{}
	if filter.Specialty != "" {
		query["specialties"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(filter.Specialty) + "$", Options: "i"}
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.providers.Find(ctx, query, opts)
	if err != nil {
		return nil, apperrors.NewStoreError("failed to list providers", err)
	}

	var docs []providerDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, apperrors.NewStoreError("failed to decode providers", err)
	}

	out := make([]*entities.Provider, 0, len(docs))
	for _, doc := range docs {
		p := doc.Provider
		p.ID = doc.ID
		out = append(out, &p)
	}
	return out, nil
}

func (r *MongoProviderRepository) Upsert(ctx context.Context, provider *entities.Provider) (string, error) {
	id := provider.ID
	if id == "" {
		id = primitive.NewObjectID().Hex()
	}

	doc := providerDocument{ID: id, Provider: *provider}
	opts := options.Replace().SetUpsert(true)
	if _, err := r.providers.ReplaceOne(ctx, bson.M{"_id": id}, doc, opts); err != nil {
		return "", apperrors.NewStoreError("failed to upsert provider", err)
	}
	return id, nil
}
