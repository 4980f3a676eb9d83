package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/repositories"
	"github.com/smartscheduler/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

// PostgresSchema creates the scheduling tables. The unique constraints are what
// make concurrent bookings of the same slot collide.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS providers (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	specialties TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS appointments (
	id            TEXT PRIMARY KEY,
	provider_id   TEXT NOT NULL,
	start_time    TIMESTAMPTZ NOT NULL,
	end_time      TIMESTAMPTZ NOT NULL,
	patient       JSONB NOT NULL,
	notes         TEXT NOT NULL DEFAULT '',
	provider_name TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL,
	UNIQUE (provider_id, start_time, end_time)
);

CREATE TABLE IF NOT EXISTS availability (
	provider_id TEXT NOT NULL,
	start_time  TIMESTAMPTZ NOT NULL,
	end_time    TIMESTAMPTZ NOT NULL,
	UNIQUE (provider_id, start_time, end_time)
);
`

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// PostgresAvailabilityStore implements AvailabilityStore on PostgreSQL
type PostgresAvailabilityStore struct {
	client  *postgres.Client
	dialect goqu.DialectWrapper
}

var _ repositories.AvailabilityStore = (*PostgresAvailabilityStore)(nil)

// NewPostgresAvailabilityStore creates a new PostgreSQL-backed store
func NewPostgresAvailabilityStore(client *postgres.Client) *PostgresAvailabilityStore {
	return &PostgresAvailabilityStore{client: client, dialect: goqu.Dialect("postgres")}
}

// Migrate applies the schema
func (s *PostgresAvailabilityStore) Migrate(ctx context.Context) error {
	if _, err := s.client.DB().ExecContext(ctx, PostgresSchema); err != nil {
		return apperrors.NewStoreError("failed to apply schema", err)
	}
	return nil
}

type appointmentRow struct {
	ID           string    `db:"id"`
	ProviderID   string    `db:"provider_id"`
	StartTime    time.Time `db:"start_time"`
	EndTime      time.Time `db:"end_time"`
	Patient      []byte    `db:"patient"`
	Notes        string    `db:"notes"`
	ProviderName string    `db:"provider_name"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r appointmentRow) toEntity() (entities.Appointment, error) {
	appt := entities.Appointment{
		ID:           r.ID,
		ProviderID:   r.ProviderID,
		Interval:     entities.Interval{Start: r.StartTime.UTC(), End: r.EndTime.UTC()},
		Notes:        r.Notes,
		ProviderName: r.ProviderName,
		CreatedAt:    r.CreatedAt,
	}
	if len(r.Patient) > 0 {
		if err := json.Unmarshal(r.Patient, &appt.Patient); err != nil {
			return appt, err
		}
	}
	return appt, nil
}

type slotRow struct {
	ProviderID string    `db:"provider_id"`
	StartTime  time.Time `db:"start_time"`
	EndTime    time.Time `db:"end_time"`
}

func (s *PostgresAvailabilityStore) InsertAppointment(ctx context.Context, appointment *entities.Appointment) (string, error) {
	patient, err := json.Marshal(appointment.Patient)
	if err != nil {
		return "", apperrors.NewStoreError("failed to encode patient", err)
	}

	id := uuid.NewString()
	createdAt := appointment.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query, args, err := s.dialect.Insert("appointments").Prepared(true).Rows(goqu.Record{
		"id":            id,
		"provider_id":   appointment.ProviderID,
		"start_time":    appointment.Interval.Start,
		"end_time":      appointment.Interval.End,
		"patient":       patient,
		"notes":         appointment.Notes,
		"provider_name": appointment.ProviderName,
		"created_at":    createdAt,
	}).ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := s.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return "", apperrors.NewConflictError("appointment already exists for provider and interval", err)
		}
		return "", apperrors.NewStoreError("failed to insert appointment", err)
	}
	return id, nil
}

func (s *PostgresAvailabilityStore) DeleteAppointment(ctx context.Context, id string) error {
	query, args, err := s.dialect.Delete("appointments").Prepared(true).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	if _, err := s.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewStoreError("failed to delete appointment", err)
	}
	return nil
}

func (s *PostgresAvailabilityStore) FindAppointments(ctx context.Context, providerID string) ([]entities.Appointment, error) {
	query, args, err := s.dialect.From("appointments").Prepared(true).
		Select("id", "provider_id", "start_time", "end_time", "patient", "notes", "provider_name", "created_at").
		Where(goqu.Ex{"provider_id": providerID}).
		Order(goqu.I("start_time").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []appointmentRow
	if err := s.client.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewStoreError("failed to find appointments", err)
	}

	out := make([]entities.Appointment, 0, len(rows))
	for _, row := range rows {
		appt, err := row.toEntity()
		if err != nil {
			return nil, apperrors.NewStoreError("failed to decode appointment", err)
		}
		out = append(out, appt)
	}
	return out, nil
}

func (s *PostgresAvailabilityStore) FindAvailability(ctx context.Context, providerID string, window entities.Interval) ([]entities.AvailabilitySlot, error) {
	query, args, err := s.dialect.From("availability").Prepared(true).
		Select("provider_id", "start_time", "end_time").
		Where(
			goqu.C("provider_id").Eq(providerID),
			goqu.C("start_time").Gte(window.Start),
			goqu.C("end_time").Lte(window.End),
		).
		Order(goqu.I("start_time").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []slotRow
	if err := s.client.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewStoreError("failed to find availability", err)
	}

	out := make([]entities.AvailabilitySlot, 0, len(rows))
	for _, row := range rows {
		out = append(out, entities.AvailabilitySlot{
			ProviderID: row.ProviderID,
			Interval:   entities.Interval{Start: row.StartTime.UTC(), End: row.EndTime.UTC()},
		})
	}
	return out, nil
}

func (s *PostgresAvailabilityStore) DeleteAvailability(ctx context.Context, providerID string, interval entities.Interval) (int64, error) {
	query, args, err := s.dialect.Delete("availability").Prepared(true).
		Where(
			goqu.C("provider_id").Eq(providerID),
			goqu.C("start_time").Lt(interval.End),
			goqu.C("end_time").Gt(interval.Start),
		).
		ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build delete query", err)
	}

	result, err := s.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.NewStoreError("failed to delete availability", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.NewStoreError("failed to count deleted availability", err)
	}
	return n, nil
}

func (s *PostgresAvailabilityStore) InsertAvailability(ctx context.Context, slot entities.AvailabilitySlot) error {
	if err := slot.Interval.Validate(); err != nil {
		return err
	}

	query, args, err := s.dialect.Insert("availability").Prepared(true).Rows(goqu.Record{
		"provider_id": slot.ProviderID,
		"start_time":  slot.Interval.Start,
		"end_time":    slot.Interval.End,
	}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := s.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError("availability slot already exists", err)
		}
		return apperrors.NewStoreError("failed to insert availability", err)
	}
	return nil
}

// PostgresProviderRepository implements ProviderRepository on PostgreSQL
type PostgresProviderRepository struct {
	client  *postgres.Client
	dialect goqu.DialectWrapper
}

var _ repositories.ProviderRepository = (*PostgresProviderRepository)(nil)

// NewPostgresProviderRepository creates a new PostgreSQL-backed provider repository
func NewPostgresProviderRepository(client *postgres.Client) *PostgresProviderRepository {
	return &PostgresProviderRepository{client: client, dialect: goqu.Dialect("postgres")}
}

type providerRow struct {
	ID          string         `db:"id"`
	Name        string         `db:"name"`
	Specialties pq.StringArray `db:"specialties"`
}

func (r providerRow) toEntity() *entities.Provider {
	return &entities.Provider{ID: r.ID, Name: r.Name, Specialties: []string(r.Specialties)}
}

func (r *PostgresProviderRepository) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	query, args, err := r.dialect.From("providers").Prepared(true).
		Select("id", "name", "specialties").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var row providerRow
	err = r.client.DB().GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewProviderNotFoundError(id)
	}
	if err != nil {
		return nil, apperrors.NewStoreError("failed to get provider", err)
	}
	return row.toEntity(), nil
}

func (r *PostgresProviderRepository) List(ctx context.Context, filter repositories.ProviderFilter) ([]*entities.Provider, error) {
	ds := r.dialect.From("providers").Prepared(true).
		Select("id", "name", "specialties").
		Order(goqu.I("name").Asc())
	if filter.Specialty != "" {
		ds = ds.Where(goqu.L("EXISTS (SELECT 1 FROM unnest(specialties) s WHERE lower(s) = lower(?))", filter.Specialty))
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	var rows []providerRow
	if err := r.client.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, apperrors.NewStoreError("failed to list providers", err)
	}

	out := make([]*entities.Provider, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

func (r *PostgresProviderRepository) Upsert(ctx context.Context, provider *entities.Provider) (string, error) {
	id := provider.ID
	if id == "" {
		id = uuid.NewString()
	}
	specialties := provider.Specialties
	if specialties == nil {
		specialties = []string{}
	}

	query, args, err := r.dialect.Insert("providers").Prepared(true).
		Rows(goqu.Record{
			"id":          id,
			"name":        provider.Name,
			"specialties": pq.StringArray(specialties),
		}).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"name":        goqu.L("EXCLUDED.name"),
			"specialties": goqu.L("EXCLUDED.specialties"),
		})).
		ToSQL()
	if err != nil {
		return "", apperrors.NewInternalError("failed to build upsert query", err)
	}

	if _, err := r.client.DB().ExecContext(ctx, query, args...); err != nil {
		return "", apperrors.NewStoreError("failed to upsert provider", err)
	}
	return id, nil
}
