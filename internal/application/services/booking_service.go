package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/smartscheduler/backend/internal/application/scheduling"
	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/domain/providers"
	"github.com/smartscheduler/backend/internal/domain/repositories"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

const (
	defaultCompensationTimeout = 10 * time.Second
	eventPublishTimeout        = 2 * time.Second
)

// BookingConfig holds the optional collaborators of the booking saga
type BookingConfig struct {
	EventBus            providers.EventBus
	Metrics             *observability.Metrics
	CompensationTimeout time.Duration
	Now                 func() time.Time
}

// BookingService books appointments across the availability store and the external calendar
type BookingService struct {
	store        repositories.AvailabilityStore
	providerRepo repositories.ProviderRepository
	calendar     providers.CalendarProvider
	notifier     providers.Notifier
	eventBus     providers.EventBus
	metrics      *observability.Metrics

	compensationTimeout time.Duration
	now                 func() time.Time

	notifications sync.WaitGroup
}

// NewBookingService creates a new booking service. notifier may be nil.
func NewBookingService(
	store repositories.AvailabilityStore,
	providerRepo repositories.ProviderRepository,
	calendar providers.CalendarProvider,
	notifier providers.Notifier,
	cfg BookingConfig,
) *BookingService {
	if cfg.CompensationTimeout <= 0 {
		cfg.CompensationTimeout = defaultCompensationTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &BookingService{
		store:               store,
		providerRepo:        providerRepo,
		calendar:            calendar,
		notifier:            notifier,
		eventBus:            cfg.EventBus,
		metrics:             cfg.Metrics,
		compensationTimeout: cfg.CompensationTimeout,
		now:                 cfg.Now,
	}
}

// Book reserves the interval in the store, commits it to the provider's calendar and
// retracts the matching availability. A calendar failure rolls the reservation back.
// Confirmation is sent asynchronously and never affects the result.
func (s *BookingService) Book(ctx context.Context, req entities.BookingRequest) (*entities.BookingResult, error) {
	ctx, span := observability.StartSpan(ctx, "booking.saga")
	defer span.End()
	observability.SetSpanAttributes(span,
		attribute.String("provider.id", req.ProviderID),
		attribute.String("booking.interval", req.Interval.String()),
	)

	logger := observability.LoggerFromContext(ctx).With().
		Str("provider_id", req.ProviderID).
		Time("start", req.Interval.Start).
		Time("end", req.Interval.End).
		Logger()

	if err := validateBookingRequest(req); err != nil {
		return nil, err
	}

	provider, err := lookupProvider(ctx, s.providerRepo, req.ProviderID)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	saga := NewSaga()

	committed, err := s.store.FindAppointments(ctx, req.ProviderID)
	if err != nil {
		return nil, s.abort(ctx, saga, apperrors.NewStoreError("failed to load committed appointments", err))
	}
	if scheduling.OverlapsAny(req.Interval, committed) {
		return nil, s.abort(ctx, saga, apperrors.NewConflictError(
			"provider already has an appointment overlapping "+req.Interval.String(), nil))
	}

	appointment := &entities.Appointment{
		ProviderID:   req.ProviderID,
		Interval:     req.Interval,
		Patient:      req.Patient,
		Notes:        req.Notes,
		ProviderName: provider.Name,
		CreatedAt:    s.now().UTC(),
	}

	id, err := s.store.InsertAppointment(ctx, appointment)
	if err != nil {
		if !apperrors.IsType(err, apperrors.ErrorTypeConflict) && !apperrors.IsType(err, apperrors.ErrorTypeStore) {
			err = apperrors.NewStoreError("failed to reserve appointment", err)
		}
		return nil, s.abort(ctx, saga, err)
	}
	appointment.ID = id
	s.advance(&logger, saga, SagaReserved)
	logger = logger.With().Str("appointment_id", id).Logger()
	logger.Debug().Msg("Appointment reserved")

	// A request cancelled after the reservation still has to be rolled back.
	if err := ctx.Err(); err != nil {
		return nil, s.compensate(ctx, &logger, saga, appointment, err)
	}

	event, err := s.calendar.CreateEvent(ctx, req.ProviderID, appointment)
	if err != nil {
		return nil, s.compensate(ctx, &logger, saga, appointment, err)
	}
	if event == nil {
		event = &entities.CalendarEvent{}
	}
	s.advance(&logger, saga, SagaCalendarCommitted)

	result := &entities.BookingResult{
		AppointmentID:     id,
		CalendarReference: event.ExternalReference,
		CalendarLink:      event.DisplayLink,
	}

	removed, err := s.store.DeleteAvailability(ctx, req.ProviderID, req.Interval)
	if err != nil {
		logger.Warn().Err(err).Msg("Availability retraction failed; booking stands")
		observability.RecordRetractionDegraded(ctx, s.metrics, req.ProviderID)
		result.Warnings = append(result.Warnings, "availability retraction failed; the slot may still be listed until cleaned up")
		s.publish(ctx, &logger, entities.NewAppointmentEvent(entities.AppointmentEventRetractionDegraded, id, req.ProviderID, req.Interval, err.Error()))
	} else {
		s.advance(&logger, saga, SagaAvailabilityRetracted)
		logger.Debug().Int64("slots_removed", removed).Msg("Availability retracted")
	}

	s.advance(&logger, saga, SagaComplete)
	observability.RecordSagaOutcome(ctx, s.metrics, string(saga.State()))
	logger.Info().Str("calendar_reference", result.CalendarReference).Msg("Appointment booked")

	s.publish(ctx, &logger, entities.NewAppointmentEvent(entities.AppointmentEventBooked, id, req.ProviderID, req.Interval, ""))
	s.notify(ctx, *appointment)

	return result, nil
}

// Wait blocks until every in-flight confirmation has finished
func (s *BookingService) Wait() {
	s.notifications.Wait()
}

func validateBookingRequest(req entities.BookingRequest) error {
	if req.ProviderID == "" {
		return apperrors.NewValidationError("provider_id is required")
	}
	if err := req.Interval.Validate(); err != nil {
		return err
	}
	if req.Patient.Name == "" {
		return apperrors.NewValidationError("patient name is required")
	}
	return nil
}

// abort fails a saga that has not written anything yet
func (s *BookingService) abort(ctx context.Context, saga *Saga, cause error) error {
	observability.RecordSagaOutcome(ctx, s.metrics, string(saga.State()))
	return &BookingError{State: saga.State(), Cause: cause}
}

// compensate deletes the reservation after a failed calendar commit. It runs
// detached from ctx so that cancellation cannot skip it.
func (s *BookingService) compensate(ctx context.Context, logger *zerolog.Logger, saga *Saga, appointment *entities.Appointment, cause error) error {
	commitErr := apperrors.NewCalendarCommitFailedError("calendar provider did not accept the appointment", cause)

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.compensationTimeout)
	defer cancel()

	if err := s.store.DeleteAppointment(cctx, appointment.ID); err != nil {
		s.advance(logger, saga, SagaCompensationFailed)
		logger.Error().Err(err).AnErr("cause", cause).
			Msg("Compensation failed: appointment reserved without a calendar event")
		observability.RecordCompensationFailure(cctx, s.metrics, appointment.ProviderID)
		observability.RecordSagaOutcome(cctx, s.metrics, string(saga.State()))
		s.publish(cctx, logger, entities.NewAppointmentEvent(entities.AppointmentEventCompensationFailed,
			appointment.ID, appointment.ProviderID, appointment.Interval, err.Error()))
		return &BookingError{
			State:           saga.State(),
			AppointmentID:   appointment.ID,
			Cause:           commitErr,
			CompensationErr: apperrors.NewStoreError("failed to delete reserved appointment", err),
		}
	}

	s.advance(logger, saga, SagaRolledBack)
	logger.Warn().Err(cause).Msg("Calendar commit failed; reservation rolled back")
	observability.RecordSagaOutcome(cctx, s.metrics, string(saga.State()))
	s.publish(cctx, logger, entities.NewAppointmentEvent(entities.AppointmentEventRolledBack,
		appointment.ID, appointment.ProviderID, appointment.Interval, cause.Error()))
	return &BookingError{State: saga.State(), AppointmentID: appointment.ID, Cause: commitErr}
}

func (s *BookingService) advance(logger *zerolog.Logger, saga *Saga, next SagaState) {
	if err := saga.Advance(next); err != nil {
		logger.Error().Err(err).Msg("Saga transition rejected")
	}
}

func (s *BookingService) publish(ctx context.Context, logger *zerolog.Logger, event *entities.AppointmentEvent) {
	if s.eventBus == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	if err := s.eventBus.Publish(pctx, providers.EventChannelAppointments, event); err != nil {
		logger.Warn().Err(err).Str("event_type", string(event.EventType)).Msg("Failed to publish appointment event")
	}
}

func (s *BookingService) notify(ctx context.Context, appointment entities.Appointment) {
	if s.notifier == nil || appointment.Patient.ContactAddress == "" {
		return
	}
	nctx := context.WithoutCancel(ctx)

	s.notifications.Add(1)
	go func() {
		defer s.notifications.Done()
		if err := s.notifier.Send(nctx, appointment.Patient.ContactAddress, &appointment); err != nil {
			observability.LoggerFromContext(nctx).Warn().Err(err).
				Str("appointment_id", appointment.ID).
				Msg("Confirmation notification failed")
		}
	}()
}
