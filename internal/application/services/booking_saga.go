package services

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

// SagaState is the progress of one booking across the store and the calendar
type SagaState string

const (
	SagaRequested             SagaState = "requested"
	SagaReserved              SagaState = "reserved"
	SagaCalendarCommitted     SagaState = "calendar_committed"
	SagaAvailabilityRetracted SagaState = "availability_retracted"
	SagaComplete              SagaState = "complete"
	SagaRolledBack            SagaState = "rolled_back"
	SagaCompensationFailed    SagaState = "compensation_failed"
)

// sagaTransitions lists every legal move. CalendarCommitted may go straight to
// Complete when retraction fails; the booking stands with a warning.
var sagaTransitions = map[SagaState][]SagaState{
	SagaRequested:             {SagaReserved},
	SagaReserved:              {SagaCalendarCommitted, SagaRolledBack, SagaCompensationFailed},
	SagaCalendarCommitted:     {SagaAvailabilityRetracted, SagaComplete},
	SagaAvailabilityRetracted: {SagaComplete},
}

// Terminal reports whether no further transition is possible
func (s SagaState) Terminal() bool {
	return len(sagaTransitions[s]) == 0
}

// CanTransition reports whether next is a legal successor of s
func (s SagaState) CanTransition(next SagaState) bool {
	return slices.Contains(sagaTransitions[s], next)
}

// Saga records the states one booking has passed through
type Saga struct {
	state   SagaState
	history []SagaState
}

// NewSaga starts a saga in the Requested state
func NewSaga() *Saga {
	return &Saga{state: SagaRequested, history: []SagaState{SagaRequested}}
}

func (s *Saga) State() SagaState {
	return s.state
}

// History returns a copy of the visited states in order
func (s *Saga) History() []SagaState {
	return slices.Clone(s.history)
}

// Advance moves the saga to next, rejecting transitions not in the table
func (s *Saga) Advance(next SagaState) error {
	if !s.state.CanTransition(next) {
		return apperrors.NewInternalError(fmt.Sprintf("illegal saga transition %s -> %s", s.state, next), nil)
	}
	s.state = next
	s.history = append(s.history, next)
	return nil
}

// BookingError is returned for every failure after the booking request was accepted.
// State is the saga state at failure time. CompensationErr is set only when the
// rollback itself failed, leaving a reservation with no calendar event.
type BookingError struct {
	State           SagaState
	AppointmentID   string
	Cause           error
	CompensationErr error
}

func (e *BookingError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "booking failed (%s)", e.State)
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	if e.CompensationErr != nil {
		fmt.Fprintf(&b, "; compensation failed for appointment %s: %v", e.AppointmentID, e.CompensationErr)
	}
	return b.String()
}

func (e *BookingError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.CompensationErr != nil {
		errs = append(errs, e.CompensationErr)
	}
	return errs
}

// Inconsistent reports whether the failure left a reservation behind
func (e *BookingError) Inconsistent() bool {
	return e.CompensationErr != nil
}

// AsBookingError extracts a BookingError from err's chain
func AsBookingError(err error) (*BookingError, bool) {
	var be *BookingError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
