package entities

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentEventType represents the outcome a booking event reports
type AppointmentEventType string

const (
	AppointmentEventBooked             AppointmentEventType = "booked"
	AppointmentEventRolledBack         AppointmentEventType = "rolled_back"
	AppointmentEventCompensationFailed AppointmentEventType = "compensation_failed"
	AppointmentEventRetractionDegraded AppointmentEventType = "retraction_degraded"
)

// AppointmentEvent is published after each saga outcome
type AppointmentEvent struct {
	ID            string               `json:"id"`
	EventType     AppointmentEventType `json:"event_type"`
	AppointmentID string               `json:"appointment_id,omitempty"`
	ProviderID    string               `json:"provider_id"`
	Interval      Interval             `json:"interval"`
	Detail        string               `json:"detail,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
}

// NewAppointmentEvent creates a new appointment event
func NewAppointmentEvent(eventType AppointmentEventType, appointmentID, providerID string, interval Interval, detail string) *AppointmentEvent {
	return &AppointmentEvent{
		ID:            uuid.NewString(),
		EventType:     eventType,
		AppointmentID: appointmentID,
		ProviderID:    providerID,
		Interval:      interval,
		Detail:        detail,
		Timestamp:     time.Now().UTC(),
	}
}
