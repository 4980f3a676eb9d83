package entities

import (
	"time"
)

// PatientProfile describes the patient a booking or recommendation is for
type PatientProfile struct {
	Name           string          `json:"name" bson:"name"`
	ContactAddress string          `json:"contact_address" bson:"contact_address"`
	Preferences    map[string]bool `json:"preferences,omitempty" bson:"preferences,omitempty"`
	Conditions     string          `json:"conditions,omitempty" bson:"conditions,omitempty"`
}

// Appointment is a committed booking. Its existence for a provider and interval
// means that time is not available.
type Appointment struct {
	ID           string         `json:"id" bson:"-"`
	ProviderID   string         `json:"provider_id" bson:"provider_id"`
	Interval     Interval       `json:"interval" bson:"interval"`
	Patient      PatientProfile `json:"patient" bson:"patient"`
	Notes        string         `json:"notes,omitempty" bson:"notes,omitempty"`
	ProviderName string         `json:"provider_name" bson:"provider_name"`
	CreatedAt    time.Time      `json:"created_at" bson:"created_at"`
}

// AvailabilitySlot is an open booking opportunity for a provider
type AvailabilitySlot struct {
	ProviderID string   `json:"provider_id" bson:"provider_id"`
	Interval   Interval `json:"interval" bson:"interval"`
}

// CalendarEvent is the reference returned by the external calendar after a commit
type CalendarEvent struct {
	ExternalReference string `json:"external_reference"`
	DisplayLink       string `json:"display_link,omitempty"`
}

// RecommendationSuggestion is a validated slot proposed by the recommender
type RecommendationSuggestion struct {
	Interval Interval `json:"interval"`
	Reason   string   `json:"reason"`
}

// BookingRequest is the input to the booking saga
type BookingRequest struct {
	ProviderID string         `json:"provider_id"`
	Interval   Interval       `json:"interval"`
	Patient    PatientProfile `json:"patient"`
	Notes      string         `json:"notes,omitempty"`
}

// BookingResult is returned once the appointment is reserved, committed and availability retracted
type BookingResult struct {
	AppointmentID     string   `json:"appointment_id"`
	CalendarReference string   `json:"calendar_reference"`
	CalendarLink      string   `json:"calendar_link,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
}
