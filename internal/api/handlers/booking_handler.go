package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/smartscheduler/backend/internal/domain/entities"
)

// BookingService defines the interface for booking operations
type BookingService interface {
	Book(ctx context.Context, req entities.BookingRequest) (*entities.BookingResult, error)
}

// BookingHandler handles booking requests
type BookingHandler struct {
	service BookingService
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(service BookingService) *BookingHandler {
	return &BookingHandler{service: service}
}

type bookingRequest struct {
	ProviderID string                  `json:"provider_id"`
	Start      time.Time               `json:"start"`
	End        time.Time               `json:"end"`
	Patient    entities.PatientProfile `json:"patient"`
	Notes      string                  `json:"notes"`
}

// Book handles POST /api/bookings
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.service.Book(r.Context(), entities.BookingRequest{
		ProviderID: req.ProviderID,
		Interval:   entities.Interval{Start: req.Start.UTC(), End: req.End.UTC()},
		Patient:    req.Patient,
		Notes:      req.Notes,
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}
