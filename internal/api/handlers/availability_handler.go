package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/smartscheduler/backend/internal/application/services"
	"github.com/smartscheduler/backend/internal/domain/entities"
)

// AvailabilityService defines the interface for availability operations
type AvailabilityService interface {
	FreeSlots(ctx context.Context, providerID string, window entities.Interval) ([]entities.AvailabilitySlot, error)
	GenerateHorizon(ctx context.Context, providerIDs []string) (*services.GenerationReport, error)
}

// AvailabilityHandler serves free slots and triggers slot generation
type AvailabilityHandler struct {
	service AvailabilityService
}

// NewAvailabilityHandler creates a new availability handler
func NewAvailabilityHandler(service AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: service}
}

// GetAvailability handles GET /api/providers/{id}/availability
func (h *AvailabilityHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if providerID == "" {
		respondWithError(w, http.StatusBadRequest, "provider ID is required")
		return
	}

	window, err := parseWindow(r)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	slots, err := h.service.FreeSlots(r.Context(), providerID, window)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"slots": slots,
	})
}

type generateRequest struct {
	ProviderIDs []string `json:"provider_ids"`
}

// Generate handles POST /api/admin/availability/generate; an empty body targets every provider
func (h *AvailabilityHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	report, err := h.service.GenerateHorizon(r.Context(), req.ProviderIDs)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}
