package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

// RecommendationService defines the interface for slot recommendations
type RecommendationService interface {
	Recommend(ctx context.Context, providerID string, window entities.Interval, patient entities.PatientProfile) ([]entities.RecommendationSuggestion, error)
}

// RecommendationHandler handles recommendation requests
type RecommendationHandler struct {
	service RecommendationService
}

// NewRecommendationHandler creates a new recommendation handler
func NewRecommendationHandler(service RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{service: service}
}

type recommendRequest struct {
	ProviderID string                  `json:"provider_id"`
	Start      time.Time               `json:"start"`
	End        time.Time               `json:"end"`
	Patient    entities.PatientProfile `json:"patient"`
}

type recommendResponse struct {
	Recommendations []entities.RecommendationSuggestion `json:"recommendations"`
	Warning         string                              `json:"warning,omitempty"`
}

// Recommend handles POST /api/recommendations. An unparseable model reply is
// reported as an empty list with a warning rather than an error.
func (h *RecommendationHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	var req recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.ProviderID == "" {
		respondWithError(w, http.StatusBadRequest, "provider_id is required")
		return
	}

	window := entities.Interval{Start: req.Start.UTC(), End: req.End.UTC()}
	suggestions, err := h.service.Recommend(r.Context(), req.ProviderID, window, req.Patient)
	if err != nil {
		if apperrors.IsType(err, apperrors.ErrorTypeMalformedRecommendation) {
			observability.LoggerFromContext(r.Context()).Warn().Err(err).Str("provider_id", req.ProviderID).Msg("Recommender reply could not be parsed")
			respondWithJSON(w, http.StatusOK, recommendResponse{
				Recommendations: []entities.RecommendationSuggestion{},
				Warning:         "recommendations are temporarily unavailable",
			})
			return
		}
		respondWithAppError(w, r, err)
		return
	}

	if suggestions == nil {
		suggestions = []entities.RecommendationSuggestion{}
	}
	respondWithJSON(w, http.StatusOK, recommendResponse{Recommendations: suggestions})
}
