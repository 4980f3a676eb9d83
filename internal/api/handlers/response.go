package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/smartscheduler/backend/internal/application/services"
	"github.com/smartscheduler/backend/internal/domain/entities"
	"github.com/smartscheduler/backend/internal/infrastructure/observability"
	apperrors "github.com/smartscheduler/backend/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps the error taxonomy onto HTTP status codes
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	if be, ok := services.AsBookingError(err); ok && be.Inconsistent() {
		observability.LoggerFromContext(r.Context()).Error().Err(err).
			Str("appointment_id", be.AppointmentID).
			Msg("Booking compensation failed; reservation requires manual cleanup")
		respondWithJSON(w, http.StatusInternalServerError, map[string]string{
			"error":          "booking failed and could not be rolled back; the reservation requires manual cleanup",
			"appointment_id": be.AppointmentID,
			"type":           "COMPENSATION_FAILED",
		})
		return
	}

	errType := apperrors.TypeOf(err)
	status := statusFor(errType)
	message := err.Error()
	if status == http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("Request failed")
		message = "internal error"
	}

	body := map[string]string{"error": message}
	if errType != "" {
		body["type"] = string(errType)
	}
	respondWithJSON(w, status, body)
}

func statusFor(t apperrors.ErrorType) int {
	switch t {
	case apperrors.ErrorTypeInvalidInterval, apperrors.ErrorTypeValidation:
		return http.StatusBadRequest
	case apperrors.ErrorTypeProviderNotFound, apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeCalendarCommitFailed, apperrors.ErrorTypeProvider, apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	case apperrors.ErrorTypeMalformedRecommendation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parseWindow reads an RFC 3339 [start, end) pair from the query string
func parseWindow(r *http.Request) (entities.Interval, error) {
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")
	if startStr == "" || endStr == "" {
		return entities.Interval{}, apperrors.NewValidationError("start and end query parameters are required")
	}

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return entities.Interval{}, apperrors.NewValidationError("invalid start format (use RFC3339)")
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return entities.Interval{}, apperrors.NewValidationError("invalid end format (use RFC3339)")
	}
	return entities.NewInterval(start.UTC(), end.UTC())
}
