package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/smartscheduler/backend/internal/domain/entities"
)

// ProviderService defines the interface for the provider directory
type ProviderService interface {
	Get(ctx context.Context, id string) (*entities.Provider, error)
	Search(ctx context.Context, specialty string, limit int) ([]*entities.Provider, error)
	Register(ctx context.Context, provider *entities.Provider) (string, error)
}

// ProviderHandler handles provider directory requests
type ProviderHandler struct {
	service ProviderService
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(service ProviderService) *ProviderHandler {
	return &ProviderHandler{service: service}
}

// ListProviders handles GET /api/providers
func (h *ProviderHandler) ListProviders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	list, err := h.service.Search(r.Context(), r.URL.Query().Get("specialty"), limit)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"providers": list,
		"count":     len(list),
	})
}

// GetProvider handles GET /api/providers/{id}
func (h *ProviderHandler) GetProvider(w http.ResponseWriter, r *http.Request) {
	provider, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, provider)
}

// RegisterProvider handles POST /api/admin/providers
func (h *ProviderHandler) RegisterProvider(w http.ResponseWriter, r *http.Request) {
	var provider entities.Provider
	if err := json.NewDecoder(r.Body).Decode(&provider); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if provider.Name == "" {
		respondWithError(w, http.StatusBadRequest, "name is required")
		return
	}

	id, err := h.service.Register(r.Context(), &provider)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	provider.ID = id
	respondWithJSON(w, http.StatusCreated, provider)
}
