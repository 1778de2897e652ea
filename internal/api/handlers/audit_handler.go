package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/medrec/prescript-be/internal/services"
	"github.com/rs/zerolog/log"
)

// AuditHandler handles HTTP requests for the account audit trail.
type AuditHandler struct {
	service services.AuditServiceProvider
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(service services.AuditServiceProvider) *AuditHandler {
	return &AuditHandler{service: service}
}

// GetRecent handles the request to read recent account events.
func (h *AuditHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 20 // Default limit
	}

	events, err := h.service.Recent(limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to retrieve events")
		http.Error(w, "Failed to retrieve events", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(events)
}
