package handler

import (
	"encoding/json"
	"net/http"

	"live-nav/internal/general/websocket"
)

// ----- Handler: GET /health -----

// HealthHandler reports process liveness and the live-session count.
type HealthHandler struct {
	registry *websocket.Registry
}

func NewHealthHandler(registry *websocket.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)

	type resp struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
	}
	_ = json.NewEncoder(w).Encode(resp{Status: "ok", Sessions: h.registry.Count()})
}
