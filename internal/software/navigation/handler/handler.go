package handler

import (
	"net/http"

	"live-nav/internal/general/websocket"
)

// Handler wires the navigation endpoints onto an HTTP mux.
type Handler struct {
	ws     *websocket.WebSocket
	health *HealthHandler
}

func NewHandler(ws *websocket.WebSocket, health *HealthHandler) *Handler {
	return &Handler{ws: ws, health: health}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /users/{user_id}/routes/{route_id}/navigate", h.ws.Navigate)
	mux.HandleFunc("GET /health", h.health.Health)
}
