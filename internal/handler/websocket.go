package handler

import (
	"github.com/cleberrangel/project-estimator-api/internal/websocket"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler atende o stream de progresso de estimativas
type WebSocketHandler struct {
	hub    *websocket.Hub
	runner websocket.EstimateRunner
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(hub *websocket.Hub, estimator Estimator) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		runner: StreamRunner(estimator),
	}
}

// HandleConnection handles WebSocket connection upgrades
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	h.hub.ServeWS(c, h.runner)
}
