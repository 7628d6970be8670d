package handler

import (
	"net/http"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/metrics"
	"github.com/cleberrangel/project-estimator-api/internal/websocket"
	"github.com/gin-gonic/gin"
)

// Limites usados pelo health check de prontidão
const (
	maxHeapMB            = 512
	templateCheckSlow    = 100 * time.Millisecond
	maxStreamConnections = 100
)

// HealthHandler handles health check and metrics endpoints
type HealthHandler struct {
	wsHub         *websocket.Hub
	templateCheck func() error
	version       string
	startTime     time.Time
}

// NewHealthHandler creates a new health handler.
// templateCheck confirma que o template de proposta em uso continua válido.
func NewHealthHandler(wsHub *websocket.Hub, templateCheck func() error, version string) *HealthHandler {
	return &HealthHandler{
		wsHub:         wsHub,
		templateCheck: templateCheck,
		version:       version,
		startTime:     time.Now(),
	}
}

// LivenessCheck returns basic liveness status
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ReadinessCheck returns readiness status including template and memory checks
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	components := make(map[string]metrics.HealthStatus)

	components["memory"] = metrics.CheckMemoryHealth(maxHeapMB)

	if h.templateCheck != nil {
		components["template"] = metrics.CheckComponent(h.templateCheck, templateCheckSlow)
	}

	components["stream"] = h.checkStreamHealth()

	overallStatus := metrics.DetermineOverallStatus(components)
	snapshot := metrics.Get().Snapshot()

	healthCheck := metrics.HealthCheck{
		Status:     overallStatus,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
		Metrics:    &snapshot,
	}

	statusCode := http.StatusOK
	if overallStatus == metrics.StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthCheck)
}

// checkStreamHealth verifica o hub de streams de progresso
func (h *HealthHandler) checkStreamHealth() metrics.HealthStatus {
	if h.wsHub == nil {
		return metrics.HealthStatus{
			Status:  metrics.StatusDegraded,
			Message: "stream hub not initialized",
		}
	}

	if h.wsHub.IsClosed() {
		return metrics.HealthStatus{
			Status:  metrics.StatusUnhealthy,
			Message: "stream hub shut down",
		}
	}

	if h.wsHub.GetConnectionCount() > maxStreamConnections {
		return metrics.HealthStatus{
			Status:  metrics.StatusDegraded,
			Message: "stream connections near limit",
		}
	}

	return metrics.HealthStatus{Status: metrics.StatusHealthy}
}
