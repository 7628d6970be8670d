package middleware

import (
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/metrics"
	"github.com/gin-gonic/gin"
)

// unmatchedPath agrupa rotas inexistentes para não explodir a cardinalidade
const unmatchedPath = "unmatched"

// Metrics registra duração e status de cada requisição no Prometheus
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		metrics.RecordHTTPRequestDuration(c.Request.Method, routeLabel(c), c.Writer.Status(), time.Since(start))
	}
}

// routeLabel devolve o padrão da rota (/export/:format), nunca o caminho cru
func routeLabel(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedPath
}
