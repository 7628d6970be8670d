package middleware

import (
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID é o header HTTP para request ID
	HeaderRequestID = "X-Request-ID"
	// HeaderTraceID é o header HTTP para trace ID (distributed tracing)
	HeaderTraceID = "X-Trace-ID"

	// KeyEstimateID é a chave do gin.Context onde os handlers deixam o ID da estimativa gerada
	KeyEstimateID = "estimate_id"
)

// RequestID identifica a requisição, prende o logger dela ao contexto e registra
// uma linha ao final com rota, status, latência e a estimativa produzida
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := headerOr(c, HeaderRequestID, func() string { return uuid.New().String()[:8] })
		traceID := headerOr(c, HeaderTraceID, func() string { return uuid.New().String() })

		ctx := logger.WithTraceID(logger.WithRequestID(c.Request.Context(), requestID), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		c.Next()

		status := c.Writer.Status()
		log := logger.Get(ctx)
		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		}

		if estimateID := c.GetString(KeyEstimateID); estimateID != "" {
			event = event.Str(KeyEstimateID, estimateID)
		}

		latency := time.Since(start)
		event.
			Str("method", c.Request.Method).
			Str("route", routeLabel(c)).
			Str("client_ip", c.ClientIP()).
			Int("status", status).
			Int("size", c.Writer.Size()).
			Float64("latency_ms", float64(latency.Microseconds())/1000).
			Msg("Requisição concluída")
	}
}

func headerOr(c *gin.Context, header string, generate func() string) string {
	if value := c.GetHeader(header); value != "" {
		return value
	}
	return generate()
}
