package handler

import (
	"net/http"

	"github.com/cleberrangel/project-estimator-api/internal/middleware"
	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/cleberrangel/project-estimator-api/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig reúne as dependências das rotas HTTP
type RouterConfig struct {
	Estimator     Estimator
	Hub           *websocket.Hub
	TemplateCheck func() error
	Version       string
	RateLimiter   *middleware.RateLimiter
	MaxBodyBytes  int64
	ExportCache   *DocumentCache
}

// NewRouter monta o engine gin com middlewares e rotas
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(gin.Recovery())
	router.Use(middleware.Metrics())

	healthHandler := NewHealthHandler(cfg.Hub, cfg.TemplateCheck, cfg.Version)
	router.GET("/health", healthHandler.LivenessCheck)
	router.GET("/health/ready", healthHandler.ReadinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Rotas do estimador, com limite de taxa e de corpo
	api := router.Group("")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware())
	}
	api.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	{
		estimateHandler := NewEstimateHandler(cfg.Estimator)
		api.POST("/estimate", estimateHandler.Create)

		exportHandler := NewExportHandler(cfg.Estimator, cfg.ExportCache)
		api.POST("/export/:format", exportHandler.Export)

		if cfg.Hub != nil {
			wsHandler := NewWebSocketHandler(cfg.Hub, cfg.Estimator)
			api.GET("/ws/estimate", wsHandler.HandleConnection)
		}
	}

	router.NoRoute(NotFound)

	return router
}

// NotFound responde 404 no formato de erro da API
func NotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, model.ErrorResponse{
		Error:   "NotFound",
		Message: "Route not found.",
	})
}
