package handler

import (
	"context"
	"net/http"

	"github.com/cleberrangel/project-estimator-api/internal/logger"
	"github.com/cleberrangel/project-estimator-api/internal/middleware"
	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/cleberrangel/project-estimator-api/internal/service"
	"github.com/gin-gonic/gin"
)

// Origens registradas nas métricas de estimativa
const (
	SourceAPI    = "api"
	SourceExport = "export"
	SourceStream = "stream"
)

// Estimator é o pipeline usado pelos handlers
type Estimator interface {
	CreateEstimateWithProgress(ctx context.Context, raw model.RawInput, progress service.ProgressFunc) *model.EstimateResult
}

// EstimateHandler atende POST /estimate
type EstimateHandler struct {
	estimator Estimator
}

// NewEstimateHandler cria o handler de estimativas
func NewEstimateHandler(estimator Estimator) *EstimateHandler {
	return &EstimateHandler{estimator: estimator}
}

// Create valida a entrada, executa o pipeline e devolve a entrada ecoada junto do resultado
func (h *EstimateHandler) Create(c *gin.Context) {
	log := logger.FromGin(c)

	body, err := readJSONBody(c)
	if err != nil {
		respondBodyError(c, err)
		return
	}

	if details := ValidateEstimateInput(body); len(details) > 0 {
		log.Warn().
			Strs("details", details).
			Msg("Entrada do estimador inválida")
		respondValidationError(c, details)
		return
	}

	raw := model.RawInputFromMap(body)
	ctx := service.ContextWithSource(c.Request.Context(), SourceAPI)
	result := h.estimator.CreateEstimateWithProgress(ctx, raw, nil)
	c.Set(middleware.KeyEstimateID, result.ID)

	c.JSON(http.StatusOK, model.EstimateResponse{
		Input:          raw,
		EstimateResult: result,
	})
}

// StreamRunner adapta o estimador para o stream de progresso via WebSocket
func StreamRunner(estimator Estimator) func(ctx context.Context, body map[string]any, progress func(model.StageEvent)) (*model.EstimateResult, []string) {
	return func(ctx context.Context, body map[string]any, progress func(model.StageEvent)) (*model.EstimateResult, []string) {
		if details := ValidateEstimateInput(body); len(details) > 0 {
			return nil, details
		}
		ctx = service.ContextWithSource(ctx, SourceStream)
		return estimator.CreateEstimateWithProgress(ctx, model.RawInputFromMap(body), progress), nil
	}
}
