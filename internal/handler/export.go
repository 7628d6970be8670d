package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/cache"
	"github.com/cleberrangel/project-estimator-api/internal/export"
	"github.com/cleberrangel/project-estimator-api/internal/logger"
	"github.com/cleberrangel/project-estimator-api/internal/metrics"
	"github.com/cleberrangel/project-estimator-api/internal/middleware"
	"github.com/cleberrangel/project-estimator-api/internal/model"
	"github.com/cleberrangel/project-estimator-api/internal/service"
	"github.com/gin-gonic/gin"
)

const msgEstimateDataInvalid = "estimateData must be an estimate object."

// HeaderCache indica se o documento veio do cache de exportação
const HeaderCache = "X-Export-Cache"

// DocumentCache guarda documentos já gerados
type DocumentCache = cache.Cache[*export.Document]

// ExportHandler atende POST /export/:format
type ExportHandler struct {
	estimator Estimator
	documents *DocumentCache
	now       func() time.Time
}

// NewExportHandler cria o handler de exportação. documents pode ser nil.
func NewExportHandler(estimator Estimator, documents *DocumentCache) *ExportHandler {
	return &ExportHandler{
		estimator: estimator,
		documents: documents,
		now:       time.Now,
	}
}

// Export gera o arquivo no formato pedido a partir de uma estimativa pronta
// (campo estimateData) ou de uma entrada bruta, que passa pelo pipeline
func (h *ExportHandler) Export(c *gin.Context) {
	log := logger.FromGin(c)

	format, err := export.Lookup(c.Param("format"))
	if err != nil {
		NotFound(c)
		return
	}

	body, err := readJSONBody(c)
	if err != nil {
		respondBodyError(c, err)
		return
	}

	est, details := h.resolveEstimate(c, body)
	if len(details) > 0 {
		log.Warn().
			Str("format", format.Name).
			Strs("details", details).
			Msg("Entrada de exportação inválida")
		respondValidationError(c, details)
		return
	}
	c.Set(middleware.KeyEstimateID, est.ID)

	doc, cached, err := h.render(format, est)
	if err != nil {
		metrics.RecordExport(format.Name, -1)
		log.Error().
			Err(err).
			Str("format", format.Name).
			Msg("Falha ao gerar exportação")
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{
			Error:   "InternalError",
			Message: "Unable to generate export.",
		})
		return
	}
	metrics.RecordExport(format.Name, len(doc.Data))

	log.Debug().
		Str("format", format.Name).
		Int("bytes", len(doc.Data)).
		Str("filename", doc.Filename).
		Bool("cached", cached).
		Msg("Exportação gerada")

	if h.documents != nil {
		c.Header(HeaderCache, cacheStatus(cached))
	}

	c.Header("ETag", doc.ETag)
	if match := c.GetHeader("If-None-Match"); match != "" && match == doc.ETag {
		c.Status(http.StatusNotModified)
		return
	}

	c.Header("Content-Disposition", export.ContentDisposition(doc.Filename))
	c.Header("Content-Length", strconv.Itoa(len(doc.Data)))
	c.Data(http.StatusOK, format.ContentType, doc.Data)
}

// resolveEstimate aceita {"estimateData": {...}} ou o próprio corpo. Uma estimativa pronta
// (com normalizedInput ou taskBreakdown) é exportada como veio; qualquer outro objeto é
// tratado como entrada bruta do estimador.
func (h *ExportHandler) resolveEstimate(c *gin.Context, body map[string]any) (*model.EstimateResult, []string) {
	data := body
	if wrapped, ok := body["estimateData"]; ok {
		inner, ok := wrapped.(map[string]any)
		if !ok {
			return nil, []string{msgEstimateDataInvalid}
		}
		data = inner
	}

	if isEstimate(data) {
		return decodeEstimate(data), nil
	}

	if details := ValidateEstimateInput(data); len(details) > 0 {
		return nil, details
	}

	ctx := service.ContextWithSource(c.Request.Context(), SourceExport)
	return h.estimator.CreateEstimateWithProgress(ctx, model.RawInputFromMap(data), nil), nil
}

// render gera o documento ou reaproveita um idêntico do cache.
// A chave ignora o ID da estimativa, que não aparece nos documentos.
func (h *ExportHandler) render(format export.Format, est *model.EstimateResult) (*export.Document, bool, error) {
	now := h.now()
	if h.documents == nil {
		doc, err := export.Render(format, est, now)
		return doc, false, err
	}

	content := *est
	content.ID = ""
	encoded, err := json.Marshal(content)
	if err != nil {
		return nil, false, err
	}
	key := format.Name + ":" + now.UTC().Format("2006-01-02") + ":" + export.Digest(encoded)

	if doc, ok := h.documents.Get(key); ok {
		return doc, true, nil
	}

	doc, err := export.Render(format, est, now)
	if err != nil {
		return nil, false, err
	}
	h.documents.Set(key, doc)
	return doc, false, nil
}

func cacheStatus(hit bool) string {
	if hit {
		return "HIT"
	}
	return "MISS"
}

func isEstimate(body map[string]any) bool {
	_, hasNormalized := body["normalizedInput"]
	_, hasTasks := body["taskBreakdown"]
	return hasNormalized || hasTasks
}
