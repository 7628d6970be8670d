package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/cache"
	"github.com/cleberrangel/project-estimator-api/internal/export"
	"github.com/cleberrangel/project-estimator-api/internal/middleware"
	"github.com/cleberrangel/project-estimator-api/internal/service"
	"github.com/cleberrangel/project-estimator-api/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var fixedNow = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

var validInput = map[string]any{
	"projectDescription": "Build a customer portal with role-based access, reporting dashboard, and Stripe integration.",
	"budget":             map[string]any{"amount": 25000, "currency": "USD"},
	"deadline":           "2030-08-01",
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(t *testing.T, opts ...func(*RouterConfig)) *gin.Engine {
	t.Helper()
	cfg := RouterConfig{
		Estimator:     service.NewEstimatorService(service.WithClock(func() time.Time { return fixedNow })),
		Hub:           websocket.NewHub(),
		TemplateCheck: func() error { return nil },
		Version:       "test",
		MaxBodyBytes:  1_000_000,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewRouter(cfg)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateEstimateReturnsAllFields(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/estimate", validInput)
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	for _, field := range []string{
		"input", "normalizedInput", "taskBreakdown", "timeline", "costEstimate", "riskFlags",
		"estimationSignals", "proposalDraft", "proposalMarkdown", "proposalPlainText",
	} {
		assert.True(t, gjson.Get(body, field).Exists(), "missing field: %s", field)
	}

	assert.True(t, gjson.Get(body, "taskBreakdown").IsArray())
	assert.True(t, gjson.Get(body, "timeline").IsArray())
	assert.True(t, gjson.Get(body, "riskFlags").IsArray())
	assert.Equal(t, gjson.String, gjson.Get(body, "proposalMarkdown").Type)
	assert.Equal(t, validInput["projectDescription"], gjson.Get(body, "input.projectDescription").String())
	assert.Equal(t, 25000.0, gjson.Get(body, "input.budget.amount").Float())
	assert.Equal(t, "2030-08-01", gjson.Get(body, "normalizedInput.deadline").String())
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestCreateEstimateMissingFields(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/estimate", map[string]any{})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := w.Body.String()
	assert.Equal(t, "ValidationError", gjson.Get(body, "error").String())
	assert.Equal(t, "Missing or invalid estimator input.", gjson.Get(body, "message").String())

	details := gjson.Get(body, "details").Array()
	require.Len(t, details, 3)
	assert.Contains(t, details[0].String(), "projectDescription")
	assert.Contains(t, details[1].String(), "budget is required")
	assert.Contains(t, details[2].String(), "deadline is required")
}

func TestCreateEstimateEmptyBodyIsEmptyObject(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/estimate", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", gjson.Get(w.Body.String(), "error").String())
	assert.Len(t, gjson.Get(w.Body.String(), "details").Array(), 3)
}

func TestCreateEstimateInvalidJSON(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/estimate", "{not json")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BadRequest", gjson.Get(w.Body.String(), "error").String())
	assert.Equal(t, "Invalid JSON body", gjson.Get(w.Body.String(), "message").String())
}

func TestCreateEstimatePayloadTooLarge(t *testing.T) {
	router := newTestRouter(t, func(cfg *RouterConfig) { cfg.MaxBodyBytes = 64 })

	w := doJSON(t, router, http.MethodPost, "/estimate", validInput)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BadRequest", gjson.Get(w.Body.String(), "error").String())
	assert.Equal(t, "Payload too large", gjson.Get(w.Body.String(), "message").String())
}

func TestCreateEstimateMalformedModelOutput(t *testing.T) {
	router := newTestRouter(t, func(cfg *RouterConfig) {
		cfg.Estimator = service.NewEstimatorService(
			service.WithClock(func() time.Time { return fixedNow }),
			service.WithSimulatedMalformedOutput(true),
		)
	})

	w := doJSON(t, router, http.MethodPost, "/estimate", validInput)
	require.Equal(t, http.StatusOK, w.Code)

	tasks := gjson.Get(w.Body.String(), "taskBreakdown").Array()
	require.NotEmpty(t, tasks)
	for _, task := range tasks {
		assert.Equal(t, gjson.String, task.Get("task").Type)
	}
}

func TestValidateEstimateInput(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
		want []string
	}{
		{"valid", validInput, nil},
		{
			name: "budget not an object",
			body: map[string]any{"projectDescription": "x", "budget": "1000", "deadline": "2030-01-01"},
			want: []string{msgBudgetRequired},
		},
		{
			name: "amount as string and empty currency",
			body: map[string]any{
				"projectDescription": "x",
				"budget":             map[string]any{"amount": "1000", "currency": ""},
				"deadline":           "2030-01-01",
			},
			want: []string{msgAmountRequired, msgCurrencyRequired},
		},
		{
			name: "unparseable deadline",
			body: map[string]any{
				"projectDescription": "x",
				"budget":             map[string]any{"amount": 1000.0, "currency": "USD"},
				"deadline":           "not-a-date",
			},
			want: []string{msgDeadlineInvalid},
		},
		{
			name: "description not a string",
			body: map[string]any{
				"projectDescription": 42.0,
				"budget":             map[string]any{"amount": 1000.0, "currency": "USD"},
				"deadline":           "2030-01-01",
			},
			want: []string{msgDescriptionRequired},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Round-trip through JSON so numbers arrive as float64, like a decoded body.
			data, err := json.Marshal(tt.body)
			require.NoError(t, err)
			var body map[string]any
			require.NoError(t, json.Unmarshal(data, &body))

			assert.Equal(t, tt.want, ValidateEstimateInput(body))
		})
	}
}

func TestExportPDFFromEstimateData(t *testing.T) {
	router := newTestRouter(t)

	estimate := doJSON(t, router, http.MethodPost, "/estimate", validInput)
	require.Equal(t, http.StatusOK, estimate.Code)

	var estimateData map[string]any
	require.NoError(t, json.Unmarshal(estimate.Body.Bytes(), &estimateData))

	w := doJSON(t, router, http.MethodPost, "/export/pdf", map[string]any{"estimateData": estimateData})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="project-estimate-\d{4}-\d{2}-\d{2}\.pdf"$`, w.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF-1.4"))
	assert.Equal(t, w.Body.Len(), mustAtoi(t, w.Header().Get("Content-Length")))

	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	// Same content with a matching validator is not resent.
	data, err := json.Marshal(map[string]any{"estimateData": estimateData})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/export/pdf", bytes.NewReader(data))
	req.Header.Set("If-None-Match", etag)
	cached := httptest.NewRecorder()
	router.ServeHTTP(cached, req)
	assert.Equal(t, http.StatusNotModified, cached.Code)
	assert.Zero(t, cached.Body.Len())
}

func TestExportDOCXFromRawInput(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/export/docx", validInput)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		w.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="project-estimate-\d{4}-\d{2}-\d{2}\.docx"$`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK\x03\x04")))
}

func TestExportXLSXFromEstimateBody(t *testing.T) {
	router := newTestRouter(t)

	estimate := doJSON(t, router, http.MethodPost, "/estimate", validInput)
	require.Equal(t, http.StatusOK, estimate.Code)

	// A full estimate posted as the body itself is exported directly.
	w := doJSON(t, router, http.MethodPost, "/export/XLSX", estimate.Body.String())
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		w.Header().Get("Content-Type"))
	assert.True(t, strings.HasSuffix(w.Header().Get("Content-Disposition"), `.xlsx"`))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestExportCacheReusesDocuments(t *testing.T) {
	documents := cache.New[*export.Document](time.Minute, 8)
	t.Cleanup(documents.Stop)
	router := newTestRouter(t, func(cfg *RouterConfig) { cfg.ExportCache = documents })

	// Raw input yields a new estimate id each time; the document is still reused.
	first := doJSON(t, router, http.MethodPost, "/export/pdf", validInput)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get(HeaderCache))

	second := doJSON(t, router, http.MethodPost, "/export/pdf", validInput)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get(HeaderCache))
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())

	// Each format has its own entry.
	docx := doJSON(t, router, http.MethodPost, "/export/docx", validInput)
	assert.Equal(t, "MISS", docx.Header().Get(HeaderCache))

	stats := documents.Stats()
	assert.Equal(t, 2, stats.ItemCount)
	assert.Equal(t, int64(1), stats.HitCount)
}

func TestExportValidationErrors(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/export/pdf", map[string]any{
		"budget": map[string]any{"amount": 1000, "currency": "USD"},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", gjson.Get(w.Body.String(), "error").String())

	found := false
	for _, detail := range gjson.Get(w.Body.String(), "details").Array() {
		if strings.Contains(detail.String(), "projectDescription") {
			found = true
		}
	}
	assert.True(t, found)
}

// Raw estimator input wrapped in estimateData runs through the estimator first.
func TestExportRawInputInsideEstimateData(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/export/pdf", map[string]any{"estimateData": validInput})
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Description: Build a customer portal")
	assert.Contains(t, body, "Requirements & Planning")
	assert.NotContains(t, body, "Description: N/A")

	invalid := doJSON(t, router, http.MethodPost, "/export/pdf", map[string]any{
		"estimateData": map[string]any{"projectDescription": "only a description"},
	})
	require.Equal(t, http.StatusBadRequest, invalid.Code)
	assert.Equal(t, "ValidationError", gjson.Get(invalid.Body.String(), "error").String())
}

// Mistyped fields in a ready estimate are exported as far as they can be read.
func TestExportToleratesMistypedEstimateFields(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/export/pdf", map[string]any{
		"estimateData": map[string]any{
			"normalizedInput": map[string]any{
				"projectDescription": "Lenient export",
				"budget":             map[string]any{"amount": "5000", "currency": "USD"},
				"deadline":           "2030-01-01",
			},
			"taskBreakdown": []any{
				map[string]any{"task": "Build", "description": "core work", "estimatedHours": "12"},
				"not a task",
			},
			"riskFlags":    "none",
			"costEstimate": []any{1, 2},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, "Description: Lenient export")
	assert.Contains(t, body, "- Build (12h): core work")
	assert.Contains(t, body, "Total: N/A")
}

func TestExportRejectsNonObjectEstimateData(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/export/pdf", map[string]any{"estimateData": "oops"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, msgEstimateDataInvalid, gjson.Get(w.Body.String(), "details.0").String())
}

func TestUnknownRoutesReturnNotFound(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/export/unknown"},
		{http.MethodGet, "/estimate"},
		{http.MethodGet, "/nope"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := doJSON(t, router, tt.method, tt.path, validInput)
			require.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, "NotFound", gjson.Get(w.Body.String(), "error").String())
			assert.Equal(t, "Route not found.", gjson.Get(w.Body.String(), "message").String())
		})
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	ready := doJSON(t, router, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusOK, ready.Code)
	assert.Equal(t, "healthy", gjson.Get(ready.Body.String(), "components.template.status").String())
	assert.Equal(t, "healthy", gjson.Get(ready.Body.String(), "components.stream.status").String())
	assert.Equal(t, "test", gjson.Get(ready.Body.String(), "version").String())
	assert.True(t, gjson.Get(ready.Body.String(), "metrics.uptime_seconds").Exists())
}

func TestReadinessFailsOnBrokenTemplate(t *testing.T) {
	router := newTestRouter(t, func(cfg *RouterConfig) {
		cfg.TemplateCheck = func() error { return errors.New("template missing") }
	})

	w := doJSON(t, router, http.MethodGet, "/health/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", gjson.Get(w.Body.String(), "status").String())
	assert.Equal(t, "template missing", gjson.Get(w.Body.String(), "components.template.message").String())
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	doJSON(t, router, http.MethodPost, "/estimate", validInput)

	w := doJSON(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "estimator_http_request_duration_seconds")
	assert.Contains(t, w.Body.String(), "estimator_estimates_total")
}

func TestRateLimitedRoutes(t *testing.T) {
	router := newTestRouter(t, func(cfg *RouterConfig) {
		cfg.RateLimiter = middleware.NewRateLimiter(0.001, 1)
	})

	first := doJSON(t, router, http.MethodPost, "/estimate", validInput)
	assert.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, router, http.MethodPost, "/estimate", validInput)
	require.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "TooManyRequests", gjson.Get(second.Body.String(), "error").String())

	// Health checks are not rate limited.
	health := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, health.Code)
}

func mustAtoi(t *testing.T, s string) int {
	t.Helper()
	var n int
	require.NoError(t, json.Unmarshal([]byte(s), &n))
	return n
}
