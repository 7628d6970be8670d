package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRequestIDGeneratesAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter("info", true, &buf)
	t.Cleanup(func() { logger.InitWithWriter("disabled", true, &bytes.Buffer{}) })

	router := gin.New()
	router.Use(RequestID())
	router.POST("/export/:format", func(c *gin.Context) {
		logger.FromGin(c).Info().Msg("inside handler")
		c.Set(KeyEstimateID, "est-42")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/export/pdf", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	requestID := w.Header().Get(HeaderRequestID)
	traceID := w.Header().Get(HeaderTraceID)
	assert.Len(t, requestID, 8)
	assert.NotEmpty(t, traceID)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	// The handler's logger carries both ids.
	assert.Equal(t, requestID, gjson.Get(lines[0], "request_id").String())
	assert.Equal(t, traceID, gjson.Get(lines[0], "trace_id").String())

	completed := lines[1]
	assert.Equal(t, "/export/:format", gjson.Get(completed, "route").String())
	assert.Equal(t, "est-42", gjson.Get(completed, "estimate_id").String())
	assert.Equal(t, int64(http.StatusNoContent), gjson.Get(completed, "status").Int())
	assert.Equal(t, requestID, gjson.Get(completed, "request_id").String())
}

func TestRequestIDLogsUnmatchedRoute(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter("info", true, &buf)
	t.Cleanup(func() { logger.InitWithWriter("disabled", true, &bytes.Buffer{}) })

	router := gin.New()
	router.Use(RequestID())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope/123", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unmatched", gjson.Get(buf.String(), "route").String())
	assert.Equal(t, "warn", gjson.Get(buf.String(), "level").String())
	assert.False(t, gjson.Get(buf.String(), "estimate_id").Exists())
}

func TestRequestIDKeepsIncomingHeaders(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc123")
	req.Header.Set(HeaderTraceID, "trace-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, "abc123", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "trace-1", w.Header().Get(HeaderTraceID))
}

func TestRateLimiterPerClient(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("a"))
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))

	// Other clients have their own bucket.
	assert.True(t, limiter.Allow("b"))

	// One token refills after a second.
	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("a"))
	assert.False(t, limiter.Allow("a"))
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	limiter.Allow("a")
	now = now.Add(idleLimiterTTL + time.Second)
	limiter.Allow("b")

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	_, stillThere := limiter.clients["a"]
	assert.False(t, stillThere)
	assert.Len(t, limiter.clients, 1)
}

func TestRateLimiterDisabled(t *testing.T) {
	limiter := NewRateLimiter(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, limiter.Allow("a"))
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(NewRateLimiter(0.001, 1).Middleware())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	router.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"TooManyRequests","message":"Rate limit exceeded."}`, second.Body.String())
}

func TestBodyLimit(t *testing.T) {
	router := gin.New()
	router.Use(BodyLimit(8))
	router.POST("/", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		var maxErr *http.MaxBytesError
		if assert.Error(t, err) && assert.ErrorAs(t, err, &maxErr) {
			assert.Equal(t, int64(8), maxErr.Limit)
		}
		c.Status(http.StatusBadRequest)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	router := gin.New()
	router.Use(Metrics())
	router.POST("/export/:format", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/export/pdf", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	missing := httptest.NewRecorder()
	router.ServeHTTP(missing, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, missing.Code)
}
