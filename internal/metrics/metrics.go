package metrics

import (
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestDuration duração das requisições HTTP (segundos)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "estimator_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms a ~4s
		},
		[]string{"method", "path", "status"},
	)

	// StageDuration duração de cada estágio de geração (segundos)
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "estimator_stage_duration_seconds",
			Help:    "Generation stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12), // 0.1ms a ~200ms
		},
		[]string{"stage"},
	)

	// StageAttempts tentativas consumidas por estágio
	StageAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimator_stage_attempts_total",
			Help: "Total number of generation stage attempts",
		},
		[]string{"stage"},
	)

	// StageFallbacks estágios que terminaram no valor padrão
	StageFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimator_stage_fallbacks_total",
			Help: "Total number of generation stages resolved by fallback",
		},
		[]string{"stage"},
	)

	// EstimatesCreated estimativas geradas
	EstimatesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimator_estimates_total",
			Help: "Total number of estimates created",
		},
		[]string{"source"}, // source: api, export, stream, cli
	)

	// ExportsGenerated documentos exportados
	ExportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimator_exports_total",
			Help: "Total number of exported documents",
		},
		[]string{"format", "status"},
	)

	// ExportBytes tamanho dos documentos exportados
	ExportBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "estimator_export_bytes",
			Help:    "Exported document size in bytes",
			Buckets: prometheus.ExponentialBuckets(512, 2, 10), // 512B a ~256KB
		},
		[]string{"format"},
	)

	// StreamConnections conexões de stream de progresso abertas
	StreamConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "estimator_stream_connections",
			Help: "Open estimate progress stream connections",
		},
	)
)

// RecordHTTPRequestDuration registra a duração de uma requisição HTTP
func RecordHTTPRequestDuration(method, path string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
	Get().trackRequest(status < 400)
}

// RecordStage registra tentativas, duração e fallback de um estágio
func RecordStage(stage string, attempts int, fallback bool, duration time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	StageAttempts.WithLabelValues(stage).Add(float64(attempts))
	if fallback {
		StageFallbacks.WithLabelValues(stage).Inc()
		atomic.AddInt64(&Get().StageFallbacks, 1)
	}
}

// IncrementEstimate incrementa o contador de estimativas
func IncrementEstimate(source string) {
	EstimatesCreated.WithLabelValues(source).Inc()
	atomic.AddInt64(&Get().Estimates, 1)
}

// RecordExport registra um documento exportado; size < 0 indica falha
func RecordExport(format string, size int) {
	if size < 0 {
		ExportsGenerated.WithLabelValues(format, "failed").Inc()
		atomic.AddInt64(&Get().ExportErrors, 1)
		return
	}
	ExportsGenerated.WithLabelValues(format, "success").Inc()
	ExportBytes.WithLabelValues(format).Observe(float64(size))
	atomic.AddInt64(&Get().Exports, 1)
}

// StreamOpened registra uma nova conexão de stream
func StreamOpened() {
	StreamConnections.Inc()
	atomic.AddInt64(&Get().StreamConnections, 1)
}

// StreamClosed registra o fechamento de uma conexão de stream
func StreamClosed() {
	StreamConnections.Dec()
	atomic.AddInt64(&Get().StreamConnections, -1)
}

// Metrics guarda contadores em processo para o health check.
// O Prometheus continua sendo a fonte para séries históricas.
type Metrics struct {
	TotalRequests      int64
	SuccessfulRequests int64
	FailedRequests     int64

	Estimates      int64
	StageFallbacks int64

	Exports      int64
	ExportErrors int64

	StreamConnections int64

	StartTime time.Time
}

var (
	globalMetrics *Metrics
	once          sync.Once
)

// Init inicializa a instância global
func Init() {
	once.Do(func() {
		globalMetrics = &Metrics{StartTime: time.Now()}
	})
}

// Get retorna a instância global, inicializando se preciso
func Get() *Metrics {
	Init()
	return globalMetrics
}

func (m *Metrics) trackRequest(success bool) {
	atomic.AddInt64(&m.TotalRequests, 1)
	if success {
		atomic.AddInt64(&m.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&m.FailedRequests, 1)
	}
}

// GetUptime retorna o tempo desde a inicialização
func (m *Metrics) GetUptime() time.Duration {
	return time.Since(m.StartTime)
}

// MetricsSnapshot é uma fotografia dos contadores
type MetricsSnapshot struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	StartTime     string  `json:"start_time"`

	Requests struct {
		Total      int64 `json:"total"`
		Successful int64 `json:"successful"`
		Failed     int64 `json:"failed"`
	} `json:"requests"`

	Estimates struct {
		Created   int64 `json:"created"`
		Fallbacks int64 `json:"stage_fallbacks"`
	} `json:"estimates"`

	Exports struct {
		Generated int64 `json:"generated"`
		Errors    int64 `json:"errors"`
	} `json:"exports"`

	Streams struct {
		Connections int64 `json:"connections"`
	} `json:"streams"`

	System struct {
		Goroutines  int    `json:"goroutines"`
		HeapAllocMB uint64 `json:"heap_alloc_mb"`
		HeapInUseMB uint64 `json:"heap_inuse_mb"`
		NumGC       uint32 `json:"num_gc"`
	} `json:"system"`
}

// Snapshot retorna os valores atuais dos contadores
func (m *Metrics) Snapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	snapshot := MetricsSnapshot{}
	snapshot.UptimeSeconds = m.GetUptime().Seconds()
	snapshot.StartTime = m.StartTime.Format(time.RFC3339)

	snapshot.Requests.Total = atomic.LoadInt64(&m.TotalRequests)
	snapshot.Requests.Successful = atomic.LoadInt64(&m.SuccessfulRequests)
	snapshot.Requests.Failed = atomic.LoadInt64(&m.FailedRequests)

	snapshot.Estimates.Created = atomic.LoadInt64(&m.Estimates)
	snapshot.Estimates.Fallbacks = atomic.LoadInt64(&m.StageFallbacks)

	snapshot.Exports.Generated = atomic.LoadInt64(&m.Exports)
	snapshot.Exports.Errors = atomic.LoadInt64(&m.ExportErrors)

	snapshot.Streams.Connections = atomic.LoadInt64(&m.StreamConnections)

	snapshot.System.Goroutines = runtime.NumGoroutine()
	snapshot.System.HeapAllocMB = memStats.HeapAlloc / 1024 / 1024
	snapshot.System.HeapInUseMB = memStats.HeapInuse / 1024 / 1024
	snapshot.System.NumGC = memStats.NumGC

	return snapshot
}

// Status de saúde
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus representa a saúde de um componente
type HealthStatus struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency int64  `json:"latency_ms,omitempty"`
}

// HealthCheck é a resposta do health check de prontidão
type HealthCheck struct {
	Status     string                  `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Timestamp  string                  `json:"timestamp"`
	Components map[string]HealthStatus `json:"components"`
	Metrics    *MetricsSnapshot        `json:"metrics,omitempty"`
}

// CheckMemoryHealth verifica o uso de heap
func CheckMemoryHealth(maxHeapMB uint64) HealthStatus {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	heapMB := memStats.HeapAlloc / 1024 / 1024
	return memoryStatus(heapMB, maxHeapMB)
}

func memoryStatus(heapMB, maxHeapMB uint64) HealthStatus {
	if heapMB > maxHeapMB {
		return HealthStatus{
			Status:  StatusUnhealthy,
			Message: "heap memory exceeds limit",
		}
	}

	// acima de 80% do limite
	if heapMB > (maxHeapMB * 80 / 100) {
		return HealthStatus{
			Status:  StatusDegraded,
			Message: "heap memory usage high",
		}
	}

	return HealthStatus{Status: StatusHealthy}
}

// CheckComponent executa uma verificação e mede sua latência.
// Erro vira unhealthy; sucesso acima de slow vira degraded.
func CheckComponent(check func() error, slow time.Duration) HealthStatus {
	start := time.Now()
	err := check()
	elapsed := time.Since(start)
	latency := elapsed.Milliseconds()

	if err != nil {
		return HealthStatus{
			Status:  StatusUnhealthy,
			Message: err.Error(),
			Latency: latency,
		}
	}
	if slow > 0 && elapsed > slow {
		return HealthStatus{
			Status:  StatusDegraded,
			Message: "high latency",
			Latency: latency,
		}
	}
	return HealthStatus{Status: StatusHealthy, Latency: latency}
}

// DetermineOverallStatus combina o status dos componentes
func DetermineOverallStatus(components map[string]HealthStatus) string {
	hasUnhealthy := false
	hasDegraded := false

	for _, status := range components {
		switch status.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
		case StatusDegraded:
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return StatusUnhealthy
	}
	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}
