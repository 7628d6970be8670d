// Package logger mantém o logger zerolog do serviço e o logger de cada requisição,
// que carrega request_id, trace_id e o ID da estimativa em andamento.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type ctxKey string

// LoggerKey guarda o logger da requisição no contexto
const LoggerKey ctxKey = "logger"

const serviceName = "project-estimator"

var globalLogger = zerolog.Nop()

// Init inicializa o logger global
func Init(level string, jsonFormat bool) {
	InitWithWriter(level, jsonFormat, os.Stdout)
}

// InitWithWriter inicializa o logger global escrevendo em out.
// Nível desconhecido cai em info; sem JSON a saída é legível no terminal.
func InitWithWriter(level string, jsonFormat bool, out io.Writer) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if !jsonFormat {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	globalLogger = zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Global retorna o logger global
func Global() *zerolog.Logger {
	return &globalLogger
}

// Get retorna logger do contexto ou global
func Get(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &globalLogger
	}
	if l, ok := ctx.Value(LoggerKey).(*zerolog.Logger); ok {
		return l
	}
	return &globalLogger
}

// FromGin extrai o logger do contexto Gin
func FromGin(c *gin.Context) *zerolog.Logger {
	return Get(c.Request.Context())
}

// WithRequestID marca os logs da requisição com request_id
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withField(ctx, "request_id", requestID)
}

// WithTraceID marca os logs da requisição com trace_id
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withField(ctx, "trace_id", traceID)
}

// WithOperationID marca os logs seguintes com o ID da estimativa em andamento
func WithOperationID(ctx context.Context, estimateID string) context.Context {
	return withField(ctx, "operation_id", estimateID)
}

func withField(ctx context.Context, field, value string) context.Context {
	l := Get(ctx).With().Str(field, value).Logger()
	return context.WithValue(ctx, LoggerKey, &l)
}
