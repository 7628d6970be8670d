package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cleberrangel/project-estimator-api/internal/cache"
	"github.com/cleberrangel/project-estimator-api/internal/config"
	"github.com/cleberrangel/project-estimator-api/internal/export"
	"github.com/cleberrangel/project-estimator-api/internal/handler"
	"github.com/cleberrangel/project-estimator-api/internal/logger"
	"github.com/cleberrangel/project-estimator-api/internal/metrics"
	"github.com/cleberrangel/project-estimator-api/internal/middleware"
	"github.com/cleberrangel/project-estimator-api/internal/proposal"
	"github.com/cleberrangel/project-estimator-api/internal/service"
	"github.com/cleberrangel/project-estimator-api/internal/websocket"
	"github.com/gin-gonic/gin"
)

const Version = "1.0.0"

const shutdownTimeout = 10 * time.Second

func main() {
	// Carrega configurações
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Erro ao carregar configurações: %v", err)
	}

	// Inicializa logger estruturado
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	metrics.Init()
	log := logger.Global()
	log.Info().
		Str("version", Version).
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("log_json", cfg.LogJSON).
		Bool("simulate_malformed", cfg.SimulateMalformed).
		Msg("Project Estimator API iniciando")

	// Template de proposta: externo quando configurado, senão o embutido
	template := proposal.DefaultTemplate()
	if cfg.TemplatePath != "" {
		template, err = proposal.LoadTemplate(cfg.TemplatePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.TemplatePath).Msg("Template de proposta inválido")
		}
		log.Info().Str("path", cfg.TemplatePath).Msg("Template de proposta carregado")
	}

	// Inicializa dependências
	estimator := service.NewEstimatorService(
		service.WithTemplate(template),
		service.WithSimulatedMalformedOutput(cfg.SimulateMalformed),
	)
	hub := websocket.NewHub()

	// Cache de documentos exportados; EXPORT_CACHE_SIZE=0 desativa
	var documents *handler.DocumentCache
	if cfg.ExportCacheSize > 0 {
		documents = cache.New[*export.Document](cfg.ExportCacheTTL, cfg.ExportCacheSize)
		defer documents.Stop()
	}

	// Configura modo do Gin
	gin.SetMode(cfg.GinMode)

	router := handler.NewRouter(handler.RouterConfig{
		Estimator:     estimator,
		Hub:           hub,
		TemplateCheck: templateCheck(cfg.TemplatePath),
		Version:       Version,
		RateLimiter:   middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		MaxBodyBytes:  cfg.MaxBodyBytes,
		ExportCache:   documents,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Servidor iniciando")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Erro ao iniciar servidor")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Encerrando servidor")
	hub.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Erro ao encerrar servidor")
		return
	}
	log.Info().Msg("Servidor encerrado")
}

// templateCheck revalida o template de proposta no health check de prontidão
func templateCheck(path string) func() error {
	return func() error {
		if path == "" {
			return proposal.VerifyTemplate(proposal.DefaultTemplate())
		}
		_, err := proposal.LoadTemplate(path)
		return err
	}
}
