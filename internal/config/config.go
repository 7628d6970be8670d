package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config armazena as configurações da aplicação
type Config struct {
	Port              string        `validate:"required,numeric"`
	GinMode           string        `validate:"oneof=debug release test"`
	LogLevel          string        `validate:"oneof=trace debug info warn error fatal panic disabled"`
	LogJSON           bool
	TemplatePath      string        `validate:"omitempty,file"`
	SimulateMalformed bool
	RateLimitRPS      float64       `validate:"gte=0"`
	RateLimitBurst    int           `validate:"gte=1"`
	MaxBodyBytes      int64         `validate:"gt=0"`
	ExportCacheTTL    time.Duration `validate:"gt=0"`
	ExportCacheSize   int           `validate:"gte=0"`
}

// Valores padrão
const (
	DefaultPort            = "3001"
	DefaultGinMode         = "release"
	DefaultLogLevel        = "info"
	DefaultRateLimitRPS    = 10
	DefaultRateLimitBurst  = 20
	DefaultMaxBodyBytes    = 1_000_000
	DefaultExportCacheTTL  = 10 * time.Minute
	DefaultExportCacheSize = 256
)

var validate = validator.New()

// Load carrega as configurações do ambiente
func Load() (*Config, error) {
	// Tenta carregar .env de múltiplos locais; variáveis já definidas não são sobrescritas
	_ = godotenv.Load()          // ./.env
	_ = godotenv.Load("../.env") // ../.env

	return FromEnv()
}

// LoadFile carrega um arquivo .env específico antes de ler o ambiente
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, fmt.Errorf("carregar %s: %w", path, err)
	}
	return FromEnv()
}

// FromEnv lê as variáveis de ambiente, aplica defaults e valida
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", DefaultPort),
		GinMode:           getEnv("GIN_MODE", DefaultGinMode),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", DefaultLogLevel)),
		TemplatePath:      os.Getenv("PROPOSAL_TEMPLATE_PATH"),
		SimulateMalformed: os.Getenv("SIMULATE_MALFORMED_MODEL_OUTPUT") == "1",
	}

	var err error
	if cfg.LogJSON, err = parseBool("LOG_JSON", false); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = parseFloat("RATE_LIMIT_RPS", DefaultRateLimitRPS); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = parseInt("RATE_LIMIT_BURST", DefaultRateLimitBurst); err != nil {
		return nil, err
	}
	maxBody, err := parseInt("MAX_BODY_BYTES", DefaultMaxBodyBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxBodyBytes = int64(maxBody)
	if cfg.ExportCacheTTL, err = parseDuration("EXPORT_CACHE_TTL", DefaultExportCacheTTL); err != nil {
		return nil, err
	}
	if cfg.ExportCacheSize, err = parseInt("EXPORT_CACHE_SIZE", DefaultExportCacheSize); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuração inválida: %w", err)
	}

	return cfg, nil
}

// Addr retorna o endereço de escuta do servidor
func (c *Config) Addr() string {
	return ":" + c.Port
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseBool(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s inválido: %w", key, err)
	}
	return value, nil
}

func parseFloat(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s inválido: %w", key, err)
	}
	return value, nil
}

func parseInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s inválido: %w", key, err)
	}
	return value, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s inválido: %w", key, err)
	}
	return value, nil
}
