package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv                string
	DBPath                string
	DBDriver              string
	DBBusyTimeout         time.Duration
	RedisAddr             string
	CacheEnabled          bool
	CacheTTL              time.Duration
	GRPCPort              int
	GRPCReflectionEnabled bool
	HTTPAddr              string
	HelpdeskURL           string
	HelpdeskAPIToken      string
	ScoringConfigPath     string
	PatternsFile          string
	ReconcileOnStart      bool
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		AppEnv:                getEnv("APP_ENV", "development"),
		DBPath:                getEnv("DB_PATH", "./data/email_qc.db"),
		DBDriver:              getEnv("DB_DRIVER", "sqlite3"),
		DBBusyTimeout:         getDuration("DB_BUSY_TIMEOUT", 5*time.Second),
		RedisAddr:             getEnv("REDIS_ADDR", "localhost:6379"),
		CacheEnabled:          getBool("CACHE_ENABLED", true),
		CacheTTL:              getDuration("CACHE_TTL", 10*time.Minute),
		GRPCPort:              getInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getBool("GRPC_REFLECTION_ENABLED", false),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		HelpdeskURL:           getEnv("HELPDESK_URL", ""),
		HelpdeskAPIToken:      getEnv("HELPDESK_API_TOKEN", ""),
		ScoringConfigPath:     getEnv("SCORING_CONFIG", ""),
		PatternsFile:          getEnv("PATTERNS_FILE", ""),
		ReconcileOnStart:      getBool("RECONCILE_ON_START", true),
	}
}

// HelpdeskEnabled reports whether agent names can be looked up remotely.
func (c *Config) HelpdeskEnabled() bool {
	return c.HelpdeskURL != "" && c.HelpdeskAPIToken != ""
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}
