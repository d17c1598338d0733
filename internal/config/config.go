package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Backend transport modes.
const (
	BackendWebhook = "webhook"
	BackendDirect  = "direct"
)

// Server transport modes.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config aggregates runtime configuration for the server.
type Config struct {
	App      AppConfig
	Identity IdentityConfig
	Backend  BackendConfig
	Redis    RedisConfig
	Session  SessionConfig
	Logger   LoggerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name        string
	Version     string
	Environment string // default environment for new logins: prod|staging
	Transport   string // stdio (single-session) | http (multi-user)
	Host        string
	Port        string
}

// IdentityConfig points at the external OTP identity provider.
type IdentityConfig struct {
	APIBaseProd      string
	APIBaseStaging   string
	DeviceID         string
	DeviceType       string
	SuperAdminPhone  string
	RequestTimeoutMS int
}

// BackendConfig selects and parameterizes the backend gateway.
type BackendConfig struct {
	Mode              string // webhook | direct
	WebhookURLProd    string
	WebhookURLStaging string
	PostgresDSNProd   string
	PostgresDSNStage  string
	MaxConns          int32
	MinConns          int32
	RequestTimeoutSec int
	RetryAttempts     int
	RetryBaseDelayMS  int
}

// RedisConfig holds session store connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// SessionConfig controls session issuance.
type SessionConfig struct {
	SigningSecret string
	TTLMinutes    int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "easydo-hrms-mcp"),
			Version:     getEnv("APP_VERSION", "dev"),
			Environment: getEnv("APP_ENVIRONMENT", "prod"),
			Transport:   getEnv("APP_TRANSPORT", TransportStdio),
			Host:        getEnv("APP_HOST", "0.0.0.0"),
			Port:        getEnv("APP_PORT", "8080"),
		},
		Identity: IdentityConfig{
			APIBaseProd:      os.Getenv("API_BASE_PROD"),
			APIBaseStaging:   os.Getenv("API_BASE_STAGING"),
			DeviceID:         getEnv("DEVICE_ID", "hrms-mcp"),
			DeviceType:       getEnv("DEVICE_TYPE", "ios"),
			SuperAdminPhone:  os.Getenv("SUPER_ADMIN_PHONE"),
			RequestTimeoutMS: getEnvAsInt("IDENTITY_REQUEST_TIMEOUT_MS", 10000),
		},
		Backend: BackendConfig{
			Mode:              getEnv("BACKEND_MODE", BackendWebhook),
			WebhookURLProd:    os.Getenv("WEBHOOK_URL_PROD"),
			WebhookURLStaging: os.Getenv("WEBHOOK_URL_STAGING"),
			PostgresDSNProd:   os.Getenv("POSTGRES_DSN_PROD"),
			PostgresDSNStage:  os.Getenv("POSTGRES_DSN_STAGING"),
			MaxConns:          int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:          int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RequestTimeoutSec: getEnvAsInt("BACKEND_REQUEST_TIMEOUT_SECONDS", 30),
			RetryAttempts:     getEnvAsInt("BACKEND_RETRY_ATTEMPTS", 3),
			RetryBaseDelayMS:  getEnvAsInt("BACKEND_RETRY_BASE_DELAY_MS", 200),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Session: SessionConfig{
			SigningSecret: getEnv("SESSION_SIGNING_SECRET", "dev-secret"),
			TTLMinutes:    getEnvAsInt("SESSION_TTL_MINUTES", 60),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.Backend.Mode != BackendWebhook && cfg.Backend.Mode != BackendDirect {
		return nil, fmt.Errorf("invalid BACKEND_MODE %q: want %q or %q", cfg.Backend.Mode, BackendWebhook, BackendDirect)
	}
	if cfg.App.Transport != TransportStdio && cfg.App.Transport != TransportHTTP {
		return nil, fmt.Errorf("invalid APP_TRANSPORT %q: want %q or %q", cfg.App.Transport, TransportStdio, TransportHTTP)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// SessionTTL returns the configured session lifetime.
func (s SessionConfig) SessionTTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

// RequestTimeout returns the identity provider call timeout.
func (i IdentityConfig) RequestTimeout() time.Duration {
	if i.RequestTimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(i.RequestTimeoutMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}
