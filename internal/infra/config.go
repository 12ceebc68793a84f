package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"donationledger/internal/domain"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	DatabaseType     string
	SQLitePath       string
	Timezone         *time.Location
	Locale           language.Tag
	FallbackEnabled  bool
	DBMaxConns       int32
	DBConnectTimeout time.Duration
	DBQueryTimeout   time.Duration
	AllowedOrigins   []string
	AdminRateLimit   int
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DatabaseType:     strings.ToLower(strings.TrimSpace(os.Getenv("DATABASE_TYPE"))),
		SQLitePath:       getEnv("SQLITE_PATH", "./database.db"),
		FallbackEnabled:  getEnvBool("LEDGER_FALLBACK", true),
		DBMaxConns:       int32(getEnvInt("DB_MAX_CONNS", 20)),
		DBConnectTimeout: time.Second * time.Duration(getEnvInt("DB_CONNECT_TIMEOUT_SECONDS", 2)),
		DBQueryTimeout:   time.Second * time.Duration(getEnvInt("DB_QUERY_TIMEOUT_SECONDS", 10)),
		AllowedOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		AdminRateLimit:   getEnvInt("ADMIN_RATE_LIMIT_PER_MINUTE", 30),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseType != "" {
		if _, ok := domain.ParseBackendKind(cfg.DatabaseType); !ok {
			return nil, fmt.Errorf("DATABASE_TYPE %q is not one of sqlite, postgres, memory", cfg.DatabaseType)
		}
	}

	loc, err := time.LoadLocation(getEnv("LEDGER_TIMEZONE", "UTC"))
	if err != nil {
		return nil, fmt.Errorf("LEDGER_TIMEZONE: %w", err)
	}
	cfg.Timezone = loc

	tag, err := language.Parse(getEnv("LEDGER_LOCALE", "pt-BR"))
	if err != nil {
		return nil, fmt.Errorf("LEDGER_LOCALE: %w", err)
	}
	cfg.Locale = tag

	if cfg.DBMaxConns <= 0 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be positive")
	}

	return cfg, nil
}

// Signals returns the inputs of the backend selector.
func (c *Config) Signals() BackendSignals {
	return BackendSignals{
		DatabaseURL:  c.DatabaseURL,
		DatabaseType: c.DatabaseType,
		Production:   c.AppEnv == "production",
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
