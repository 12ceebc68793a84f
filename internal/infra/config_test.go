package infra

import (
	"testing"
	"time"

	"donationledger/internal/domain"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("LEDGER_TIMEZONE", "")
	t.Setenv("LEDGER_LOCALE", "")
	t.Setenv("SQLITE_PATH", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.SQLitePath != "./database.db" {
		t.Fatalf("SQLitePath mismatch: got %q want %q", cfg.SQLitePath, "./database.db")
	}
	if cfg.Timezone != time.UTC {
		t.Fatalf("Timezone mismatch: got %v want UTC", cfg.Timezone)
	}
	if cfg.Locale.String() != "pt-BR" {
		t.Fatalf("Locale mismatch: got %q want pt-BR", cfg.Locale)
	}
	if !cfg.FallbackEnabled {
		t.Fatalf("FallbackEnabled should default to true")
	}
	if cfg.AdminRateLimit != 30 {
		t.Fatalf("AdminRateLimit mismatch: got %d want 30", cfg.AdminRateLimit)
	}
	if got := SelectBackend(cfg.Signals()); got != domain.BackendSQLite {
		t.Fatalf("default backend = %q, want sqlite", got)
	}
}

func TestLoadConfigRejectsUnknownDatabaseType(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "mongodb")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for unknown DATABASE_TYPE")
	}
}

func TestLoadConfigProductionSignals(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "db.internal:5432/ledger")
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com ,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if got := SelectBackend(cfg.Signals()); got != domain.BackendPostgres {
		t.Fatalf("backend = %q, want postgres", got)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("AllowedOrigins mismatch: %#v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigRejectsBadTimezone(t *testing.T) {
	t.Setenv("DATABASE_TYPE", "")
	t.Setenv("LEDGER_TIMEZONE", "Mars/Olympus_Mons")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}
