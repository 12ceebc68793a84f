package infra

import (
	"strings"

	"donationledger/internal/domain"
)

// BackendSignals are the configuration inputs that decide the active backend.
type BackendSignals struct {
	DatabaseURL  string
	DatabaseType string
	Production   bool
}

var networkedSchemes = []string{"postgres://", "postgresql://"}

// SelectBackend picks the authoritative backend. First match wins:
// a postgres connection string, then the explicit type flag, then any
// connection string in production, then the embedded store.
func SelectBackend(sig BackendSignals) domain.BackendKind {
	url := strings.TrimSpace(sig.DatabaseURL)
	lower := strings.ToLower(url)
	for _, scheme := range networkedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return domain.BackendPostgres
		}
	}
	if sig.DatabaseType != "" {
		if kind, ok := domain.ParseBackendKind(strings.ToLower(strings.TrimSpace(sig.DatabaseType))); ok {
			return kind
		}
	}
	if sig.Production && url != "" {
		return domain.BackendPostgres
	}
	return domain.BackendSQLite
}
