// Package bootstrap builds the ledger from configuration. It is shared by the
// HTTP server and the admin CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"donationledger/internal/domain"
	"donationledger/internal/infra"
	"donationledger/internal/ledger"
	"donationledger/internal/store/memory"
	"donationledger/internal/store/postgres"
	"donationledger/internal/store/sqlite"
)

// OpenStore opens the backend picked by the selector. When it cannot be
// reached and the fallback is enabled, the memory cache takes its place.
func OpenStore(ctx context.Context, cfg *infra.Config, logger zerolog.Logger, cache *memory.Store) (domain.Store, error) {
	kind := infra.SelectBackend(cfg.Signals())
	store, err := openKind(ctx, kind, cfg, logger, cache)
	if err == nil {
		logger.Info().Str("backend", string(kind)).Msg("backend selected")
		return store, nil
	}
	if !cfg.FallbackEnabled {
		return nil, fmt.Errorf("open %s backend: %w", kind, err)
	}
	logger.Warn().Err(err).Str("backend", string(kind)).Msg("backend unreachable, using memory cache")
	return cache, nil
}

func openKind(ctx context.Context, kind domain.BackendKind, cfg *infra.Config, logger zerolog.Logger, cache *memory.Store) (domain.Store, error) {
	narrator := domain.NewNarrator(cfg.Locale)
	switch kind {
	case domain.BackendPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return postgres.New(postgres.Config{
			Pool:         postgres.NewPool(pool),
			Narrator:     narrator,
			Logger:       logger,
			QueryTimeout: cfg.DBQueryTimeout,
		})
	case domain.BackendSQLite:
		store, err := sqlite.New(sqlite.Config{Path: cfg.SQLitePath, Narrator: narrator, Logger: logger})
		if err != nil {
			return nil, err
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case domain.BackendMemory:
		return cache, nil
	}
	return nil, fmt.Errorf("unknown backend %q", kind)
}

// NewCache returns the process-wide fallback cache.
func NewCache(cfg *infra.Config) *memory.Store {
	return memory.New(memory.WithNarrator(domain.NewNarrator(cfg.Locale)))
}

// OpenLedger opens the selected backend and wraps it in a Ledger.
func OpenLedger(ctx context.Context, cfg *infra.Config, logger zerolog.Logger) (*ledger.Ledger, error) {
	cache := NewCache(cfg)
	store, err := OpenStore(ctx, cfg, logger, cache)
	if err != nil {
		return nil, err
	}
	opts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithLocation(cfg.Timezone),
		ledger.WithEnvironment(cfg.AppEnv),
	}
	if cfg.FallbackEnabled {
		opts = append(opts, ledger.WithFallback(cache))
	}
	return ledger.New(store, opts...), nil
}
