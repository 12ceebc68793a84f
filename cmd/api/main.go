package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"donationledger/internal/bootstrap"
	"donationledger/internal/http/handlers"
	httpapi "donationledger/internal/http/httpapi"
	"donationledger/internal/infra"
	"donationledger/internal/middleware"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	// The backend is selected once for the lifetime of the process.
	ctx := context.Background()
	led, err := bootstrap.OpenLedger(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open ledger")
	}
	defer led.Close()

	app := handlers.NewApp(led, logger)

	opts := httpapi.Options{Logger: logger, AllowedOrigins: cfg.AllowedOrigins}
	if cfg.AdminRateLimit > 0 {
		opts.AdminLimiter = middleware.NewLimiter(cfg.AdminRateLimit, time.Minute)
	}
	router := httpapi.NewRouter(app, opts)

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("backend", string(led.Backend())).Msgf("API listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
