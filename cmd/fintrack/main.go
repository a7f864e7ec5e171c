package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(nil, log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg, log.ComponentApp)

	be := cli.InitBackend(context.Background(), logger, cfg)

	refs := services.NewReferenceService(be.Store, cfg.CacheTTL)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Auth:         services.NewAuthService(be.Store, auth.NewTokenIssuer(cfg.SigningSecret(), cfg.SessionTTL)),
		References:   refs,
		Transactions: services.NewTransactionService(be.Store, refs, be.Publisher),
		Store:        be.Store,
		Logger:       logger,
	}, apphttp.Options{
		SecureCookies:      !cfg.IsDevelopment(),
		FrontendURL:        cfg.FrontendURL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := be.Close(); err != nil {
			logger.Error("Backend close error", log.FieldError, err)
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"env", cfg.AppEnv,
		"events", be.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
