package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Yulian302/lfusys-services-media/internal/config"
	logger "github.com/Yulian302/lfusys-services-media/internal/logging"
	_ "github.com/joho/godotenv/autoload"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	appLogger := logger.NewSlogLogger(logger.CreateAppLogger(cfg.Env, cfg.LogLevel)).
		With("service", serviceName, "mode", cfg.Mode)
	if cfg.Function != "" {
		appLogger = appLogger.With("function", cfg.Function)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := SetupApp(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error("setup failed", "error", err)
		os.Exit(1)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Error("app stopped", "error", err)
		}
	case <-ctx.Done():
		appLogger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("shutdown failed", "error", err)
	}
}
