package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/config"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/database"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/llm"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/logging"
	"github.com/ecoconstructgmbh-boop/Aiconfessionapp/internal/routes"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout, tint when LOG_FORMAT=text)
	console := logging.Setup(cfg.LogFormat, cfg.LogLevel)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if !cfg.UsesSQLite() && cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(database.DB); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// Database log handler (ERROR+ async batch)
	dbLogHandler := logging.NewDBHandler(database.DB, console, 5*time.Second)
	slog.SetDefault(slog.New(logging.NewMultiHandler(console, dbLogHandler)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	// Services
	client := llm.NewClient(cfg)
	if !client.Available() {
		slog.Warn("no LLM provider configured, chat and scoring use local fallbacks")
	}
	deps := routes.NewDeps(cfg, database.DB, client)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := deps.Auth.EnsureAdmin(ctx, cfg.AdminBootstrapEmail, cfg.AdminBootstrapPassword); err != nil {
		slog.Error("admin bootstrap failed", "error", err)
	}
	slog.Info("seeding remote config defaults")
	if err := deps.RemoteConfig.SeedDefaults(ctx); err != nil {
		slog.Error("remote config seed failed", "error", err)
	}
	cancel()

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		}
	}

	app := routes.NewApp(cfg)
	plugins := deps.Plugins()
	authHandler, healthHandler, webhookHandler, legalHandler, configHandler := deps.Handlers(cfg)
	routes.Setup(app, cfg, database.DB, authHandler, healthHandler, webhookHandler, legalHandler, configHandler, plugins)
	for _, p := range plugins {
		slog.Info("plugin registered", "plugin", p.ID())
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}
