package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/diewo77/go-crm/internal/config"
	"github.com/diewo77/go-crm/internal/db"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := newLogger(cfg.App)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	dsn := cfg.Database.ConnectionString()
	gdb, err := db.Open(dsn, db.Options{
		Retries: cfg.Database.ConnectRetries,
		Debug:   cfg.Database.Debug,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	seedOpts := db.SeedOptions{AdminEmail: cfg.App.AdminEmail, AdminPassword: cfg.App.AdminPassword}

	if *migrateOnlyFlag {
		if err := db.Migrate(gdb, dsn, cfg.Database.Migrations); err != nil {
			return err
		}
		logger.Info("migrations completed")
		return nil
	}
	if *seedOnlyFlag {
		if err := db.Seed(gdb, seedOpts); err != nil {
			return err
		}
		logger.Info("seeding completed")
		return nil
	}

	if err := db.Migrate(gdb, dsn, cfg.Database.Migrations); err != nil {
		return err
	}
	if cfg.Database.Seed {
		if err := db.Seed(gdb, seedOpts); err != nil {
			return err
		}
	}

	app, err := NewApp(cfg, gdb, logger)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "env", cfg.App.Env, "mail", cfg.Mail.Provider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
		logger.Info("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server stopped gracefully")
	return nil
}

// newLogger returns a JSON logger in production and a text logger otherwise.
func newLogger(app config.AppConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(app.LogLevel)}
	if app.Production() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
