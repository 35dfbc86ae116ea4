package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diewo77/dealership-api/auth"
	"github.com/diewo77/dealership-api/internal/config"
	"github.com/diewo77/dealership-api/internal/db"
	"github.com/diewo77/dealership-api/internal/policy"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")
	seedOnlyFlag    = flag.Bool("seed-only", false, "Run DB seed and exit")
)

func main() {
	flag.Parse()

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.App)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(app config.AppConfig) (*zap.Logger, error) {
	if app.Dev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, log *zap.Logger) error {
	dbConn, err := db.Connect(cfg.Database, cfg.App.DBDebug, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	dsn := cfg.Database.ConnString()

	if *migrateOnlyFlag {
		if err := db.Migrate(dbConn, dsn, cfg.App.Migrations); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("migrations completed")
		return nil
	}
	if *seedOnlyFlag {
		return seed(dbConn, cfg.App, log)
	}

	if err := db.Migrate(dbConn, dsn, cfg.App.Migrations); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if cfg.App.Seed {
		if err := seed(dbConn, cfg.App, log); err != nil {
			return err
		}
	}

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	routerCfg := policy.NewRouterConfig(dbConn, tokens, log)
	app := NewApp(dbConn, routerCfg, log)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      app,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("port", cfg.Server.Port), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server stopped gracefully")
	return nil
}

func seed(conn *gorm.DB, app config.AppConfig, log *zap.Logger) error {
	created, err := db.Seed(conn, app.AdminEmail, app.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	log.Info("seed completed", zap.Bool("admin_created", created), zap.String("admin_email", app.AdminEmail))
	return nil
}
