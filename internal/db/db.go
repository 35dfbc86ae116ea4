// Package db opens the database, applies the schema and seeds it.
package db

import (
	"fmt"
	"time"

	"github.com/diewo77/dealership-api/internal/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	connectAttempts = 10
	connectBackoff  = 2 * time.Second
)

// Connect opens the configured database, retrying while it starts up.
// Constraint violations are translated into gorm sentinel errors.
func Connect(cfg config.DatabaseConfig, debug bool, log *zap.Logger) (*gorm.DB, error) {
	dsn := cfg.ConnString()
	if cfg.Driver != "sqlite" {
		dsn = NormalizeDSN(dsn)
	}
	if dsn == "" {
		return nil, fmt.Errorf("empty database DSN")
	}
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}
	gcfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres", "":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	var (
		conn *gorm.DB
		err  error
	)
	for i := 1; i <= connectAttempts; i++ {
		conn, err = gorm.Open(dialector, gcfg)
		if err == nil {
			break
		}
		log.Warn("database connection failed, retrying", zap.Int("attempt", i), zap.Error(err))
		time.Sleep(connectBackoff)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}

	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}
	log.Info("database connected", zap.String("driver", dialector.Name()), zap.String("dsn", MaskDSN(dsn)))
	return conn, nil
}
