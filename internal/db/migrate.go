package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/dealership-api/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// registers the postgres driver for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Tables that must exist once the schema is applied.
var requiredTables = []string{"users", "clients", "vehicles", "sales", "sale_payments"}

// Migrate applies the schema. With sql=true on postgres the embedded SQL
// migrations run through golang-migrate; otherwise gorm AutoMigrate is used
// (development and sqlite).
func Migrate(conn *gorm.DB, dsn string, sql bool) error {
	if sql && conn.Dialector.Name() == "postgres" {
		if err := runSQLMigrations(ToURLDSN(NormalizeDSN(dsn))); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else {
		if err := AutoMigrate(conn); err != nil {
			return err
		}
	}
	for _, table := range requiredTables {
		if !conn.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// AutoMigrate creates or updates tables from the models, parents first.
func AutoMigrate(conn *gorm.DB) error {
	for _, m := range []any{&models.User{}, &models.Client{}, &models.Vehicle{}, &models.Sale{}, &models.Payment{}} {
		if err := conn.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

func runSQLMigrations(url string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
