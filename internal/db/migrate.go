package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/go-crm/internal/models"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration modes accepted by Migrate.
const (
	MigrateAuto = "auto"
	MigrateSQL  = "sql"
	MigrateOff  = "off"
)

// Migrate brings the schema up to date. "auto" runs gorm's AutoMigrate over
// every model, "sql" applies the embedded SQL files with golang-migrate
// (PostgreSQL only) and "off" only checks that the tables exist.
func Migrate(gdb *gorm.DB, dsn, mode string) error {
	switch mode {
	case MigrateAuto, "":
		for _, m := range models.All() {
			if err := gdb.AutoMigrate(m); err != nil {
				return fmt.Errorf("automigrate %T: %w", m, err)
			}
		}
	case MigrateSQL:
		if DetectDialect(dsn) != Postgres {
			return fmt.Errorf("sql migrations require postgres, use auto for %s", DetectDialect(dsn))
		}
		if err := runSQLMigrations(dsn); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	case MigrateOff:
	default:
		return fmt.Errorf("unknown migrations mode %q", mode)
	}
	return CheckTables(gdb)
}

// CheckTables fails when a table of the schema is missing.
func CheckTables(gdb *gorm.DB) error {
	for _, table := range models.TableNames {
		if !gdb.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

func runSQLMigrations(dsn string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, ToURLDSN(NormalizeDSN(dsn)))
	if err != nil {
		return err
	}
	defer m.Close()
	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
