package db

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options tunes Open.
type Options struct {
	// Retries is the number of connection attempts; values below 1 mean one attempt.
	Retries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
	// Debug turns on gorm's SQL logging.
	Debug  bool
	Logger *slog.Logger
}

// Dialector returns the gorm dialector matching dsn.
func Dialector(dsn string) gorm.Dialector {
	if DetectDialect(dsn) == SQLite {
		return sqlite.Open(SQLitePath(dsn))
	}
	return postgres.Open(NormalizeDSN(dsn))
}

// Open connects to the database behind dsn, retrying while the server starts,
// and checks the connection with SELECT 1.
func Open(dsn string, opts Options) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is empty")
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	attempts := opts.Retries
	if attempts < 1 {
		attempts = 1
	}
	delay := opts.RetryDelay
	if delay == 0 {
		delay = 2 * time.Second
	}
	level := logger.Silent
	if opts.Debug {
		level = logger.Info
	}
	// TranslateError maps duplicate-key failures to gorm.ErrDuplicatedKey on both engines.
	cfg := &gorm.Config{Logger: logger.Default.LogMode(level), TranslateError: true}

	var (
		gdb *gorm.DB
		err error
	)
	for i := 1; i <= attempts; i++ {
		gdb, err = gorm.Open(Dialector(dsn), cfg)
		if err == nil {
			err = gdb.Exec("SELECT 1").Error
		}
		if err == nil {
			break
		}
		log.Warn("database connection failed", "attempt", i, "of", attempts, "error", err)
		if i < attempts {
			time.Sleep(delay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after %d attempts: %w", attempts, err)
	}

	if DetectDialect(dsn) == SQLite {
		// SQLite ignores REFERENCES clauses unless asked.
		if err := gdb.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}
	log.Info("database connected", "dialect", DetectDialect(dsn), "dsn", MaskDSN(dsn))
	return gdb, nil
}

// DialectOf reports the engine behind an open connection.
func DialectOf(gdb *gorm.DB) Dialect {
	if gdb.Dialector.Name() == "sqlite" {
		return SQLite
	}
	return Postgres
}
