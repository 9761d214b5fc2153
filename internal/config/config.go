// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const devSessionSecret = "devsessionsecret"

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Mail     MailConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// DatabaseConfig holds connection settings. DSN wins over the discrete fields
// and may point at PostgreSQL or at a SQLite file.
type DatabaseConfig struct {
	DSN      string `envconfig:"DATABASE_DSN"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"crm"`
	Password string `envconfig:"DB_PASSWORD" default:"crm"`
	DBName   string `envconfig:"DB_NAME" default:"crm"`
	SSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	// Migrations selects "auto" (gorm AutoMigrate), "sql" (embedded SQL files) or "off".
	Migrations string `envconfig:"DB_MIGRATIONS" default:"auto"`
	Seed       bool   `envconfig:"DB_SEED" default:"false"`
	Debug      bool   `envconfig:"DB_DEBUG" default:"false"`
	// ConnectRetries is how many times the initial connection is attempted.
	ConnectRetries int `envconfig:"DB_CONNECT_RETRIES" default:"5"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Env            string        `envconfig:"APP_ENV" default:"development"`
	LogLevel       string        `envconfig:"LOG_LEVEL" default:"info"`
	SessionSecret  string        `envconfig:"SESSION_SECRET" default:"devsessionsecret"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"336h"`
	AllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
	AdminEmail     string        `envconfig:"ADMIN_EMAIL"`
	AdminPassword  string        `envconfig:"ADMIN_PASSWORD"`
	// PaymentTermDays is the default distance between issue and due date.
	PaymentTermDays int `envconfig:"PAYMENT_TERM_DAYS" default:"30"`
	// QuoteValidityDays is the default distance between creation and expiry of a quote.
	QuoteValidityDays int `envconfig:"QUOTE_VALIDITY_DAYS" default:"30"`
}

// MailConfig holds outbound email settings.
type MailConfig struct {
	// Provider is "sendgrid" or "log".
	Provider       string `envconfig:"MAIL_PROVIDER" default:"log"`
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	FromAddress    string `envconfig:"MAIL_FROM" default:"billing@example.com"`
	FromName       string `envconfig:"MAIL_FROM_NAME" default:"Billing"`
	CompanyName    string `envconfig:"COMPANY_NAME" default:"Aquaforce Pressure Washing"`
	CompanyPhone   string `envconfig:"COMPANY_PHONE"`
	LogoPath       string `envconfig:"COMPANY_LOGO_PATH"`
}

// Production reports whether the app runs in production mode.
func (a AppConfig) Production() bool {
	return strings.EqualFold(a.Env, "production")
}

// ConnectionString returns the DSN to open, building a PostgreSQL URL from
// the discrete fields when DATABASE_DSN is unset.
func (d DatabaseConfig) ConnectionString() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	// envconfig keeps explicitly empty variables empty; treat them as unset.
	if c.Database.Migrations == "" {
		c.Database.Migrations = "auto"
	}
	if c.Mail.Provider == "" {
		c.Mail.Provider = "log"
	}
	if c.App.SessionSecret == "" {
		c.App.SessionSecret = devSessionSecret
	}
	switch c.Database.Migrations {
	case "auto", "sql", "off":
	default:
		return fmt.Errorf("DB_MIGRATIONS must be auto, sql or off, got %q", c.Database.Migrations)
	}
	switch c.Mail.Provider {
	case "log":
	case "sendgrid":
		if c.Mail.SendGridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required when MAIL_PROVIDER=sendgrid")
		}
	default:
		return fmt.Errorf("MAIL_PROVIDER must be sendgrid or log, got %q", c.Mail.Provider)
	}
	if c.App.Production() && c.App.SessionSecret == devSessionSecret {
		return fmt.Errorf("SESSION_SECRET must be set in production")
	}
	return nil
}
