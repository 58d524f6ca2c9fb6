package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr                    string        `envconfig:"APP_ADDR" default:":8080"`
	DatabaseURL             string        `envconfig:"DATABASE_URL"`
	JWTSecret               string        `envconfig:"JWT_SECRET"`
	DataEncryptionKey       string        `envconfig:"DATA_ENCRYPTION_KEY"`
	FrontendDir             string        `envconfig:"FRONTEND_DIR" default:"frontend/dist"`
	Environment             string        `envconfig:"APP_ENV" default:"development"`
	Version                 string        `envconfig:"APP_VERSION" default:"1.0.0"`
	SeedAdminEmail          string        `envconfig:"SEED_ADMIN_EMAIL"`
	SeedAdminPassword       string        `envconfig:"SEED_ADMIN_PASSWORD"`
	EmailFrom               string        `envconfig:"EMAIL_FROM" default:"no-reply@example.com"`
	EmailEnabled            bool          `envconfig:"EMAIL_ENABLED" default:"false"`
	SMTPHost                string        `envconfig:"SMTP_HOST"`
	SMTPPort                int           `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser                string        `envconfig:"SMTP_USER"`
	SMTPPassword            string        `envconfig:"SMTP_PASSWORD"`
	SMTPUseTLS              bool          `envconfig:"SMTP_USE_TLS" default:"true"`
	RunMigrations           bool          `envconfig:"RUN_MIGRATIONS" default:"true"`
	RunSeed                 bool          `envconfig:"RUN_SEED" default:"true"`
	MaxBodyBytes            int64         `envconfig:"MAX_BODY_BYTES" default:"1048576"`
	RateLimitPerMinute      int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	MetricsEnabled          bool          `envconfig:"METRICS_ENABLED" default:"true"`
	TokenTTL                time.Duration `envconfig:"TOKEN_TTL" default:"12h"`
	CredentialTTL           time.Duration `envconfig:"CREDENTIAL_TTL" default:"72h"`
	TimeEntryAutoCloseAfter time.Duration `envconfig:"TIME_ENTRY_AUTOCLOSE_AFTER" default:"16h"`
	AutoCloseInterval       time.Duration `envconfig:"AUTOCLOSE_INTERVAL" default:"1h"`
	LeaveRolloverInterval   time.Duration `envconfig:"LEAVE_ROLLOVER_INTERVAL" default:"24h"`
	RegularHoursPerDay      float64       `envconfig:"REGULAR_HOURS_PER_DAY" default:"8"`
	NightShiftStartHour     int           `envconfig:"NIGHT_SHIFT_START_HOUR" default:"22"`
	NightShiftEndHour       int           `envconfig:"NIGHT_SHIFT_END_HOUR" default:"6"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if strings.TrimSpace(c.DataEncryptionKey) == "" {
			return fmt.Errorf("DATA_ENCRYPTION_KEY must be set in production for encryption at rest")
		}
	}
	if _, err := semver.NewVersion(c.Version); err != nil {
		return fmt.Errorf("APP_VERSION must be a semantic version: %w", err)
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EmailEnabled && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when EMAIL_ENABLED is true")
	}
	if c.RegularHoursPerDay <= 0 || c.RegularHoursPerDay > 24 {
		return fmt.Errorf("REGULAR_HOURS_PER_DAY must be within (0, 24]")
	}
	if c.NightShiftStartHour < 0 || c.NightShiftStartHour > 23 || c.NightShiftEndHour < 0 || c.NightShiftEndHour > 23 {
		return fmt.Errorf("night shift hours must be within 0-23")
	}
	return nil
}
