package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/hrcrm")
	t.Setenv("TIME_ENTRY_AUTOCLOSE_AFTER", "10h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 10*time.Hour, cfg.TimeEntryAutoCloseAfter)
	assert.Equal(t, 8.0, cfg.RegularHoursPerDay)
	assert.Equal(t, 22, cfg.NightShiftStartHour)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresSecretsInProduction(t *testing.T) {
	cfg := Config{
		DatabaseURL:        "postgres://localhost/hrcrm",
		Environment:        "production",
		Version:            "1.2.3",
		MaxBodyBytes:       4096,
		RateLimitPerMinute: 10,
		RegularHoursPerDay: 8,
	}
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "secret"
	cfg.DataEncryptionKey = "key"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsInvalidVersion(t *testing.T) {
	cfg := Config{
		DatabaseURL:        "postgres://localhost/hrcrm",
		Version:            "not-a-version",
		MaxBodyBytes:       4096,
		RateLimitPerMinute: 10,
		RegularHoursPerDay: 8,
	}
	assert.Error(t, cfg.Validate())
}
