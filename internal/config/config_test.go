package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE_TYPE", "")
	t.Setenv("APP_TIMEZONE", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.True(t, decimal.NewFromInt(8).Equal(cfg.Attendance.StandardHours))
	assert.Equal(t, 9*time.Hour+15*time.Minute, cfg.Attendance.LateThreshold)
	assert.True(t, decimal.RequireFromString("1.5").Equal(cfg.Payroll.OvertimeMultiplier))
	assert.Equal(t, 7, cfg.Payroll.PaymentDueDays)
	assert.Equal(t, time.Hour, cfg.Cron.OverdueInterval)
	assert.Equal(t, "Asia/Kolkata", cfg.Location().String())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_TIMEZONE", "UTC")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://admin.example.com, https://ops.example.com")
	t.Setenv("ATTENDANCE_GEOFENCE_RADIUS_METERS", "250")
	t.Setenv("PAYROLL_PF_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, []string{"https://admin.example.com", "https://ops.example.com"}, cfg.App.AllowedOrigins)
	assert.Equal(t, 250.0, cfg.Attendance.GeofenceRadius)
	assert.True(t, cfg.Payroll.ProvidentFundEnabled)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "port not a number", key: "APP_PORT", value: "http"},
		{name: "bad duration", key: "CRON_OVERDUE_INTERVAL", value: "hourly"},
		{name: "bad decimal", key: "PAYROLL_OVERTIME_MULTIPLIER", value: "one and a half"},
		{name: "bad bool", key: "PAYROLL_PF_ENABLED", value: "sometimes"},
		{name: "unknown storage", key: "STORAGE_TYPE", value: "redis"},
		{name: "unknown timezone", key: "APP_TIMEZONE", value: "Mars/Olympus"},
		{name: "postgres without password", key: "STORAGE_TYPE", value: "postgres"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DB_PASSWORD", "")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestConfig_Validate_ShiftWindow(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Attendance.ShiftEnd = cfg.Attendance.ShiftStart
	assert.ErrorContains(t, cfg.Validate(), "ATTENDANCE_SHIFT_END")
}

func TestConfig_DatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: 5432, User: "app", Password: "secret", Name: "workforce", SSLMode: "disable",
	}}
	assert.Equal(t, "postgres://app:secret@db:5432/workforce?sslmode=disable", cfg.DatabaseURL())
}
