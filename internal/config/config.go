package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	App        AppConfig
	Database   DatabaseConfig
	Storage    StorageConfig
	Attendance AttendanceConfig
	Payroll    PayrollConfig
	Cron       CronConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	Version        string
	LogLevel       string
	Timezone       string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

// StorageConfig selects where records live: "memory" or "postgres".
type StorageConfig struct {
	Type     string
	SeedDemo bool
}

type AttendanceConfig struct {
	StandardHours decimal.Decimal
	// LateThreshold, ShiftStart and ShiftEnd are offsets from local midnight.
	LateThreshold  time.Duration
	ShiftStart     time.Duration
	ShiftEnd       time.Duration
	GeofenceRadius float64
}

type PayrollConfig struct {
	OvertimeMultiplier decimal.Decimal
	PaymentDueDays     int
	Concurrency        int

	ProvidentFundEnabled   bool
	ProvidentFundRate      decimal.Decimal
	StateInsuranceEnabled  bool
	StateInsuranceRate     decimal.Decimal
	ProfessionalTaxEnabled bool
	ProfessionalTaxAmount  decimal.Decimal
	IncomeTaxEnabled       bool
	IncomeTaxRate          decimal.Decimal
}

type CronConfig struct {
	OverdueInterval time.Duration
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

func Load() (*Config, error) {
	// .env is optional; real environments set variables directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var errs []error
	config := &Config{}

	// Application configuration
	config.App = AppConfig{
		Port:           getEnvInt("APP_PORT", 8080, &errs),
		Env:            getEnv("APP_ENV", "development"),
		Version:        getEnv("APP_VERSION", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Timezone:       getEnv("APP_TIMEZONE", "Asia/Kolkata"),
		AllowedOrigins: getEnvSlice("CORS_ALLOWED_ORIGINS"),
	}

	// Database configuration
	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432, &errs),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "workforce"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		MaxConns: int32(getEnvInt("DB_MAX_CONNS", 25, &errs)),
	}

	config.Storage = StorageConfig{
		Type:     strings.ToLower(getEnv("STORAGE_TYPE", StorageMemory)),
		SeedDemo: getEnvBool("STORAGE_SEED_DEMO", true, &errs),
	}

	config.Attendance = AttendanceConfig{
		StandardHours:  getEnvDecimal("ATTENDANCE_STANDARD_HOURS", "8", &errs),
		LateThreshold:  getEnvDuration("ATTENDANCE_LATE_THRESHOLD", "9h15m", &errs),
		ShiftStart:     getEnvDuration("ATTENDANCE_SHIFT_START", "9h", &errs),
		ShiftEnd:       getEnvDuration("ATTENDANCE_SHIFT_END", "17h", &errs),
		GeofenceRadius: getEnvFloat("ATTENDANCE_GEOFENCE_RADIUS_METERS", 0, &errs),
	}

	config.Payroll = PayrollConfig{
		OvertimeMultiplier: getEnvDecimal("PAYROLL_OVERTIME_MULTIPLIER", "1.5", &errs),
		PaymentDueDays:     getEnvInt("PAYROLL_PAYMENT_DUE_DAYS", 7, &errs),
		Concurrency:        getEnvInt("PAYROLL_CONCURRENCY", 4, &errs),

		ProvidentFundEnabled:   getEnvBool("PAYROLL_PF_ENABLED", false, &errs),
		ProvidentFundRate:      getEnvDecimal("PAYROLL_PF_RATE", "12", &errs),
		StateInsuranceEnabled:  getEnvBool("PAYROLL_ESI_ENABLED", false, &errs),
		StateInsuranceRate:     getEnvDecimal("PAYROLL_ESI_RATE", "0.75", &errs),
		ProfessionalTaxEnabled: getEnvBool("PAYROLL_PT_ENABLED", false, &errs),
		ProfessionalTaxAmount:  getEnvDecimal("PAYROLL_PT_AMOUNT", "200", &errs),
		IncomeTaxEnabled:       getEnvBool("PAYROLL_TDS_ENABLED", false, &errs),
		IncomeTaxRate:          getEnvDecimal("PAYROLL_TDS_RATE", "0", &errs),
	}

	config.Cron = CronConfig{
		OverdueInterval: getEnvDuration("CRON_OVERDUE_INTERVAL", "1h", &errs),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT must be between 1 and 65535")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("APP_TIMEZONE is invalid: %w", err)
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required")
		}
	default:
		return fmt.Errorf("STORAGE_TYPE must be one of: memory, postgres")
	}

	if !c.Attendance.StandardHours.IsPositive() {
		return fmt.Errorf("ATTENDANCE_STANDARD_HOURS must be positive")
	}
	if c.Attendance.ShiftEnd <= c.Attendance.ShiftStart {
		return fmt.Errorf("ATTENDANCE_SHIFT_END must be after ATTENDANCE_SHIFT_START")
	}
	if c.Attendance.GeofenceRadius < 0 {
		return fmt.Errorf("ATTENDANCE_GEOFENCE_RADIUS_METERS must not be negative")
	}

	if !c.Payroll.OvertimeMultiplier.IsPositive() {
		return fmt.Errorf("PAYROLL_OVERTIME_MULTIPLIER must be positive")
	}
	if c.Payroll.PaymentDueDays < 0 {
		return fmt.Errorf("PAYROLL_PAYMENT_DUE_DAYS must not be negative")
	}
	if c.Payroll.Concurrency <= 0 {
		return fmt.Errorf("PAYROLL_CONCURRENCY must be positive")
	}

	if c.Cron.OverdueInterval <= 0 {
		return fmt.Errorf("CRON_OVERDUE_INTERVAL must be positive")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the organisation timezone. Call Validate first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// SlogLevel maps LOG_LEVEL to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.App.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func getEnvInt(key string, fallback int, errs *[]error) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64, errs *[]error) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return f
}

func getEnvBool(key string, fallback bool, errs *[]error) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return fallback
	}
	return b
}

func getEnvDuration(key, fallback string, errs *[]error) time.Duration {
	value := getEnv(key, fallback)
	d, err := time.ParseDuration(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return 0
	}
	return d
}

func getEnvDecimal(key, fallback string, errs *[]error) decimal.Decimal {
	value := getEnv(key, fallback)
	d, err := decimal.NewFromString(value)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return decimal.Zero
	}
	return d
}
