// Package config loads server settings from the environment, optionally
// seeded from a .env file.
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
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Payroll PayrollConfig
	CORS    CORSConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Port     int
	Env      string
	LogLevel string
}

// StorageConfig points at the sqlite database and the breakdown cache.
// ":memory:" is accepted for both.
type StorageConfig struct {
	DBPath    string
	CachePath string
}

// PayrollConfig drives computation and the month-close scheduler.
type PayrollConfig struct {
	Timezone      string
	Location      *time.Location
	Workers       int
	CloseEnabled  bool
	CloseInterval time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads the environment. A missing .env file is not an error.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}

	config := &Config{}

	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}
	config.App = AppConfig{
		Port:     appPort,
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	config.Storage = StorageConfig{
		DBPath:    getEnv("DB_PATH", "payroll.db"),
		CachePath: getEnv("CACHE_PATH", ":memory:"),
	}

	workers, err := strconv.Atoi(getEnv("PAYROLL_WORKERS", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_WORKERS: %w", err)
	}
	closeEnabled, err := strconv.ParseBool(getEnv("CLOSE_ENABLED", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOSE_ENABLED: %w", err)
	}
	closeInterval, err := time.ParseDuration(getEnv("CLOSE_INTERVAL", "1h"))
	if err != nil {
		return nil, fmt.Errorf("invalid CLOSE_INTERVAL: %w", err)
	}
	tz := getEnv("PAYROLL_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid PAYROLL_TIMEZONE: %w", err)
	}
	config.Payroll = PayrollConfig{
		Timezone:      tz,
		Location:      loc,
		Workers:       workers,
		CloseEnabled:  closeEnabled,
		CloseInterval: closeInterval,
	}

	config.CORS = CORSConfig{AllowedOrigins: getEnvSlice("CORS_ORIGINS", []string{"*"})}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("APP_PORT out of range: %d", c.App.Port)
	}
	if c.Storage.DBPath == "" {
		return errors.New("DB_PATH is required")
	}
	if c.Payroll.Workers < 0 {
		return fmt.Errorf("PAYROLL_WORKERS must not be negative: %d", c.Payroll.Workers)
	}
	if c.Payroll.CloseEnabled && c.Payroll.CloseInterval <= 0 {
		return errors.New("CLOSE_INTERVAL must be positive when CLOSE_ENABLED")
	}
	if _, err := ParseLogLevel(c.App.LogLevel); err != nil {
		return err
	}
	return nil
}

// IsProduction reports whether APP_ENV selects production behavior.
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// ParseLogLevel maps LOG_LEVEL onto slog levels.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return level, nil
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
