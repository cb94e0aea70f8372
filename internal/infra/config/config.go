package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the accrual service.
type AppConfig struct {
	DatabaseURL   string
	LogLevel      string
	Environment   string
	RunHour       int            // Local hour of the daily accrual run
	RunMinute     int            // Minute of the daily accrual run
	Location      *time.Location // Time zone the run time is expressed in
	HeartbeatSpec string         // Cron spec for the wake-up check

	ServiceTokenSecret  string
	ServiceTokenSubject string
	ServiceTokenTTL     time.Duration

	TelegramToken string // Optional; empty means notifications are only logged
	HealthAddr    string // Optional; empty disables the health endpoint
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.ServiceTokenSecret = os.Getenv("SERVICE_TOKEN_SECRET")
	if cfg.ServiceTokenSecret == "" {
		return nil, fmt.Errorf("SERVICE_TOKEN_SECRET is not set")
	}

	cfg.ServiceTokenSubject = os.Getenv("SERVICE_TOKEN_SUBJECT")
	if cfg.ServiceTokenSubject == "" {
		cfg.ServiceTokenSubject = "interest-accrual-scheduler"
	}

	cfg.ServiceTokenTTL = 15 * time.Minute
	if ttl := os.Getenv("SERVICE_TOKEN_TTL"); ttl != "" {
		cfg.ServiceTokenTTL, err = time.ParseDuration(ttl)
		if err != nil || cfg.ServiceTokenTTL <= 0 {
			return nil, fmt.Errorf("invalid SERVICE_TOKEN_TTL %q", ttl)
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	cfg.RunHour, err = intFromEnv("ACCRUAL_RUN_HOUR", 2, 0, 23)
	if err != nil {
		return nil, err
	}
	cfg.RunMinute, err = intFromEnv("ACCRUAL_RUN_MINUTE", 0, 0, 59)
	if err != nil {
		return nil, err
	}

	cfg.Location = time.Local
	if tz := os.Getenv("ACCRUAL_TIMEZONE"); tz != "" {
		cfg.Location, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid ACCRUAL_TIMEZONE: %w", err)
		}
	}

	cfg.HeartbeatSpec = os.Getenv("HEARTBEAT_SPEC")
	if cfg.HeartbeatSpec == "" {
		cfg.HeartbeatSpec = "@every 1h"
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	cfg.HealthAddr = os.Getenv("HEALTH_ADDR")

	return cfg, nil
}

func intFromEnv(key string, def, min, max int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be between %d and %d, got %d", key, min, max, v)
	}
	return v, nil
}
