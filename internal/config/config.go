package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName           = "EventLedger"
	defaultAppEnv            = "development"
	defaultPort              = "8080"
	defaultLogLevel          = "info"
	defaultShutdownDelay     = 10 * time.Second
	defaultIdempotencyTTL    = 24 * time.Hour
	defaultLockTimeout       = 5 * time.Second
	defaultRateLimit         = 120
	defaultEventsChannel     = "ledger:events"
	idemTTLSecondsEnvVar     = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar         = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar    = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar   = "SHUTDOWN_TIMEOUT"
	lockTimeoutEnvVar        = "LOCK_TIMEOUT"
	rateLimitPerMinuteEnvVar = "RATE_LIMIT_PER_MINUTE"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName            string
	AppEnv             string
	Port               string
	LogLevel           string
	DatabaseURL        string
	RedisURL           string
	ShutdownPeriod     time.Duration
	IdempotencyTTL     time.Duration
	LockTimeout        time.Duration
	RateLimitPerMinute int
	EventsChannel      string
}

// Load reads configuration values from the environment and populates a Config
// instance. A .env file in the working directory is loaded first when present;
// variables already set in the environment win. A zero LOCK_TIMEOUT makes
// commands wait for account locks until the request context ends.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		AppName:            getEnv("APP_NAME", defaultAppName),
		AppEnv:             getEnv("APP_ENV", defaultAppEnv),
		Port:               getEnv("PORT", defaultPort),
		LogLevel:           strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		ShutdownPeriod:     defaultShutdownDelay,
		IdempotencyTTL:     defaultIdempotencyTTL,
		LockTimeout:        defaultLockTimeout,
		RateLimitPerMinute: defaultRateLimit,
		EventsChannel:      getEnv("EVENTS_CHANNEL", defaultEventsChannel),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}

	if v := os.Getenv(lockTimeoutEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", lockTimeoutEnvVar, v)
		}
		cfg.LockTimeout = d
	}

	if v := os.Getenv(rateLimitPerMinuteEnvVar); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Config{}, fmt.Errorf("invalid %s: %q", rateLimitPerMinuteEnvVar, v)
		}
		cfg.RateLimitPerMinute = n
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether the app runs in a local environment, where
// Postgres and Redis are optional.
func (c Config) IsDevelopment() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// durationEnv reads whole seconds from secondsKey, falling back to a Go
// duration string in durationKey.
func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
