package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is centralized process configuration.
// Keep infra values here and pass typed config into builders.
type Config struct {
	ServiceName string
	Env         string
	PostgresDSN string
	RedisURL    string
	MetricsAddr string

	QuestionLockTTL    time.Duration
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	EnableRedisLocks  bool
	EnableOutboxRelay bool
}

// Load reads the process environment. Outside production an optional .env
// file is loaded first; variables already set take precedence.
func Load() (Config, error) {
	if env("APP_ENV", "development") != "production" {
		_ = godotenv.Load()
	}

	return Config{
		ServiceName: env("SERVICE_NAME", "agrivote"),
		Env:         env("APP_ENV", "development"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		RedisURL:    env("REDIS_URL", "redis://localhost:6379/0"),
		MetricsAddr: env("METRICS_ADDR", ":9090"),

		QuestionLockTTL:    envDuration("QUESTION_LOCK_TTL", 10*time.Second),
		OutboxPollInterval: envDuration("OUTBOX_POLL_INTERVAL", time.Second),
		OutboxBatchSize:    envInt("OUTBOX_BATCH_SIZE", 100),

		EnableRedisLocks:  envBool("ENABLE_REDIS_LOCKS", true),
		EnableOutboxRelay: envBool("ENABLE_OUTBOX_RELAY", true),
	}, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func env(name string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return fallback
	}
}

func envInt(name string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(os.Getenv(name)))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envDuration(name string, fallback time.Duration) time.Duration {
	value, err := time.ParseDuration(strings.TrimSpace(os.Getenv(name)))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
