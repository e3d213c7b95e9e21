package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the Asocial server.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig
	Platforms PlatformConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// SchedulerConfig controls the poll/dispatch cycle.
type SchedulerConfig struct {
	PollInterval     time.Duration
	DispatchTimeout  time.Duration
	MaxAttempts      int
	ActivityFeedSize int
}

type PlatformConfig struct {
	HTTPTimeout time.Duration
}

// Load reads configuration from the environment (a .env file is applied
// first, if present) and returns a validated Config. Returns an error with
// a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("ASOCIAL_PORT", 8080),
			Env:  envString("ASOCIAL_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Scheduler: SchedulerConfig{
			PollInterval:     envDuration("POLL_INTERVAL", 5*time.Second),
			DispatchTimeout:  envDuration("DISPATCH_TIMEOUT", 30*time.Second),
			MaxAttempts:      envInt("DISPATCH_MAX_ATTEMPTS", 3),
			ActivityFeedSize: envInt("ACTIVITY_FEED_SIZE", 50),
		},
		Platforms: PlatformConfig{
			HTTPTimeout: envDuration("PLATFORM_HTTP_TIMEOUT", 15*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if !strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must be a postgres:// URL, got %q", c.Database.URL)
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.Scheduler.PollInterval)
	}
	if c.Scheduler.DispatchTimeout <= 0 {
		return fmt.Errorf("DISPATCH_TIMEOUT must be positive, got %s", c.Scheduler.DispatchTimeout)
	}
	if c.Scheduler.MaxAttempts < 1 {
		return fmt.Errorf("DISPATCH_MAX_ATTEMPTS must be at least 1, got %d", c.Scheduler.MaxAttempts)
	}
	if c.Scheduler.ActivityFeedSize < 1 {
		return fmt.Errorf("ACTIVITY_FEED_SIZE must be at least 1, got %d", c.Scheduler.ActivityFeedSize)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
