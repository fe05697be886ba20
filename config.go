package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	TelegramToken string

	// Polling
	CheckEvery  time.Duration
	ReportEvery time.Duration

	// Storage
	DBPath string

	// Target site
	InfobusBaseURL     string
	InfobusUserAgent   string
	InfobusTimeout     time.Duration
	InfobusMaxRetries  int
	InfobusBackoffBase time.Duration
	InfobusClockSkew   time.Duration
	ScreenWidth        int
	ScreenHeight       int

	// Status server, disabled when empty
	StatusAddr string

	LogLevel slog.Level
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken: strings.TrimSpace(getEnv("TELEGRAM_BOT_TOKEN", "")),

		CheckEvery:  getEnvDuration("CHECK_EVERY", 120*time.Second),
		ReportEvery: getEnvDuration("REPORT_EVERY", 30*time.Minute),

		DBPath: getEnv("DB_PATH", "./data/badger"),

		InfobusBaseURL:     strings.TrimRight(getEnv("INFOBUS_BASE_URL", "https://infobus.eu"), "/"),
		InfobusUserAgent:   getEnv("INFOBUS_USER_AGENT", "Mozilla/5.0"),
		InfobusTimeout:     getEnvDuration("INFOBUS_TIMEOUT", 20*time.Second),
		InfobusMaxRetries:  getEnvInt("INFOBUS_MAX_RETRIES", 4),
		InfobusBackoffBase: getEnvDuration("INFOBUS_BACKOFF_BASE", time.Second),
		InfobusClockSkew:   getEnvDuration("INFOBUS_CLOCK_SKEW", 60*time.Second),
		ScreenWidth:        getEnvInt("SCREEN_WIDTH", 2560),
		ScreenHeight:       getEnvInt("SCREEN_HEIGHT", 1305),

		StatusAddr: getEnv("STATUS_ADDR", ""),

		LogLevel: parseLogLevel(getEnv("LOG_LEVEL", "info")),
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.CheckEvery <= 0 {
		return nil, fmt.Errorf("CHECK_EVERY must be positive")
	}
	if cfg.InfobusMaxRetries < 1 {
		return nil, fmt.Errorf("INFOBUS_MAX_RETRIES must be at least 1")
	}

	return cfg, nil
}

// HasStatusServer returns true if the status HTTP server should be started.
func (c *Config) HasStatusServer() bool {
	return c.StatusAddr != ""
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") and bare seconds ("120").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(value); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
