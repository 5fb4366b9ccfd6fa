// Package config loads daemon configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

type Config struct {
	ListenAddr   string
	DBPath       string
	AccountsPath string

	RefreshInterval   time.Duration
	PrometheusEnabled bool

	LogLevel slog.Level
}

func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ListenAddr = getenvDefault("PEOPLESYNC_LISTEN_ADDR", ":8077")
	cfg.DBPath = getenvDefault("PEOPLESYNC_DB_PATH", "/data/peoplesync.db")
	cfg.AccountsPath = os.Getenv("PEOPLESYNC_ACCOUNTS_PATH")
	cfg.PrometheusEnabled = getenvBool("PEOPLESYNC_PROMETHEUS_ENABLED", true)

	interval := getenvDefault("PEOPLESYNC_REFRESH_INTERVAL", "1h")
	d, err := time.ParseDuration(interval)
	if err != nil {
		return nil, fmt.Errorf("PEOPLESYNC_REFRESH_INTERVAL: %w", err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("PEOPLESYNC_REFRESH_INTERVAL must be positive (got %s)", d)
	}
	cfg.RefreshInterval = d

	switch strings.ToLower(getenvDefault("PEOPLESYNC_LOG_LEVEL", "info")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "info":
		cfg.LogLevel = slog.LevelInfo
	case "warn", "warning":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("PEOPLESYNC_LOG_LEVEL must be debug, info, warn or error")
	}

	if cfg.AccountsPath == "" {
		return nil, errors.New("PEOPLESYNC_ACCOUNTS_PATH is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}
