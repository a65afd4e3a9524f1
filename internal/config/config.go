// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the settings of a serviq process.
type Config struct {
	Port          string
	CatalogPath   string
	TenantDataDir string
	BaseDomain    string

	// RedisURL enables the resolver cache when set.
	RedisURL         string
	ResolverCacheTTL time.Duration

	// FiscalAPIURL enables fiscal submission when set.
	FiscalAPIURL  string
	FiscalAPIKey  string
	FiscalTimeout time.Duration

	LogFormat string // "json" or "text"
	LogLevel  slog.Level
}

// LoadDotEnv sets variables from file that are not already present in the
// environment. A missing file is not an error.
func LoadDotEnv(file string) error {
	vars, err := godotenv.Read(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", file, err)
	}
	for k, v := range vars {
		if _, set := os.LookupEnv(k); !set {
			if err := os.Setenv(k, v); err != nil {
				return fmt.Errorf("setting %s: %w", k, err)
			}
		}
	}
	return nil
}

// FromEnv builds Config from environment variables with sensible defaults.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:          envOrDefault("PORT", "8080"),
		CatalogPath:   envOrDefault("CATALOG_PATH", "serviq.db"),
		TenantDataDir: envOrDefault("TENANT_DATA_DIR", "tenants"),
		BaseDomain:    strings.ToLower(envOrDefault("BASE_DOMAIN", "serviq.localhost")),
		RedisURL:      os.Getenv("REDIS_URL"),
		FiscalAPIURL:  os.Getenv("FISCAL_API_URL"),
		FiscalAPIKey:  os.Getenv("FISCAL_API_KEY"),
		LogFormat:     envOrDefault("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.ResolverCacheTTL, err = durationOrDefault("RESOLVER_CACHE_TTL", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.FiscalTimeout, err = durationOrDefault("FISCAL_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(envOrDefault("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return Config{}, fmt.Errorf("LOG_FORMAT: unsupported format %q (use \"json\" or \"text\")", cfg.LogFormat)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("PORT: %w", err)
	}
	return cfg, nil
}

// NewLogger builds the process logger described by cfg.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
