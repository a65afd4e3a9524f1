package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvOrDefault_Fallback(t *testing.T) {
	v := envOrDefault("SERVIQ_TEST_NONEXISTENT_KEY", "fallback")
	if v != "fallback" {
		t.Errorf("got %q, want %q", v, "fallback")
	}
}

func TestEnvOrDefault_EnvSet(t *testing.T) {
	t.Setenv("SERVIQ_TEST_KEY", "custom")

	v := envOrDefault("SERVIQ_TEST_KEY", "fallback")
	if v != "custom" {
		t.Errorf("got %q, want %q", v, "custom")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.ResolverCacheTTL != 30*time.Second {
		t.Errorf("ResolverCacheTTL = %v, want 30s", cfg.ResolverCacheTTL)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
}

func TestFromEnv_CustomValues(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BASE_DOMAIN", "Serviq.Example")
	t.Setenv("RESOLVER_CACHE_TTL", "5m")
	t.Setenv("FISCAL_API_URL", "https://fiscal.example")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.BaseDomain != "serviq.example" {
		t.Errorf("BaseDomain = %q, want lower-cased", cfg.BaseDomain)
	}
	if cfg.ResolverCacheTTL != 5*time.Minute {
		t.Errorf("ResolverCacheTTL = %v", cfg.ResolverCacheTTL)
	}
	if cfg.FiscalAPIURL != "https://fiscal.example" {
		t.Errorf("FiscalAPIURL = %q", cfg.FiscalAPIURL)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"RESOLVER_CACHE_TTL": "soon",
		"LOG_FORMAT":         "xml",
		"LOG_LEVEL":          "loud",
		"PORT":               "http",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := FromEnv(); err == nil {
				t.Errorf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	file := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(file, []byte("SERVIQ_DOTENV_A=from-file\nSERVIQ_DOTENV_B=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SERVIQ_DOTENV_A", "from-env")
	// Registers cleanup for a variable the file will set.
	t.Setenv("SERVIQ_DOTENV_B", "")
	os.Unsetenv("SERVIQ_DOTENV_B")

	if err := LoadDotEnv(file); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("SERVIQ_DOTENV_A"); got != "from-env" {
		t.Errorf("A = %q, want from-env", got)
	}
	if got := os.Getenv("SERVIQ_DOTENV_B"); got != "from-file" {
		t.Errorf("B = %q, want from-file", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}
