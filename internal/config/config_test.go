package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Expected default config to validate, got %v", err)
	}
}

func TestLoadMissingFilesUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, "nope.yaml"), filepath.Join(dir, ".env"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.URL != "http://127.0.0.1:8000" {
		t.Errorf("Expected default backend URL, got %s", cfg.Backend.URL)
	}
	if cfg.Backend.ConnectTimeout != 5*time.Second || cfg.Backend.Timeout != 15*time.Second {
		t.Errorf("Unexpected backend timeouts %s/%s", cfg.Backend.ConnectTimeout, cfg.Backend.Timeout)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
env: prod
http:
  address: ":9000"
  allowed_origins: ["https://dice.example"]
backend:
  url: https://backend.example
  timeout: 20s
  max_retries: 1
journal:
  path: /tmp/j.db
widgets:
  ttl: 1h
`)
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Env != EnvProd || cfg.HTTP.Address != ":9000" {
		t.Errorf("Unexpected env/address %s %s", cfg.Env, cfg.HTTP.Address)
	}
	if len(cfg.HTTP.AllowedOrigins) != 1 || cfg.HTTP.AllowedOrigins[0] != "https://dice.example" {
		t.Errorf("Unexpected origins %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.Backend.Timeout != 20*time.Second || cfg.Backend.MaxRetries != 1 {
		t.Errorf("Unexpected backend %+v", cfg.Backend)
	}
	if cfg.Backend.ConnectTimeout != 5*time.Second {
		t.Errorf("Expected connect timeout default kept, got %s", cfg.Backend.ConnectTimeout)
	}
	if cfg.Widgets.TTL != time.Hour {
		t.Errorf("Expected ttl 1h, got %s", cfg.Widgets.TTL)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "config.yaml", "backend:\n  urll: http://x\n")
	if _, err := Load(path, ""); err == nil {
		t.Error("Expected error for misspelled key")
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeFile(t, "config.yaml", "backend:\n  url: http://from-file:1\n")
	t.Setenv("DICE_BACKEND_URL", "http://from-env:2")
	t.Setenv("DICE_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DICE_BACKEND_MAX_RETRIES", "7")
	t.Setenv("DICE_WIDGET_TTL", "90s")

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend.URL != "http://from-env:2" {
		t.Errorf("Expected env to win, got %s", cfg.Backend.URL)
	}
	if strings.Join(cfg.HTTP.AllowedOrigins, "|") != "https://a.example|https://b.example" {
		t.Errorf("Unexpected origins %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.Backend.MaxRetries != 7 || cfg.Widgets.TTL != 90*time.Second {
		t.Errorf("Unexpected overrides %d %s", cfg.Backend.MaxRetries, cfg.Widgets.TTL)
	}
}

func TestEnvBadDuration(t *testing.T) {
	t.Setenv("DICE_BACKEND_TIMEOUT", "soon")
	if _, err := Load("", ""); err == nil || !strings.Contains(err.Error(), "DICE_BACKEND_TIMEOUT") {
		t.Errorf("Expected error naming DICE_BACKEND_TIMEOUT, got %v", err)
	}
}

func TestDotEnvDoesNotOverrideProcessEnv(t *testing.T) {
	envFile := writeFile(t, ".env", "DICE_JOURNAL_PATH=/from/dotenv.db\nDICE_HTTP_ADDRESS=:7000\n")
	t.Setenv("DICE_HTTP_ADDRESS", ":6000")
	// Registers the variable for cleanup; godotenv sets it below.
	t.Setenv("DICE_JOURNAL_PATH", "")
	os.Unsetenv("DICE_JOURNAL_PATH")

	cfg, err := Load("", envFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Journal.Path != "/from/dotenv.db" {
		t.Errorf("Expected journal path from .env, got %s", cfg.Journal.Path)
	}
	if cfg.HTTP.Address != ":6000" {
		t.Errorf("Expected process env to win, got %s", cfg.HTTP.Address)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"env", func(c *Config) { c.Env = "staging" }, "env must be"},
		{"url scheme", func(c *Config) { c.Backend.URL = "ftp://x" }, "backend.url"},
		{"url host", func(c *Config) { c.Backend.URL = "http://" }, "backend.url"},
		{"timeouts", func(c *Config) { c.Backend.ConnectTimeout = time.Minute }, "connect_timeout"},
		{"max bet", func(c *Config) { c.Backend.MaxBetCents = 0 }, "max_bet_cents"},
		{"journal", func(c *Config) { c.Journal.Path = "" }, "journal.path"},
		{"ttl", func(c *Config) { c.Widgets.TTL = 0 }, "widgets.ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
