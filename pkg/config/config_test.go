package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if cfg.RateLimit.Max != 30 || cfg.RateLimit.Window != time.Minute {
		t.Fatalf("window = %d/%s", cfg.RateLimit.Max, cfg.RateLimit.Window)
	}
	if cfg.RateLimit.Cooldown != 2*time.Second || cfg.RateLimit.MaxRetries != 3 {
		t.Fatalf("retry = %s/%d", cfg.RateLimit.Cooldown, cfg.RateLimit.MaxRetries)
	}
	if cfg.StackExchange.Site != "stackoverflow" || cfg.Search.Workers != 4 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.HTTP.CORSOrigin != "" {
		t.Fatalf("CORS should be off by default, got %q", cfg.HTTP.CORSOrigin)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(lookupFrom(map[string]string{
		"STACKEXCHANGE_API_KEY": "secret",
		"RATE_LIMIT_MAX":        "10",
		"RATE_LIMIT_WINDOW":     "30s",
		"RETRY_COOLDOWN":        "500",
		"RETRY_MAX":             "0",
		"FANOUT_WORKERS":        "1",
		"INBOUND_RPS":           "2.5",
		"NATS_URL":              "nats://localhost:4222",
		"PORT":                  "",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StackExchange.APIKey != "secret" || cfg.RateLimit.Max != 10 || cfg.RateLimit.Window != 30*time.Second {
		t.Fatalf("unexpected: %+v", cfg)
	}
	if cfg.RateLimit.Cooldown != 500*time.Millisecond {
		t.Fatalf("bare numbers are milliseconds, got %s", cfg.RateLimit.Cooldown)
	}
	if cfg.RateLimit.MaxRetries != 0 || cfg.Search.Workers != 1 || cfg.HTTP.InboundRPS != 2.5 {
		t.Fatalf("unexpected: %+v", cfg)
	}
	if cfg.HTTP.Port != "3000" {
		t.Fatal("empty values must not override")
	}
	if cfg.NATS.URL != "nats://localhost:4222" {
		t.Fatalf("nats url = %q", cfg.NATS.URL)
	}
}

func TestApplyEnvReportsEveryBadValue(t *testing.T) {
	cfg := Default()
	err := cfg.applyEnv(lookupFrom(map[string]string{
		"RATE_LIMIT_MAX":    "lots",
		"RATE_LIMIT_WINDOW": "forever",
	}))
	if err == nil {
		t.Fatal("expected error")
	}
	for _, key := range []string{"RATE_LIMIT_MAX", "RATE_LIMIT_WINDOW"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should mention %s: %v", key, err)
		}
	}
}

func TestLoadLayers(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "overflow.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
stackexchange:
  site: serverfault
rate_limit:
  max: 5
  window: 10s
search:
  workers: 2
`), 0o600); err != nil {
		t.Fatal(err)
	}
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("OVERFLOW_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("OVERFLOW_TEST_DOTENV", "")
	os.Unsetenv("OVERFLOW_TEST_DOTENV")
	t.Setenv("FANOUT_WORKERS", "8")
	t.Setenv("STACKEXCHANGE_SITE", "")
	t.Setenv("RATE_LIMIT_MAX", "")
	t.Setenv("RATE_LIMIT_WINDOW", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load(yamlPath, envPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StackExchange.Site != "serverfault" || cfg.RateLimit.Max != 5 || cfg.RateLimit.Window != 10*time.Second {
		t.Fatalf("yaml layer not applied: %+v", cfg)
	}
	if cfg.Search.Workers != 8 {
		t.Fatalf("env must override yaml, got %d workers", cfg.Search.Workers)
	}
	if cfg.RateLimit.Cooldown != 2*time.Second {
		t.Fatal("defaults must survive for unset keys")
	}
	if os.Getenv("OVERFLOW_TEST_DOTENV") != "loaded" {
		t.Fatal("dotenv file not loaded")
	}
}

func TestLoadMissingDotenvIsIgnored(t *testing.T) {
	if _, err := Load("", filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissingYAMLFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), ""); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.RateLimit.Max = 0
	cfg.Search.Workers = -1
	cfg.LogLevel = "chatty"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"rate_limit.max", "search.workers", "chatty"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %v", want, err)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug": slog.LevelDebug, "": slog.LevelInfo, "INFO": slog.LevelInfo,
		"warning": slog.LevelWarn, "error": slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
}
