// Package config loads service configuration. Values are layered: built-in
// defaults, then an optional YAML file, then a .env file, then the process
// environment. Later layers win.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	StackExchange StackExchangeConfig `yaml:"stackexchange"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Search        SearchConfig        `yaml:"search"`
	HTTP          HTTPConfig          `yaml:"http"`
	NATS          NATSConfig          `yaml:"nats"`
	LogLevel      string              `yaml:"log_level"`
}

// StackExchangeConfig configures the upstream API client.
type StackExchangeConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Site        string        `yaml:"site"`
	APIKey      string        `yaml:"api_key"`
	AccessToken string        `yaml:"access_token"`
	Timeout     time.Duration `yaml:"timeout"`
}

// RateLimitConfig configures the outbound admission window and retry policy.
type RateLimitConfig struct {
	Max        int           `yaml:"max"`
	Window     time.Duration `yaml:"window"`
	Cooldown   time.Duration `yaml:"cooldown"`
	MaxRetries int           `yaml:"max_retries"`
}

// SearchConfig configures fan-out.
type SearchConfig struct {
	Workers int `yaml:"workers"`
}

// HTTPConfig configures the HTTP tool endpoint. An empty CORSOrigin leaves
// CORS headers off.
type HTTPConfig struct {
	Port         string  `yaml:"port"`
	CORSOrigin   string  `yaml:"cors_origin"`
	InboundRPS   float64 `yaml:"inbound_rps"`
	InboundBurst int     `yaml:"inbound_burst"`
}

// NATSConfig configures the optional NATS transport. An empty URL disables it.
type NATSConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		StackExchange: StackExchangeConfig{
			BaseURL: "https://api.stackexchange.com/2.3",
			Site:    "stackoverflow",
			Timeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Max:        30,
			Window:     time.Minute,
			Cooldown:   2 * time.Second,
			MaxRetries: 3,
		},
		Search: SearchConfig{Workers: 4},
		HTTP: HTTPConfig{
			Port:         "3000",
			InboundRPS:   10,
			InboundBurst: 20,
		},
		NATS:     NATSConfig{Prefix: "overflow.tools"},
		LogLevel: "info",
	}
}

// Load builds a Config. path names an optional YAML file; envFile names an
// optional dotenv file. Missing files are skipped when their name is empty or
// the dotenv file does not exist.
func Load(path, envFile string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: %s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("STACKEXCHANGE_API_URL", &c.StackExchange.BaseURL)
	str("STACKEXCHANGE_SITE", &c.StackExchange.Site)
	str("STACKEXCHANGE_API_KEY", &c.StackExchange.APIKey)
	str("STACKEXCHANGE_ACCESS_TOKEN", &c.StackExchange.AccessToken)
	duration("HTTP_TIMEOUT", &c.StackExchange.Timeout)
	integer("RATE_LIMIT_MAX", &c.RateLimit.Max)
	duration("RATE_LIMIT_WINDOW", &c.RateLimit.Window)
	duration("RETRY_COOLDOWN", &c.RateLimit.Cooldown)
	integer("RETRY_MAX", &c.RateLimit.MaxRetries)
	integer("FANOUT_WORKERS", &c.Search.Workers)
	str("PORT", &c.HTTP.Port)
	str("CORS_ORIGIN", &c.HTTP.CORSOrigin)
	float("INBOUND_RPS", &c.HTTP.InboundRPS)
	integer("INBOUND_BURST", &c.HTTP.InboundBurst)
	str("NATS_URL", &c.NATS.URL)
	str("NATS_PREFIX", &c.NATS.Prefix)
	str("LOG_LEVEL", &c.LogLevel)
	return errors.Join(errs...)
}

// parseDuration accepts Go durations ("90s") and bare milliseconds ("2000").
func parseDuration(s string) (time.Duration, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.RateLimit.Max <= 0 {
		errs = append(errs, errors.New("config: rate_limit.max must be positive"))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("config: rate_limit.window must be positive"))
	}
	if c.RateLimit.Cooldown <= 0 {
		errs = append(errs, errors.New("config: rate_limit.cooldown must be positive"))
	}
	if c.RateLimit.MaxRetries < 0 {
		errs = append(errs, errors.New("config: rate_limit.max_retries must not be negative"))
	}
	if c.Search.Workers <= 0 {
		errs = append(errs, errors.New("config: search.workers must be positive"))
	}
	if c.StackExchange.BaseURL == "" {
		errs = append(errs, errors.New("config: stackexchange.base_url is required"))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", s)
	}
}
