package config

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/V4T54L/beacon/internal/domain"
)

// ErrInvalid wraps every validation failure returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// KnownProtocols lists the protocols a transport exists for. "stub" selects
// the no-op transport.
var KnownProtocols = []string{"stub", "tcp", "http", "https", "ws", "wss", "redis", "postgres"}

// KnownCacheBackends lists the accepted CACHE_BACKEND values.
var KnownCacheBackends = []string{"memory", "lru", "redis"}

// Config holds all application configuration. It is treated as an
// immutable snapshot once loaded.
type Config struct {
	Domain         string        `env:"APP_DOMAIN" yaml:"domain"`
	Port           int           `env:"APP_PORT" yaml:"port"`
	Protocol       string        `env:"APP_PROTOCOL" yaml:"protocol"`
	UpdateEnabled  bool          `env:"APP_UPDATE_ENABLED" yaml:"update_enabled"`
	Timeout        time.Duration `env:"APP_TIMEOUT" yaml:"timeout"`
	RetryAttempts  int           `env:"APP_RETRY_ATTEMPTS" yaml:"retry_attempts"`
	MaxConnections int           `env:"APP_MAX_CONNECTIONS" yaml:"max_connections"`
	KeepAlive      bool          `env:"APP_KEEP_ALIVE" yaml:"keep_alive"`
	Compression    bool          `env:"APP_COMPRESSION" yaml:"compression"`
	Debug          bool          `env:"APP_DEBUG" yaml:"debug"`
	Version        string        `env:"APP_VERSION" yaml:"version"`
	Environment    string        `env:"APP_ENVIRONMENT" yaml:"environment"`

	// NetworkTransport overrides the transport chosen from Protocol. "stub"
	// keeps the endpoint as configured but never dials it.
	NetworkTransport    string        `env:"NETWORK_TRANSPORT" yaml:"network_transport"`
	LogLevel            string        `env:"LOG_LEVEL" yaml:"log_level"`
	CacheBackend        string        `env:"CACHE_BACKEND" yaml:"cache_backend"`
	CacheMaxEntries     int           `env:"CACHE_MAX_ENTRIES" yaml:"cache_max_entries"`
	RedisAddr           string        `env:"REDIS_ADDR" yaml:"redis_addr"`
	HealthCheckInterval time.Duration `env:"HEALTH_CHECK_INTERVAL" yaml:"health_check_interval"`
	AdminAddr           string        `env:"ADMIN_ADDR" yaml:"admin_addr"`
	AdminToken          string        `env:"ADMIN_TOKEN" yaml:"admin_token"`
	RedactFields        []string      `env:"REDACT_FIELDS" envSeparator:"," yaml:"redact_fields"`

	ConfigFile string `env:"APP_CONFIG_FILE" yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Domain:         "new.example.com",
		Port:           8080,
		Protocol:       "https",
		UpdateEnabled:  false,
		Timeout:        30 * time.Second,
		RetryAttempts:  3,
		MaxConnections: 10,
		KeepAlive:      true,
		Compression:    true,
		Debug:          false,
		Version:        "2.5.1",
		Environment:    "production",

		LogLevel:            "info",
		CacheBackend:        "memory",
		CacheMaxEntries:     1024,
		HealthCheckInterval: 5 * time.Second,
		RedactFields:        []string{"redis_addr", "admin_token"},
	}
}

// Load builds the configuration from defaults, an optional YAML file named
// by APP_CONFIG_FILE, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("APP_CONFIG_FILE"); path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs error
	if strings.TrimSpace(c.Domain) == "" {
		errs = multierr.Append(errs, errors.New("domain must not be empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("port %d out of range 1-65535", c.Port))
	}
	if !slices.Contains(KnownProtocols, c.Protocol) {
		errs = multierr.Append(errs, fmt.Errorf("unknown protocol %q", c.Protocol))
	}
	if c.NetworkTransport != "" && !slices.Contains(KnownProtocols, c.NetworkTransport) {
		errs = multierr.Append(errs, fmt.Errorf("unknown network transport %q", c.NetworkTransport))
	}
	if c.Timeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.RetryAttempts < 0 {
		errs = multierr.Append(errs, fmt.Errorf("retry attempts must not be negative, got %d", c.RetryAttempts))
	}
	if c.MaxConnections <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("max connections must be positive, got %d", c.MaxConnections))
	}
	if !slices.Contains(KnownCacheBackends, c.CacheBackend) {
		errs = multierr.Append(errs, fmt.Errorf("unknown cache backend %q", c.CacheBackend))
	}
	if c.CacheBackend == "lru" && c.CacheMaxEntries <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("cache max entries must be positive for the lru backend, got %d", c.CacheMaxEntries))
	}
	if c.CacheBackend == "redis" && c.RedisAddr == "" {
		errs = multierr.Append(errs, errors.New("redis addr is required for the redis cache backend"))
	}
	if c.HealthCheckInterval <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("health check interval must be positive, got %s", c.HealthCheckInterval))
	}
	if errs != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, errs)
	}
	return nil
}

// Endpoint returns the configured connection target.
func (c Config) Endpoint() domain.Endpoint {
	return domain.Endpoint{Protocol: c.Protocol, Host: c.Domain, Port: c.Port}
}

// Transport names the transport to build: NetworkTransport when set,
// otherwise the endpoint protocol.
func (c Config) Transport() string {
	return cmp.Or(c.NetworkTransport, c.Protocol)
}

// Fields renders the snapshot as a map keyed like the YAML file, for logging.
func (c Config) Fields() map[string]any {
	return map[string]any{
		"domain":                c.Domain,
		"port":                  c.Port,
		"protocol":              c.Protocol,
		"network_transport":     c.Transport(),
		"update_enabled":        c.UpdateEnabled,
		"timeout":               c.Timeout.String(),
		"retry_attempts":        c.RetryAttempts,
		"max_connections":       c.MaxConnections,
		"keep_alive":            c.KeepAlive,
		"compression":           c.Compression,
		"debug":                 c.Debug,
		"version":               c.Version,
		"environment":           c.Environment,
		"log_level":             c.LogLevel,
		"cache_backend":         c.CacheBackend,
		"redis_addr":            c.RedisAddr,
		"health_check_interval": c.HealthCheckInterval.String(),
		"admin_addr":            c.AdminAddr,
		"admin_token":           c.AdminToken,
	}
}
