// Package config loads engine configuration from defaults, an optional YAML
// file and VALE_-prefixed environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Store    StoreConfig    `yaml:"store" envconfig:"STORE"`
	Public   PublicConfig   `yaml:"public" envconfig:"PUBLIC"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
}

// SecurityConfig holds the shared secrets and rate limiting knobs.
// An empty secret locks the corresponding surface: requests are rejected
// rather than waved through.
type SecurityConfig struct {
	AdminSecret   string          `yaml:"admin_secret" envconfig:"ADMIN_SECRET"`
	WebhookSecret string          `yaml:"webhook_secret" envconfig:"WEBHOOK_SECRET"`
	RateLimit     RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"` // console, file, both
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// StoreConfig selects the persistence backend and the per-entity TTL policy.
type StoreConfig struct {
	Driver string `yaml:"driver" envconfig:"DRIVER"` // sqlite, memory
	DSN    string `yaml:"dsn" envconfig:"DSN"`

	OrderTTL      time.Duration `yaml:"order_ttl" envconfig:"ORDER_TTL"`
	TokenLifetime time.Duration `yaml:"token_lifetime" envconfig:"TOKEN_LIFETIME"`
	TokenTTL      time.Duration `yaml:"token_ttl" envconfig:"TOKEN_TTL"`
	LicenseTTL    time.Duration `yaml:"license_ttl" envconfig:"LICENSE_TTL"`
}

// PublicConfig describes how customer-facing URLs are built from stored state.
type PublicConfig struct {
	Origin      string `yaml:"origin" envconfig:"ORIGIN"`
	OrderPath   string `yaml:"order_path" envconfig:"ORDER_PATH"`
	DeliverPath string `yaml:"deliver_path" envconfig:"DELIVER_PATH"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/valeshop.log",
		},
		Store: StoreConfig{
			Driver:        "sqlite",
			DSN:           "valeshop.db",
			OrderTTL:      30 * 24 * time.Hour,
			TokenLifetime: 30 * time.Minute,
			TokenTTL:      time.Hour,
			LicenseTTL:    365 * 24 * time.Hour,
		},
		Public: PublicConfig{
			Origin:      "http://localhost:8080",
			OrderPath:   "/order.html",
			DeliverPath: "/deliver.html",
		},
	}
}

// Load builds the configuration: defaults, then the optional YAML file named
// by VALE_CONFIG_FILE (or config.yaml), then environment variables.
func Load() (*Config, error) {
	cfg := Default()

	configFile := os.Getenv("VALE_CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}
	if data, err := os.ReadFile(configFile); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configFile, err)
		}
	}

	if err := envconfig.Process("VALE", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Store.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store driver: %q", c.Store.Driver)
	}
	if c.Store.Driver == "sqlite" && c.Store.DSN == "" {
		return fmt.Errorf("store dsn is required for the sqlite driver")
	}
	if c.Store.TokenLifetime <= 0 || c.Store.TokenTTL <= 0 {
		return fmt.Errorf("token lifetime and ttl must be positive")
	}
	if c.Store.TokenTTL < c.Store.TokenLifetime {
		return fmt.Errorf("token ttl must cover the token lifetime")
	}
	return nil
}
