// Package config loads application configuration: built-in defaults,
// overridden by an optional YAML file, overridden by CERTIGEN_*
// environment variables. Environment always wins.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Store   StoreConfig   `yaml:"store" envconfig:"STORE"`
	License LicenseConfig `yaml:"license" envconfig:"LICENSE"`
	Account AccountConfig `yaml:"account" envconfig:"ACCOUNT"`
	Admin   AdminConfig   `yaml:"admin" envconfig:"ADMIN"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
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
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// StoreConfig controls the JSON collection store.
type StoreConfig struct {
	Dir        string `yaml:"dir" envconfig:"DIR"`
	QuotaBytes int64  `yaml:"quota_bytes" envconfig:"QUOTA_BYTES"`
}

// LicenseConfig fixes the license policy knobs.
type LicenseConfig struct {
	TrialDays        int    `yaml:"trial_days" envconfig:"TRIAL_DAYS"`
	PaymentGrantDays int    `yaml:"payment_grant_days" envconfig:"PAYMENT_GRANT_DAYS"`
	KeyPrefix        string `yaml:"key_prefix" envconfig:"KEY_PREFIX"`
}

// AccountConfig controls signup policy.
type AccountConfig struct {
	AllowedDomain     string `yaml:"allowed_domain" envconfig:"ALLOWED_DOMAIN"`
	MinPasswordLength int    `yaml:"min_password_length" envconfig:"MIN_PASSWORD_LENGTH"`
}

// AdminConfig describes the seeded super-admin account.
type AdminConfig struct {
	Email    string `yaml:"email" envconfig:"EMAIL"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:            8090,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     50,
				Burst:   25,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: "logs/certigen.log",
		},
		Store: StoreConfig{
			Dir:        "data",
			QuotaBytes: 5 * 1024 * 1024,
		},
		License: LicenseConfig{
			TrialDays:        3,
			PaymentGrantDays: 365,
			KeyPrefix:        "EDC",
		},
		Account: AccountConfig{
			AllowedDomain:     "gmail.com",
			MinPasswordLength: 4,
		},
		Admin: AdminConfig{
			Email:    "admin@educert.pro",
			Password: "admin123",
		},
	}
}

// Load loads configuration from defaults, config.yaml if present, and
// CERTIGEN_* environment variables, in increasing precedence.
func Load() (*Config, error) {
	return LoadFrom("config.yaml")
}

// LoadFrom is Load with an explicit config file path, used by tests.
func LoadFrom(configFile string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(configFile); err == nil {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// envconfig only touches fields whose variables are actually set, so
	// file and default values survive.
	if err := envconfig.Process("CERTIGEN", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.License.TrialDays <= 0 {
		return fmt.Errorf("trial_days must be positive, got %d", c.License.TrialDays)
	}
	if c.License.PaymentGrantDays <= 0 {
		return fmt.Errorf("payment_grant_days must be positive, got %d", c.License.PaymentGrantDays)
	}
	if c.License.KeyPrefix == "" {
		return fmt.Errorf("key_prefix must not be empty")
	}
	if c.Store.QuotaBytes <= 0 {
		return fmt.Errorf("quota_bytes must be positive, got %d", c.Store.QuotaBytes)
	}
	if !strings.Contains(c.Admin.Email, "@") {
		return fmt.Errorf("invalid admin email: %q", c.Admin.Email)
	}
	return nil
}
