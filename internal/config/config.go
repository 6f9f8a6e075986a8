// Package config provides configuration loading for chaind.
//
// Configuration is loaded from a YAML file, then overridden by environment
// variables. Every field has a working default so chaind starts with no
// config file at all.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fathomlabs/chaind/internal/chain"
	"github.com/fathomlabs/chaind/internal/logging"
)

// Config holds the complete chaind configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Logging   *logging.Config `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Harness   HarnessConfig   `koanf:"harness"`
	Library   LibraryConfig   `koanf:"library"`
	Notify    NotifyConfig    `koanf:"notify"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimit caps API requests per second per client IP. 0 disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
}

// Address returns the host:port listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig holds the run store configuration.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// TelemetryConfig holds OpenTelemetry export configuration.
type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
	Endpoint    string `koanf:"endpoint"`
	Protocol    string `koanf:"protocol"` // "grpc" or "http"
	Insecure    bool   `koanf:"insecure"`
}

// HarnessConfig holds task execution configuration.
type HarnessConfig struct {
	DefaultMode   string        `koanf:"default_mode"`
	ScopeRoots    []string      `koanf:"scope_roots"`
	LiveRateLimit float64       `koanf:"live_rate_limit"` // live executions per second, 0 disables
	LiveRateBurst int           `koanf:"live_rate_burst"`
	StepTimeout   time.Duration `koanf:"step_timeout"`
}

// LibraryConfig holds the custom chain library configuration.
type LibraryConfig struct {
	ChainsDir string `koanf:"chains_dir"`
	Watch     bool   `koanf:"watch"`
}

// NotifyConfig holds webhook notification configuration.
type NotifyConfig struct {
	WebhookURL string        `koanf:"webhook_url"`
	Timeout    time.Duration `koanf:"timeout"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 {
		return errors.New("server rate limit cannot be negative")
	}
	if c.Database.Path == "" {
		return errors.New("database path required")
	}
	switch chain.Mode(c.Harness.DefaultMode) {
	case chain.ModeDryRun, chain.ModeSimulated, chain.ModeLive:
	default:
		return fmt.Errorf("invalid default mode: %q", c.Harness.DefaultMode)
	}
	if c.Harness.LiveRateLimit < 0 {
		return errors.New("live rate limit cannot be negative")
	}
	switch c.Telemetry.Protocol {
	case "", "grpc", "http":
	default:
		return fmt.Errorf("invalid telemetry protocol: %q (must be grpc or http)", c.Telemetry.Protocol)
	}
	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}
	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return fmt.Errorf("logging: %w", err)
		}
	}
	return nil
}
