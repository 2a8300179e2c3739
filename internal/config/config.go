// Package config defines the top-level configuration for the TravelTrust
// backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by TRUSTD_* environment variables.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Idempotency IdempotencyConfig `toml:"idempotency"`
	LogLevel    string            `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	// RateLimit is the sustained per-client request rate (requests/second);
	// RateBurst is the burst allowance on top of it.
	RateLimit float64 `toml:"rate_limit"`
	RateBurst int     `toml:"rate_burst"`
}

// IdempotencyConfig holds the idempotent-request gateway parameters. The core
// consumes these; it never computes them internally.
type IdempotencyConfig struct {
	// MaxEntries bounds the completed-response cache; the least recently
	// used entry is evicted when full.
	MaxEntries int `toml:"max_entries"`
	// OperationDeadline bounds each deduplicated write operation.
	OperationDeadline duration `toml:"operation_deadline"`
	// MaxBodyBytes is the write-request body size ceiling.
	MaxBodyBytes int64 `toml:"max_body_bytes"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "30s", "5m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        3000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   50,
			RateBurst:   100,
		},
		Idempotency: IdempotencyConfig{
			MaxEntries:        1000,
			OperationDeadline: duration{30 * time.Second},
			MaxBodyBytes:      1 << 20,
		},
		LogLevel: "info",
	}
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.RateLimit <= 0 {
		errs = append(errs, "server: rate_limit must be > 0")
	}
	if c.Server.RateBurst < 1 {
		errs = append(errs, "server: rate_burst must be >= 1")
	}

	if c.Idempotency.MaxEntries < 1 {
		errs = append(errs, "idempotency: max_entries must be >= 1")
	}
	if c.Idempotency.OperationDeadline.Duration <= 0 {
		errs = append(errs, "idempotency: operation_deadline must be > 0")
	}
	if c.Idempotency.MaxBodyBytes < 1 {
		errs = append(errs, "idempotency: max_body_bytes must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
