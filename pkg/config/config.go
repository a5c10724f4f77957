// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package config loads anemostat configuration.
//
// Values are layered, later layers winning: built-in defaults, then the YAML
// file named by --config (or ANEMOSTAT_CONFIG), then ANEMOSTAT_* environment
// variables. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables
const (
	EnvConfig         = "ANEMOSTAT_CONFIG"
	EnvTransportURL   = "ANEMOSTAT_TRANSPORT_URL"
	EnvAPIURL         = "ANEMOSTAT_API_URL"
	EnvBufferSize     = "ANEMOSTAT_BUFFER_SIZE"
	EnvReconnectDelay = "ANEMOSTAT_RECONNECT_DELAY"
)

var (
	// ErrNoTransportURL is returned by ValidateTransport when no broker URL
	// is configured.
	ErrNoTransportURL = errors.New("no transport URL configured (set --url or " + EnvTransportURL + ")")

	// ErrNoAPIURL is returned by ValidateAPI when no REST URL is configured.
	ErrNoAPIURL = errors.New("no API URL configured (set --api or " + EnvAPIURL + ")")
)

// Config is the complete anemostat configuration.
type Config struct {
	// Transport configures the live telemetry connection.
	Transport TransportConfig `yaml:"transport"`

	// API configures the REST client.
	API APIConfig `yaml:"api"`

	// Live configures the live temperature view.
	Live LiveConfig `yaml:"live"`

	// Log configures diagnostic logging.
	Log LogConfig `yaml:"log"`

	// Serve configures the local state API.
	Serve ServeConfig `yaml:"serve"`
}

// TransportConfig configures the broker connection.
type TransportConfig struct {
	// URL is the broker endpoint: ws(s):// or http(s):// for STOMP,
	// tcp:// or ssl:// for MQTT. No default.
	URL string `yaml:"url"`

	// ReconnectDelay is the fixed wait between connection attempts.
	// Default: 5s
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	// Heartbeat is the STOMP heart-beat interval in both directions, or the
	// MQTT keep-alive. Default: 4s
	Heartbeat time.Duration `yaml:"heartbeat"`

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// APIConfig configures the REST collaborator.
type APIConfig struct {
	// URL is the API base, e.g. http://backend:8080. No default.
	URL string `yaml:"url"`

	// Timeout bounds each request. Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// LiveConfig configures the live view.
type LiveConfig struct {
	// BufferSize is how many recent temperature samples are kept.
	// Default: 20
	BufferSize int `yaml:"buffer_size"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level"`

	// File receives logs from the dashboard, which owns the terminal.
	// Empty discards them.
	File string `yaml:"file"`
}

// ServeConfig configures the serve command.
type ServeConfig struct {
	// Listen is the HTTP listen address. Default: :9100
	Listen string `yaml:"listen"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			ReconnectDelay: 5 * time.Second,
			Heartbeat:      4 * time.Second,
		},
		API: APIConfig{
			Timeout: 10 * time.Second,
		},
		Live: LiveConfig{
			BufferSize: 20,
		},
		Log: LogConfig{
			Level: "info",
		},
		Serve: ServeConfig{
			Listen: ":9100",
		},
	}
}

// Load builds the configuration from defaults, the file at path (or
// ANEMOSTAT_CONFIG when path is empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges the YAML file at path into c. Keys absent from the file
// keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides c from ANEMOSTAT_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvTransportURL); ok && v != "" {
		c.Transport.URL = v
	}
	if v, ok := lookup(EnvAPIURL); ok && v != "" {
		c.API.URL = v
	}
	if v, ok := lookup(EnvBufferSize); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBufferSize, err)
		}
		c.Live.BufferSize = n
	}
	if v, ok := lookup(EnvReconnectDelay); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvReconnectDelay, err)
		}
		c.Transport.ReconnectDelay = d
	}
	return nil
}

// Validate checks values that are wrong regardless of the command.
func (c *Config) Validate() error {
	if c.Transport.ReconnectDelay <= 0 {
		return fmt.Errorf("transport.reconnect_delay must be positive, got %v", c.Transport.ReconnectDelay)
	}
	if c.Transport.Heartbeat < 0 {
		return fmt.Errorf("transport.heartbeat must not be negative, got %v", c.Transport.Heartbeat)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %v", c.API.Timeout)
	}
	if c.Live.BufferSize < 1 {
		return fmt.Errorf("live.buffer_size must be at least 1, got %d", c.Live.BufferSize)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ValidateTransport checks that a usable broker URL is configured.
func (c *Config) ValidateTransport() error {
	if c.Transport.URL == "" {
		return ErrNoTransportURL
	}
	return checkURL("transport.url", c.Transport.URL, "ws", "wss", "http", "https", "tcp", "ssl", "tls", "mqtt", "mqtts")
}

// ValidateAPI checks that a usable REST URL is configured.
func (c *Config) ValidateAPI() error {
	if c.API.URL == "" {
		return ErrNoAPIURL
	}
	return checkURL("api.url", c.API.URL, "http", "https")
}

func checkURL(field, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: %q has no host", field, raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported scheme %q (want one of %s)", field, u.Scheme, strings.Join(schemes, ", "))
}

// ParseLevel maps a level name onto a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q (want debug, info, warn or error)", s)
	}
	return level, nil
}
