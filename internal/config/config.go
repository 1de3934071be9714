// Package config provides weft's configuration, resolved from flags,
// environment (WEFT_*), and .weft/config.yaml via viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultBackendURL     = "http://localhost:8400"
	DefaultReconnectDelay = 3 * time.Second
	DefaultFetchTimeout   = 30 * time.Second
)

// Config holds everything the sync engine needs to reach the backend.
type Config struct {
	// BackendURL is the base URL for the command endpoints.
	BackendURL string `mapstructure:"backend_url" yaml:"backend_url"`

	// EventsURL is the websocket URL for the push stream. Derived from
	// BackendURL when empty.
	EventsURL string `mapstructure:"events_url" yaml:"events_url,omitempty"`

	// WorkspaceID scopes every fetch and subscription.
	WorkspaceID string `mapstructure:"workspace_id" yaml:"workspace_id"`

	// ReconnectDelay is the fixed pause between stream redials.
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay" yaml:"reconnect_delay,omitempty"`

	// FetchTimeout bounds bulk read calls.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level,omitempty"`
}

// SetDefaults registers defaults on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("backend_url", DefaultBackendURL)
	v.SetDefault("reconnect_delay", DefaultReconnectDelay)
	v.SetDefault("fetch_timeout", DefaultFetchTimeout)
	v.SetDefault("log_level", "info")
}

// Load resolves the config from the given viper instance.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDerived()
	return &cfg, nil
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.BackendURL == "" {
		return fmt.Errorf("backend_url is required")
	}
	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return fmt.Errorf("backend_url must be http or https, got %q", c.BackendURL)
	}
	if c.WorkspaceID == "" {
		return fmt.Errorf("workspace_id is required")
	}
	return nil
}

// applyDerived fills fields computable from others.
func (c *Config) applyDerived() {
	if c.EventsURL == "" {
		c.EventsURL = deriveEventsURL(c.BackendURL)
	}
	if c.ReconnectDelay <= 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
}

// deriveEventsURL turns the HTTP base URL into the websocket endpoint.
func deriveEventsURL(backendURL string) string {
	ws := backendURL
	switch {
	case strings.HasPrefix(ws, "https://"):
		ws = "wss://" + strings.TrimPrefix(ws, "https://")
	case strings.HasPrefix(ws, "http://"):
		ws = "ws://" + strings.TrimPrefix(ws, "http://")
	}
	return strings.TrimSuffix(ws, "/") + "/api/events"
}
