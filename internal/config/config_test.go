package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	v := newTestViper()
	v.Set("workspace_id", "WS-001")

	cfg, err := Load(v)

	require.NoError(t, err)
	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, DefaultReconnectDelay, cfg.ReconnectDelay)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "ws://localhost:8400/api/events", cfg.EventsURL)
}

func TestLoadMissingWorkspace(t *testing.T) {
	v := newTestViper()

	_, err := Load(v)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "workspace_id")
}

func TestValidateBackendScheme(t *testing.T) {
	cfg := &Config{BackendURL: "ftp://example.com", WorkspaceID: "WS-001"}

	err := cfg.Validate()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")
}

func TestDeriveEventsURL(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{"http://localhost:8400", "ws://localhost:8400/api/events"},
		{"https://loom.example.com", "wss://loom.example.com/api/events"},
		{"https://loom.example.com/", "wss://loom.example.com/api/events"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, deriveEventsURL(tt.backend), tt.backend)
	}
}

func TestExplicitEventsURLWins(t *testing.T) {
	v := newTestViper()
	v.Set("workspace_id", "WS-001")
	v.Set("events_url", "wss://events.example.com/push")

	cfg, err := Load(v)

	require.NoError(t, err)
	assert.Equal(t, "wss://events.example.com/push", cfg.EventsURL)
}

func TestNonPositiveDurationsFallBack(t *testing.T) {
	v := newTestViper()
	v.Set("workspace_id", "WS-001")
	v.Set("reconnect_delay", time.Duration(0))
	v.Set("fetch_timeout", -time.Second)

	cfg, err := Load(v)

	require.NoError(t, err)
	assert.Equal(t, DefaultReconnectDelay, cfg.ReconnectDelay)
	assert.Equal(t, DefaultFetchTimeout, cfg.FetchTimeout)
}
