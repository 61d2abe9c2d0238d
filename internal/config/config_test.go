package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chatwire.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, ":8787", cfg.Server.Addr)
	assert.Equal(t, "ws://127.0.0.1:8787", cfg.Channel.BaseURL)
}

func TestLoadOverrides(t *testing.T) {
	path := writeFile(t, `
[log]
level = "debug"

[server]
addr = ":9900"
transcript_dir = "/tmp/transcripts"

[channel]
base_url = "wss://orchestrator.internal"
session_id = "proj-42"
heartbeat_interval = "30s"
pong_timeout = "5s"
reconnect_base_delay = "1s"
reconnect_max_delay = "10s"
max_reconnect_attempts = 3
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":9900", cfg.Server.Addr)
	assert.Equal(t, "/tmp/transcripts", cfg.Server.TranscriptDir)
	assert.Equal(t, "wss://orchestrator.internal", cfg.Channel.BaseURL)
	assert.Equal(t, "proj-42", cfg.Channel.SessionID)
	assert.Equal(t, 30*time.Second, cfg.Channel.HeartbeatInterval.Duration)

	ch := cfg.Channel.ChannelConfig()
	assert.Equal(t, 30*time.Second, ch.HeartbeatInterval)
	assert.Equal(t, 5*time.Second, ch.PongTimeout)
	assert.Equal(t, time.Second, ch.ReconnectBaseDelay)
	assert.Equal(t, 10*time.Second, ch.ReconnectMaxDelay)
	assert.Equal(t, 3, ch.MaxReconnectAttempts)
	// Unset fields come from the library defaults.
	assert.Equal(t, 10*time.Second, ch.HandshakeTimeout)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := writeFile(t, `
[channel]
base_url = "ws://localhost:4000"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:4000", cfg.Channel.BaseURL)
	assert.Equal(t, ":8787", cfg.Server.Addr)

	ch := cfg.Channel.ChannelConfig()
	assert.Equal(t, 60*time.Second, ch.HeartbeatInterval)
	assert.Equal(t, 5, ch.MaxReconnectAttempts)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, `
[channel]
base_url = "ws://localhost:4000"
heart_beat = "10s"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	path := writeFile(t, `
[channel]
heartbeat_interval = "soon"
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}
