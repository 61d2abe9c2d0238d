package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusString(t *testing.T) {
	assert.Equal(t, "idle", StatusIdle.String())
	assert.Equal(t, "connecting", StatusConnecting.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "reconnecting", StatusReconnecting.String())
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "unknown", Status(99).String())
}

func TestTransitionTable(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusIdle, StatusConnecting},
		{StatusConnecting, StatusConnected},
		{StatusConnecting, StatusReconnecting},
		{StatusConnecting, StatusDisconnected},
		{StatusConnected, StatusReconnecting},
		{StatusConnected, StatusDisconnected},
		{StatusReconnecting, StatusConnected},
		{StatusReconnecting, StatusDisconnected},
		{StatusDisconnected, StatusConnecting},
	}
	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct{ from, to Status }{
		{StatusIdle, StatusConnected},
		{StatusIdle, StatusReconnecting},
		{StatusIdle, StatusDisconnected},
		{StatusConnected, StatusConnecting},
		{StatusConnected, StatusIdle},
		{StatusReconnecting, StatusIdle},
		{StatusDisconnected, StatusConnected},
		{StatusDisconnected, StatusReconnecting},
		{StatusConnecting, StatusIdle},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestConfigNormalizeFillsDefaults(t *testing.T) {
	cfg := (&Config{}).Normalize()
	require.Equal(t, DefaultConfig(), cfg)
}

func TestConfigNormalizeKeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		HeartbeatInterval:    time.Second,
		PongTimeout:          time.Second,
		ReconnectBaseDelay:   time.Second,
		ReconnectMaxDelay:    2 * time.Second,
		MaxReconnectAttempts: 3,
		HandshakeTimeout:     time.Second,
		WriteTimeout:         time.Second,
	}
	want := *cfg
	require.Equal(t, &want, cfg.Normalize())
}
