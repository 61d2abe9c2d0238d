package types

import (
	"encoding/json"
	"time"
)

// Wire sentinels for liveness. The probe and its acknowledgment are plain
// text frames, not WebSocket control frames, so they survive any proxy that
// strips ping/pong control traffic.
const (
	LivenessProbe = "ping"
	LivenessAck   = "pong"
)

// Status is the lifecycle state of a channel.
type Status int32

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusDisconnected
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// transitions is the legal-move table of the channel state machine.
// Self-transitions are not listed; callers treat them as no-ops.
var transitions = map[Status][]Status{
	StatusIdle:         {StatusConnecting},
	StatusConnecting:   {StatusConnected, StatusReconnecting, StatusDisconnected},
	StatusConnected:    {StatusReconnecting, StatusDisconnected},
	StatusReconnecting: {StatusConnected, StatusDisconnected},
	StatusDisconnected: {StatusConnecting},
}

// CanTransition reports whether the state machine allows moving from one
// status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Config holds the channel tunables. Zero fields are filled in by
// Normalize; the defaults match the production values the backend is
// provisioned for.
type Config struct {
	HeartbeatInterval    time.Duration // probe period once connected
	PongTimeout          time.Duration // grace beyond the interval before the link is declared dead
	ReconnectBaseDelay   time.Duration // backoff base
	ReconnectMaxDelay    time.Duration // backoff cap
	MaxReconnectAttempts int           // consecutive losses before giving up
	HandshakeTimeout     time.Duration // dial deadline
	WriteTimeout         time.Duration // per-frame write deadline
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		HeartbeatInterval:    60 * time.Second,
		PongTimeout:          15 * time.Second,
		ReconnectBaseDelay:   2 * time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		MaxReconnectAttempts: 5,
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         10 * time.Second,
	}
}

// Normalize fills zero fields with defaults and returns the receiver.
func (c *Config) Normalize() *Config {
	def := DefaultConfig()
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.PongTimeout <= 0 {
		c.PongTimeout = def.PongTimeout
	}
	if c.ReconnectBaseDelay <= 0 {
		c.ReconnectBaseDelay = def.ReconnectBaseDelay
	}
	if c.ReconnectMaxDelay <= 0 {
		c.ReconnectMaxDelay = def.ReconnectMaxDelay
	}
	if c.MaxReconnectAttempts <= 0 {
		c.MaxReconnectAttempts = def.MaxReconnectAttempts
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = def.HandshakeTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = def.WriteTimeout
	}
	return c
}

// Envelope is the structured wire unit exchanged with the orchestrator.
// Status and Message are only populated on bare "status" frames, which the
// backend emits without a data object.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	Status    string          `json:"status,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

// ChannelStats is a point-in-time snapshot of channel counters.
type ChannelStats struct {
	Received      int64 // inbound frames, liveness acks included
	Sent          int64 // outbound frames written successfully
	Dropped       int64 // outbound payloads dropped while not connected
	ParseFailures int64 // inbound frames that failed envelope parsing
	Reconnects    int64 // reconnect attempts scheduled over the channel lifetime
}
