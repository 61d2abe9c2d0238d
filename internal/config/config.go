// Package config loads the TOML configuration used by the cmd binaries.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/appdock/chatwire/pkg/types"
)

// Duration wraps time.Duration so TOML values can be written as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for toml decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// File is the full configuration file.
type File struct {
	Log     Log     `toml:"log"`
	Server  Server  `toml:"server"`
	Channel Channel `toml:"channel"`
}

// Log configures logging output.
type Log struct {
	Level string `toml:"level"`
}

// Server configures the dev backend.
type Server struct {
	Addr          string `toml:"addr"`
	TranscriptDir string `toml:"transcript_dir"`
}

// Channel configures the client channel.
type Channel struct {
	BaseURL   string `toml:"base_url"`
	SessionID string `toml:"session_id"`

	HeartbeatInterval    Duration `toml:"heartbeat_interval"`
	PongTimeout          Duration `toml:"pong_timeout"`
	ReconnectBaseDelay   Duration `toml:"reconnect_base_delay"`
	ReconnectMaxDelay    Duration `toml:"reconnect_max_delay"`
	MaxReconnectAttempts int      `toml:"max_reconnect_attempts"`
}

// Default returns the configuration used when no file is given.
func Default() *File {
	return &File{
		Log:    Log{Level: "info"},
		Server: Server{Addr: ":8787"},
		Channel: Channel{
			BaseURL: "ws://127.0.0.1:8787",
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*File, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load config %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}

// ChannelConfig maps the file section onto the channel tunables, leaving
// unset fields to the library defaults.
func (c Channel) ChannelConfig() *types.Config {
	cfg := &types.Config{
		HeartbeatInterval:    c.HeartbeatInterval.Duration,
		PongTimeout:          c.PongTimeout.Duration,
		ReconnectBaseDelay:   c.ReconnectBaseDelay.Duration,
		ReconnectMaxDelay:    c.ReconnectMaxDelay.Duration,
		MaxReconnectAttempts: c.MaxReconnectAttempts,
	}
	return cfg.Normalize()
}
