package main

import (
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/appdock/chatwire/internal/config"
	"github.com/appdock/chatwire/internal/logging"
	"github.com/appdock/chatwire/pkg/client"
	"github.com/appdock/chatwire/pkg/types"
)

// Demo client: attaches a session channel, logs every routed event, and
// sends a chat command every few seconds.
func main() {
	configPath := flag.String("config", "", "path to TOML config")
	session := flag.String("session", "", "session id (default: random)")
	flag.Parse()

	log := logging.Console("client")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.SetGlobalLevel(cfg.Log.Level)

	sessionID := *session
	if sessionID == "" {
		sessionID = cfg.Channel.SessionID
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	ch, err := client.New(cfg.Channel.BaseURL, sessionID, cfg.Channel.ChannelConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("channel setup failed")
	}

	ch.OnContent(func(env types.Envelope) {
		log.Info().Str("type", env.Type).RawJSON("data", orEmpty(env.Data)).Msg("content")
	})
	ch.OnStatus(func(event string, data json.RawMessage, requestID string) {
		log.Info().Str("event", event).Str("requestId", requestID).RawJSON("data", orEmpty(data)).Msg("status")
	})
	ch.OnConnect(func() {
		log.Info().Str("session", sessionID).Msg("connected")
	})
	ch.OnStatusChange(func(s types.Status) {
		log.Info().Str("status", s.String()).Msg("channel status")
	})
	ch.OnError(func(err error) {
		log.Error().Err(err).Msg("channel gave up, manual retry required")
	})

	ch.Connect()
	defer ch.Disconnect()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if ch.Status() != types.StatusConnected {
				continue
			}
			requestID, err := ch.SendCommand("chat", map[string]string{
				"content": "hello from chatwire at " + time.Now().Format(time.RFC3339),
			})
			if err != nil {
				log.Warn().Err(err).Msg("send failed")
				continue
			}
			log.Info().Str("requestId", requestID).Msg("chat sent")
		case sig := <-sigCh:
			log.Info().Str("signal", sig.String()).Msg("exiting")
			return
		}
	}
}

func orEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage(`null`)
	}
	return raw
}
