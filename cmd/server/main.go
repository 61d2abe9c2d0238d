package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appdock/chatwire/internal/config"
	"github.com/appdock/chatwire/internal/logging"
	"github.com/appdock/chatwire/pkg/server"
	"github.com/appdock/chatwire/pkg/types"
)

// Dev backend: accepts session channels, answers liveness probes, and
// replies to every chat command with a start/message/complete sequence so
// client work can be exercised without the real orchestrator.
func main() {
	configPath := flag.String("config", "", "path to TOML config")
	flag.Parse()

	log := logging.Console("server")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logging.SetGlobalLevel(cfg.Log.Level)

	srv := server.New(cfg.Server.Addr)
	if cfg.Server.TranscriptDir != "" {
		srv.SetTranscriptDir(cfg.Server.TranscriptDir)
	}

	srv.SetCommandHandler(func(sessionID, peerID string, env types.Envelope) {
		log.Info().
			Str("session", sessionID).
			Str("type", env.Type).
			Str("requestId", env.RequestID).
			Msg("command received")
		if env.Type != "chat" {
			return
		}
		go respond(srv, sessionID, env)
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

// respond plays back the event sequence the orchestrator produces for one
// chat turn.
func respond(srv *server.Server, sessionID string, cmd types.Envelope) {
	srv.Broadcast(sessionID, types.Envelope{
		Type:      "chat_start",
		Data:      json.RawMessage(`{}`),
		RequestID: cmd.RequestID,
	})

	reply, _ := json.Marshal(map[string]any{
		"role":    "assistant",
		"content": "echo: " + string(cmd.Data),
	})
	time.Sleep(200 * time.Millisecond)
	srv.Broadcast(sessionID, types.Envelope{Type: "message", Data: reply})

	srv.Broadcast(sessionID, types.Envelope{
		Type:      "chat_complete",
		Data:      json.RawMessage(`{"success":true}`),
		RequestID: cmd.RequestID,
	})
}
