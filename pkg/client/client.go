// Package client exposes the resilient realtime channel a session holds
// open to the orchestrator. One Channel owns one connection; it heals
// abnormal closures with capped exponential backoff and hands inbound
// events to the handlers the session registers.
package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/appdock/chatwire/internal/conn"
	"github.com/appdock/chatwire/internal/dispatch"
	"github.com/appdock/chatwire/internal/logging"
	"github.com/appdock/chatwire/pkg/types"
)

// Channel is the session-facing handle on one realtime connection.
type Channel struct {
	sessionID string
	ctrl      *conn.Controller
}

// New builds an idle channel for the session. The endpoint is
// <baseURL>/api/chat/<sessionID>; baseURL must use the ws or wss scheme.
func New(baseURL, sessionID string, cfg *types.Config) (*Channel, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("empty session id")
	}
	if cfg == nil {
		cfg = types.DefaultConfig()
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported scheme %q, want ws or wss", parsed.Scheme)
	}

	endpoint := strings.TrimRight(baseURL, "/") + "/api/chat/" + url.PathEscape(sessionID)
	log := logging.New("channel").With().Str("session", sessionID).Logger()
	return &Channel{
		sessionID: sessionID,
		ctrl:      conn.NewController(endpoint, cfg, log),
	}, nil
}

// SessionID returns the session this channel belongs to.
func (ch *Channel) SessionID() string { return ch.sessionID }

// SetHeader adds a handshake header (auth tokens and the like). Call
// before Connect.
func (ch *Channel) SetHeader(key, value string) { ch.ctrl.SetHeader(key, value) }

// OnContent registers the handler for chat and preview events. Call before
// Connect.
func (ch *Channel) OnContent(h dispatch.ContentHandler) { ch.ctrl.Dispatcher().OnContent(h) }

// OnStatus registers the handler for progress events. Call before Connect.
func (ch *Channel) OnStatus(h dispatch.StatusHandler) { ch.ctrl.Dispatcher().OnStatus(h) }

// OnConnect registers the hook fired on every successful open.
func (ch *Channel) OnConnect(fn func()) { ch.ctrl.OnConnect(fn) }

// OnStatusChange registers the connection-indicator hook.
func (ch *Channel) OnStatusChange(fn func(types.Status)) { ch.ctrl.OnStatusChange(fn) }

// OnError registers the fatal-condition hook; it fires once when the
// reconnect budget is exhausted.
func (ch *Channel) OnError(fn func(error)) { ch.ctrl.OnError(fn) }

// Connect starts connecting in the background.
func (ch *Channel) Connect() { ch.ctrl.Connect() }

// Disconnect tears the channel down without reconnecting. Idempotent.
func (ch *Channel) Disconnect() { ch.ctrl.Disconnect() }

// Status returns the current lifecycle state.
func (ch *Channel) Status() types.Status { return ch.ctrl.Status() }

// Stats returns a snapshot of the channel counters.
func (ch *Channel) Stats() types.ChannelStats { return ch.ctrl.Stats() }

// Send writes an arbitrary payload as one JSON text frame. Outside the
// connected state the payload is dropped and ErrNotConnected returned;
// callers must not assume delivery.
func (ch *Channel) Send(v any) error { return ch.ctrl.Send(v) }

// SendCommand wraps data in an envelope with a fresh request id and sends
// it. The id correlates the backend's start/complete events with this
// command.
func (ch *Channel) SendCommand(msgType string, data any) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("encode command data: %w", err)
	}
	requestID := uuid.NewString()
	env := types.Envelope{Type: msgType, Data: payload, RequestID: requestID}
	if err := ch.ctrl.Send(env); err != nil {
		return "", err
	}
	return requestID, nil
}
