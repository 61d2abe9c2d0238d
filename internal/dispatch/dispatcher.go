// Package dispatch routes inbound channel frames to the session's handlers.
//
// A frame is either the liveness acknowledgment sentinel or a JSON envelope.
// The sentinel is matched byte-for-byte before any parsing is attempted.
// Envelopes split into two handler families: content events (chat messages,
// preview results) and status events (session/tool progress, keyed by
// requestId where present). Unrecognized envelope types are ignored so newer
// backends can ship event types this client does not know yet.
package dispatch

import (
	"bytes"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/appdock/chatwire/pkg/types"
)

// ContentHandler receives chat and preview envelopes.
type ContentHandler func(env types.Envelope)

// StatusHandler receives progress events with their payload and correlation id.
type StatusHandler func(event string, data json.RawMessage, requestID string)

var livenessAck = []byte(types.LivenessAck)

// Dispatcher routes raw frames for one channel. Handlers are registered
// before the channel connects and are invoked one frame at a time, in wire
// order, from the channel's read loop.
type Dispatcher struct {
	log     zerolog.Logger
	ack     func()
	content ContentHandler
	status  StatusHandler

	parseFailures func()
}

// New builds a dispatcher. ack is called for every liveness acknowledgment.
func New(log zerolog.Logger, ack func()) *Dispatcher {
	return &Dispatcher{log: log, ack: ack}
}

// OnContent registers the content handler.
func (d *Dispatcher) OnContent(h ContentHandler) { d.content = h }

// OnStatus registers the status handler.
func (d *Dispatcher) OnStatus(h StatusHandler) { d.status = h }

// OnParseFailure registers a hook bumped for every dropped frame.
func (d *Dispatcher) OnParseFailure(fn func()) { d.parseFailures = fn }

// Dispatch consumes one raw inbound frame.
func (d *Dispatcher) Dispatch(raw []byte) {
	if bytes.Equal(raw, livenessAck) {
		if d.ack != nil {
			d.ack()
		}
		return
	}

	var env types.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// Local failure only: drop the frame, leave the connection alone.
		d.log.Warn().Err(err).Int("bytes", len(raw)).Msg("dropping unparseable frame")
		if d.parseFailures != nil {
			d.parseFailures()
		}
		return
	}

	switch env.Type {
	case "message", "preview_error", "preview_success":
		d.emitContent(env)
	case "project_status", "status":
		d.emitStatus("project_status", statusPayload(env), env.RequestID)
	case "act_start", "chat_start", "act_complete", "chat_complete":
		d.emitStatus(env.Type, env.Data, env.RequestID)
	default:
		d.log.Debug().Str("type", env.Type).Msg("ignoring unrecognized frame type")
	}
}

// statusPayload normalizes the two shapes the backend uses for status
// frames: either a data object, or bare top-level status/message fields.
func statusPayload(env types.Envelope) json.RawMessage {
	if len(env.Data) > 0 {
		return env.Data
	}
	raw, err := json.Marshal(struct {
		Status  string `json:"status"`
		Message string `json:"message,omitempty"`
	}{env.Status, env.Message})
	if err != nil {
		return nil
	}
	return raw
}

func (d *Dispatcher) emitContent(env types.Envelope) {
	if d.content == nil {
		return
	}
	d.content(env)
}

func (d *Dispatcher) emitStatus(event string, data json.RawMessage, requestID string) {
	if d.status == nil {
		return
	}
	d.status(event, data, requestID)
}
