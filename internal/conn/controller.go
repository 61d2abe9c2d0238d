// Package conn owns the physical realtime connection: its lifecycle state
// machine, the heartbeat, and the reconnect scheduler.
//
// One Controller owns at most one open WebSocket at a time. Every state
// transition happens under the controller's mutex and is validated against
// the transition table in pkg/types; the read loop, the heartbeat loop, and
// the reconnect timer are all torn down before a replacement socket is
// dialed, so sockets never overlap.
package conn

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.uber.org/atomic"

	"github.com/appdock/chatwire/internal/dispatch"
	"github.com/appdock/chatwire/internal/wserr"
	"github.com/appdock/chatwire/pkg/types"
)

// Controller drives one channel's connection lifecycle.
type Controller struct {
	url  string
	cfg  *types.Config
	log  zerolog.Logger
	disp *dispatch.Dispatcher

	mu             sync.Mutex
	conn           *websocket.Conn
	done           chan struct{} // per-connection; closed exactly once on teardown
	reconnectTimer *time.Timer
	attempts       int
	dialing        bool // a handshake is in flight; blocks overlapping dials
	headers        http.Header

	writeMu sync.Mutex // serializes frame writes (sends and probes)

	status          atomic.Int32
	shouldReconnect atomic.Bool
	lastAck         atomic.Time

	received      atomic.Int64
	sent          atomic.Int64
	dropped       atomic.Int64
	parseFailures atomic.Int64
	reconnects    atomic.Int64

	// Session hooks. Registered before Connect, invoked outside the mutex.
	onConnect      func()
	onStatusChange func(types.Status)
	onError        func(error)
}

// NewController builds an idle controller for the given endpoint. The
// dispatcher receives every inbound frame in wire order.
func NewController(url string, cfg *types.Config, log zerolog.Logger) *Controller {
	c := &Controller{
		url:     url,
		cfg:     cfg.Normalize(),
		log:     log,
		headers: make(http.Header),
	}
	c.status.Store(int32(types.StatusIdle))
	c.shouldReconnect.Store(true)
	c.disp = dispatch.New(log, func() { c.lastAck.Store(time.Now()) })
	c.disp.OnParseFailure(func() { c.parseFailures.Inc() })
	return c
}

// Dispatcher exposes handler registration for the owning session.
func (c *Controller) Dispatcher() *dispatch.Dispatcher { return c.disp }

// OnConnect registers the connected hook.
func (c *Controller) OnConnect(fn func()) { c.onConnect = fn }

// OnStatusChange registers the status indicator hook.
func (c *Controller) OnStatusChange(fn func(types.Status)) { c.onStatusChange = fn }

// OnError registers the fatal-condition hook (reconnect exhaustion).
func (c *Controller) OnError(fn func(error)) { c.onError = fn }

// SetHeader adds a header sent with the connection handshake.
func (c *Controller) SetHeader(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Set(key, value)
}

// Status returns the current lifecycle state.
func (c *Controller) Status() types.Status {
	return types.Status(c.status.Load())
}

// Stats returns a snapshot of the channel counters.
func (c *Controller) Stats() types.ChannelStats {
	return types.ChannelStats{
		Received:      c.received.Load(),
		Sent:          c.sent.Load(),
		Dropped:       c.dropped.Load(),
		ParseFailures: c.parseFailures.Load(),
		Reconnects:    c.reconnects.Load(),
	}
}

// Connect starts a connection attempt. It returns immediately; the outcome
// is observed via the hooks. Calling it while connected, or while an
// intentional teardown is in progress, is a no-op. On a disconnected
// channel it starts over with a fresh attempt budget.
func (c *Controller) Connect() {
	if !c.shouldReconnect.Load() {
		c.log.Debug().Msg("connect ignored, teardown in progress")
		return
	}

	c.mu.Lock()
	if c.dialing {
		c.mu.Unlock()
		return
	}
	switch c.Status() {
	case types.StatusConnected, types.StatusConnecting:
		c.mu.Unlock()
		return
	case types.StatusDisconnected:
		// Manual retry after exhaustion resets the budget.
		c.attempts = 0
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	next := types.StatusConnecting
	if c.attempts > 0 {
		next = types.StatusReconnecting
	}
	changed := c.transitionLocked(next)
	c.dialing = true
	header := cloneHeader(c.headers)
	c.mu.Unlock()

	if changed {
		c.emitStatus(next)
	}
	go c.dial(header)
}

func (c *Controller) dial(header http.Header) {
	dialer := &websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}
	ws, _, err := dialer.Dial(c.url, header)
	if err != nil {
		c.mu.Lock()
		c.dialing = false
		c.mu.Unlock()
		c.log.Error().Err(err).Str("url", c.url).Msg("dial failed")
		c.connectionLost()
		return
	}

	c.mu.Lock()
	c.dialing = false
	if !c.shouldReconnect.Load() {
		// Torn down while the handshake was in flight.
		c.mu.Unlock()
		ws.Close()
		return
	}
	c.conn = ws
	c.attempts = 0
	c.lastAck.Store(time.Now())
	done := make(chan struct{})
	c.done = done
	changed := c.transitionLocked(types.StatusConnected)
	c.mu.Unlock()

	c.log.Info().Str("url", c.url).Msg("channel connected")
	if changed {
		c.emitStatus(types.StatusConnected)
	}
	if c.onConnect != nil {
		c.onConnect()
	}

	go c.readLoop(ws)
	go c.heartbeatLoop(ws, done)
}

// readLoop pumps inbound frames into the dispatcher until the socket dies.
// Dispatch is single-threaded: one frame is processed to completion before
// the next is read.
func (c *Controller) readLoop(ws *websocket.Conn) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			c.teardown(ws, err)
			return
		}
		c.received.Inc()
		c.disp.Dispatch(raw)
	}
}

// teardown runs once per connection, from the read loop, after the socket
// has failed or closed. It decides between the intentional-close and
// reconnect paths.
func (c *Controller) teardown(ws *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != ws {
		// Already torn down by Disconnect, or superseded.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	closeDoneLocked(c.done)
	c.done = nil
	c.mu.Unlock()
	ws.Close()

	intentional := !c.shouldReconnect.Load() ||
		websocket.IsCloseError(cause, websocket.CloseNormalClosure)
	if intentional {
		c.log.Info().Msg("channel closed")
		c.settle(types.StatusDisconnected)
		return
	}

	c.log.Warn().Err(cause).Msg("channel lost")
	c.connectionLost()
}

// connectionLost counts one consecutive loss and either schedules a retry
// or settles into the terminal disconnected state.
func (c *Controller) connectionLost() {
	c.mu.Lock()
	if !c.shouldReconnect.Load() {
		c.mu.Unlock()
		c.settle(types.StatusDisconnected)
		return
	}
	c.attempts++
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.mu.Unlock()
		c.log.Error().Int("attempts", c.attempts).Msg("reconnect attempts exhausted")
		c.settle(types.StatusDisconnected)
		if c.onError != nil {
			c.onError(wserr.ErrMaxReconnect)
		}
		return
	}

	delay := backoffDelay(c.cfg.ReconnectBaseDelay, c.cfg.ReconnectMaxDelay, c.attempts)
	c.reconnects.Inc()
	changed := c.transitionLocked(types.StatusReconnecting)
	c.reconnectTimer = time.AfterFunc(delay, c.Connect)
	attempt := c.attempts
	c.mu.Unlock()

	c.log.Info().
		Int("attempt", attempt).
		Int("max", c.cfg.MaxReconnectAttempts).
		Dur("delay", delay).
		Msg("reconnect scheduled")
	if changed {
		c.emitStatus(types.StatusReconnecting)
	}
}

// Send serializes the payload and writes it as one text frame. Outside the
// connected state the payload is dropped with a warning; nothing is queued.
func (c *Controller) Send(v any) error {
	if c.Status() != types.StatusConnected {
		c.dropped.Inc()
		c.log.Warn().Str("status", c.Status().String()).Msg("send dropped, channel not connected")
		return wserr.ErrNotConnected
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", wserr.ErrInvalidEnvelope, err)
	}

	c.mu.Lock()
	ws := c.conn
	c.mu.Unlock()
	if ws == nil {
		c.dropped.Inc()
		return wserr.ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	c.sent.Inc()
	return nil
}

// Disconnect tears the channel down for good: no reconnect is scheduled,
// pending timers are cancelled, and the socket is closed with a normal
// close code so the backend knows the closure is deliberate. Idempotent.
func (c *Controller) Disconnect() {
	c.shouldReconnect.Store(false)

	c.mu.Lock()
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	ws := c.conn
	c.conn = nil
	closeDoneLocked(c.done)
	c.done = nil
	changed := c.transitionLocked(types.StatusDisconnected)
	c.mu.Unlock()

	if ws != nil {
		deadline := time.Now().Add(c.cfg.WriteTimeout)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session teardown")
		c.writeMu.Lock()
		ws.WriteControl(websocket.CloseMessage, msg, deadline)
		c.writeMu.Unlock()
		ws.Close()
	}
	if changed {
		c.log.Info().Msg("channel disconnected")
		c.emitStatus(types.StatusDisconnected)
	}
}

// settle moves to a state and emits the indicator hook, outside the mutex.
func (c *Controller) settle(to types.Status) {
	c.mu.Lock()
	changed := c.transitionLocked(to)
	c.mu.Unlock()
	if changed {
		c.emitStatus(to)
	}
}

// transitionLocked applies a state change if the table allows it. Must be
// called with mu held. Returns whether the state changed.
func (c *Controller) transitionLocked(to types.Status) bool {
	from := c.Status()
	if from == to {
		return false
	}
	if !types.CanTransition(from, to) {
		c.log.Error().
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("illegal state transition blocked")
		return false
	}
	c.status.Store(int32(to))
	return true
}

func (c *Controller) emitStatus(s types.Status) {
	if c.onStatusChange != nil {
		c.onStatusChange(s)
	}
}

func closeDoneLocked(done chan struct{}) {
	if done == nil {
		return
	}
	select {
	case <-done:
	default:
		close(done)
	}
}

func cloneHeader(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		for _, v := range vs {
			out.Add(k, v)
		}
	}
	return out
}
