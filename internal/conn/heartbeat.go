package conn

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/appdock/chatwire/pkg/types"
)

// heartbeatLoop probes the backend once per interval and watches for a
// silently dead link (the backend hanging without a close frame ever
// arriving).
//
// The staleness check runs before the probe is written. The ordering
// matters: a probe sent this tick cannot have been acknowledged yet, so
// checking after sending would measure an ack that is not yet due and
// produce false timeouts. The allowed window is one full interval plus the
// ack grace, since the previous probe went out a whole interval ago.
func (c *Controller) heartbeatLoop(ws *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(c.cfg.HeartbeatInterval)
	defer ticker.Stop()

	deadline := c.cfg.HeartbeatInterval + c.cfg.PongTimeout
	for {
		select {
		case <-ticker.C:
			elapsed := time.Since(c.lastAck.Load())
			if elapsed > deadline {
				c.log.Warn().
					Dur("elapsed", elapsed).
					Dur("deadline", deadline).
					Msg("liveness timeout, closing channel")
				// The read loop surfaces the closure and drives the
				// reconnect path.
				ws.Close()
				return
			}

			c.writeMu.Lock()
			ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
			err := ws.WriteMessage(websocket.TextMessage, []byte(types.LivenessProbe))
			c.writeMu.Unlock()
			if err != nil {
				// Leave the failure to the read loop; the next tick's
				// staleness check catches a link that stays dead.
				c.log.Warn().Err(err).Msg("liveness probe write failed")
			}
		case <-done:
			return
		}
	}
}
