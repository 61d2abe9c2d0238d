// Package wserr defines the sentinel errors surfaced by the channel.
package wserr

import "errors"

var (
	// ErrChannelClosed is returned by operations on a torn-down channel.
	ErrChannelClosed = errors.New("channel closed")

	// ErrNotConnected is returned when a send is attempted outside the
	// connected state. The payload is dropped, never queued.
	ErrNotConnected = errors.New("channel not connected")

	// ErrMaxReconnect is reported once, via the error callback, when the
	// consecutive-loss cap is reached. The channel settles in the
	// disconnected state; a fresh Connect call starts over.
	ErrMaxReconnect = errors.New("max reconnect attempts reached")

	// ErrInvalidEnvelope is returned when an outbound payload cannot be
	// serialized.
	ErrInvalidEnvelope = errors.New("invalid envelope")
)
