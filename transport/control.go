// Package transport implements the two bidirectional channels a session
// rides on: ControlTransport (JSON control frames over WebSocket) and
// MediaTransport (PCM audio over a WebRTC SFU room, or multiplexed onto
// the same WebSocket connection in WS-media mode).
package transport

import "context"

// ControlTransport is a bidirectional, framed, ordered, reliable channel
// carrying JSON-encoded control messages.
type ControlTransport interface {
	// Connect dials url, authenticating with token. Auto-reconnect while
	// the owning component is alive is handled internally; Connect itself
	// only needs to succeed once for the initial handshake.
	Connect(ctx context.Context, url, token string) error
	// Send transmits a single raw frame. Ordering with respect to other
	// Send calls from the same goroutine is preserved.
	Send(ctx context.Context, frame []byte) error
	// Inbound returns the channel of raw frames received from the remote
	// side, closed when the transport is closed or permanently fails.
	Inbound() <-chan []byte
	// Close sends end_task(force=true) then closes with a short grace
	// period.
	Close(ctx context.Context) error
}
