package transport

import (
	"context"

	"github.com/brightwaveai/streamxlate/audio"
)

// MediaTransport publishes a local PCM audio track and consumes a remote
// PCM audio track for the target language.
// Implementations: SFUMediaTransport (WebRTC room), WSMediaTransport
// (audio multiplexed onto the control WebSocket).
type MediaTransport interface {
	// PublishFrame sends frame outbound. Backpressure-aware: blocks no
	// longer than one chunk duration.
	PublishFrame(ctx context.Context, frame audio.Frame) error
	// Inbound returns the channel of translated PCM frames received from
	// the remote side, closed when the transport is closed.
	Inbound() <-chan audio.Frame
	// Close unpublishes the local track (if any) and releases resources.
	Close(ctx context.Context) error
}
