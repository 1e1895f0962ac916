package transport

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/brightwaveai/streamxlate/audio"
	"github.com/brightwaveai/streamxlate/message"
)

// WSMediaTransport carries audio frames as input_audio_data /
// output_audio_data control messages on the same WebSocket connection
// used for control traffic. It wraps the ControlTransport that Realtime
// already owns rather than opening a second connection.
type WSMediaTransport struct {
	control    ControlTransport
	sampleRate int
	channels   int

	inbound chan audio.Frame
}

var _ MediaTransport = (*WSMediaTransport)(nil)

// NewWSMediaTransport wraps control, decoding/encoding PCM16 frames of the
// given sample rate and channel count as base64 payloads. Inbound frames
// arrive only through DeliverAudio, which Realtime's message router calls
// with each output_audio_data payload it decodes off the shared control
// stream.
func NewWSMediaTransport(control ControlTransport, sampleRate, channels int) *WSMediaTransport {
	return &WSMediaTransport{
		control:    control,
		sampleRate: sampleRate,
		channels:   channels,
		inbound:    make(chan audio.Frame, 32),
	}
}

func (t *WSMediaTransport) PublishFrame(ctx context.Context, frame audio.Frame) error {
	payload := message.AudioData{Data: base64.StdEncoding.EncodeToString(frame.Bytes())}
	env, err := message.Encode(message.TypeInputAudioData, payload)
	if err != nil {
		return err
	}
	return t.control.Send(ctx, env)
}

// DeliverAudio decodes an output_audio_data payload received by
// Realtime's control-message router and makes it available on Inbound().
// Only ever called from the single task that owns the control-transport
// read side.
func (t *WSMediaTransport) DeliverAudio(ctx context.Context, audioMsg *message.AudioData) error {
	if audioMsg == nil {
		return nil
	}
	raw, err := base64.StdEncoding.DecodeString(audioMsg.Data)
	if err != nil {
		return err
	}
	frame := audio.NewFrameFromBytes(raw, t.sampleRate, t.channels)
	select {
	case t.inbound <- frame:
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Second):
		// backpressure-aware, bounded: drop rather than block the shared
		// control-reader task indefinitely.
	}
	return nil
}

func (t *WSMediaTransport) Inbound() <-chan audio.Frame {
	return t.inbound
}

// Close is a no-op beyond closing Inbound: the underlying ControlTransport
// is owned and closed by Realtime, not by this adapter.
func (t *WSMediaTransport) Close(ctx context.Context) error {
	close(t.inbound)
	return nil
}
