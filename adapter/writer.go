package adapter

import (
	"context"

	"github.com/brightwaveai/streamxlate/audio"
)

// Writer accumulates translated PCM16 frames and, on end-of-stream,
// produces a complete WAV artifact at its sink.
// PutFrame/PutEOS are the non-blocking enqueue side Receiver calls;
// Boot/Do/Exit are the task.Runnable lifecycle driving the background
// consumer loop and the one-time finalize. Implementations: FileWriter,
// BufferWriter.
type Writer interface {
	// SetTrackSettings informs the Writer of the target sample rate and
	// channel count, used as a finalize-time fallback if no frame ever
	// arrived. Called before Boot.
	SetTrackSettings(settings TrackSettings)
	// PutFrame enqueues a translated frame (put_nowait semantics: a full
	// queue drops the frame and logs, never blocks the caller).
	PutFrame(frame audio.Frame)
	// PutEOS enqueues the end-of-stream sentinel.
	PutEOS()
	// Boot performs any setup needed before frames start arriving.
	Boot(ctx context.Context) error
	// Do drains the input queue into the PCM accumulator until EOS or
	// cancellation.
	Do(ctx context.Context) error
	// Exit finalizes the WAV artifact and commits it to the sink. Called
	// exactly once, at shutdown; errors are logged, never returned.
	Exit(ctx context.Context) error
}
