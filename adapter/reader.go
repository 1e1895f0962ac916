// Package adapter holds the Reader and Writer variants sessions are fed
// from and drained into (file, in-memory buffer, subprocess pipe), plus
// the process-wide registry the pipe Reader needs for subprocess cleanup
// on shutdown and signal.
package adapter

import "context"

// TrackSettings informs a Reader or Writer of the session's sample rate
// and channel count before Boot.
type TrackSettings struct {
	SampleRate  int
	NumChannels int
}

// Reader produces PCM16 bytes of the session's sample rate and channel
// count on demand. Implementations: FileReader, BufferReader, PipeReader.
type Reader interface {
	// SetTrackSettings informs the Reader of the target sample rate and
	// channel count. Called before Boot.
	SetTrackSettings(settings TrackSettings)
	// Boot loads/opens the source and converts it to PCM16.
	Boot(ctx context.Context) error
	// Read returns up to size bytes, or (nil, false) on EOF. Must not
	// block indefinitely; ctx cancellation unwinds it promptly.
	Read(ctx context.Context, size int) ([]byte, bool, error)
	// Close releases resources acquired in Boot. Idempotent.
	Close(ctx context.Context) error
}
