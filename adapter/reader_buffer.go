package adapter

import (
	"context"
	"fmt"
	"io"

	"github.com/brightwaveai/streamxlate/shared"
)

// SeekableReader is the caller-supplied buffer a BufferReader reads from:
// a seekable byte source such as *bytes.Reader or an in-memory *os.File.
type SeekableReader interface {
	io.Reader
	io.Seeker
}

// BufferReader reads PCM16 bytes from a caller-supplied seekable buffer,
// advancing its position on each Read.
type BufferReader struct {
	Src     SeekableReader
	Decoder interface {
		DecodeToPCM16(payload []byte, sampleRate int) ([]byte, error)
	}

	settings TrackSettings
	pcm      []byte
	pos      int
}

// NewBufferReader wraps src, decoding its full contents to PCM16 at Boot
// via decoder (a PassthroughDecoder if src already holds raw PCM16).
func NewBufferReader(src SeekableReader, decoder interface {
	DecodeToPCM16(payload []byte, sampleRate int) ([]byte, error)
}) (*BufferReader, error) {
	if src == nil {
		return nil, shared.NewConfigurationError(fmt.Errorf("buffer reader requires a non-nil source"))
	}
	return &BufferReader{Src: src, Decoder: decoder}, nil
}

func (r *BufferReader) SetTrackSettings(settings TrackSettings) {
	r.settings = settings
}

func (r *BufferReader) Boot(ctx context.Context) error {
	if _, err := r.Src.Seek(0, io.SeekStart); err != nil {
		return shared.NewBootError(fmt.Errorf("rewinding buffer source: %w", err))
	}
	raw, err := io.ReadAll(r.Src)
	if err != nil {
		return shared.NewBootError(fmt.Errorf("reading buffer source: %w", err))
	}
	pcm, err := r.Decoder.DecodeToPCM16(raw, r.settings.SampleRate)
	if err != nil {
		return shared.NewBootError(fmt.Errorf("decoding buffer to PCM16: %w", err))
	}
	r.pcm = pcm
	return nil
}

func (r *BufferReader) Read(ctx context.Context, size int) ([]byte, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}
	if r.pos >= len(r.pcm) {
		return nil, false, nil
	}
	end := r.pos + size
	if end > len(r.pcm) {
		end = len(r.pcm)
	}
	chunk := r.pcm[r.pos:end]
	r.pos = end
	return chunk, true, nil
}

func (r *BufferReader) Close(ctx context.Context) error {
	return nil
}
