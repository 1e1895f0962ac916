package adapter

import (
	"context"
	"fmt"
	"os"

	"github.com/brightwaveai/streamxlate/audio"
	"github.com/brightwaveai/streamxlate/shared"
)

// FileReader decodes an entire file to PCM16 at Boot and serves Read
// calls by slicing the in-memory result; no streaming decode.
type FileReader struct {
	Path    string
	Decoder audio.Decoder

	settings TrackSettings
	pcm      []byte
	pos      int
}

// NewFileReader validates that path exists (a missing file is fatal at
// construction) and returns a reader that will decode it at Boot using
// decoder (audio.PassthroughDecoder{} if the file is already raw PCM16).
func NewFileReader(path string, decoder audio.Decoder) (*FileReader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, shared.NewConfigurationError(fmt.Errorf("%w: %s", shared.ErrFileNotFound, path))
	}
	if decoder == nil {
		decoder = audio.PassthroughDecoder{}
	}
	return &FileReader{Path: path, Decoder: decoder}, nil
}

func (r *FileReader) SetTrackSettings(settings TrackSettings) {
	r.settings = settings
}

func (r *FileReader) Boot(ctx context.Context) error {
	raw, err := os.ReadFile(r.Path)
	if err != nil {
		return shared.NewBootError(fmt.Errorf("reading %s: %w", r.Path, err))
	}
	pcm, err := r.Decoder.DecodeToPCM16(raw, r.settings.SampleRate)
	if err != nil {
		return shared.NewBootError(fmt.Errorf("decoding %s to PCM16: %w", r.Path, err))
	}
	r.pcm = pcm
	return nil
}

func (r *FileReader) Read(ctx context.Context, size int) ([]byte, bool, error) {
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

func (r *FileReader) Close(ctx context.Context) error {
	return nil
}
