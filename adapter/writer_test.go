package adapter

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/brightwaveai/streamxlate/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seekableBuffer adapts bytes.Buffer to SeekableWriter for tests; it
// ignores Seek since bytes.Buffer has no concept of position, matching how
// a reset-then-write in-memory sink behaves for a single finalize call.
type seekableBuffer struct {
	bytes.Buffer
}

func (s *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	return 0, nil
}

func TestFileWriter_DrainsQueueAndFinalizesWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	fw := NewFileWriter(path, 8, false, nil)
	require.NoError(t, fw.Boot(context.Background()))

	fw.PutFrame(audio.NewFrameFromBytes([]byte{1, 0, 2, 0}, 24000, 1))
	fw.PutFrame(audio.NewFrameFromBytes([]byte{3, 0, 4, 0}, 24000, 1))
	fw.PutEOS()

	require.NoError(t, fw.Do(context.Background()))
	assert.Equal(t, 8, fw.PCMLen())

	require.NoError(t, fw.Exit(context.Background()))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("RIFF"), out[:4])
	assert.Equal(t, []byte("WAVE"), out[8:12])
	assert.Len(t, out, 44+8)
}

func TestFileWriter_FinalizeErrorIsLoggedNotReturned(t *testing.T) {
	// A directory path can't be written to as a file; commit fails, but
	// Exit must still return nil (finalize errors never
	// propagate to cancel peers).
	dir := t.TempDir()
	fw := NewFileWriter(dir, 4, false, nil)
	fw.PutEOS()
	require.NoError(t, fw.Do(context.Background()))
	assert.NoError(t, fw.Exit(context.Background()))
}

func TestWriterCore_DropsEmptyFramesWhenConfigured(t *testing.T) {
	dst := &seekableBuffer{}
	bw := NewBufferWriter(dst, 4, true, nil)

	bw.PutFrame(audio.NewFrameFromBytes([]byte{0, 0, 0, 0}, 24000, 1)) // silent, dropped
	bw.PutFrame(audio.NewFrameFromBytes([]byte{5, 0}, 24000, 1))
	bw.PutEOS()

	require.NoError(t, bw.Do(context.Background()))
	assert.Equal(t, 2, bw.PCMLen())
}

func TestBufferWriter_CommitsWAVIntoDst(t *testing.T) {
	dst := &seekableBuffer{}
	bw := NewBufferWriter(dst, 4, false, nil)

	bw.PutFrame(audio.NewFrameFromBytes([]byte{1, 2, 3, 4}, 48000, 1))
	bw.PutEOS()
	require.NoError(t, bw.Do(context.Background()))
	require.NoError(t, bw.Exit(context.Background()))

	assert.Equal(t, []byte("RIFF"), dst.Bytes()[:4])
}
