package adapter

import (
	"fmt"
	"io"

	"github.com/brightwaveai/streamxlate/shared"
)

// SeekableWriter is the caller-supplied buffer a BufferWriter writes the
// final WAV bytes into: a seekable, writable sink such as *bytes.Buffer
// wrapped to support Seek, or an in-memory *os.File.
type SeekableWriter interface {
	io.Writer
	io.Seeker
}

// BufferWriter rewinds the caller-supplied buffer and writes the
// finalized WAV bytes into it.
type BufferWriter struct {
	*WriterCore
	Dst SeekableWriter
}

// NewBufferWriter builds a BufferWriter writing into dst.
func NewBufferWriter(dst SeekableWriter, queueCapacity int, dropEmptyFrames bool, logger shared.Logger) *BufferWriter {
	bw := &BufferWriter{Dst: dst}
	bw.WriterCore = NewWriterCore(queueCapacity, dropEmptyFrames, bw.commit, logger)
	return bw
}

func (bw *BufferWriter) commit(wav []byte) error {
	if _, err := bw.Dst.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding buffer sink: %w", err)
	}
	if _, err := bw.Dst.Write(wav); err != nil {
		return fmt.Errorf("writing wav to buffer sink: %w", err)
	}
	return nil
}

var _ Writer = (*BufferWriter)(nil)
