package adapter

import (
	"fmt"
	"os"

	"github.com/brightwaveai/streamxlate/shared"
)

// FileWriter commits the finalized WAV bytes to a file on disk,
// optionally deleting the partial file if commit fails.
type FileWriter struct {
	*WriterCore
	Path            string
	DeleteOnError   bool
}

// NewFileWriter builds a FileWriter writing to path, with a queue capacity
// of queueCapacity translated frames and dropEmptyFrames controlling
// whether all-zero frames are discarded.
func NewFileWriter(path string, queueCapacity int, dropEmptyFrames bool, logger shared.Logger) *FileWriter {
	fw := &FileWriter{Path: path, DeleteOnError: true}
	fw.WriterCore = NewWriterCore(queueCapacity, dropEmptyFrames, fw.commit, logger)
	return fw
}

func (fw *FileWriter) commit(wav []byte) error {
	if err := os.WriteFile(fw.Path, wav, 0o644); err != nil {
		if fw.DeleteOnError {
			_ = os.Remove(fw.Path)
		}
		return fmt.Errorf("writing wav to %s: %w", fw.Path, err)
	}
	return nil
}

var _ Writer = (*FileWriter)(nil)
