package adapter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/brightwaveai/streamxlate/shared"
)

// PipeReader spawns a subprocess (typically ffmpeg, decoding some
// container into raw PCM16 on stdout) and drains its stdout into an
// unbounded background buffer on a dedicated goroutine, since os/exec's
// stdout pipe has no cooperative-friendly read API. Read serves from this
// buffer; its drain goroutine is the only place in the module where a
// mutex guards state shared with a goroutine blocked in a pipe read.
type PipeReader struct {
	Command string
	Args    []string

	settings TrackSettings
	cmd      *exec.Cmd
	stdout   io.ReadCloser

	mu   sync.Mutex
	cond *sync.Cond
	buf  bytes.Buffer
	eof  bool
}

// NewPipeReader builds a reader that will spawn command with args at Boot.
func NewPipeReader(command string, args ...string) (*PipeReader, error) {
	if command == "" {
		return nil, shared.NewConfigurationError(fmt.Errorf("pipe reader requires a command"))
	}
	r := &PipeReader{Command: command, Args: args}
	r.cond = sync.NewCond(&r.mu)
	return r, nil
}

func (r *PipeReader) SetTrackSettings(settings TrackSettings) {
	r.settings = settings
}

func (r *PipeReader) Boot(ctx context.Context) error {
	r.cmd = exec.Command(r.Command, r.Args...)
	stdout, err := r.cmd.StdoutPipe()
	if err != nil {
		return shared.NewBootError(fmt.Errorf("opening pipe reader stdout: %w", err))
	}
	r.stdout = stdout
	if err := r.cmd.Start(); err != nil {
		return shared.NewBootError(fmt.Errorf("starting pipe reader subprocess: %w", err))
	}
	Registry().track(r.cmd)

	// Dedicated goroutine: drain reads stdout into the mutex-guarded buffer.
	go r.drain()
	return nil
}

func (r *PipeReader) drain() {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.stdout.Read(buf)
		if n > 0 {
			r.mu.Lock()
			r.buf.Write(buf[:n])
			r.cond.Signal()
			r.mu.Unlock()
		}
		if err != nil {
			r.mu.Lock()
			r.eof = true
			r.cond.Signal()
			r.mu.Unlock()
			return
		}
	}
}

func (r *PipeReader) Read(ctx context.Context, size int) ([]byte, bool, error) {
	done := make(chan struct{})
	var out []byte
	var ok bool
	// cancelled is only ever touched with r.mu held: the waiting goroutine
	// re-checks it each time it wakes, so a cancelled call exits without
	// consuming bytes a later Read is entitled to.
	cancelled := false
	go func() {
		defer close(done)
		r.mu.Lock()
		defer r.mu.Unlock()
		for r.buf.Len() == 0 && !r.eof && !cancelled {
			r.cond.Wait()
		}
		if cancelled || (r.buf.Len() == 0 && r.eof) {
			return
		}
		chunk := make([]byte, size)
		n, _ := r.buf.Read(chunk)
		out = chunk[:n]
		ok = true
	}()
	select {
	case <-ctx.Done():
		r.mu.Lock()
		cancelled = true
		r.cond.Broadcast()
		r.mu.Unlock()
		return nil, false, ctx.Err()
	case <-done:
		return out, ok, nil
	}
}

func (r *PipeReader) Close(ctx context.Context) error {
	if r.cmd == nil || r.cmd.Process == nil {
		return nil
	}
	Registry().untrack(r.cmd)
	if err := r.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("killing pipe reader subprocess: %w", err)
	}
	done := make(chan error, 1)
	go func() { done <- r.cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
	case <-ctx.Done():
	}
	return nil
}
