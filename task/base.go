package task

import (
	"context"
	"errors"

	"github.com/brightwaveai/streamxlate/shared"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runnable is implemented by every long-running component supervised by a
// Runner: Reader, Writer, Sender, Receiver, Transcription, Monitor, Stat,
// the rt.Logger trace writer, and Realtime itself.
type Runnable interface {
	// Boot performs setup that must finish before the component is
	// considered ready (connecting a transport, opening a file). An error
	// here is fatal to the whole run.
	Boot(ctx context.Context) error
	// Do is the component's main loop. It returns when ctx is cancelled,
	// when its own Stopper is raised, or when it reaches a natural end
	// (e.g. a Reader hitting EOF).
	Do(ctx context.Context) error
	// Exit releases resources acquired in Boot. It is always called, even
	// if Boot or Do failed, and must tolerate partial initialization.
	Exit(ctx context.Context) error
}

// EventOwner is implemented by Runnables (typically Reader/Writer
// variants) that need their Ready/EOF/Stopper latches visible to their
// own methods — e.g. a Reader's Read() raises its own EOF the moment the
// source is exhausted, independent of when Do() next wakes up and notices.
// NewRunner uses the returned events instead of creating fresh ones when
// run implements this interface.
type EventOwner interface {
	Events() (ready, eof, stopper *Event)
}

// Runner drives a Runnable through boot -> ready -> do -> exit inside a
// sub-scope joined to the caller's errgroup, raising Ready once Boot
// succeeds and EOF once Do returns. Stopper lets an external supervisor request an early
// stop; Do implementations should select on Stopper.Done() alongside their
// own work and return promptly once it fires.
type Runner struct {
	Name    string
	Ready   *Event
	EOF     *Event
	Stopper *Event

	log shared.Logger
	run Runnable
}

// NewRunner wraps run with the Ready/EOF/Stopper latches every component
// needs, named for log correlation.
func NewRunner(name string, run Runnable, logger shared.Logger) *Runner {
	l := logger
	if l != nil {
		l = l.With(zap.String("task", name))
	}
	ready := NewEvent(name+".ready", l)
	eof := NewEvent(name+".eof", l)
	stopper := NewEvent(name+".stopper", l)
	if owner, ok := run.(EventOwner); ok {
		if r, e, s := owner.Events(); r != nil && e != nil && s != nil {
			ready, eof, stopper = r, e, s
		}
	}
	return &Runner{
		Name:    name,
		Ready:   ready,
		EOF:     eof,
		Stopper: stopper,
		log:     l,
		run:     run,
	}
}

// Spawn starts the runner's boot/do/exit lifecycle as a goroutine joined to
// g. The returned error (observed via g.Wait()) is the first non-nil error
// out of Boot, Do, and Exit.
func (r *Runner) Spawn(ctx context.Context, g *errgroup.Group) {
	g.Go(func() error {
		return r.runLifecycle(ctx)
	})
}

func (r *Runner) runLifecycle(ctx context.Context) error {
	if r.log != nil {
		r.log.Debug("booting")
	}
	bootErr := r.run.Boot(ctx)
	if bootErr != nil {
		if r.log != nil {
			r.log.Error("boot failed", bootErr)
		}
		r.EOF.Raise()
		if exitErr := r.run.Exit(ctx); exitErr != nil && r.log != nil {
			r.log.Warn("exit after failed boot also failed", zap.Error(exitErr))
		}
		var bootTyped *shared.BootError
		if errors.As(bootErr, &bootTyped) {
			return bootErr
		}
		return shared.NewBootError(bootErr)
	}
	r.Ready.Raise()
	if r.log != nil {
		r.log.Debug("ready")
	}

	doErr := r.run.Do(ctx)
	r.EOF.Raise()
	if r.log != nil {
		if doErr != nil {
			r.log.Error("do returned error", doErr)
		} else {
			r.log.Debug("do finished")
		}
	}

	exitErr := r.run.Exit(ctx)
	if exitErr != nil {
		if r.log != nil {
			r.log.Error("exit failed", exitErr)
		}
		if doErr == nil {
			doErr = exitErr
		}
	}
	return doErr
}

// Stop idempotently requests the runner to stop; safe to call multiple
// times or from multiple goroutines.
func (r *Runner) Stop() {
	r.Stopper.Raise()
}

// WaitReady blocks until the runner has finished booting or ctx is done.
func (r *Runner) WaitReady(ctx context.Context) error {
	return r.Ready.Wait(ctx)
}

// WaitEOF blocks until the runner's Do loop has returned or ctx is done.
func (r *Runner) WaitEOF(ctx context.Context) error {
	return r.EOF.Wait(ctx)
}
