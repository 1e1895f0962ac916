// Package task provides the supervision primitives shared by every
// long-running component in this module: a one-shot latch (Event), a
// fan-out message bus (FanoutBus), a bounded dedup set (CappedSet), and a
// base Runner that drives the boot/do/exit lifecycle inside a joined
// sub-scope.
package task

import (
	"context"
	"sync"

	"github.com/brightwaveai/streamxlate/shared"
	"go.uber.org/zap"
)

// Event is a one-shot, idempotent latch: Raise sets it permanently, Lower
// clears it (used only by tests and by components that reuse an Event
// across restarts), IsRaised reports its current state, and Wait blocks
// until it is raised or the context is cancelled.
type Event struct {
	mu    sync.Mutex
	ch    chan struct{}
	raw   bool
	owner string
	log   shared.Logger
}

// NewEvent creates an unset latch owned by the given name, used only in
// debug logging.
func NewEvent(owner string, logger shared.Logger) *Event {
	return &Event{
		ch:    make(chan struct{}),
		owner: owner,
		log:   logger,
	}
}

// Raise sets the latch. Raising an already-raised latch is a no-op.
func (e *Event) Raise() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.raw {
		return
	}
	e.raw = true
	close(e.ch)
	if e.log != nil {
		e.log.Debug("latch raised", zap.String("owner", e.owner))
	}
}

// Lower clears the latch so it can be raised again. Production code paths
// only ever raise latches (per the one-shot contract); Lower exists for
// components that need to reset state between test runs.
func (e *Event) Lower() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.raw {
		return
	}
	e.raw = false
	e.ch = make(chan struct{})
	if e.log != nil {
		e.log.Debug("latch lowered", zap.String("owner", e.owner))
	}
}

// IsRaised reports whether the latch is currently set.
func (e *Event) IsRaised() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.raw
}

// Wait blocks until the latch is raised or ctx is done, returning ctx.Err()
// in the latter case.
func (e *Event) Wait(ctx context.Context) error {
	e.mu.Lock()
	ch := e.ch
	e.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns the underlying channel, closed when the latch is raised,
// for use directly in a select statement.
func (e *Event) Done() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ch
}
