package rt

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/brightwaveai/streamxlate/shared"
	"github.com/brightwaveai/streamxlate/task"
)

// TaskSnapshot is the immutable latch-state snapshot Manager publishes
// for Stat to consume. Stat never holds a live pointer back into Manager;
// it only ever sees these plain values, one per supervised task.
type TaskSnapshot struct {
	Name    string
	Ready   bool
	EOF     bool
	Stopper bool
}

// TaskIntrospector is implemented by Manager: the one-way interface Stat
// consumes to render its periodic diagnostic dump.
type TaskIntrospector interface {
	Snapshot() []TaskSnapshot
}

// Stat periodically logs a snapshot of every supervised task's latch
// states plus the runtime's goroutine count, making a hung task visible
// in the debug log instead of silently stalling the session.
type Stat struct {
	Introspector TaskIntrospector
	Interval     time.Duration

	log     shared.Logger
	stopper *task.Event
}

// NewStat builds a Stat that logs a snapshot every interval.
func NewStat(introspector TaskIntrospector, interval time.Duration, logger shared.Logger) *Stat {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Stat{Introspector: introspector, Interval: interval, log: logger}
}

// SetStopper lets Manager share its Runner's stopper latch.
func (s *Stat) SetStopper(stopper *task.Event) {
	s.stopper = stopper
}

func (s *Stat) Boot(ctx context.Context) error {
	return nil
}

func (s *Stat) Do(ctx context.Context) error {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.logSnapshot()
		case <-s.stopper.Done():
			s.logSnapshot()
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Stat) logSnapshot() {
	if s.log == nil || s.Introspector == nil {
		return
	}
	for _, snap := range s.Introspector.Snapshot() {
		s.log.Debug("task stat",
			zap.String("task", snap.Name),
			zap.Bool("ready", snap.Ready),
			zap.Bool("eof", snap.EOF),
			zap.Bool("stopper", snap.Stopper),
		)
	}
	s.log.Debug("runtime stat", zap.Int("goroutines", runtime.NumGoroutine()))
}

func (s *Stat) Exit(ctx context.Context) error {
	return nil
}

var _ task.Runnable = (*Stat)(nil)
