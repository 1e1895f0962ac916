package adapter

import (
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/brightwaveai/streamxlate/shared"
)

// ProcessRegistry is a process-wide singleton tracking subprocesses
// spawned by PipeReader instances, so they can be drained (terminated) on
// SIGINT/SIGTERM/SIGHUP or normal process exit. Signal handlers are
// installed exactly once; Init describes how they coexist with others.
type ProcessRegistry struct {
	mu    sync.Mutex
	procs map[*exec.Cmd]struct{}
	log   shared.Logger

	signalOnce sync.Once
}

var globalRegistry = &ProcessRegistry{procs: make(map[*exec.Cmd]struct{})}

// Registry returns the process-wide ProcessRegistry singleton.
func Registry() *ProcessRegistry {
	return globalRegistry
}

// Init installs OS signal handlers exactly once. os/signal delivers each
// signal to every channel registered with Notify, so other listeners in
// the process still receive it. The installed handler drains the
// registry, stops its own notification and re-delivers the signal, so the
// default disposition (terminate) applies once no other channel is
// registered for it.
func (r *ProcessRegistry) Init(logger shared.Logger) {
	r.signalOnce.Do(func() {
		r.log = logger
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
		go func() {
			sig := <-ch
			if r.log != nil {
				r.log.Warn("signal received, draining subprocess registry")
			}
			r.DrainOnSignal()
			signal.Stop(ch)
			p, err := os.FindProcess(os.Getpid())
			if err == nil {
				_ = p.Signal(sig)
			}
		}()
	})
}

func (r *ProcessRegistry) track(cmd *exec.Cmd) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs[cmd] = struct{}{}
}

func (r *ProcessRegistry) untrack(cmd *exec.Cmd) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.procs, cmd)
}

// DrainOnSignal terminates every tracked subprocess; called from the
// installed signal handler.
func (r *ProcessRegistry) DrainOnSignal() {
	r.drainAll()
}

// DrainOnExit terminates every tracked subprocess. Go has no atexit hook,
// so it runs only where a caller invokes it: cmd/streamxlate defers it;
// Client.Run does not call it.
func (r *ProcessRegistry) DrainOnExit() {
	r.drainAll()
}

func (r *ProcessRegistry) drainAll() {
	r.mu.Lock()
	cmds := make([]*exec.Cmd, 0, len(r.procs))
	for cmd := range r.procs {
		cmds = append(cmds, cmd)
	}
	r.mu.Unlock()
	for _, cmd := range cmds {
		if cmd.Process == nil {
			continue
		}
		if err := cmd.Process.Kill(); err != nil && r.log != nil {
			r.log.Warn("failed to kill tracked subprocess")
		}
		r.untrack(cmd)
	}
}
