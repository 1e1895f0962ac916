package rt

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brightwaveai/streamxlate/adapter"
	"github.com/brightwaveai/streamxlate/config"
	"github.com/brightwaveai/streamxlate/shared"
	"github.com/brightwaveai/streamxlate/task"
)

// superviseInterval is the coarse wake-up period of Manager's steady-state
// loop; each wake checks whether any supervised task has raised eof or
// stopper.
const superviseInterval = 500 * time.Millisecond

// handle pairs a supervised task's Runner with the cancel func for its own
// derived context, so a task that exceeds its graceful-stop timeout can be
// cancelled individually without tearing down its siblings.
type handle struct {
	runner *task.Runner
	cancel context.CancelFunc
}

// ManagerOptions carries the session framing parameters and operational
// knobs Manager needs beyond the pipeline Config.
type ManagerOptions struct {
	SampleRate      int
	NumChannels     int
	ChunkDurationMs int64
	StatInterval    time.Duration
	Version         string
}

func (o *ManagerOptions) fillDefaults() {
	if o.SampleRate == 0 {
		o.SampleRate = 48000
	}
	if o.NumChannels == 0 {
		o.NumChannels = 1
	}
	if o.ChunkDurationMs == 0 {
		o.ChunkDurationMs = 20
	}
	if o.StatInterval == 0 {
		o.StatInterval = 5 * time.Second
	}
}

// Manager constructs, starts, supervises, and shuts down the whole task
// graph: trace logger, stat, monitor, realtime, transcription, writer,
// receiver, sender, and finally the reader. It exclusively owns every task
// handle and the Realtime instance.
type Manager struct {
	Cfg      config.Config
	Realtime *Realtime
	Reader   adapter.Reader
	Writer   adapter.Writer // nil for transcription-only runs

	// Stopper is Manager's own shutdown latch: raising it (or any
	// supervised task raising eof/stopper) triggers the graceful shutdown
	// sequence.
	Stopper *task.Event

	opts ManagerOptions
	log  shared.Logger

	sender        *Sender
	receiver      *Receiver
	monitor       *Monitor
	transcription *Transcription
	stat          *Stat
	trace         *Logger

	mu      sync.Mutex
	handles map[string]*handle
	order   []string
}

// NewManager validates the caller-supplied pieces and builds the full task
// graph without starting it. writer may be nil when the target language
// only registers a transcription callback; in that run mode no Receiver or
// Writer task is created and no media track is drained.
func NewManager(cfg config.Config, realtime *Realtime, reader adapter.Reader, writer adapter.Writer, callbacks map[string]Callback, suppressCallbackErrors bool, opts ManagerOptions, logger shared.Logger) (*Manager, error) {
	if realtime == nil {
		return nil, shared.NewConfigurationError(shared.ErrNoConfig)
	}
	if reader == nil {
		return nil, shared.NewConfigurationError(shared.ErrNoReader)
	}
	if writer == nil && len(callbacks) == 0 {
		return nil, shared.NewConfigurationError(shared.ErrNoWriter)
	}
	opts.fillDefaults()

	settings := adapter.TrackSettings{SampleRate: opts.SampleRate, NumChannels: opts.NumChannels}
	reader.SetTrackSettings(settings)
	if writer != nil {
		writer.SetTrackSettings(settings)
	}

	m := &Manager{
		Cfg:      cfg,
		Realtime: realtime,
		Reader:   reader,
		Writer:   writer,
		Stopper:  task.NewEvent("manager.stopper", logger),
		opts:     opts,
		log:      logger,
		handles:  make(map[string]*handle),
	}

	m.sender = NewSender(reader, realtime.Media, realtime, opts.SampleRate, opts.NumChannels, opts.ChunkDurationMs, logger)
	if writer != nil {
		m.receiver = NewReceiver(realtime.Media, writer, config.TrackRetryDelay, config.TrackRetryMaxAttempts, logger)
	}
	m.monitor = NewMonitor(realtime, config.EmptyMessageThreshold, logger)
	m.transcription = NewTranscription(realtime, callbacks, suppressCallbackErrors, 4, logger)
	m.stat = NewStat(m, opts.StatInterval, logger)
	m.trace = NewLogger(realtime, cfg.LogFile, cfg.TraceFile, opts.Version, cfg.Debug, logger)

	return m, nil
}

// readerTask adapts an adapter.Reader to the Runnable lifecycle: Boot opens
// and decodes the source, Do idles until shutdown (reads are pulled by
// Sender, not pushed), Exit releases the source.
type readerTask struct {
	reader  adapter.Reader
	stopper *task.Event
}

func (r *readerTask) Boot(ctx context.Context) error { return r.reader.Boot(ctx) }

func (r *readerTask) Do(ctx context.Context) error {
	select {
	case <-r.stopper.Done():
	case <-ctx.Done():
	}
	return nil
}

func (r *readerTask) Exit(ctx context.Context) error { return r.reader.Close(ctx) }

// spawn registers and starts one named task on g, giving it its own
// cancellable context so shutdown timeouts can escalate per-task.
// configure runs against the new runner before its goroutine starts, so
// components can bind the runner's latches without racing their Do loop.
func (m *Manager) spawn(ctx context.Context, g *errgroup.Group, name string, run task.Runnable, configure func(*task.Runner)) *task.Runner {
	runner := task.NewRunner(name, run, m.log)
	if configure != nil {
		configure(runner)
	}
	taskCtx, cancel := context.WithCancel(ctx)
	runner.Spawn(taskCtx, g)
	m.mu.Lock()
	m.handles[name] = &handle{runner: runner, cancel: cancel}
	m.order = append(m.order, name)
	m.mu.Unlock()
	return runner
}

func (m *Manager) handle(name string) *handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handles[name]
}

// Run starts the task graph in order, supervises it until end-of-input or
// an external stop, executes the graceful shutdown sequence, and returns
// the first non-nil error any task produced.
func (m *Manager) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if err := m.startSystem(gctx, g); err != nil {
		m.Stopper.Raise()
		m.cancelAll()
		_ = g.Wait()
		return err
	}

	m.supervise(gctx)
	m.shutdown()
	return g.Wait()
}

// startSystem spawns every task in dependency order, awaiting each ready
// latch, all bounded by one boot timeout: the trace logger first, then
// stat, then the listening tier in parallel (monitor, realtime,
// transcription, writer, receiver, sender), and only once all of those are
// ready, the reader.
func (m *Manager) startSystem(ctx context.Context, g *errgroup.Group) error {
	bootCtx, cancel := context.WithTimeout(ctx, config.BootTimeout)
	defer cancel()

	trace := m.spawn(ctx, g, "trace", m.trace, func(r *task.Runner) { m.trace.SetStopper(r.Stopper) })
	if err := trace.WaitReady(bootCtx); err != nil {
		return shared.NewBootError(err)
	}

	stat := m.spawn(ctx, g, "stat", m.stat, func(r *task.Runner) { m.stat.SetStopper(r.Stopper) })
	if err := stat.WaitReady(bootCtx); err != nil {
		return shared.NewBootError(err)
	}

	monitor := m.spawn(ctx, g, "monitor", m.monitor, func(r *task.Runner) { m.monitor.SetStopper(r.Stopper) })
	realtime := m.spawn(ctx, g, "realtime", m.Realtime, func(r *task.Runner) { m.Realtime.SetStopper(r.Stopper) })
	transcription := m.spawn(ctx, g, "transcription", m.transcription, func(r *task.Runner) { m.transcription.SetStopper(r.Stopper) })

	listening := []*task.Runner{monitor, realtime, transcription}

	if m.Writer != nil {
		writer := m.spawn(ctx, g, "writer", m.Writer, nil)
		receiver := m.spawn(ctx, g, "receiver", m.receiver, func(r *task.Runner) { m.receiver.SetStopper(r.Stopper) })
		listening = append(listening, writer, receiver)
	}

	sender := m.spawn(ctx, g, "sender", m.sender, func(r *task.Runner) { m.sender.SetLatches(r.Stopper, r.EOF) })
	listening = append(listening, sender)

	for _, r := range listening {
		if err := r.WaitReady(bootCtx); err != nil {
			return shared.NewBootError(err)
		}
	}

	rdr := &readerTask{reader: m.Reader}
	reader := m.spawn(ctx, g, "reader", rdr, func(r *task.Runner) { rdr.stopper = r.Stopper })
	if err := reader.WaitReady(bootCtx); err != nil {
		return shared.NewBootError(err)
	}

	if m.log != nil {
		m.log.Info("all tasks ready")
	}
	return nil
}

// supervise is the steady-state loop: it sleeps on a coarse interval and,
// on each wake, checks whether any supervised task has raised eof or
// stopper; the first such observation raises Manager's own stopper and
// returns so shutdown can begin.
func (m *Manager) supervise(ctx context.Context) {
	ticker := time.NewTicker(superviseInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if m.anyTaskDone() {
				m.Stopper.Raise()
				return
			}
		case <-m.Stopper.Done():
			return
		case <-ctx.Done():
			m.Stopper.Raise()
			return
		}
	}
}

func (m *Manager) anyTaskDone() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, name := range m.order {
		h := m.handles[name]
		if h.runner.EOF.IsRaised() || h.runner.Stopper.IsRaised() {
			return true
		}
	}
	return false
}

// shutdown is the graceful termination sequence: stop reader and sender in
// parallel, wait out the post-publication grace so the last frames can
// traverse the remote pipeline, stop the receiving tier, then give the
// writer its bounded-retry chance to drain and finalize before anything is
// force-cancelled.
func (m *Manager) shutdown() {
	m.stopGroup("reader", "sender")

	time.Sleep(config.SafePublicationEndDelay)

	m.stopGroup("receiver", "monitor", "transcription", "realtime")

	m.writerMercy()

	m.Stopper.Raise()
	m.stopGroup("stat")
	m.stopGroup("trace")
	m.cancelAll()
}

// stopGroup raises the stopper of each named task in parallel and waits up
// to the per-task graceful-stop timeout for its Do loop to return,
// escalating to a context cancel on timeout. Missing names (tasks not
// created in this run mode) are skipped.
func (m *Manager) stopGroup(names ...string) {
	var wg sync.WaitGroup
	for _, name := range names {
		h := m.handle(name)
		if h == nil {
			continue
		}
		wg.Add(1)
		go func(h *handle) {
			defer wg.Done()
			h.runner.Stop()
			waitCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
			defer cancel()
			if err := h.runner.WaitEOF(waitCtx); err != nil {
				if m.log != nil {
					m.log.Warn("task graceful stop timed out, cancelling")
				}
				h.cancel()
			}
		}(h)
	}
	wg.Wait()
}

// writerMercy gives the Writer a bounded number of full graceful-stop
// windows to drain its queue and finalize the artifact; only after every
// attempt has elapsed is the writer cancelled. This protects the trailing
// audio that was still in flight when end-of-stream was declared.
func (m *Manager) writerMercy() {
	h := m.handle("writer")
	if h == nil {
		return
	}
	h.runner.Stop()
	// The receiver enqueues EOS when it stops; a second sentinel is
	// harmless and covers the case where the receiver was cancelled before
	// its own cleanup ran.
	m.Writer.PutEOS()
	for attempt := 0; attempt < config.WriterMercyAttempts; attempt++ {
		waitCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		err := h.runner.WaitEOF(waitCtx)
		cancel()
		if err == nil {
			return
		}
		if m.log != nil {
			m.log.Warn("writer still draining")
		}
	}
	if m.log != nil {
		m.log.Warn("writer exceeded every drain attempt, cancelling")
	}
	h.cancel()
}

func (m *Manager) cancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.handles {
		h.cancel()
	}
}

// Snapshot implements TaskIntrospector for Stat: an immutable latch-state
// snapshot of every supervised task, in spawn order.
func (m *Manager) Snapshot() []TaskSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snaps := make([]TaskSnapshot, 0, len(m.order))
	for _, name := range m.order {
		h := m.handles[name]
		snaps = append(snaps, TaskSnapshot{
			Name:    name,
			Ready:   h.runner.Ready.IsRaised(),
			EOF:     h.runner.EOF.IsRaised(),
			Stopper: h.runner.Stopper.IsRaised(),
		})
	}
	return snaps
}

var _ TaskIntrospector = (*Manager)(nil)
