package rt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/brightwaveai/streamxlate/message"
	"github.com/brightwaveai/streamxlate/shared"
	"github.com/brightwaveai/streamxlate/task"
)

// TraceEntry is one captured (channel, direction, message) tuple.
type TraceEntry struct {
	Channel   string               `json:"channel"`
	Direction string               `json:"direction"`
	Message   message.ControlMessage `json:"message"`
	At        time.Time            `json:"at"`
}

// TraceFile is the schema of the JSON trace file written next to the log
// file as <log_file>.trace.json.
type TraceFile struct {
	Version   string          `json:"version"`
	SysInfo   string          `json:"sysinfo"`
	Messages  []TraceEntry    `json:"messages"`
	StartTS   time.Time       `json:"start_ts"`
	Cfg       json.RawMessage `json:"cfg"`
	LogFile   string          `json:"log_file"`
	TraceFile string          `json:"trace_file"`
	Debug     bool            `json:"debug"`
	Logs      []string        `json:"logs"`
}

// Logger subscribes to both of Realtime's buses and appends every
// message it observes to an in-memory trace, writing a JSON trace file on
// exit. Only active when cfg.LogFile is set. Named
// rt.Logger (not shared.Logger) to avoid colliding with this module's
// structured-logging facade.
type Logger struct {
	Realtime  *Realtime
	LogFile   string
	TraceFile string
	Version   string
	Debug     bool

	log     shared.Logger
	stopper *task.Event

	mu      sync.Mutex
	entries []TraceEntry
	startTS time.Time
}

// NewLogger builds a trace Logger writing to traceFile once Exit runs.
// If logFile is empty, the returned Logger's Do/Exit are no-ops.
func NewLogger(realtime *Realtime, logFile, traceFile, version string, debug bool, logger shared.Logger) *Logger {
	return &Logger{
		Realtime:  realtime,
		LogFile:   logFile,
		TraceFile: traceFile,
		Version:   version,
		Debug:     debug,
		log:       logger,
		startTS:   time.Time{},
	}
}

// SetStopper lets Manager share its Runner's stopper latch.
func (l *Logger) SetStopper(stopper *task.Event) {
	l.stopper = stopper
}

func (l *Logger) Boot(ctx context.Context) error {
	l.startTS = timeNow()
	return nil
}

func (l *Logger) Do(ctx context.Context) error {
	if l.LogFile == "" {
		<-l.stopper.Done()
		return nil
	}
	_, inSub := l.Realtime.InBus.Subscribe("trace-in", 128)
	_, outSub := l.Realtime.OutBus.Subscribe("trace-out", 128)
	defer l.Realtime.InBus.Unsubscribe("trace-in")
	defer l.Realtime.OutBus.Unsubscribe("trace-out")
	for {
		select {
		case box := <-inSub:
			if msg, ok := task.Next(box); ok {
				l.capture("in_bus", "outbound", msg)
			}
		case box := <-outSub:
			if msg, ok := task.Next(box); ok {
				l.capture("out_bus", "inbound", msg)
			}
		case <-l.stopper.Done():
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (l *Logger) capture(channel, direction string, msg message.ControlMessage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, TraceEntry{Channel: channel, Direction: direction, Message: msg, At: timeNow()})
}

// Exit writes the JSON trace file next to LogFile. Failures are logged
// but never fail shutdown.
func (l *Logger) Exit(ctx context.Context) error {
	if l.LogFile == "" {
		return nil
	}
	cfgJSON, err := l.Realtime.cfg.Serialize()
	if err != nil {
		cfgJSON = nil
	}
	l.mu.Lock()
	trace := TraceFile{
		Version:   l.Version,
		SysInfo:   fmt.Sprintf("%s/%s go%s", runtime.GOOS, runtime.GOARCH, runtime.Version()),
		Messages:  l.entries,
		StartTS:   l.startTS,
		Cfg:       cfgJSON,
		LogFile:   l.LogFile,
		TraceFile: l.TraceFile,
		Debug:     l.Debug,
		Logs:      []string{},
	}
	l.mu.Unlock()

	data, err := sonic.Marshal(trace)
	if err != nil {
		if l.log != nil {
			l.log.Error("marshaling trace file failed", err)
		}
		return nil
	}
	if err := os.WriteFile(l.TraceFile, data, 0o644); err != nil {
		if l.log != nil {
			l.log.Error("writing trace file failed", err)
		}
	}
	return nil
}

var _ task.Runnable = (*Logger)(nil)

// timeNow exists so Boot/capture share one substitutable clock; tests can
// shadow it if deterministic timestamps are ever needed (none currently
// are).
func timeNow() time.Time {
	return time.Now()
}
