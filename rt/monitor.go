package rt

import (
	"context"
	"sync"

	"github.com/brightwaveai/streamxlate/message"
	"github.com/brightwaveai/streamxlate/shared"
	"github.com/brightwaveai/streamxlate/task"
)

// Monitor keeps a sliding window of recent inbound messages and reports
// whether the window is devoid of transcription messages (prolonged
// silence). It also counts inbound messages by type for diagnostics.
type Monitor struct {
	Realtime *Realtime
	Capacity int

	log     shared.Logger
	stopper *task.Event

	mu         sync.Mutex
	window     []bool // true = transcription message, in arrival order
	counts     map[message.Type]int
}

// NewMonitor builds a Monitor with a sliding window of the given
// capacity.
func NewMonitor(realtime *Realtime, capacity int, logger shared.Logger) *Monitor {
	if capacity <= 0 {
		capacity = 100
	}
	return &Monitor{
		Realtime: realtime,
		Capacity: capacity,
		log:      logger,
		counts:   make(map[message.Type]int),
	}
}

// SetStopper lets Manager share its Runner's stopper latch.
func (m *Monitor) SetStopper(stopper *task.Event) {
	m.stopper = stopper
}

func (m *Monitor) Boot(ctx context.Context) error {
	return nil
}

func (m *Monitor) Do(ctx context.Context) error {
	_, sub := m.Realtime.OutBus.Subscribe("monitor", 64)
	defer m.Realtime.OutBus.Unsubscribe("monitor")
	for {
		select {
		case box := <-sub:
			msg, ok := task.Next(box)
			if !ok {
				return nil
			}
			m.observe(msg)
		case <-m.stopper.Done():
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (m *Monitor) observe(msg message.ControlMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[msg.Type]++
	m.window = append(m.window, msg.IsTranscription())
	if len(m.window) > m.Capacity {
		m.window = m.window[len(m.window)-m.Capacity:]
	}
}

// Silence reports whether no TranscriptionMessage appears in the current
// window.
func (m *Monitor) Silence() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, isTranscription := range m.window {
		if isTranscription {
			return false
		}
	}
	return true
}

// Counts returns a snapshot of inbound-message counts by type.
func (m *Monitor) Counts() map[message.Type]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[message.Type]int, len(m.counts))
	for k, v := range m.counts {
		snap[k] = v
	}
	return snap
}

func (m *Monitor) Exit(ctx context.Context) error {
	return nil
}

var _ task.Runnable = (*Monitor)(nil)
