package task

import (
	"errors"
	"sync"

	"github.com/brightwaveai/streamxlate/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrBusClosed is returned by Publish once Close has been called.
var ErrBusClosed = errors.New("fanout bus is closed")

// msgBox lets FanoutBus carry an explicit end-of-stream sentinel; a nil
// *T would be ambiguous for value types.
type msgBox[T any] struct {
	val T
	eos bool
}

// FanoutBus is a one-producer, many-subscribers message bus with bounded
// per-subscriber queues. A full subscriber queue drops the message for
// that subscriber only and logs a warning — it never blocks the producer.
type FanoutBus[T any] struct {
	mu          sync.Mutex
	subscribers map[string]chan msgBox[T]
	closed      bool
	log         shared.Logger
}

// NewFanoutBus creates an open bus. logger may be nil to suppress
// drop-warnings (useful in tests).
func NewFanoutBus[T any](logger shared.Logger) *FanoutBus[T] {
	return &FanoutBus[T]{
		subscribers: make(map[string]chan msgBox[T]),
		log:         logger,
	}
}

// Subscribe registers id (or generates a uuid4 if id is empty) with a
// channel of the given capacity. Re-subscribing the same id returns the
// existing channel, matching FanoutQueue.subscribe's idempotence.
func (b *FanoutBus[T]) Subscribe(id string, capacity int) (string, <-chan msgBox[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if id == "" {
		id = uuid.NewString()
	}
	if ch, ok := b.subscribers[id]; ok {
		return id, ch
	}
	ch := make(chan msgBox[T], capacity)
	b.subscribers[id] = ch
	return id, ch
}

// Unsubscribe places an end-of-stream sentinel on the subscriber's queue
// (best-effort; a full queue is fine, the subscriber is leaving anyway)
// and removes it from the bus.
func (b *FanoutBus[T]) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.subscribers[id]
	if !ok {
		return
	}
	delete(b.subscribers, id)
	select {
	case ch <- msgBox[T]{eos: true}:
	default:
	}
}

// Publish enqueues msg on every subscriber's queue. A full queue drops the
// message for that subscriber only; Publish never blocks.
func (b *FanoutBus[T]) Publish(msg T) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusClosed
	}
	box := msgBox[T]{val: msg}
	for id, ch := range b.subscribers {
		select {
		case ch <- box:
		default:
			if b.log != nil {
				b.log.Warn("fanout queue full, dropping message", zap.String("subscriber", id))
			}
		}
	}
	return nil
}

// PublishEOS broadcasts end-of-stream to every current subscriber without
// closing the bus to further publishes. Nothing in this module calls it:
// Realtime ends its buses with Close on exit.
func (b *FanoutBus[T]) PublishEOS() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- msgBox[T]{eos: true}:
		default:
		}
	}
}

// Close publishes end-of-stream to every subscriber and marks the bus
// closed; further Publish calls fail.
func (b *FanoutBus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		select {
		case ch <- msgBox[T]{eos: true}:
		default:
		}
		delete(b.subscribers, id)
	}
}

// Next unwraps a value received from a subscriber channel: ok is false
// once the end-of-stream sentinel has been observed, at which point the
// caller's receive loop should terminate.
func Next[T any](box msgBox[T]) (T, bool) {
	return box.val, !box.eos
}
