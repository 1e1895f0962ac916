package rt

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/brightwaveai/streamxlate/message"
	"github.com/brightwaveai/streamxlate/shared"
	"github.com/brightwaveai/streamxlate/task"
)

// Callback is a user transcription callback for one language. Exactly one
// of Sync/Async is set: a synchronous callback is scheduled on a worker
// pool, an asynchronous one as an independent goroutine, so neither ever
// runs on the dispatch loop itself.
type Callback struct {
	Sync  func(message.Transcription)
	Async func(ctx context.Context, t message.Transcription) error
}

// Transcription subscribes to Realtime's out_bus and dispatches
// transcription messages to per-language user callbacks.
type Transcription struct {
	Realtime *Realtime
	Callbacks map[string]Callback // keyed by BCP-47 language code
	SuppressCallbackErrors bool

	log     shared.Logger
	stopper *task.Event

	workers chan struct{} // bounded worker-pool slots for sync callbacks
	wg      sync.WaitGroup

	errOnce     sync.Once
	failed      chan struct{} // closed when a non-suppressed callback error occurs
	callbackErr error
}

// NewTranscription builds a Transcription dispatcher. poolSize bounds the
// number of concurrent synchronous-callback goroutines.
func NewTranscription(realtime *Realtime, callbacks map[string]Callback, suppressCallbackErrors bool, poolSize int, logger shared.Logger) *Transcription {
	if poolSize <= 0 {
		poolSize = 4
	}
	return &Transcription{
		Realtime:               realtime,
		Callbacks:              callbacks,
		SuppressCallbackErrors: suppressCallbackErrors,
		log:                    logger,
		workers:                make(chan struct{}, poolSize),
		failed:                 make(chan struct{}),
	}
}

// SetStopper lets Manager share its Runner's stopper latch.
func (t *Transcription) SetStopper(stopper *task.Event) {
	t.stopper = stopper
}

func (t *Transcription) Boot(ctx context.Context) error {
	return nil
}

func (t *Transcription) Do(ctx context.Context) error {
	_, sub := t.Realtime.OutBus.Subscribe("transcription", 64)
	defer t.Realtime.OutBus.Unsubscribe("transcription")
	for {
		select {
		case box := <-sub:
			msg, ok := task.Next(box)
			if !ok {
				t.wg.Wait()
				return t.firstCallbackErr()
			}
			t.dispatch(ctx, msg)
		case <-t.failed:
			t.wg.Wait()
			return t.firstCallbackErr()
		case <-t.stopper.Done():
			t.wg.Wait()
			return t.firstCallbackErr()
		case <-ctx.Done():
			t.wg.Wait()
			return nil
		}
	}
}

// firstCallbackErr returns the first non-suppressed callback error, or nil
// when every callback succeeded or errors are being suppressed.
func (t *Transcription) firstCallbackErr() error {
	select {
	case <-t.failed:
		return t.callbackErr
	default:
		return nil
	}
}

func (t *Transcription) dispatch(ctx context.Context, msg message.ControlMessage) {
	if !msg.IsTranscription() {
		return
	}
	cb, ok := t.Callbacks[msg.Transcription.Language]
	if !ok {
		return
	}
	switch {
	case cb.Sync != nil:
		t.runOnWorkerPool(cb.Sync, *msg.Transcription)
	case cb.Async != nil:
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			if err := cb.Async(ctx, *msg.Transcription); err != nil {
				t.handleCallbackErr(err)
			}
		}()
	}
}

func (t *Transcription) runOnWorkerPool(fn func(message.Transcription), msg message.Transcription) {
	t.workers <- struct{}{}
	t.wg.Add(1)
	go func() {
		defer func() {
			<-t.workers
			t.wg.Done()
			if r := recover(); r != nil {
				t.handleCallbackErr(fmt.Errorf("transcription callback panicked: %v", r))
			}
		}()
		fn(msg)
	}()
}

// handleCallbackErr logs-and-swallows when errors are suppressed;
// otherwise it records the first error and trips the failed latch so Do
// returns it to the supervisor, failing the run.
func (t *Transcription) handleCallbackErr(err error) {
	if t.SuppressCallbackErrors {
		if t.log != nil {
			t.log.Warn("transcription callback error suppressed", zap.Error(err))
		}
		return
	}
	if t.log != nil {
		t.log.Error("transcription callback error", err)
	}
	t.errOnce.Do(func() {
		t.callbackErr = err
		close(t.failed)
	})
}

func (t *Transcription) Exit(ctx context.Context) error {
	return nil
}

var _ task.Runnable = (*Transcription)(nil)
