package rt

import (
	"context"
	"time"

	"github.com/brightwaveai/streamxlate/adapter"
	"github.com/brightwaveai/streamxlate/shared"
	"github.com/brightwaveai/streamxlate/task"
	"github.com/brightwaveai/streamxlate/transport"
)

// Receiver drains translated audio from MediaTransport into Writer's
// input queue.
type Receiver struct {
	Media  transport.MediaTransport
	Writer adapter.Writer

	RetryDelay time.Duration
	RetryMax   int

	log     shared.Logger
	stopper *task.Event
}

// trackDiscoverer is implemented by media transports whose remote
// translation track may appear some time after the transport itself is
// up (SFU mode). Transports that carry audio on the control connection
// have nothing to discover and don't implement it.
type trackDiscoverer interface {
	HasTranslationTrack() bool
}

// NewReceiver builds a Receiver draining media into writer. RetryMax
// attempts at retryDelay intervals bound how long Boot waits for the
// remote translation track to appear; exceeding them is a fatal boot
// error.
func NewReceiver(media transport.MediaTransport, writer adapter.Writer, retryDelay time.Duration, retryMax int, logger shared.Logger) *Receiver {
	return &Receiver{Media: media, Writer: writer, RetryDelay: retryDelay, RetryMax: retryMax, log: logger}
}

// SetStopper lets Manager share its Runner's stopper latch.
func (r *Receiver) SetStopper(stopper *task.Event) {
	r.stopper = stopper
}

// Boot waits for the remote translation track, polling up to RetryMax
// times with RetryDelay between attempts.
func (r *Receiver) Boot(ctx context.Context) error {
	if r.Media == nil {
		return shared.NewBootError(shared.ErrTrackNotFound)
	}
	d, ok := r.Media.(trackDiscoverer)
	if !ok {
		return nil
	}
	for attempt := 0; attempt < r.RetryMax; attempt++ {
		if d.HasTranslationTrack() {
			return nil
		}
		select {
		case <-time.After(r.RetryDelay):
		case <-ctx.Done():
			return shared.NewBootError(ctx.Err())
		}
	}
	if d.HasTranslationTrack() {
		return nil
	}
	return shared.NewBootError(shared.ErrTrackNotFound)
}

// Do drains inbound translated frames into Writer until the media stream
// closes or Receiver's own stopper fires, then enqueues a single EOS
// sentinel to Writer and exits.
func (r *Receiver) Do(ctx context.Context) error {
	defer r.Writer.PutEOS()
	for {
		select {
		case frame, ok := <-r.Media.Inbound():
			if !ok {
				return nil
			}
			r.Writer.PutFrame(frame)
		case <-r.stopper.Done():
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (r *Receiver) Exit(ctx context.Context) error {
	return nil
}

var _ task.Runnable = (*Receiver)(nil)
