package adapter

import (
	"bytes"
	"context"

	"github.com/brightwaveai/streamxlate/audio"
	"github.com/brightwaveai/streamxlate/shared"
	"go.uber.org/zap"
)

// writerState tracks the idle -> draining -> finalized progression.
type writerState int

const (
	writerIdle writerState = iota
	writerDraining
	writerFinalized
)

type writerBox struct {
	frame audio.Frame
	eos   bool
}

// WriterCore is the shared accumulate-then-finalize machinery behind every
// Writer variant: a bounded input queue of Option<Frame>, a background
// consumer loop (Do), and a growing PCM byte accumulator finalized exactly
// once (Exit). commit is the variant-specific sink write (disk file vs.
// caller buffer).
type WriterCore struct {
	queue          chan writerBox
	commit         func(wav []byte) error
	dropEmptyFrames bool
	log            shared.Logger

	settings TrackSettings

	accum       bytes.Buffer
	firstRate   int
	firstChans  int
	haveFirst   bool
	state       writerState
}

// NewWriterCore builds the shared writer machinery with a bounded queue of
// the given capacity and variant-specific commit func.
func NewWriterCore(queueCapacity int, dropEmptyFrames bool, commit func(wav []byte) error, logger shared.Logger) *WriterCore {
	return &WriterCore{
		queue:           make(chan writerBox, queueCapacity),
		commit:          commit,
		dropEmptyFrames: dropEmptyFrames,
		log:             logger,
	}
}

func (w *WriterCore) SetTrackSettings(settings TrackSettings) {
	w.settings = settings
}

// PutFrame enqueues frame without ever blocking the Receiver that calls
// this: a full queue drops the frame and logs a warning.
func (w *WriterCore) PutFrame(frame audio.Frame) {
	select {
	case w.queue <- writerBox{frame: frame}:
	default:
		if w.log != nil {
			w.log.Warn("writer input queue full, dropping frame")
		}
	}
}

// PutEOS enqueues the end-of-stream sentinel, marking the end of the
// translated-audio stream.
func (w *WriterCore) PutEOS() {
	select {
	case w.queue <- writerBox{eos: true}:
	default:
		if w.log != nil {
			w.log.Warn("writer input queue full when enqueuing EOS")
		}
	}
}

// Boot is a no-op: the queue is already constructed.
func (w *WriterCore) Boot(ctx context.Context) error {
	return nil
}

// Do drains the input queue, appending each frame's PCM bytes to the
// accumulator until the EOS sentinel is observed or ctx is cancelled.
func (w *WriterCore) Do(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case box := <-w.queue:
			if box.eos {
				w.state = writerDraining
				return nil
			}
			w.accumulate(box.frame)
		}
	}
}

func (w *WriterCore) accumulate(frame audio.Frame) {
	if w.dropEmptyFrames && frame.IsSilence() {
		return
	}
	if !w.haveFirst {
		w.firstRate = frame.SampleRate
		w.firstChans = frame.NumChannels
		w.haveFirst = true
	}
	w.accum.Write(frame.Bytes())
}

// Exit finalizes the WAV artifact using the first observed frame's
// rate/channels (or the settings supplied via SetTrackSettings if no
// frame ever arrived) and commits it via the variant's sink. Finalize
// errors are logged, never returned: the writer gets its chance to
// complete during shutdown and must not become a reason to cancel
// peers.
func (w *WriterCore) Exit(ctx context.Context) error {
	rate, chans := w.firstRate, w.firstChans
	if !w.haveFirst {
		rate, chans = w.settings.SampleRate, w.settings.NumChannels
		if rate == 0 {
			rate = audio.DefaultSampleRate
		}
		if chans == 0 {
			chans = audio.DefaultChannels
		}
	}
	wav := audio.EncodeWAV(w.accum.Bytes(), rate, chans)
	if err := w.commit(wav); err != nil {
		if w.log != nil {
			w.log.Error("writer finalize failed", err, zap.Int("pcm_bytes", w.accum.Len()))
		}
		return nil
	}
	w.state = writerFinalized
	return nil
}

// PCMLen returns the number of accumulated PCM bytes, used by tests to
// verify the writer-drain invariant.
func (w *WriterCore) PCMLen() int {
	return w.accum.Len()
}
