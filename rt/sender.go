package rt

import (
	"context"
	"time"

	"github.com/brightwaveai/streamxlate/adapter"
	"github.com/brightwaveai/streamxlate/audio"
	"github.com/brightwaveai/streamxlate/message"
	"github.com/brightwaveai/streamxlate/shared"
	"github.com/brightwaveai/streamxlate/task"
	"github.com/brightwaveai/streamxlate/transport"
)

// Sender drives Reader output into MediaTransport at real-time cadence.
// The tick wait at the end of each loop iteration is the pacing anchor;
// without it the remote decoder's jitter buffer overruns and queue_status
// reports climb past max_queue_level_ms.
type Sender struct {
	Reader          adapter.Reader
	Media           transport.MediaTransport
	Realtime        *Realtime
	SampleRate      int
	NumChannels     int
	ChunkDurationMs int64

	log     shared.Logger
	stopper *task.Event
	eof     *task.Event

	chunkBytes int
}

// NewSender builds a Sender for the given session framing parameters.
func NewSender(reader adapter.Reader, media transport.MediaTransport, realtime *Realtime, sampleRate, numChannels int, chunkDurationMs int64, logger shared.Logger) *Sender {
	return &Sender{
		Reader:          reader,
		Media:           media,
		Realtime:        realtime,
		SampleRate:      sampleRate,
		NumChannels:     numChannels,
		ChunkDurationMs: chunkDurationMs,
		log:             logger,
	}
}

// SetLatches lets Manager share its Runner's stopper/eof latches so
// Sender's loop observes the same shutdown and end-of-input signals other
// components see. Sender raises eof itself the moment Reader is
// exhausted.
func (s *Sender) SetLatches(stopper, eof *task.Event) {
	s.stopper = stopper
	s.eof = eof
}

func (s *Sender) Boot(ctx context.Context) error {
	s.chunkBytes = audio.ChunkBytes(s.ChunkDurationMs, s.SampleRate, s.NumChannels)
	return nil
}

// Do reads one chunk per tick, zero-pads the tail, publishes it, and
// emits end_task once the reader is exhausted.
func (s *Sender) Do(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(s.ChunkDurationMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopper.Done():
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		chunk, ok, err := s.Reader.Read(ctx, s.chunkBytes)
		if err != nil {
			return err
		}
		if !ok {
			s.eof.Raise()
			if s.Realtime != nil {
				_ = s.Realtime.Send(message.ControlMessage{Type: message.TypeEndTask})
			}
			return nil
		}
		if len(chunk) == 0 {
			continue
		}

		// Every published frame carries exactly chunk_samples *
		// num_channels interleaved samples; partial tails are padded.
		padded := audio.PadToChunk(chunk, s.chunkBytes)
		frame := audio.NewFrameFromBytes(padded, s.SampleRate, s.NumChannels)
		if err := s.Media.PublishFrame(ctx, frame); err != nil {
			if s.log != nil {
				s.log.Warn("publishing frame failed")
			}
		}

		select {
		case <-ticker.C:
		case <-s.stopper.Done():
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Sender) Exit(ctx context.Context) error {
	return nil
}

var _ task.Runnable = (*Sender)(nil)
