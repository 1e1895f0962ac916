// Package rt hosts the task graph above the transports: Realtime (which
// owns both transports and routes inbound messages through dedup),
// Sender, Receiver, Transcription, Monitor, Stat, the trace Logger, and
// Manager, the composition root that starts, supervises, and stops all of
// them in order.
package rt

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/brightwaveai/streamxlate/config"
	"github.com/brightwaveai/streamxlate/message"
	"github.com/brightwaveai/streamxlate/shared"
	"github.com/brightwaveai/streamxlate/task"
	"github.com/brightwaveai/streamxlate/transport"
)

// audioDeliverer is implemented by media transports that receive their
// translated audio as control-style messages on the shared WebSocket
// connection rather than on a dedicated media channel.
type audioDeliverer interface {
	DeliverAudio(ctx context.Context, a *message.AudioData) error
}

// Realtime is the composition root for the two transports: it owns one
// inbound FanoutBus (messages the caller wants sent) and one outbound
// FanoutBus (messages received, deduplicated).
type Realtime struct {
	Control transport.ControlTransport
	Media   transport.MediaTransport

	InBus  *task.FanoutBus[message.ControlMessage]
	OutBus *task.FanoutBus[message.ControlMessage]

	dedup *task.CappedSet[message.DedupKey]
	log   shared.Logger

	url, token string
	cfg        config.Config

	joinMedia func(ctx context.Context) error

	stopper *task.Event
}

// NewRealtime builds a Realtime bound to the given transports. cfg is the
// pipeline configuration sent during the task-config handshake at Boot.
func NewRealtime(control transport.ControlTransport, media transport.MediaTransport, cfg config.Config, url, token string, logger shared.Logger) *Realtime {
	return &Realtime{
		Control: control,
		Media:   media,
		InBus:   task.NewFanoutBus[message.ControlMessage](logger),
		OutBus:  task.NewFanoutBus[message.ControlMessage](logger),
		dedup:   task.NewCappedSet[message.DedupKey](config.DedupCapacity),
		log:     logger,
		url:     url,
		token:   token,
		cfg:     cfg,
		stopper: task.NewEvent("realtime.stopper", logger),
	}
}

// SetStopper lets Manager share its own stopper so Realtime's internal
// loops observe the same shutdown signal.
func (r *Realtime) SetStopper(stopper *task.Event) {
	r.stopper = stopper
}

// SetMediaJoiner installs the media-channel join step Boot runs after the
// task-config handshake succeeds. Joining before the handshake would race
// the remote pipeline's startup: the translator participant only appears
// in the room once the session's task is configured.
func (r *Realtime) SetMediaJoiner(join func(ctx context.Context) error) {
	r.joinMedia = join
}

// Boot connects the control transport, starts the routing pumps, runs the
// task-config handshake, and finally joins the media channel (if one was
// installed).
func (r *Realtime) Boot(ctx context.Context) error {
	if err := r.Control.Connect(ctx, r.url, r.token); err != nil {
		return err
	}
	go r.pumpInToControl(ctx)
	go r.pumpControlToOut(ctx)
	if err := r.handshake(ctx); err != nil {
		return err
	}
	if r.joinMedia != nil {
		if err := r.joinMedia(ctx); err != nil {
			return err
		}
	}
	return nil
}

// handshake configures the remote pipeline: publish set_task, then poll
// with get_task until a current_task confirmation arrives or the boot
// timeout elapses. An unsolicited current_task arriving before our own
// get_task also counts as confirmation.
func (r *Realtime) handshake(ctx context.Context) error {
	payload, err := r.cfg.Serialize()
	if err != nil {
		return shared.NewBootError(fmt.Errorf("serializing config: %w", err))
	}
	var raw map[string]any
	if err := decodeInto(payload, &raw); err != nil {
		return shared.NewBootError(err)
	}
	if err := r.send(ctx, message.TypeSetTask, raw); err != nil {
		return shared.NewBootError(fmt.Errorf("sending set_task: %w", err))
	}

	_, sub := r.OutBus.Subscribe("handshake", 32)
	defer r.OutBus.Unsubscribe("handshake")

	deadline := time.After(config.BootTimeout)
	ticker := time.NewTicker(config.TaskConfigHandshakeRetry)
	defer ticker.Stop()

	if err := r.send(ctx, message.TypeGetTask, map[string]any{}); err != nil {
		return shared.NewBootError(fmt.Errorf("sending get_task: %w", err))
	}
	for {
		select {
		case box := <-sub:
			msg, ok := task.Next(box)
			if !ok {
				return shared.NewBootError(fmt.Errorf("out_bus closed during handshake"))
			}
			if msg.Type == message.TypeCurrentTask {
				return nil
			}
		case <-ticker.C:
			if err := r.send(ctx, message.TypeGetTask, map[string]any{}); err != nil {
				return shared.NewBootError(fmt.Errorf("sending get_task: %w", err))
			}
		case <-deadline:
			return shared.NewBootError(fmt.Errorf("task-config handshake timed out after %s", config.BootTimeout))
		case <-ctx.Done():
			return shared.NewBootError(ctx.Err())
		}
	}
}

func (r *Realtime) send(ctx context.Context, t message.Type, data any) error {
	frame, err := message.Encode(t, data)
	if err != nil {
		return err
	}
	return r.Control.Send(ctx, frame)
}

// Send publishes msg on the inbound bus for forwarding to the control
// transport.
func (r *Realtime) Send(msg message.ControlMessage) error {
	return r.InBus.Publish(msg)
}

// pumpInToControl consumes InBus and forwards every message to the
// control transport.
func (r *Realtime) pumpInToControl(ctx context.Context) {
	_, sub := r.InBus.Subscribe("to-control", 64)
	defer r.InBus.Unsubscribe("to-control")
	for {
		select {
		case box := <-sub:
			msg, ok := task.Next(box)
			if !ok {
				return
			}
			var t message.Type
			var data any
			switch {
			case msg.IsTranscription():
				t, data = msg.Type, msg.Transcription
			case msg.TaskConfig != nil:
				t = msg.Type
				_ = decodeInto(msg.TaskConfig, &data)
			default:
				t = msg.Type
				data = map[string]any{}
			}
			if err := r.send(ctx, t, data); err != nil && r.log != nil {
				r.log.Warn("failed forwarding message to control transport", zap.Error(err))
			}
		case <-r.stopper.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

// pumpControlToOut consumes the control transport's inbound raw frames,
// decodes them, applies transcription dedup, and publishes survivors to
// OutBus. This is the single reader task for the control transport's
// inbound stream.
func (r *Realtime) pumpControlToOut(ctx context.Context) {
	for {
		select {
		case frame, ok := <-r.Control.Inbound():
			if !ok {
				return
			}
			r.routeInbound(ctx, message.Decode(frame))
		case <-r.stopper.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Realtime) routeInbound(ctx context.Context, msg message.ControlMessage) {
	if msg.Type == message.TypeOutputAudioData {
		// Translated audio riding the control connection belongs to the
		// media transport, not to bus subscribers.
		if sink, ok := r.Media.(audioDeliverer); ok {
			if err := sink.DeliverAudio(ctx, msg.Audio); err != nil && r.log != nil {
				r.log.Warn("delivering audio payload failed", zap.Error(err))
			}
			return
		}
	}
	if msg.IsTranscription() {
		key := msg.Key()
		if !r.dedup.Add(key) {
			return // exact repeat within the dedup window
		}
	}
	if err := r.OutBus.Publish(msg); err != nil && r.log != nil {
		r.log.Warn("out_bus publish failed", zap.Error(err))
	}
}

// Do blocks until the stopper is raised or ctx is cancelled; Realtime's
// actual work happens in the pump goroutines started by Boot.
func (r *Realtime) Do(ctx context.Context) error {
	select {
	case <-r.stopper.Done():
		return nil
	case <-ctx.Done():
		return nil
	}
}

// Exit closes both transports and the buses.
func (r *Realtime) Exit(ctx context.Context) error {
	r.InBus.Close()
	r.OutBus.Close()
	if r.Media != nil {
		_ = r.Media.Close(ctx)
	}
	return r.Control.Close(ctx)
}

var _ task.Runnable = (*Realtime)(nil)

func decodeInto(data []byte, out any) error {
	return decodeJSON(data, out)
}
