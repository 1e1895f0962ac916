package rt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightwaveai/streamxlate/config"
	"github.com/brightwaveai/streamxlate/message"
	"github.com/brightwaveai/streamxlate/task"
)

func newTestRealtime(control *fakeControl, media *fakeMedia) *Realtime {
	return NewRealtime(control, media, config.New("en", "es"), "ws://test", "token", nil)
}

func TestRealtime_BootRunsTaskConfigHandshake(t *testing.T) {
	control := newFakeControl()
	control.onSend = answerHandshake
	r := newTestRealtime(control, newFakeMedia(false))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Boot(ctx))

	sent := control.sentFrames()
	require.NotEmpty(t, sent)
	first := message.Decode(sent[0])
	assert.Equal(t, message.TypeSetTask, first.Type)

	sawGetTask := false
	for _, frame := range sent[1:] {
		if message.Decode(frame).Type == message.TypeGetTask {
			sawGetTask = true
		}
	}
	assert.True(t, sawGetTask, "expected at least one get_task poll")

	r.stopper.Raise()
	require.NoError(t, r.Exit(ctx))
}

func TestRealtime_HandshakeAcceptsUnsolicitedCurrentTask(t *testing.T) {
	control := newFakeControl()
	// current_task arrives before our own get_task goes out.
	reply, _ := message.Encode(message.TypeCurrentTask, map[string]any{})
	control.deliver(reply)
	r := newTestRealtime(control, newFakeMedia(false))
	// Pre-subscribing under the handshake's id keeps the early message
	// queued for it (Subscribe is idempotent per id).
	r.OutBus.Subscribe("handshake", 32)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Boot(ctx))

	r.stopper.Raise()
	require.NoError(t, r.Exit(ctx))
}

func TestRealtime_MediaJoinerRunsAfterHandshake(t *testing.T) {
	control := newFakeControl()
	control.onSend = answerHandshake
	r := newTestRealtime(control, newFakeMedia(false))

	joined := false
	r.SetMediaJoiner(func(ctx context.Context) error {
		joined = true
		// By the time the joiner runs, set_task must already be out.
		require.NotEmpty(t, control.sentFrames())
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, r.Boot(ctx))
	assert.True(t, joined)

	r.stopper.Raise()
	require.NoError(t, r.Exit(ctx))
}

func TestRealtime_DedupSuppressesExactRepeats(t *testing.T) {
	r := newTestRealtime(newFakeControl(), newFakeMedia(false))
	_, sub := r.OutBus.Subscribe("test", 256)

	frame := transcriptionFrame(message.TypeValidatedTranscription, "tr-1", "en", "hello world")
	for i := 0; i < 200; i++ {
		r.routeInbound(context.Background(), message.Decode(frame))
	}

	delivered := 0
	for {
		select {
		case box := <-sub:
			if _, ok := task.Next(box); ok {
				delivered++
				continue
			}
		default:
		}
		break
	}
	assert.Equal(t, 1, delivered)
	assert.LessOrEqual(t, r.dedup.Len(), config.DedupCapacity)
}

func TestRealtime_DedupKeyCoversIDTextAndKind(t *testing.T) {
	r := newTestRealtime(newFakeControl(), newFakeMedia(false))
	_, sub := r.OutBus.Subscribe("test", 256)

	// Same transcription_id and text, but partial vs validated: distinct.
	r.routeInbound(context.Background(), message.Decode(transcriptionFrame(message.TypePartialTranscription, "tr-1", "en", "hi")))
	r.routeInbound(context.Background(), message.Decode(transcriptionFrame(message.TypeValidatedTranscription, "tr-1", "en", "hi")))
	// Same id and kind, different text: distinct.
	r.routeInbound(context.Background(), message.Decode(transcriptionFrame(message.TypeValidatedTranscription, "tr-1", "en", "hi there")))

	delivered := 0
	for {
		select {
		case box := <-sub:
			if _, ok := task.Next(box); ok {
				delivered++
				continue
			}
		default:
		}
		break
	}
	assert.Equal(t, 3, delivered)
}

func TestRealtime_NonTranscriptionMessagesPassThrough(t *testing.T) {
	r := newTestRealtime(newFakeControl(), newFakeMedia(false))
	_, sub := r.OutBus.Subscribe("test", 16)

	frame, _ := message.Encode(message.TypeQueueStatus, map[string]message.QueueLevel{
		"es": {CurrentQueueLevelMs: 120, MaxQueueLevelMs: 24000},
	})
	r.routeInbound(context.Background(), message.Decode(frame))
	r.routeInbound(context.Background(), message.Decode(frame))

	delivered := 0
	for {
		select {
		case box := <-sub:
			if _, ok := task.Next(box); ok {
				delivered++
				continue
			}
		default:
		}
		break
	}
	// Dedup applies to transcription messages only.
	assert.Equal(t, 2, delivered)
}

func TestRealtime_OutputAudioRoutedToMediaSink(t *testing.T) {
	media := &fakeAudioSinkMedia{fakeMedia: newFakeMedia(false)}
	r := NewRealtime(newFakeControl(), media, config.New("en", "es"), "ws://test", "token", nil)
	_, sub := r.OutBus.Subscribe("test", 16)

	frame, _ := message.Encode(message.TypeOutputAudioData, message.AudioData{Data: "AAAA"})
	r.routeInbound(context.Background(), message.Decode(frame))

	media.deliveredMu.Lock()
	delivered := len(media.delivered)
	media.deliveredMu.Unlock()
	require.Equal(t, 1, delivered)

	// The audio payload must not reach bus subscribers.
	select {
	case box := <-sub:
		if msg, ok := task.Next(box); ok {
			t.Fatalf("unexpected message on out_bus: %s", msg.Type)
		}
	default:
	}
}
