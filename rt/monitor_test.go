package rt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightwaveai/streamxlate/message"
)

func TestMonitor_SilenceTracksTranscriptionWindow(t *testing.T) {
	m := NewMonitor(newTestRealtime(newFakeControl(), newFakeMedia(false)), 3, nil)
	assert.True(t, m.Silence(), "empty window is silent")

	m.observe(message.Decode(transcriptionFrame(message.TypePartialTranscription, "tr-1", "en", "hi")))
	assert.False(t, m.Silence())

	// Three non-transcription messages slide the transcription out of the
	// capacity-3 window.
	status, _ := message.Encode(message.TypeQueueStatus, map[string]message.QueueLevel{})
	for i := 0; i < 3; i++ {
		m.observe(message.Decode(status))
	}
	assert.True(t, m.Silence())
}

func TestMonitor_CountsMessagesByType(t *testing.T) {
	m := NewMonitor(newTestRealtime(newFakeControl(), newFakeMedia(false)), 100, nil)

	m.observe(message.Decode(transcriptionFrame(message.TypePartialTranscription, "tr-1", "en", "a")))
	m.observe(message.Decode(transcriptionFrame(message.TypePartialTranscription, "tr-2", "en", "b")))
	status, _ := message.Encode(message.TypeQueueStatus, map[string]message.QueueLevel{})
	m.observe(message.Decode(status))

	counts := m.Counts()
	assert.Equal(t, 2, counts[message.TypePartialTranscription])
	assert.Equal(t, 1, counts[message.TypeQueueStatus])
}

func TestMonitor_DoConsumesOutBusUntilStopped(t *testing.T) {
	realtime := newTestRealtime(newFakeControl(), newFakeMedia(false))
	m := NewMonitor(realtime, 100, nil)

	// Subscribing under Monitor's id up front is idempotent: Do reuses the
	// same queue, so a message published before Do starts is not lost.
	realtime.OutBus.Subscribe("monitor", 64)
	realtime.routeInbound(context.Background(), message.Decode(transcriptionFrame(message.TypeValidatedTranscription, "tr-1", "en", "hello")))

	done := make(chan error, 1)
	go func() { done <- m.Do(context.Background()) }()

	require.Eventually(t, func() bool {
		return m.Counts()[message.TypeValidatedTranscription] == 1
	}, time.Second, 5*time.Millisecond)

	realtime.OutBus.Close()
	assert.NoError(t, <-done)
}
