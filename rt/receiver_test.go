package rt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightwaveai/streamxlate/audio"
	"github.com/brightwaveai/streamxlate/shared"
	"github.com/brightwaveai/streamxlate/task"
)

func TestReceiver_DrainsFramesIntoWriterAndSignalsEOS(t *testing.T) {
	media := newFakeMedia(false)
	writer := newFakeWriter()
	r := NewReceiver(media, writer, time.Millisecond, 3, nil)
	r.SetStopper(task.NewEvent("test.receiver.stopper", nil))
	require.NoError(t, r.Boot(context.Background()))

	done := make(chan error, 1)
	go func() { done <- r.Do(context.Background()) }()

	f1 := audio.NewFrameFromBytes([]byte{1, 0, 2, 0}, 8000, 1)
	f2 := audio.NewFrameFromBytes([]byte{3, 0, 4, 0}, 8000, 1)
	media.inbound <- f1
	media.inbound <- f2
	require.NoError(t, media.Close(context.Background()))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("receiver did not exit after inbound stream closed")
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()
	assert.Len(t, writer.frames, 2)
	assert.Equal(t, 1, writer.eosCount)
}

func TestReceiver_StopperTriggersSingleEOS(t *testing.T) {
	media := newFakeMedia(false)
	writer := newFakeWriter()
	stopper := task.NewEvent("test.receiver.stopper", nil)
	r := NewReceiver(media, writer, time.Millisecond, 3, nil)
	r.SetStopper(stopper)

	done := make(chan error, 1)
	go func() { done <- r.Do(context.Background()) }()

	stopper.Raise()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("receiver did not exit after stopper was raised")
	}

	writer.mu.Lock()
	defer writer.mu.Unlock()
	assert.Empty(t, writer.frames)
	assert.Equal(t, 1, writer.eosCount)
}

func TestReceiver_BootFailsWithoutMediaTransport(t *testing.T) {
	r := NewReceiver(nil, newFakeWriter(), time.Millisecond, 3, nil)
	assert.Error(t, r.Boot(context.Background()))
}

// discoveringMedia stands in for an SFU transport whose translation track
// only appears after a few discovery polls.
type discoveringMedia struct {
	*fakeMedia
	mu         sync.Mutex
	calls      int
	readyAfter int // <0 means the track never appears
}

func (m *discoveringMedia) HasTranslationTrack() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.readyAfter >= 0 && m.calls > m.readyAfter
}

func TestReceiver_BootRetriesUntilTranslationTrackAppears(t *testing.T) {
	media := &discoveringMedia{fakeMedia: newFakeMedia(false), readyAfter: 3}
	r := NewReceiver(media, newFakeWriter(), time.Millisecond, 10, nil)
	require.NoError(t, r.Boot(context.Background()))

	media.mu.Lock()
	defer media.mu.Unlock()
	assert.Greater(t, media.calls, 3)
}

func TestReceiver_BootFailsOnceRetryBudgetIsExhausted(t *testing.T) {
	media := &discoveringMedia{fakeMedia: newFakeMedia(false), readyAfter: -1}
	r := NewReceiver(media, newFakeWriter(), time.Millisecond, 3, nil)

	err := r.Boot(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrTrackNotFound)
}

func TestReceiver_BootSkipsDiscoveryWhenMediaHasNoTrackNotion(t *testing.T) {
	// WS-mode media carries audio on the control connection; there is no
	// track to wait for and Boot must not burn the retry budget.
	r := NewReceiver(newFakeMedia(false), newFakeWriter(), time.Hour, 3, nil)
	require.NoError(t, r.Boot(context.Background()))
}
