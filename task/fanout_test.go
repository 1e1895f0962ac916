package task

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanoutBus_EachSubscriberGetsEveryMessageInOrder(t *testing.T) {
	bus := NewFanoutBus[int](nil)
	_, a := bus.Subscribe("a", 8)
	_, b := bus.Subscribe("b", 8)

	for i := 0; i < 5; i++ {
		require.NoError(t, bus.Publish(i))
	}
	bus.Close()

	assertOrdered := func(t *testing.T, ch <-chan msgBox[int]) {
		var got []int
		for box := range ch {
			v, ok := Next(box)
			if !ok {
				break
			}
			got = append(got, v)
		}
		assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	}
	assertOrdered(t, a)
	assertOrdered(t, b)
}

func TestFanoutBus_SubscribeIsIdempotentPerID(t *testing.T) {
	bus := NewFanoutBus[string](nil)
	id1, ch1 := bus.Subscribe("fixed", 4)
	id2, ch2 := bus.Subscribe("fixed", 4)

	assert.Equal(t, id1, id2)
	require.NoError(t, bus.Publish("hello"))

	select {
	case box := <-ch1:
		v, ok := Next(box)
		assert.True(t, ok)
		assert.Equal(t, "hello", v)
	case <-time.After(time.Second):
		t.Fatal("expected message on ch1")
	}
	// ch2 is the very channel ch1 names: the single publish was queued once
	// and has already been received above.
	assert.Equal(t, ch1, ch2)
	assert.Len(t, ch2, 0)
}

func TestFanoutBus_FullQueueDropsWithoutBlockingProducer(t *testing.T) {
	bus := NewFanoutBus[int](nil)
	_, slow := bus.Subscribe("slow", 1)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = bus.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber queue")
	}

	// the slow subscriber only ever got its first buffered message; later
	// publishes were dropped rather than queued or blocking.
	box := <-slow
	v, ok := Next(box)
	assert.True(t, ok)
	assert.Equal(t, 0, v)
}

func TestFanoutBus_PublishAfterCloseErrors(t *testing.T) {
	bus := NewFanoutBus[int](nil)
	bus.Close()
	err := bus.Publish(1)
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestFanoutBus_UnsubscribeSendsEOS(t *testing.T) {
	bus := NewFanoutBus[int](nil)
	_, ch := bus.Subscribe("a", 4)
	bus.Unsubscribe("a")

	select {
	case box := <-ch:
		_, ok := Next(box)
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("expected EOS after Unsubscribe")
	}
}
