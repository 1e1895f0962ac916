package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFrameFromBytes_RoundTripsThroughBytes(t *testing.T) {
	original := []byte{0x01, 0x02, 0xFF, 0x7F, 0x00, 0x80}
	frame := NewFrameFromBytes(original, DefaultSampleRate, 1)

	assert.Equal(t, original, frame.Bytes())
	assert.Equal(t, 3, frame.SamplesPerChannel)
}

func TestFrame_IsSilence(t *testing.T) {
	silent := NewFrame(make([]int16, 480), DefaultSampleRate, 1, 0)
	assert.True(t, silent.IsSilence())

	loud := NewFrame([]int16{0, 0, 1, 0}, DefaultSampleRate, 1, 0)
	assert.False(t, loud.IsSilence())
}

func TestChunkBytes_MatchesSampleRateAndDuration(t *testing.T) {
	tests := []struct {
		name       string
		durationMs int64
		rate       int
		channels   int
		expected   int
	}{
		{"48kHz mono 20ms", 20, 48000, 1, 1920},
		{"16kHz mono 100ms", 100, 16000, 1, 3200},
		{"48kHz stereo 120ms", 120, 48000, 2, 23040},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ChunkBytes(tt.durationMs, tt.rate, tt.channels))
		})
	}
}

func TestPadToChunk_ZeroPadsShortTail(t *testing.T) {
	data := []byte{1, 2, 3}
	padded := PadToChunk(data, 8)

	assert.Len(t, padded, 8)
	assert.Equal(t, []byte{1, 2, 3, 0, 0, 0, 0, 0}, padded)
}

func TestPadToChunk_LeavesFullChunkUnchanged(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	assert.Equal(t, data, PadToChunk(data, 4))
}
