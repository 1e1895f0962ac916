// Package audio holds the PCM16 frame representation shared by every
// Reader, Writer, and transport in this module, along with the pure WAV
// serialization and chunk-size helpers built on top of it.
package audio

import (
	"time"

	"github.com/brightwaveai/streamxlate/tools"
)

// DefaultSampleRate and DefaultChannels are the pipeline's canonical
// PCM16 format.
const (
	DefaultSampleRate = 48000
	DefaultChannels   = 1
	BytesPerSample    = 2
)

// Frame is a lightweight PCM16 audio frame: one or more channels of signed
// 16-bit samples, interleaved.
type Frame struct {
	Samples            []int16
	SampleRate         int
	NumChannels        int
	SamplesPerChannel  int
}

// NewFrame builds a Frame from interleaved int16 samples. If
// samplesPerChannel is zero, it is derived from len(samples)/numChannels.
func NewFrame(samples []int16, sampleRate, numChannels, samplesPerChannel int) Frame {
	if samplesPerChannel == 0 && numChannels > 0 {
		samplesPerChannel = len(samples) / numChannels
	}
	return Frame{
		Samples:           samples,
		SampleRate:        sampleRate,
		NumChannels:       numChannels,
		SamplesPerChannel: samplesPerChannel,
	}
}

// NewFrameFromBytes builds a Frame from little-endian PCM16 bytes, the wire
// representation used by every transport and adapter in this module.
func NewFrameFromBytes(data []byte, sampleRate, numChannels int) Frame {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(data[2*i]) | int16(data[2*i+1])<<8
	}
	return NewFrame(samples, sampleRate, numChannels, 0)
}

// Bytes serializes the frame back to little-endian PCM16 bytes.
func (f Frame) Bytes() []byte {
	out := make([]byte, len(f.Samples)*2)
	for i, s := range f.Samples {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

// IsSilence reports whether every sample in the frame is zero, used by
// writers that drop silent frames.
func (f Frame) IsSilence() bool {
	for _, s := range f.Samples {
		if s != 0 {
			return false
		}
	}
	return true
}

// ChunkSamples returns the number of interleaved samples a chunk of the
// given duration holds at rate/channels.
func ChunkSamples(durationMs int64, rate, channels int) int {
	return tools.FrameSamples(time.Duration(durationMs)*time.Millisecond, rate, channels)
}

// ChunkBytes returns the byte length of a chunk of the given duration at
// rate/channels (samples * BytesPerSample).
func ChunkBytes(durationMs int64, rate, channels int) int {
	return ChunkSamples(durationMs, rate, channels) * BytesPerSample
}

// PadToChunk zero-pads data's tail up to chunkBytes, used when a Reader's
// final read returns a partial chunk.
func PadToChunk(data []byte, chunkBytes int) []byte {
	if len(data) >= chunkBytes {
		return data
	}
	padded := make([]byte, chunkBytes)
	copy(padded, data)
	return padded
}
