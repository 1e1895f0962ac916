package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_ValidatedTranscription(t *testing.T) {
	frame := []byte(`{
		"message_type": "validated_transcription",
		"data": {
			"transcription_id": "abc123",
			"language": "en",
			"text": "hello world",
			"segments": [{"text": "hello world", "confidence": 0.97, "start": 0.0, "end": 1.2, "start_timestamp": 0.0}]
		}
	}`)

	msg := Decode(frame)

	require.Nil(t, msg.DecodeErr)
	assert.Equal(t, TypeValidatedTranscription, msg.Type)
	require.True(t, msg.IsTranscription())
	assert.Equal(t, "abc123", msg.Transcription.TranscriptionID)
	assert.Equal(t, "en", msg.Transcription.Language)
	assert.Equal(t, KindValidated, msg.Kind())
	require.Len(t, msg.Transcription.Segments, 1)
	assert.InDelta(t, 0.97, msg.Transcription.Segments[0].Confidence, 0.0001)
}

func TestDecode_QueueStatus(t *testing.T) {
	frame := []byte(`{
		"message_type": "queue_status",
		"data": {"es": {"current_queue_level_ms": 120, "max_queue_level_ms": 2000}}
	}`)

	msg := Decode(frame)

	require.Nil(t, msg.DecodeErr)
	assert.Equal(t, TypeQueueStatus, msg.Type)
	require.Contains(t, msg.QueueStatus, "es")
	assert.Equal(t, 120, msg.QueueStatus["es"].CurrentQueueLevelMs)
	assert.Equal(t, 2000, msg.QueueStatus["es"].MaxQueueLevelMs)
}

func TestDecode_OutputAudioData(t *testing.T) {
	frame := []byte(`{"message_type": "output_audio_data", "data": {"data": "AAEC"}}`)

	msg := Decode(frame)

	require.Nil(t, msg.DecodeErr)
	require.NotNil(t, msg.Audio)
	assert.Equal(t, "AAEC", msg.Audio.Data)
}

func TestDecode_UnknownMessageTypePreservesRaw(t *testing.T) {
	frame := []byte(`{"message_type": "something_new", "data": {"foo": "bar"}}`)

	msg := Decode(frame)

	assert.Equal(t, TypeUnknown, msg.Type)
	assert.Nil(t, msg.DecodeErr)
	assert.Contains(t, string(msg.Raw), "foo")
}

func TestDecode_MalformedJSONSetsDecodeErr(t *testing.T) {
	frame := []byte(`not json at all`)

	msg := Decode(frame)

	assert.Equal(t, TypeUnknown, msg.Type)
	assert.Error(t, msg.DecodeErr)
	assert.Equal(t, frame, msg.Raw)
}

func TestDecode_SetTaskPreservesConfigBytesUndecoded(t *testing.T) {
	frame := []byte(`{"message_type": "set_task", "data": {"source": {}, "targets": []}}`)

	msg := Decode(frame)

	require.Nil(t, msg.DecodeErr)
	assert.Equal(t, TypeSetTask, msg.Type)
	assert.Contains(t, string(msg.TaskConfig), "targets")
}

func TestControlMessage_KeyIsStableAndDistinguishesKind(t *testing.T) {
	validated := Decode([]byte(`{"message_type": "validated_transcription", "data": {"transcription_id": "x", "language": "en", "text": "hi", "segments": []}}`))
	partial := Decode([]byte(`{"message_type": "partial_transcription", "data": {"transcription_id": "x", "language": "en", "text": "hi", "segments": []}}`))
	again := Decode([]byte(`{"message_type": "validated_transcription", "data": {"transcription_id": "x", "language": "en", "text": "hi", "segments": []}}`))

	assert.Equal(t, validated.Key(), again.Key())
	assert.NotEqual(t, validated.Key(), partial.Key())
}
