// Package message defines the control-channel wire format: a tagged union
// of ControlMessage variants keyed by message_type, and the transcription
// message shape carried inside several of them.
package message

import (
	"encoding/json"

	"github.com/bytedance/sonic"
)

// Type is the message_type discriminant on the wire.
type Type string

const (
	TypeSetTask                       Type = "set_task"
	TypeGetTask                       Type = "get_task"
	TypeCurrentTask                   Type = "current_task"
	TypeEndTask                       Type = "end_task"
	TypePipelineTimings               Type = "pipeline_timings"
	TypeQueueStatus                   Type = "queue_status"
	TypePartialTranscription          Type = "partial_transcription"
	TypeValidatedTranscription        Type = "validated_transcription"
	TypeTranslatedPartialTranscription Type = "translated_partial_transcription"
	TypeTranslatedTranscription       Type = "translated_transcription"
	TypeOutputAudioData               Type = "output_audio_data"
	TypeInputAudioData                Type = "input_audio_data"
	TypeUnknown                       Type = "unknown"
)

// TranscriptionKind classifies a transcription message for dedup.
type TranscriptionKind string

const (
	KindPartial             TranscriptionKind = "partial"
	KindValidated           TranscriptionKind = "validated"
	KindTranslatedPartial   TranscriptionKind = "translated_partial"
	KindTranslatedValidated TranscriptionKind = "translated_validated"
)

// transcriptionTypeToKind maps the wire message_type to the dedup-relevant
// TranscriptionMessage.kind, since the wire distinguishes partial vs.
// validated vs. translated by message_type rather than by a field.
var transcriptionTypeToKind = map[Type]TranscriptionKind{
	TypePartialTranscription:          KindPartial,
	TypeValidatedTranscription:        KindValidated,
	TypeTranslatedPartialTranscription: KindTranslatedPartial,
	TypeTranslatedTranscription:       KindTranslatedValidated,
}

// Segment is one TranscriptionSegment entry.
type Segment struct {
	Text           string  `json:"text"`
	Confidence     float64 `json:"confidence"`
	StartS         float64 `json:"start"`
	EndS           float64 `json:"end"`
	StartTimestamp float64 `json:"start_timestamp"`
}

// Transcription is the data payload of any *_transcription message.
type Transcription struct {
	TranscriptionID string    `json:"transcription_id"`
	Language        string    `json:"language"`
	Text            string    `json:"text"`
	Segments        []Segment `json:"segments"`
}

// QueueLevel is one language entry of a queue_status message's data map.
type QueueLevel struct {
	CurrentQueueLevelMs int `json:"current_queue_level_ms"`
	MaxQueueLevelMs     int `json:"max_queue_level_ms"`
}

// AudioData is the data payload of output_audio_data / input_audio_data:
// base64-encoded raw PCM16, decoded by the caller via encoding/base64.
type AudioData struct {
	Data string `json:"data"`
}

// ControlMessage is the envelope every control-channel frame is decoded
// into: Type selects which of the typed fields below is populated.
// A well-formed frame of an unknown message type gets Type = TypeUnknown
// with Raw kept and DecodeErr nil; a frame that fails to decode also sets
// DecodeErr. A malformed inbound frame is a diagnostic, not an error.
type ControlMessage struct {
	Type Type `json:"message_type"`

	// Populated when Type is one of the *_transcription variants.
	Transcription *Transcription
	// Populated when Type is queue_status.
	QueueStatus map[string]QueueLevel
	// Populated when Type is output_audio_data or input_audio_data.
	Audio *AudioData
	// Populated when Type is set_task or current_task: the canonical or
	// flattened config payload, left as raw bytes for config.Parse to
	// decode (message does not depend on config, to avoid an import
	// cycle between the two packages).
	TaskConfig []byte
	// The raw data object, undecoded, for every frame whose envelope
	// decoded; the whole frame when the envelope itself did not decode.
	Raw []byte
	// Set when the envelope, or a known variant's data object, failed to
	// decode; nil for a well-formed frame of an unrecognized type.
	DecodeErr error
}

type wireEnvelope struct {
	MessageType Type            `json:"message_type"`
	Data        json.RawMessage `json:"data"`
}

// Decode parses a single control-channel frame into a ControlMessage.
// It never returns an error for a malformed payload: instead Type is set
// to TypeUnknown and DecodeErr records what went wrong, with the raw
// payload preserved for debugging.
func Decode(frame []byte) ControlMessage {
	var env wireEnvelope
	if err := sonic.Unmarshal(frame, &env); err != nil {
		return ControlMessage{Type: TypeUnknown, Raw: frame, DecodeErr: err}
	}

	msg := ControlMessage{Type: env.MessageType, Raw: []byte(env.Data)}

	if kind, ok := transcriptionTypeToKind[env.MessageType]; ok {
		_ = kind
		var t Transcription
		if err := sonic.Unmarshal(env.Data, &t); err != nil {
			msg.Type = TypeUnknown
			msg.DecodeErr = err
			return msg
		}
		msg.Transcription = &t
		return msg
	}

	switch env.MessageType {
	case TypeQueueStatus:
		var qs map[string]QueueLevel
		if err := sonic.Unmarshal(env.Data, &qs); err != nil {
			msg.Type = TypeUnknown
			msg.DecodeErr = err
			return msg
		}
		msg.QueueStatus = qs
	case TypeOutputAudioData, TypeInputAudioData:
		var a AudioData
		if err := sonic.Unmarshal(env.Data, &a); err != nil {
			msg.Type = TypeUnknown
			msg.DecodeErr = err
			return msg
		}
		msg.Audio = &a
	case TypeSetTask, TypeCurrentTask:
		msg.TaskConfig = []byte(env.Data)
	case TypeGetTask, TypeEndTask, TypePipelineTimings:
		// data carried as Raw already; nothing further to decode.
	default:
		msg.Type = TypeUnknown
	}
	return msg
}

// Kind returns the TranscriptionKind for a transcription-variant message,
// or "" if msg is not a transcription message.
func (m ControlMessage) Kind() TranscriptionKind {
	return transcriptionTypeToKind[m.Type]
}

// IsTranscription reports whether msg carries a Transcription payload.
func (m ControlMessage) IsTranscription() bool {
	return m.Transcription != nil
}

// Encode serializes a ControlMessage envelope for sending, given the
// concrete data payload to place in the data field (a Transcription,
// map[string]QueueLevel, AudioData, or raw config bytes).
func Encode(msgType Type, data any) ([]byte, error) {
	env := map[string]any{
		"message_type": msgType,
		"data":         data,
	}
	return sonic.Marshal(env)
}
