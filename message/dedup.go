package message

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// DedupKey is the deterministic digest of (transcription_id, text, kind)
// used to suppress repeated transcription messages.
type DedupKey uint64

// Key computes the dedup key for a transcription-variant message. Callers
// must check IsTranscription first; Key panics if Transcription is nil.
func (m ControlMessage) Key() DedupKey {
	t := m.Transcription
	h := xxhash.New()
	_, _ = h.WriteString(t.TranscriptionID)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(t.Text)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(string(m.Kind()))
	return DedupKey(h.Sum64())
}

func (k DedupKey) String() string {
	return strconv.FormatUint(uint64(k), 16)
}
