package rt

import (
	"context"
	"sync"

	"github.com/brightwaveai/streamxlate/adapter"
	"github.com/brightwaveai/streamxlate/audio"
	"github.com/brightwaveai/streamxlate/message"
	"github.com/brightwaveai/streamxlate/transport"
)

// fakeControl is an in-memory ControlTransport: Send records frames and
// optionally triggers onSend (used to script the remote side's answers),
// Inbound is a plain channel tests push frames into.
type fakeControl struct {
	mu      sync.Mutex
	sent    [][]byte
	inbound chan []byte
	closed  bool

	onSend func(c *fakeControl, frame []byte)
}

var _ transport.ControlTransport = (*fakeControl)(nil)

func newFakeControl() *fakeControl {
	return &fakeControl{inbound: make(chan []byte, 256)}
}

func (c *fakeControl) Connect(ctx context.Context, url, token string) error { return nil }

func (c *fakeControl) Send(ctx context.Context, frame []byte) error {
	c.mu.Lock()
	c.sent = append(c.sent, frame)
	hook := c.onSend
	c.mu.Unlock()
	if hook != nil {
		hook(c, frame)
	}
	return nil
}

func (c *fakeControl) Inbound() <-chan []byte { return c.inbound }

func (c *fakeControl) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.inbound)
	}
	return nil
}

// deliver pushes a raw frame into the inbound stream, dropping it if the
// transport was already closed.
func (c *fakeControl) deliver(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.inbound <- frame
}

func (c *fakeControl) sentFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

// answerHandshake is an onSend hook that answers any get_task with a
// current_task confirmation, the minimum a remote must do for Boot to
// complete.
func answerHandshake(c *fakeControl, frame []byte) {
	msg := message.Decode(frame)
	if msg.Type == message.TypeGetTask {
		reply, _ := message.Encode(message.TypeCurrentTask, map[string]any{})
		c.deliver(reply)
	}
}

// fakeMedia is an in-memory MediaTransport. With loopback set, every
// published frame is echoed back on Inbound, standing in for the remote
// translator.
type fakeMedia struct {
	mu        sync.Mutex
	published []audio.Frame
	inbound   chan audio.Frame
	closed    bool
	loopback  bool
}

var _ transport.MediaTransport = (*fakeMedia)(nil)

func newFakeMedia(loopback bool) *fakeMedia {
	return &fakeMedia{inbound: make(chan audio.Frame, 256), loopback: loopback}
}

func (m *fakeMedia) PublishFrame(ctx context.Context, frame audio.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, frame)
	if m.loopback && !m.closed {
		select {
		case m.inbound <- frame:
		default:
		}
	}
	return nil
}

func (m *fakeMedia) Inbound() <-chan audio.Frame { return m.inbound }

func (m *fakeMedia) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed {
		m.closed = true
		close(m.inbound)
	}
	return nil
}

func (m *fakeMedia) publishedFrames() []audio.Frame {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]audio.Frame(nil), m.published...)
}

// fakeAudioSinkMedia additionally records DeliverAudio payloads, standing
// in for a WS-mode media transport fed off the shared control connection.
type fakeAudioSinkMedia struct {
	*fakeMedia
	deliveredMu sync.Mutex
	delivered   []*message.AudioData
}

func (m *fakeAudioSinkMedia) DeliverAudio(ctx context.Context, a *message.AudioData) error {
	m.deliveredMu.Lock()
	defer m.deliveredMu.Unlock()
	m.delivered = append(m.delivered, a)
	return nil
}

// fakeWriter records frames and end-of-stream sentinels, implementing
// adapter.Writer without any real sink.
type fakeWriter struct {
	mu        sync.Mutex
	frames    []audio.Frame
	eosCount  int
	finalized bool

	eosCh   chan struct{}
	eosOnce sync.Once
}

var _ adapter.Writer = (*fakeWriter)(nil)

func newFakeWriter() *fakeWriter {
	return &fakeWriter{eosCh: make(chan struct{})}
}

func (w *fakeWriter) SetTrackSettings(settings adapter.TrackSettings) {}

func (w *fakeWriter) PutFrame(frame audio.Frame) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.frames = append(w.frames, frame)
}

func (w *fakeWriter) PutEOS() {
	w.mu.Lock()
	w.eosCount++
	w.mu.Unlock()
	w.eosOnce.Do(func() { close(w.eosCh) })
}

func (w *fakeWriter) Boot(ctx context.Context) error { return nil }

func (w *fakeWriter) Do(ctx context.Context) error {
	select {
	case <-w.eosCh:
	case <-ctx.Done():
	}
	return nil
}

func (w *fakeWriter) Exit(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.finalized = true
	return nil
}

func (w *fakeWriter) pcmLen() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	total := 0
	for _, f := range w.frames {
		total += len(f.Samples) * 2
	}
	return total
}

func (w *fakeWriter) isFinalized() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finalized
}

// transcriptionFrame builds a raw wire frame for a transcription message.
func transcriptionFrame(msgType message.Type, id, lang, text string) []byte {
	frame, _ := message.Encode(msgType, message.Transcription{
		TranscriptionID: id,
		Language:        lang,
		Text:            text,
		Segments:        []message.Segment{{Text: text, Confidence: 0.9}},
	})
	return frame
}
