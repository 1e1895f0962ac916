package transport

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightwaveai/streamxlate/audio"
	"github.com/brightwaveai/streamxlate/message"
)

type fakeControlTransport struct {
	mu   sync.Mutex
	sent [][]byte
}

func (f *fakeControlTransport) Connect(ctx context.Context, url, token string) error { return nil }
func (f *fakeControlTransport) Send(ctx context.Context, frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, frame)
	return nil
}
func (f *fakeControlTransport) Inbound() <-chan []byte { return nil }
func (f *fakeControlTransport) Close(ctx context.Context) error { return nil }

func TestWSMediaTransport_PublishEncodesAsInputAudioData(t *testing.T) {
	fc := &fakeControlTransport{}
	mt := NewWSMediaTransport(fc, 24000, 1)

	frame := audio.NewFrameFromBytes([]byte{1, 2, 3, 4}, 24000, 1)
	require.NoError(t, mt.PublishFrame(context.Background(), frame))

	require.Len(t, fc.sent, 1)
	msg := message.Decode(fc.sent[0])
	assert.Equal(t, message.TypeInputAudioData, msg.Type)
}

func TestWSMediaTransport_DeliverAudioDecodesBase64PCM(t *testing.T) {
	fc := &fakeControlTransport{}
	mt := NewWSMediaTransport(fc, 24000, 1)

	frame := audio.NewFrameFromBytes([]byte{5, 6, 7, 8}, 24000, 1)
	env, err := message.Encode(message.TypeOutputAudioData, message.AudioData{Data: base64.StdEncoding.EncodeToString(frame.Bytes())})
	require.NoError(t, err)
	msg := message.Decode(env)
	require.NotNil(t, msg.Audio)

	require.NoError(t, mt.DeliverAudio(context.Background(), msg.Audio))

	got := <-mt.Inbound()
	assert.Equal(t, frame.Samples, got.Samples)
}
