package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hraban/opus"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"go.uber.org/zap"

	"github.com/brightwaveai/streamxlate/audio"
	"github.com/brightwaveai/streamxlate/shared"
)

// TranslatorIdentityPrefix and TranslationTrackPrefix are the fixed
// strings that identify the remote translation participant/track in SFU
// mode.
const (
	TranslatorIdentityPrefix = "palabra_translator_"
	TranslationTrackPrefix   = "translation_"
)

// Negotiator performs the SDP offer/answer exchange with the SFU given a
// room's stream_url and jwt_token. RESTNegotiator is the default
// implementation.
type Negotiator interface {
	Negotiate(ctx context.Context, streamURL, jwtToken, offerSDP string) (answerSDP string, err error)
}

// SFUMediaTransport joins a WebRTC SFU room, publishes a named local
// Opus audio track, and discovers + subscribes to the remote translator's
// track.
type SFUMediaTransport struct {
	log        shared.Logger
	negotiator Negotiator

	sampleRate int
	channels   int
	targetLang string

	pc         *webrtc.PeerConnection
	localTrack *webrtc.TrackLocalStaticSample
	encoder    *opus.Encoder

	mu          sync.Mutex
	decoder     *opus.Decoder
	remoteTrack *webrtc.TrackRemote

	inbound chan audio.Frame
	done    chan struct{}
}

var _ MediaTransport = (*SFUMediaTransport)(nil)

// NewSFUMediaTransport builds an unconnected transport for the given
// target language; call Join to perform the room join + track discovery.
func NewSFUMediaTransport(negotiator Negotiator, sampleRate, channels int, targetLang string, logger shared.Logger) (*SFUMediaTransport, error) {
	encoder, err := opus.NewEncoder(sampleRate, channels, opus.AppVoIP)
	if err != nil {
		return nil, fmt.Errorf("creating opus encoder: %w", err)
	}
	return &SFUMediaTransport{
		log:        logger,
		negotiator: negotiator,
		sampleRate: sampleRate,
		channels:   channels,
		targetLang: targetLang,
		encoder:    encoder,
		inbound:    make(chan audio.Frame, 32),
		done:       make(chan struct{}),
	}, nil
}

// Join publishes the local track, performs the offer/answer exchange via
// negotiator against streamURL/jwtToken, and waits up to bootTimeout for
// the remote translator's track to appear, retrying discovery at
// retryInterval.
func (t *SFUMediaTransport) Join(ctx context.Context, streamURL, jwtToken string, bootTimeout, retryInterval time.Duration) error {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return shared.NewBootError(fmt.Errorf("creating peer connection: %w", err))
	}
	t.pc = pc

	localTrack, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: uint32(t.sampleRate), Channels: uint16(t.channels)},
		"audio", "source",
	)
	if err != nil {
		return shared.NewBootError(fmt.Errorf("creating local track: %w", err))
	}
	t.localTrack = localTrack
	if _, err := pc.AddTrack(localTrack); err != nil {
		return shared.NewBootError(fmt.Errorf("adding local track: %w", err))
	}

	trackFound := make(chan struct{})
	var foundOnce sync.Once
	pc.OnTrack(func(remote *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		if !t.matchesTranslationTrack(remote) {
			return
		}
		t.mu.Lock()
		t.remoteTrack = remote
		t.mu.Unlock()
		foundOnce.Do(func() { close(trackFound) })
		go t.drainRemoteTrack(remote)
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return shared.NewBootError(fmt.Errorf("creating offer: %w", err))
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		return shared.NewBootError(fmt.Errorf("setting local description: %w", err))
	}
	answer, err := t.negotiator.Negotiate(ctx, streamURL, jwtToken, offer.SDP)
	if err != nil {
		return shared.NewBootError(fmt.Errorf("negotiating SFU session: %w", err))
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer}); err != nil {
		return shared.NewBootError(fmt.Errorf("setting remote description: %w", err))
	}

	deadline := time.After(bootTimeout)
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-trackFound:
			return nil
		case <-ticker.C:
			if t.log != nil {
				t.log.Debug("still waiting for translation track", zap.String("target_lang", t.targetLang))
			}
		case <-deadline:
			return shared.NewBootError(shared.ErrTrackNotFound)
		case <-ctx.Done():
			return shared.NewBootError(ctx.Err())
		}
	}
}

// HasTranslationTrack reports whether the remote translator's track has
// been discovered and subscribed yet.
func (t *SFUMediaTransport) HasTranslationTrack() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remoteTrack != nil
}

func (t *SFUMediaTransport) matchesTranslationTrack(remote *webrtc.TrackRemote) bool {
	return isTranslationTrack(remote.StreamID(), remote.ID(), t.targetLang)
}

// isTranslationTrack is the pure predicate behind OnTrack's discovery
// gate, factored out so it can be tested without a live PeerConnection.
func isTranslationTrack(participantIdentity, trackName, targetLang string) bool {
	return strings.HasPrefix(participantIdentity, TranslatorIdentityPrefix) &&
		strings.HasPrefix(trackName, TranslationTrackPrefix+targetLang)
}

func (t *SFUMediaTransport) drainRemoteTrack(remote *webrtc.TrackRemote) {
	decoder, err := opus.NewDecoder(t.sampleRate, t.channels)
	if err != nil {
		if t.log != nil {
			t.log.Error("creating opus decoder", err)
		}
		return
	}
	t.mu.Lock()
	t.decoder = decoder
	t.mu.Unlock()

	pcm := make([]int16, t.sampleRate/5*t.channels) // up to 200ms per packet
	for {
		select {
		case <-t.done:
			return
		default:
		}
		pkt, _, err := remote.ReadRTP()
		if err != nil {
			if !errors.Is(err, io.EOF) && t.log != nil {
				t.log.Warn("reading RTP packet", zap.Error(err))
			}
			return
		}
		n, err := decoder.Decode(pkt.Payload, pcm)
		if err != nil || n <= 0 {
			continue
		}
		frame := audio.NewFrame(append([]int16(nil), pcm[:n*t.channels]...), t.sampleRate, t.channels, n)
		select {
		case t.inbound <- frame:
		case <-t.done:
			return
		default:
			if t.log != nil {
				t.log.Warn("media inbound queue full, dropping frame")
			}
		}
	}
}

// PublishFrame encodes frame to Opus and writes it as an RTP sample,
// blocking no longer than one chunk duration (WriteSample itself is
// non-blocking under pion/webrtc's static-sample track).
func (t *SFUMediaTransport) PublishFrame(ctx context.Context, frame audio.Frame) error {
	out := make([]byte, 4000)
	n, err := t.encoder.Encode(frame.Samples, out)
	if err != nil {
		return fmt.Errorf("encoding opus: %w", err)
	}
	duration := time.Duration(frame.SamplesPerChannel) * time.Second / time.Duration(frame.SampleRate)
	return t.localTrack.WriteSample(media.Sample{Data: out[:n], Duration: duration})
}

func (t *SFUMediaTransport) Inbound() <-chan audio.Frame {
	return t.inbound
}

func (t *SFUMediaTransport) Close(ctx context.Context) error {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	if t.pc != nil {
		return t.pc.Close()
	}
	return nil
}
