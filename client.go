package streamxlate

import (
	"context"
	"time"

	"github.com/brightwaveai/streamxlate/adapter"
	"github.com/brightwaveai/streamxlate/config"
	"github.com/brightwaveai/streamxlate/rt"
	"github.com/brightwaveai/streamxlate/session"
	"github.com/brightwaveai/streamxlate/shared"
	"github.com/brightwaveai/streamxlate/transport"
)

// Version is reported in the JSON trace file and operator logs.
const Version = "0.3.0"

// DefaultAPIEndpoint is the REST endpoint session credentials are acquired
// from when the caller does not override it.
const DefaultAPIEndpoint = "https://api.palabra.ai"

// Client is the top-level entrypoint: it acquires session credentials,
// constructs the transports and the Manager, and hosts the root scheduling
// scope for one translation run.
type Client struct {
	session *session.Client
	log     shared.Logger
}

// NewClient builds a Client against apiEndpoint (DefaultAPIEndpoint if
// empty), authenticating with (apiKey, apiSecret). logger may be nil, in
// which case a console logger is created.
func NewClient(apiEndpoint, apiKey, apiSecret string, logger shared.Logger) (*Client, error) {
	if apiEndpoint == "" {
		apiEndpoint = DefaultAPIEndpoint
	}
	if logger == nil {
		var err error
		logger, err = shared.NewStdLogger(false, false)
		if err != nil {
			return nil, err
		}
	}
	sess, err := session.NewClient(apiEndpoint, apiKey, apiSecret, logger)
	if err != nil {
		return nil, err
	}
	return &Client{session: sess, log: logger}, nil
}

// RunParams bundles everything one translation run needs beyond the
// credentials the Client already holds.
type RunParams struct {
	Cfg    config.Config
	Reader adapter.Reader
	// Writer receives the translated audio. May be nil for
	// transcription-only runs, in which case at least one Callback must be
	// registered.
	Writer adapter.Writer
	// Callbacks maps language codes to transcription callbacks.
	Callbacks map[string]rt.Callback
	// SuppressCallbackErrors logs-and-swallows callback panics/errors
	// instead of propagating them to the supervisor. Defaults to true via
	// NewRunParams.
	SuppressCallbackErrors bool
	// UseWSMedia forces audio onto the control WebSocket even when the
	// credentials carry an SFU stream URL.
	UseWSMedia bool

	SampleRate      int
	NumChannels     int
	ChunkDurationMs int64
}

// NewRunParams returns RunParams with the defaults every run wants:
// callback errors suppressed, session framing left to Manager's defaults.
func NewRunParams(cfg config.Config, reader adapter.Reader, writer adapter.Writer) RunParams {
	return RunParams{
		Cfg:                    cfg,
		Reader:                 reader,
		Writer:                 writer,
		SuppressCallbackErrors: true,
	}
}

// Run executes one full translation session: acquire credentials, connect
// both transports, run the task graph to end-of-input (or until ctx or the
// configured timeout cancels it), and drain everything gracefully. It
// returns the first fatal error, or nil on a clean end-of-stream run.
func (c *Client) Run(ctx context.Context, p RunParams) error {
	if p.Reader == nil {
		return shared.NewConfigurationError(shared.ErrNoReader)
	}
	if p.Cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(p.Cfg.Timeout)*time.Second)
		defer cancel()
	}

	creds, err := c.session.CreateSession(ctx)
	if err != nil {
		return err
	}

	log := c.log
	if p.Cfg.LogFile != "" {
		fileLog := shared.NewFileLogger(p.Cfg.LogFile, 50, 3, 7, false)
		log = shared.NewTeeLogger(log, fileLog)
		if p.Cfg.TraceFile == "" {
			p.Cfg.TraceFile = p.Cfg.LogFile + ".trace.json"
		}
	}

	opts := rt.ManagerOptions{
		SampleRate:      p.SampleRate,
		NumChannels:     p.NumChannels,
		ChunkDurationMs: p.ChunkDurationMs,
		Version:         Version,
	}
	realtime, err := buildRealtime(p, creds, opts, log)
	if err != nil {
		return err
	}

	mgr, err := rt.NewManager(p.Cfg, realtime, p.Reader, p.Writer, p.Callbacks, p.SuppressCallbackErrors, opts, log)
	if err != nil {
		return err
	}
	return mgr.Run(ctx)
}

// buildRealtime picks the media channel for this run — an SFU room when
// the credentials carry a stream URL, otherwise audio multiplexed onto the
// control WebSocket — and wires it together with the control transport
// into a Realtime.
func buildRealtime(p RunParams, creds session.Credentials, opts rt.ManagerOptions, log shared.Logger) (*rt.Realtime, error) {
	opts.SampleRate, opts.NumChannels, opts.ChunkDurationMs = sessionFraming(opts)

	control := transport.NewWSControlTransport(log)

	wsMode := p.UseWSMedia || creds.StreamURL == ""
	controlURL := creds.ControlURL
	if wsMode && creds.WSURL != "" {
		controlURL = creds.WSURL
	}

	var media transport.MediaTransport
	var joiner func(ctx context.Context) error
	if wsMode {
		media = transport.NewWSMediaTransport(control, opts.SampleRate, opts.NumChannels)
	} else {
		sfu, err := transport.NewSFUMediaTransport(transport.NewRESTNegotiator(), opts.SampleRate, opts.NumChannels, p.Cfg.Target.Lang, log)
		if err != nil {
			return nil, shared.NewBootError(err)
		}
		media = sfu
		joiner = func(ctx context.Context) error {
			return sfu.Join(ctx, creds.StreamURL, creds.JWTToken, config.BootTimeout, config.TrackRetryDelay)
		}
	}

	realtime := rt.NewRealtime(control, media, p.Cfg, controlURL, creds.JWTToken, log)
	if joiner != nil {
		realtime.SetMediaJoiner(joiner)
	}
	return realtime, nil
}

func sessionFraming(opts rt.ManagerOptions) (rate, channels int, chunkMs int64) {
	rate, channels, chunkMs = opts.SampleRate, opts.NumChannels, opts.ChunkDurationMs
	if rate == 0 {
		rate = 48000
	}
	if channels == 0 {
		channels = 1
	}
	if chunkMs == 0 {
		chunkMs = 20
	}
	return rate, channels, chunkMs
}
