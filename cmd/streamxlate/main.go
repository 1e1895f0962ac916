// Command streamxlate translates an audio file end to end: it reads PCM16
// from the input, streams it to the translation service, and writes the
// translated audio to a WAV file, printing transcriptions as they arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-yaml"
	"github.com/spf13/viper"

	"github.com/brightwaveai/streamxlate"
	"github.com/brightwaveai/streamxlate/adapter"
	"github.com/brightwaveai/streamxlate/audio"
	"github.com/brightwaveai/streamxlate/config"
	"github.com/brightwaveai/streamxlate/message"
	"github.com/brightwaveai/streamxlate/rt"
	"github.com/brightwaveai/streamxlate/shared"
)

type cliOptions struct {
	input      string
	output     string
	sourceLang string
	targetLang string
	endpoint   string
	wsMedia    bool

	clientID     string
	clientSecret string
	silent       bool
	debug        bool
	deepDebug    bool
	timeout      int
	logFile      string
}

func loadOptions() (cliOptions, error) {
	var o cliOptions
	flag.StringVar(&o.input, "i", "", "input audio file (PCM16 WAV)")
	flag.StringVar(&o.output, "o", "out.wav", "output WAV file")
	flag.StringVar(&o.sourceLang, "s", "en", "source language code")
	flag.StringVar(&o.targetLang, "t", "es", "target language code")
	flag.StringVar(&o.endpoint, "e", streamxlate.DefaultAPIEndpoint, "API endpoint")
	flag.BoolVar(&o.wsMedia, "ws", false, "carry audio on the control WebSocket instead of the SFU room")
	flag.Parse()

	v := viper.New()
	v.SetEnvPrefix("PALABRA")
	v.AutomaticEnv()
	for _, key := range []string{"CLIENT_ID", "CLIENT_SECRET", "SILENT", "DEBUG", "DEEP_DEBUG", "TIMEOUT", "LOG_FILE"} {
		if err := v.BindEnv(key); err != nil {
			return o, err
		}
	}
	o.clientID = v.GetString("CLIENT_ID")
	o.clientSecret = v.GetString("CLIENT_SECRET")
	o.silent = v.GetBool("SILENT")
	o.debug = v.GetBool("DEBUG")
	o.deepDebug = v.GetBool("DEEP_DEBUG")
	o.timeout = v.GetInt("TIMEOUT")
	o.logFile = v.GetString("LOG_FILE")

	if o.input == "" {
		return o, fmt.Errorf("no input file given (-i)")
	}
	if o.clientID == "" || o.clientSecret == "" {
		return o, fmt.Errorf("PALABRA_CLIENT_ID and PALABRA_CLIENT_SECRET must be set")
	}
	return o, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	o, err := loadOptions()
	if err != nil {
		return err
	}

	printer, err := shared.NewPrinter("  ", shared.NewWriteCloser(os.Stdout))
	if err != nil {
		return err
	}

	logger, err := shared.NewStdLogger(o.silent, o.debug || o.deepDebug)
	if err != nil {
		return err
	}

	adapter.Registry().Init(logger)
	defer adapter.Registry().DrainOnExit()

	cfg := config.New(o.sourceLang, o.targetLang)
	cfg.Silent = o.silent
	cfg.Debug = o.debug
	cfg.DeepDebug = o.deepDebug
	cfg.Timeout = o.timeout
	cfg.LogFile = o.logFile

	if !o.silent {
		dump, err := yaml.Marshal(cfg)
		if err == nil {
			_ = printer.Writeln("resolved configuration:", 0)
			_ = printer.Writeln(strings.TrimRight(string(dump), "\n"), 1)
		}
	}

	reader, err := adapter.NewFileReader(o.input, audio.PassthroughDecoder{})
	if err != nil {
		return err
	}
	writer := adapter.NewFileWriter(o.output, 256, false, logger)

	client, err := streamxlate.NewClient(o.endpoint, o.clientID, o.clientSecret, logger)
	if err != nil {
		return err
	}

	params := streamxlate.NewRunParams(cfg, reader, writer)
	params.UseWSMedia = o.wsMedia
	params.Callbacks = map[string]rt.Callback{
		o.sourceLang: {Sync: printTranscription(printer, o.sourceLang)},
		o.targetLang: {Sync: printTranscription(printer, o.targetLang)},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = printer.Writeln("starting translation session...", 0)
	if err := client.Run(ctx, params); err != nil {
		return err
	}
	_ = printer.Writeln(fmt.Sprintf("done, translated audio written to %s", o.output), 0)
	return nil
}

func printTranscription(printer *shared.Printer, lang string) func(message.Transcription) {
	return func(t message.Transcription) {
		_ = printer.Writeln(fmt.Sprintf("[%s] %s", lang, t.Text), 1)
	}
}
