package shared

import "errors"

// Sentinel errors, wrapped by the typed taxonomy in errors_taxonomy.go.
var (
	ErrNoLogger              = errors.New("no logger provided")
	ErrNoAPIKey              = errors.New("no API key provided")
	ErrNoAPISecret           = errors.New("no API secret provided")
	ErrNoConfig              = errors.New("no config provided")
	ErrNoReader              = errors.New("no reader provided")
	ErrNoWriter              = errors.New("no writer provided")
	ErrMultipleTargets       = errors.New("only a single target language is supported")
	ErrSessionAlreadyRunning = errors.New("session already running")
	ErrClientNotInitialized  = errors.New("client not initialized")
	ErrFileNotFound          = errors.New("file not found")
	ErrTrackNotFound         = errors.New("translation track not found")
)
