package config

import "time"

// Session-lifecycle timeouts. Callers needing a different overall bound
// can set Config.Timeout, which caps the whole run.
const (
	BootTimeout               = 30 * time.Second
	ShutdownTimeout           = 5 * time.Second
	TrackCloseTimeout         = 3 * time.Second
	SafePublicationEndDelay   = 2 * time.Second
	TrackRetryDelay           = 1 * time.Second
	TrackRetryMaxAttempts     = 10
	EmptyMessageThreshold     = 100
	DedupCapacity             = 100
	TaskConfigHandshakeRetry  = 500 * time.Millisecond
	WriterMercyAttempts       = 3
)

// Preprocessing/transcription/translation parameter defaults.
const (
	VADThresholdDefault                       = 0.5
	VADLeftPaddingDefault                     = 200
	VADRightPaddingDefault                    = 200
	MinSentenceCharactersDefault              = 15
	MinSentenceSecondsDefault                 = 1
	MinSplitIntervalDefault                   = 0.6
	ContextSizeDefault                        = 3
	SegmentsAfterRestartDefault               = 3
	StepSizeDefault                           = 5
	MaxStepsWithoutEOSDefault                 = 30
	ForceEndOfSegmentDefault                  = 5.0
	MinAlignmentScoreDefault                  = 0.6
	MaxAlignmentCERDefault                    = 0.3
	SegmentConfirmationSilenceThresholdDefault = 0.5
	MinTranscriptionLenDefault                = 30
	MinTranscriptionTimeDefault               = 3
	PhraseChanceDefault                       = 0.5
	F0VarianceFactorDefault                   = 1.0
	EnergyVarianceFactorDefault               = 1.0
	SpeechTempoAdjustmentFactorDefault        = 1.0
	DesiredQueueLevelMsDefault                = 8000
	MaxQueueLevelMsDefault                    = 24000
)
