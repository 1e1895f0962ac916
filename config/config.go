// Package config defines the pipeline Config value object: source/target
// language settings, preprocessing/transcription/translation parameter
// groups, and the wire (de)serialization in both its canonical
// pipeline-wrapped form and the flattened form used for internal
// construction.
package config

import (
	"github.com/bytedance/sonic"

	"github.com/brightwaveai/streamxlate/shared"
)

// Stream is the shared shape of input_stream / output_stream.
type Stream struct {
	ContentType string `json:"content_type"`
}

type InputStream struct {
	Stream
	Source map[string]string `json:"source"`
}

func defaultInputStream() InputStream {
	return InputStream{Stream: Stream{ContentType: "audio"}, Source: map[string]string{"type": "livekit"}}
}

type OutputStream struct {
	Stream
	Target map[string]string `json:"target"`
}

func defaultOutputStream() OutputStream {
	return OutputStream{Stream: Stream{ContentType: "audio"}, Target: map[string]string{"type": "livekit"}}
}

// Preprocessing groups the VAD and DSP knobs applied before transcription.
type Preprocessing struct {
	EnableVAD      bool     `json:"enable_vad"`
	VADThreshold   float64  `json:"vad_threshold"`
	VADLeftPadding int      `json:"vad_left_padding"`
	VADRightPadding int     `json:"vad_right_padding"`
	PreVADDenoise  bool     `json:"pre_vad_denoise"`
	PreVADDSP      bool     `json:"pre_vad_dsp"`
	RecordTracks   []string `json:"record_tracks"`
	AutoTempo      bool     `json:"auto_tempo"`
}

func defaultPreprocessing() Preprocessing {
	return Preprocessing{
		EnableVAD:       true,
		VADThreshold:    VADThresholdDefault,
		VADLeftPadding:  VADLeftPaddingDefault,
		VADRightPadding: VADRightPaddingDefault,
		PreVADDSP:       true,
		RecordTracks:    []string{},
	}
}

type SplitterAdvanced struct {
	MinSentenceCharacters int     `json:"min_sentence_characters"`
	MinSentenceSeconds    int     `json:"min_sentence_seconds"`
	MinSplitInterval      float64 `json:"min_split_interval"`
	ContextSize           int     `json:"context_size"`
	SegmentsAfterRestart  int     `json:"segments_after_restart"`
	StepSize              int     `json:"step_size"`
	MaxStepsWithoutEOS    int     `json:"max_steps_without_eos"`
	ForceEndOfSegment     float64 `json:"force_end_of_segment"`
}

func defaultSplitterAdvanced() SplitterAdvanced {
	return SplitterAdvanced{
		MinSentenceCharacters: MinSentenceCharactersDefault,
		MinSentenceSeconds:    MinSentenceSecondsDefault,
		MinSplitInterval:      MinSplitIntervalDefault,
		ContextSize:           ContextSizeDefault,
		SegmentsAfterRestart:  SegmentsAfterRestartDefault,
		StepSize:              StepSizeDefault,
		MaxStepsWithoutEOS:    MaxStepsWithoutEOSDefault,
		ForceEndOfSegment:     ForceEndOfSegmentDefault,
	}
}

type Splitter struct {
	Enabled       bool             `json:"enabled"`
	SplitterModel string           `json:"splitter_model"`
	Advanced      SplitterAdvanced `json:"advanced"`
}

func defaultSplitter() Splitter {
	return Splitter{Enabled: true, SplitterModel: "auto", Advanced: defaultSplitterAdvanced()}
}

type Verification struct {
	VerificationModel             string `json:"verification_model"`
	AllowVerificationGlossaries   bool   `json:"allow_verification_glossaries"`
	AutoTranscriptionCorrection   bool   `json:"auto_transcription_correction"`
	TranscriptionCorrectionStyle  string `json:"transcription_correction_style,omitempty"`
}

func defaultVerification() Verification {
	return Verification{VerificationModel: "auto", AllowVerificationGlossaries: true}
}

type FillerPhrases struct {
	Enabled              bool    `json:"enabled"`
	MinTranscriptionLen  int     `json:"min_transcription_len"`
	MinTranscriptionTime int     `json:"min_transcription_time"`
	PhraseChance         float64 `json:"phrase_chance"`
}

func defaultFillerPhrases() FillerPhrases {
	return FillerPhrases{
		MinTranscriptionLen:  MinTranscriptionLenDefault,
		MinTranscriptionTime: MinTranscriptionTimeDefault,
		PhraseChance:         PhraseChanceDefault,
	}
}

type TranscriptionAdvanced struct {
	FillerPhrases    FillerPhrases `json:"filler_phrases"`
	IgnoreLanguages  []string      `json:"ignore_languages"`
}

func defaultTranscriptionAdvanced() TranscriptionAdvanced {
	return TranscriptionAdvanced{FillerPhrases: defaultFillerPhrases(), IgnoreLanguages: []string{}}
}

// TranscriptionParams holds the ASR-side parameter group (named to avoid
// colliding with message.Transcription).
type TranscriptionParams struct {
	DetectableLanguages                 []string              `json:"detectable_languages"`
	ASRModel                             string                `json:"asr_model"`
	Denoise                              string                `json:"denoise"`
	AllowHotwordsGlossaries              bool                  `json:"allow_hotwords_glossaries"`
	SuppressNumeralTokens                bool                  `json:"supress_numeral_tokens"`
	DiarizeSpeakers                      bool                  `json:"diarize_speakers"`
	Priority                             string                `json:"priority"`
	MinAlignmentScore                    float64               `json:"min_alignment_score"`
	MaxAlignmentCER                      float64               `json:"max_alignment_cer"`
	SegmentConfirmationSilenceThreshold  float64               `json:"segment_confirmation_silence_threshold"`
	OnlyConfirmBySilence                 bool                  `json:"only_confirm_by_silence"`
	BatchedInference                     bool                  `json:"batched_inference"`
	ForceDetectLanguage                  bool                  `json:"force_detect_language"`
	CalculateVoiceLoudness               bool                  `json:"calculate_voice_loudness"`
	SentenceSplitter                     Splitter              `json:"sentence_splitter"`
	Verification                        Verification          `json:"verification"`
	Advanced                             TranscriptionAdvanced `json:"advanced"`
}

func defaultTranscriptionParams() TranscriptionParams {
	return TranscriptionParams{
		DetectableLanguages: []string{},
		ASRModel:            "auto",
		Denoise:             "none",
		AllowHotwordsGlossaries: true,
		Priority:            "normal",
		MinAlignmentScore:   MinAlignmentScoreDefault,
		MaxAlignmentCER:     MaxAlignmentCERDefault,
		SegmentConfirmationSilenceThreshold: SegmentConfirmationSilenceThresholdDefault,
		SentenceSplitter:    defaultSplitter(),
		Verification:        defaultVerification(),
		Advanced:             defaultTranscriptionAdvanced(),
	}
}

type TimbreDetection struct {
	Enabled          bool     `json:"enabled"`
	HighTimbreVoices []string `json:"high_timbre_voices"`
	LowTimbreVoices  []string `json:"low_timbre_voices"`
}

func defaultTimbreDetection() TimbreDetection {
	return TimbreDetection{HighTimbreVoices: []string{"default_high"}, LowTimbreVoices: []string{"default_low"}}
}

type TTSAdvanced struct {
	F0VarianceFactor      float64 `json:"f0_variance_factor"`
	EnergyVarianceFactor  float64 `json:"energy_variance_factor"`
	WithCustomStress      bool    `json:"with_custom_stress"`
}

func defaultTTSAdvanced() TTSAdvanced {
	return TTSAdvanced{
		F0VarianceFactor:     F0VarianceFactorDefault,
		EnergyVarianceFactor: EnergyVarianceFactorDefault,
		WithCustomStress:     true,
	}
}

type SpeechGen struct {
	TTSModel                   string          `json:"tts_model"`
	VoiceCloning               bool            `json:"voice_cloning"`
	VoiceCloningMode           string          `json:"voice_cloning_mode"`
	DenoiseVoiceSamples        bool            `json:"denoise_voice_samples"`
	VoiceID                    string          `json:"voice_id"`
	VoiceTimbreDetection       TimbreDetection `json:"voice_timbre_detection"`
	SpeechTempoAuto            bool            `json:"speech_tempo_auto"`
	SpeechTempoTimingsFactor   int             `json:"speech_tempo_timings_factor"`
	SpeechTempoAdjustmentFactor float64        `json:"speech_tempo_adjustment_factor"`
	Advanced                   TTSAdvanced     `json:"advanced"`
}

func defaultSpeechGen() SpeechGen {
	return SpeechGen{
		TTSModel:             "auto",
		VoiceCloningMode:     "static_10",
		DenoiseVoiceSamples:  true,
		VoiceID:              "default_low",
		VoiceTimbreDetection: defaultTimbreDetection(),
		SpeechTempoAuto:      true,
		SpeechTempoAdjustmentFactor: SpeechTempoAdjustmentFactorDefault,
		Advanced:             defaultTTSAdvanced(),
	}
}

// TranslationParams holds the translation-side parameter group.
type TranslationParams struct {
	AllowedSourceLanguages        []string  `json:"allowed_source_languages"`
	TranslationModel              string    `json:"translation_model"`
	AllowTranslationGlossaries    bool      `json:"allow_translation_glossaries"`
	Style                         string    `json:"style,omitempty"`
	TranslatePartialTranscriptions bool     `json:"translate_partial_transcriptions"`
	SpeechGeneration              SpeechGen `json:"speech_generation"`
	Advanced                      struct{}  `json:"advanced"`
}

func defaultTranslationParams() TranslationParams {
	return TranslationParams{
		AllowedSourceLanguages:     []string{},
		TranslationModel:           "auto",
		AllowTranslationGlossaries: true,
		SpeechGeneration:           defaultSpeechGen(),
	}
}

type QueueConfig struct {
	DesiredQueueLevelMs int  `json:"desired_queue_level_ms"`
	MaxQueueLevelMs     int  `json:"max_queue_level_ms"`
	AutoTempo           bool `json:"auto_tempo"`
}

func defaultQueueConfig() QueueConfig {
	return QueueConfig{DesiredQueueLevelMs: DesiredQueueLevelMsDefault, MaxQueueLevelMs: MaxQueueLevelMsDefault}
}

type QueueConfigs struct {
	Global QueueConfig `json:"global"`
}

func defaultQueueConfigs() QueueConfigs {
	return QueueConfigs{Global: defaultQueueConfig()}
}

// SourceLang is the source-language half of Config: a language code plus
// the transcription parameter group and, outside the wire format, the
// Reader and transcription callback the caller supplied.
type SourceLang struct {
	Lang           string               `json:"lang"`
	Transcription  TranscriptionParams  `json:"transcription"`
}

// TargetLang is the (single) target-language half of Config.
type TargetLang struct {
	Lang        string            `json:"lang"`
	Translation TranslationParams `json:"translation"`
}

// AllowedMessageTypes lists every message_type the core accepts.
var AllowedMessageTypes = []string{
	"current_task", "pipeline_timings", "queue_status",
	"partial_transcription", "validated_transcription",
	"translated_partial_transcription", "translated_transcription",
	"output_audio_data", "input_audio_data",
}

// Config is the pipeline configuration value object. Exactly one target
// language is supported; the Reader and Writer bound to the languages are
// validated by Manager at construction, not here.
type Config struct {
	Source SourceLang   `json:"source"`
	Target TargetLang   `json:"target"`

	InputStream              InputStream  `json:"input_stream"`
	OutputStream             OutputStream `json:"output_stream"`
	Preprocessing            Preprocessing `json:"preprocessing"`
	TranslationQueueConfigs  QueueConfigs `json:"translation_queue_configs"`
	AllowedMessageTypes      []string     `json:"allowed_message_types"`

	// Operational fields, never part of the wire form.
	Silent    bool   `json:"-"`
	LogFile   string `json:"-"`
	Debug     bool   `json:"-"`
	DeepDebug bool   `json:"-"`
	Timeout   int    `json:"-"`
	TraceFile string `json:"-"`
}

// New builds a Config with every nested parameter group at its default,
// for sourceLang/targetLang BCP-47 codes.
func New(sourceLang, targetLang string) Config {
	return Config{
		Source:                  SourceLang{Lang: sourceLang, Transcription: defaultTranscriptionParams()},
		Target:                  TargetLang{Lang: targetLang, Translation: defaultTranslationParams()},
		InputStream:             defaultInputStream(),
		OutputStream:            defaultOutputStream(),
		Preprocessing:           defaultPreprocessing(),
		TranslationQueueConfigs: defaultQueueConfigs(),
		AllowedMessageTypes:     append([]string(nil), AllowedMessageTypes...),
	}
}

// Serialize renders cfg in the canonical wire form sent in set_task:
// a top-level input_stream/output_stream plus a nested pipeline object
// folding source_language into transcription and target_language into
// each translations entry.
func (c Config) Serialize() ([]byte, error) {
	transcription := rawTranscriptionOf(c.Source)
	translation := rawTranslationOf(c.Target)

	wire := map[string]any{
		"input_stream":  c.InputStream,
		"output_stream": c.OutputStream,
		"pipeline": map[string]any{
			"preprocessing":              c.Preprocessing,
			"transcription":              transcription,
			"translations":               []any{translation},
			"translation_queue_configs":  c.TranslationQueueConfigs,
			"allowed_message_types":      c.AllowedMessageTypes,
		},
	}
	return sonic.Marshal(wire)
}

func rawTranscriptionOf(s SourceLang) map[string]any {
	var fields map[string]any
	b, _ := sonic.Marshal(s.Transcription)
	_ = sonic.Unmarshal(b, &fields)
	fields["source_language"] = s.Lang
	return fields
}

func rawTranslationOf(t TargetLang) map[string]any {
	var fields map[string]any
	b, _ := sonic.Marshal(t.Translation)
	_ = sonic.Unmarshal(b, &fields)
	fields["target_language"] = t.Lang
	return fields
}

// Parse accepts either the canonical wire form (with a "pipeline" wrapper)
// or the flattened form used for internal construction (source/target at
// top level).
func Parse(data []byte) (Config, error) {
	var raw map[string]any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return Config{}, shared.NewConfigurationError(err)
	}

	if pipeline, ok := raw["pipeline"].(map[string]any); ok {
		delete(raw, "pipeline")
		for k, v := range pipeline {
			raw[k] = v
		}
	}

	cfg := New("", "")

	if inputStream, ok := raw["input_stream"]; ok {
		if err := remarshal(inputStream, &cfg.InputStream); err != nil {
			return Config{}, shared.NewConfigurationError(err)
		}
	}
	if outputStream, ok := raw["output_stream"]; ok {
		if err := remarshal(outputStream, &cfg.OutputStream); err != nil {
			return Config{}, shared.NewConfigurationError(err)
		}
	}
	if preprocessing, ok := raw["preprocessing"]; ok {
		if err := remarshal(preprocessing, &cfg.Preprocessing); err != nil {
			return Config{}, shared.NewConfigurationError(err)
		}
	}
	if qc, ok := raw["translation_queue_configs"]; ok {
		if err := remarshal(qc, &cfg.TranslationQueueConfigs); err != nil {
			return Config{}, shared.NewConfigurationError(err)
		}
	}
	if amt, ok := raw["allowed_message_types"]; ok {
		if err := remarshal(amt, &cfg.AllowedMessageTypes); err != nil {
			return Config{}, shared.NewConfigurationError(err)
		}
	}

	if rawSource, ok := raw["source"].(map[string]any); ok {
		if err := remarshal(rawSource, &cfg.Source); err != nil {
			return Config{}, shared.NewConfigurationError(err)
		}
	} else if transcription, ok := raw["transcription"].(map[string]any); ok {
		lang, _ := transcription["source_language"].(string)
		if lang == "" {
			return Config{}, shared.NewConfigurationError(shared.ErrNoConfig)
		}
		delete(transcription, "source_language")
		if err := remarshal(transcription, &cfg.Source.Transcription); err != nil {
			return Config{}, shared.NewConfigurationError(err)
		}
		cfg.Source.Lang = lang
	}

	if rawTarget, ok := raw["target"].(map[string]any); ok {
		if err := remarshal(rawTarget, &cfg.Target); err != nil {
			return Config{}, shared.NewConfigurationError(err)
		}
	} else if translations, ok := raw["translations"].([]any); ok {
		if len(translations) != 1 {
			return Config{}, shared.NewConfigurationError(shared.ErrMultipleTargets)
		}
		translation, _ := translations[0].(map[string]any)
		lang, _ := translation["target_language"].(string)
		if lang == "" {
			return Config{}, shared.NewConfigurationError(shared.ErrNoConfig)
		}
		delete(translation, "target_language")
		if err := remarshal(translation, &cfg.Target.Translation); err != nil {
			return Config{}, shared.NewConfigurationError(err)
		}
		cfg.Target.Lang = lang
	}

	return cfg, nil
}

func remarshal(src any, dst any) error {
	b, err := sonic.Marshal(src)
	if err != nil {
		return err
	}
	return sonic.Unmarshal(b, dst)
}
