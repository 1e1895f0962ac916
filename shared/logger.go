package shared

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured-logging facade every task in this module takes
// instead of writing to stdout/stderr directly.
type Logger interface {
	Error(msg string, err error, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	With(fields ...zap.Field) Logger
}

type zapLogger struct {
	logger *zap.Logger
}

var _ Logger = (*zapLogger)(nil)

func (l *zapLogger) Error(msg string, err error, fields ...zap.Field) {
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.logger.Error(msg, fields...)
}

func (l *zapLogger) Warn(msg string, fields ...zap.Field) {
	l.logger.Warn(msg, fields...)
}

func (l *zapLogger) Info(msg string, fields ...zap.Field) {
	l.logger.Info(msg, fields...)
}

func (l *zapLogger) Debug(msg string, fields ...zap.Field) {
	l.logger.Debug(msg, fields...)
}

func (l *zapLogger) With(fields ...zap.Field) Logger {
	return &zapLogger{logger: l.logger.With(fields...)}
}

// NewStdLogger returns a console logger at INFO level, dropped to WARN when
// silent is set or raised to DEBUG when debug is set.
func NewStdLogger(silent, debug bool) (Logger, error) {
	cfg := zap.NewProductionConfig()
	switch {
	case debug:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case silent:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &zapLogger{logger: logger}, nil
}

// NewFileLogger returns a logger that writes JSON-encoded, size-rotated
// records to filename via lumberjack, always at DEBUG level. rt.Logger's
// trace file does not include these records.
func NewFileLogger(filename string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) Logger {
	hook := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		zapcore.AddSync(hook),
		zapcore.DebugLevel,
	)
	return &zapLogger{logger: zap.New(core, zap.AddCallerSkip(1))}
}

// NewTeeLogger fans log records out to two loggers at once, used when a
// console logger and a rotated file logger must both receive every record.
func NewTeeLogger(a, b Logger) Logger {
	return &teeLogger{a: a, b: b}
}

type teeLogger struct {
	a, b Logger
}

var _ Logger = (*teeLogger)(nil)

func (t *teeLogger) Error(msg string, err error, fields ...zap.Field) {
	t.a.Error(msg, err, fields...)
	t.b.Error(msg, err, fields...)
}

func (t *teeLogger) Warn(msg string, fields ...zap.Field) {
	t.a.Warn(msg, fields...)
	t.b.Warn(msg, fields...)
}

func (t *teeLogger) Info(msg string, fields ...zap.Field) {
	t.a.Info(msg, fields...)
	t.b.Info(msg, fields...)
}

func (t *teeLogger) Debug(msg string, fields ...zap.Field) {
	t.a.Debug(msg, fields...)
	t.b.Debug(msg, fields...)
}

func (t *teeLogger) With(fields ...zap.Field) Logger {
	return &teeLogger{a: t.a.With(fields...), b: t.b.With(fields...)}
}
