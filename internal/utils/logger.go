package utils

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

type Logger struct {
	level LogLevel
	sugar *zap.SugaredLogger
}

// NewLogger builds a console logger for development and a JSON logger for
// production. An unknown level falls back to info.
func NewLogger(level string, production bool) *Logger {
	logLevel := parseLogLevel(level)

	cfg := zap.NewDevelopmentConfig()
	if production {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(logLevel))
	cfg.DisableStacktrace = true

	base, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		base = zap.NewExample()
	}

	return &Logger{level: logLevel, sugar: base.Sugar()}
}

func NewDiscardLogger() *Logger {
	return &Logger{level: LevelInfo, sugar: zap.NewNop().Sugar()}
}

func parseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func zapLevel(level LogLevel) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) Level() LogLevel {
	return l.level
}

// With returns a logger that carries the given key/value pairs on every entry.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{level: l.level, sugar: l.sugar.With(keysAndValues...)}
}

func (l *Logger) withReq(reqID *string) *zap.SugaredLogger {
	if reqID == nil {
		return l.sugar
	}
	return l.sugar.With("request_id", *reqID)
}

func (l *Logger) Debug(reqID *string, format string, v ...any) {
	l.withReq(reqID).Debugf(format, v...)
}

func (l *Logger) Info(reqID *string, format string, v ...any) {
	l.withReq(reqID).Infof(format, v...)
}

func (l *Logger) Warn(reqID *string, format string, v ...any) {
	l.withReq(reqID).Warnf(format, v...)
}

func (l *Logger) Error(reqID *string, format string, v ...any) {
	l.withReq(reqID).Errorf(format, v...)
}

func (l *Logger) Fatal(reqID *string, format string, v ...any) {
	l.withReq(reqID).Fatalf(format, v...)
}

func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
