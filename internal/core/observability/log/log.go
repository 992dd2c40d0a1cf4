// Package log is a thin wrapper over zap used for the runtime's own
// diagnostics. Consumers opt in through the world configuration; the
// default logger discards everything.
package log

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field re-exports zap's structured field type.
type Field = zap.Field

// Logger emits structured diagnostics.
type Logger struct {
	zl *zap.Logger
}

// Nop returns a logger that discards all output.
func Nop() *Logger {
	return &Logger{zl: zap.NewNop()}
}

// New builds a console logger at the named level (debug, info, warn,
// error). An unknown or empty level yields the nop logger.
func New(level string) *Logger {
	lvl, ok := toZapLevel(level)
	if !ok {
		return Nop()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.Sampling = nil
	cfg.DisableCaller = true
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	zl, err := cfg.Build()
	if err != nil {
		return Nop()
	}
	return &Logger{zl: zl}
}

func (l *Logger) Debug(msg string, fields ...Field) { l.zl.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.zl.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.zl.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...Field) { l.zl.Error(msg, fields...) }

// With returns a logger that attaches fields to every entry.
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{zl: l.zl.With(fields...)}
}

func toZapLevel(level string) (zapcore.Level, bool) {
	switch level {
	case "debug":
		return zap.DebugLevel, true
	case "info":
		return zap.InfoLevel, true
	case "warn":
		return zap.WarnLevel, true
	case "error":
		return zap.ErrorLevel, true
	default:
		return zap.InfoLevel, false
	}
}

// Convenience constructors mirroring the zap field helpers we use.
var (
	String = zap.String
	Int    = zap.Int
	Bool   = zap.Bool
	Err    = zap.Error
)
