// Package logging builds the zap loggers shared by the engine and the CLI.
package logging

import (
	"os"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// NewLogger returns a console logger at info level writing to stderr.
func NewLogger(name string) *zap.SugaredLogger {
	return newLogger(name, zapcore.InfoLevel)
}

// NewDebugLogger is NewLogger at debug level.
func NewDebugLogger(name string) *zap.SugaredLogger {
	return newLogger(name, zapcore.DebugLevel)
}

func newLogger(name string, level zapcore.Level) *zap.SugaredLogger {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encCfg),
		zapcore.Lock(os.Stderr),
		zap.NewAtomicLevelAt(level),
	)
	return zap.New(core).Named(name).Sugar()
}

// NewNop returns a logger that discards everything.
func NewNop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// NewTestLogger returns a logger writing through tb plus the observed
// entries so tests can assert on warnings.
func NewTestLogger(tb testing.TB) (*zap.SugaredLogger, *observer.ObservedLogs) {
	obsCore, logs := observer.New(zapcore.DebugLevel)
	core := zapcore.NewTee(zaptest.NewLogger(tb).Core(), obsCore)
	return zap.New(core).Sugar(), logs
}
