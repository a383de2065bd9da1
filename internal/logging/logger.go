// File: internal/logging/logger.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Structured logging for the head unit: logr front end over a zap core with
// a console encoder and an adjustable level.

package logging

import (
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	verbosityFlagName      = "verbosity"
	verbosityFlagShortName = "v"
)

// Logger couples a logr.Logger with its level control and flush hook.
type Logger struct {
	logr.Logger
	atomicLevel zap.AtomicLevel
	flush       func()
}

// New builds a console logger writing to stderr at info level.
func New(name string) *Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), level)
	zapLogger := zap.New(core)

	return &Logger{
		Logger:      zapr.NewLogger(zapLogger).WithName(name),
		atomicLevel: level,
		flush: func() {
			_ = zapLogger.Sync()
		},
	}
}

// SetLevel changes the minimum enabled level.
func (l *Logger) SetLevel(level zapcore.Level) {
	l.atomicLevel.SetLevel(level)
}

// Flush syncs buffered output.
func (l *Logger) Flush() {
	l.flush()
}

// AddLevelFlag registers -v/--verbosity on fs, bound to this logger.
func (l *Logger) AddLevelFlag(fs *pflag.FlagSet) {
	levelVal := NewLevelFlagValue(l.SetLevel)
	fs.VarP(&levelVal, verbosityFlagName, verbosityFlagShortName,
		"Logging verbosity level (e.g. -v=debug). One of 'debug', 'info', 'error', or a positive integer for increasing debug verbosity.")
}
