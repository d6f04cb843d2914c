// Package log holds the process-wide zap logger.
//
// Library packages call the helpers below; nothing is emitted until a binary
// calls Init. Callers must never pass key material, salts or plaintext as
// fields.
package log

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	logger.Store(zap.NewNop())
}

// Init replaces the global logger. Level is one of debug, info, warn, error.
func Init(level string, development bool) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("parsing log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if development {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	Set(l)
	return nil
}

// Set installs l as the global logger. Tests use it with zaptest/observer.
func Set(l *zap.Logger) {
	logger.Store(l)
}

func current() *zap.Logger {
	return logger.Load()
}

// Debug logs per-message pipeline detail.
func Debug(msg string, fields ...zap.Field) { current().Debug(msg, fields...) }

// Info logs batch-level progress.
func Info(msg string, fields ...zap.Field) { current().Info(msg, fields...) }

// Warn logs a failure the caller recovers from, such as one message of a
// batch failing to open.
func Warn(msg string, fields ...zap.Field) { current().Warn(msg, fields...) }

// Error logs a failure that ends the current command.
func Error(msg string, fields ...zap.Field) { current().Error(msg, fields...) }

// Sync flushes buffered entries.
func Sync() error {
	return current().Sync()
}
