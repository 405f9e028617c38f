// Package debug provides the process-wide debug logger. It is silent
// unless enabled through Init or the QUARRY_DEBUG environment variable.
package debug

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	enabled bool
	logger  = slog.New(slog.DiscardHandler)
)

func init() {
	if os.Getenv("QUARRY_DEBUG") != "" {
		Init(true)
	}
}

// Init switches debug logging on or off. When enabled, records go to
// stderr as text at debug level.
func Init(enable bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = enable
	if enable {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		return
	}
	logger = slog.New(slog.DiscardHandler)
}

// Enabled reports whether debug logging is on.
func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

// With returns the current logger with extra attributes attached.
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}
