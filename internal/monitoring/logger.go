package monitoring

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	base = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(zerolog.InfoLevel).
		With().
		Timestamp().
		Logger()
)

// Logf is the package-level diagnostic logger used by printf-style hooks
// such as the migration logger. It defaults to a debug message on the
// structured logger but may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = func(format string, v ...interface{}) {
	Base().Debug().Msg(fmt.Sprintf(format, v...))
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Configure replaces the structured logger. A nil writer keeps stderr;
// console selects the human-readable writer instead of JSON lines.
func Configure(w io.Writer, level zerolog.Level, console bool) {
	if w == nil {
		w = os.Stderr
	}
	if console {
		w = zerolog.ConsoleWriter{Out: w}
	}
	l := zerolog.New(w).Level(level).With().Timestamp().Logger()
	mu.Lock()
	base = l
	mu.Unlock()
}

// Base returns a copy of the current structured logger.
func Base() *zerolog.Logger {
	mu.RLock()
	l := base
	mu.RUnlock()
	return &l
}

// Logger returns the structured logger tagged with a component field.
func Logger(component string) *zerolog.Logger {
	l := Base().With().Str("component", component).Logger()
	return &l
}

// ParseLevel maps a level name such as "debug" or "warn" to a zerolog
// level, defaulting to info for an empty string.
func ParseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	return zerolog.ParseLevel(s)
}
