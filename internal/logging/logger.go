// Package logging provides the logging interface and default implementation for zcheck.
//
// Design: four leveled methods plus Fatalf, mirroring the classic Error/Warn/Info/Debug split.
// The default implementation writes through a zerolog console writer; callers that want
// JSON or another sink can wrap their own logger.
//
// Fatalf logs at FATAL level and calls the configured FatalHandler. It never exits the
// process; the harness decides its own exit code.
//
// Log format: HH:MM:SS LEVEL [component] message
//
// Example: 18:45:13 INFO [suite] running 4 checks
//
// Component namespace prefixes:
//   - [suite] : check runner
//   - [bench] : throughput benchmark
//   - [config]: configuration loading
//   - [frame] : framed block codec
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// ErrFatal is the sentinel error wrapped by fatal conditions.
var ErrFatal = errors.New("fatal error")

// FatalHandler is called when Fatalf is invoked.
//
// Contract: FatalHandler must be safe for concurrent use.
// Contract: FatalHandler must not call Fatalf.
type FatalHandler func(msg string)

// Level represents the logging level.
type Level int

const (
	// LevelError logs only errors.
	LevelError Level = iota
	// LevelWarn logs warnings and errors.
	LevelWarn
	// LevelInfo logs info, warnings, and errors.
	LevelInfo
	// LevelDebug logs everything including debug messages.
	LevelDebug
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a case-insensitive level name to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "info", "":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelError:
		return zerolog.ErrorLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelDebug:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger defines the interface for harness logging.
//
// Concurrency: DefaultLogger and Discard are safe for concurrent use.
type Logger interface {
	// Errorf logs a formatted error message.
	Errorf(format string, args ...any)

	// Warnf logs a formatted warning message.
	Warnf(format string, args ...any)

	// Infof logs a formatted informational message.
	Infof(format string, args ...any)

	// Debugf logs a formatted debug message.
	Debugf(format string, args ...any)

	// Fatalf logs a fatal error and triggers the fatal handler.
	Fatalf(format string, args ...any)
}

// DefaultLogger writes leveled lines through zerolog.
// Level is read-only after construction.
type DefaultLogger struct {
	zl           zerolog.Logger
	level        Level
	fatalHandler atomic.Pointer[FatalHandler]
}

// NewDefaultLogger creates a new default logger with the specified level.
// It writes to stderr.
func NewDefaultLogger(level Level) *DefaultLogger {
	return NewLogger(os.Stderr, level)
}

// NewLogger creates a new logger with the specified output and level.
// Colour is enabled only when w is a terminal.
func NewLogger(w io.Writer, level Level) *DefaultLogger {
	cw := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: "15:04:05",
		NoColor:    !isTerminal(w),
		FormatLevel: func(i any) string {
			return strings.ToUpper(fmt.Sprint(i))
		},
	}
	return &DefaultLogger{
		zl:    zerolog.New(cw).Level(level.zerolog()).With().Timestamp().Logger(),
		level: level,
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}

// SetFatalHandler sets the handler called when Fatalf is invoked.
func (l *DefaultLogger) SetFatalHandler(h FatalHandler) {
	l.fatalHandler.Store(&h)
}

// Level returns the logging level.
func (l *DefaultLogger) Level() Level {
	return l.level
}

// Errorf logs a formatted error message.
func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.zl.Error().Msgf(format, args...)
}

// Warnf logs a formatted warning message.
func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.zl.Warn().Msgf(format, args...)
}

// Infof logs a formatted informational message.
func (l *DefaultLogger) Infof(format string, args ...any) {
	l.zl.Info().Msgf(format, args...)
}

// Debugf logs a formatted debug message.
func (l *DefaultLogger) Debugf(format string, args ...any) {
	l.zl.Debug().Msgf(format, args...)
}

// Fatalf logs a fatal error and triggers the fatal handler.
// WithLevel is used instead of Fatal so zerolog does not exit the process.
func (l *DefaultLogger) Fatalf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.zl.WithLevel(zerolog.FatalLevel).Msg(msg)

	if h := l.fatalHandler.Load(); h != nil {
		(*h)(msg)
	}
}

// Namespace prefixes for log messages.
const (
	// NSSuite is the namespace for the check runner.
	NSSuite = "[suite] "
	// NSBench is the namespace for throughput benchmarks.
	NSBench = "[bench] "
	// NSConfig is the namespace for configuration loading.
	NSConfig = "[config] "
	// NSFrame is the namespace for the framed block codec.
	NSFrame = "[frame] "
)

// IsNil returns true if the logger is nil or a typed-nil.
func IsNil(l Logger) bool {
	if l == nil {
		return true
	}
	v := reflect.ValueOf(l)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// OrDefault returns the provided logger if it is valid (non-nil and not typed-nil),
// otherwise returns a default WARN-level logger.
func OrDefault(l Logger) Logger {
	if IsNil(l) {
		return NewDefaultLogger(LevelWarn)
	}
	return l
}
